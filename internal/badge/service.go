package badge

import (
	"context"
	"fmt"
	"time"

	"backend-esterun/internal/db"
)

type Unlocked struct {
	Badge
	UnlockedAt time.Time `json:"unlocked_at"`
}

type Service struct {
	db  db.Querier
	loc *time.Location
}

func NewService(db db.Querier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{db: db, loc: loc}
}

// ForUser lists the badges a user has unlocked, oldest first.
func (s *Service) ForUser(ctx context.Context, userID string) ([]Unlocked, error) {
	rows, err := s.db.Query(ctx, `
		SELECT badge_id, unlocked_at
		FROM user_badges
		WHERE user_id=$1
		ORDER BY unlocked_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Unlocked
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		b, ok := Lookup(id)
		if !ok {
			continue
		}
		out = append(out, Unlocked{Badge: b, UnlockedAt: at})
	}
	return out, rows.Err()
}

// Check unlocks every badge the activity earns and returns the new ones.
func (s *Service) Check(ctx context.Context, userID string, a Activity) ([]Badge, error) {
	if userID == "" {
		return nil, nil
	}
	owned, err := s.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	have := make(map[string]bool, len(owned))
	for _, u := range owned {
		have[u.ID] = true
	}

	a.StartTime = a.StartTime.In(s.loc)
	earned := Evaluate(a, have)
	for _, b := range earned {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO user_badges (user_id, badge_id)
			VALUES ($1,$2)
			ON CONFLICT DO NOTHING
		`, userID, b.ID); err != nil {
			return nil, fmt.Errorf("unlock %s: %w", b.ID, err)
		}
	}
	return earned, nil
}
