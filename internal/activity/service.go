package activity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"backend-esterun/internal/badge"
	"backend-esterun/internal/db"
	"backend-esterun/internal/tracking"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BadgeChecker unlocks achievements for a freshly saved activity.
type BadgeChecker interface {
	Check(ctx context.Context, userID string, a badge.Activity) ([]badge.Badge, error)
}

type Service struct {
	db     db.Querier
	badges BadgeChecker
}

func NewService(db db.Querier, badges BadgeChecker) *Service {
	return &Service{db: db, badges: badges}
}

const columns = `id, user_id, type, title, location, distance_m, duration_s, pace, calories,
	COALESCE(steps, 0), route_path, start_time, photo_url, created_at`

// Save stores a finished session. It satisfies tracking.Saver.
func (s *Service) Save(ctx context.Context, rec tracking.ActivityRecord) (*tracking.SavedActivity, error) {
	route, err := tracking.RouteGeoJSON(rec.Route)
	if err != nil {
		return nil, fmt.Errorf("encode route: %w", err)
	}
	var steps *int
	if rec.StepCount != nil {
		v := *rec.StepCount
		steps = &v
	}
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = tracking.DefaultTitle(rec.Kind, rec.StartTime)
	}

	saved := &tracking.SavedActivity{ID: uuid.NewString()}
	row := s.db.QueryRow(ctx, `
		INSERT INTO activities (id, user_id, type, title, location, distance_m, duration_s, pace, calories, steps, route_path, start_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at
	`, saved.ID, rec.UserID, string(rec.Kind), title, rec.Location, rec.DistanceM, rec.DurationS,
		rec.AveragePace.String(), rec.Calories, steps, route, rec.StartTime)
	if err := row.Scan(&saved.CreatedAt); err != nil {
		return nil, err
	}

	if s.badges != nil {
		unlocked, err := s.badges.Check(ctx, rec.UserID, badge.Activity{
			DistanceKm: rec.DistanceKm(),
			Pace:       rec.AveragePace,
			StartTime:  rec.StartTime,
		})
		if err != nil {
			log.Printf("activity: badges for %s: %v", saved.ID, err)
		}
		for _, b := range unlocked {
			saved.UnlockedBadges = append(saved.UnlockedBadges, b.ID)
		}
	}
	return saved, nil
}

// List returns a user's activities, newest first. Routes are omitted.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+columns+`
		FROM activities
		WHERE user_id=$1
		ORDER BY start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		a.Route = nil
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get loads one activity owned by userID, including its route.
func (s *Service) Get(ctx context.Context, id, userID string) (Activity, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+columns+`
		FROM activities
		WHERE id=$1 AND user_id=$2
	`, id, userID)
	a, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	return a, err
}

func (s *Service) UpdateTitle(ctx context.Context, id, userID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return s.update(ctx, `UPDATE activities SET title=$3 WHERE id=$1 AND user_id=$2`, id, userID, title)
}

func (s *Service) UpdateLocation(ctx context.Context, id, userID, location string) error {
	return s.update(ctx, `UPDATE activities SET location=$3 WHERE id=$1 AND user_id=$2`, id, userID, strings.TrimSpace(location))
}

func (s *Service) UpdatePhoto(ctx context.Context, id, userID, url string) error {
	return s.update(ctx, `UPDATE activities SET photo_url=$3 WHERE id=$1 AND user_id=$2`, id, userID, url)
}

func (s *Service) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM activities WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) update(ctx context.Context, sql, id, userID string, value any) error {
	tag, err := s.db.Exec(ctx, sql, id, userID, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var (
		a     Activity
		kind  string
		pace  string
		steps int
		route []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &kind, &a.Title, &a.Location, &a.DistanceM, &a.DurationS,
		&pace, &a.Calories, &steps, &route, &a.StartTime, &a.PhotoURL, &a.CreatedAt)
	if err != nil {
		return Activity{}, err
	}
	a.Kind = tracking.Kind(kind)
	if a.Pace, err = tracking.ParsePace(pace); err != nil {
		a.Pace = tracking.PaceFor(a.DistanceM, a.DurationS)
	}
	if a.Kind == tracking.KindWalking {
		a.StepCount = &steps
	}
	if a.Route, err = tracking.RouteFromGeoJSON(route); err != nil {
		return Activity{}, fmt.Errorf("decode route of %s: %w", a.ID, err)
	}
	return a, nil
}
