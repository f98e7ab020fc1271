package social

import (
	"context"
	"strings"

	"backend-esterun/internal/db"
	"backend-esterun/internal/tracking"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Like(ctx context.Context, activityID, userID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO activity_likes (activity_id, user_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, activityID, userID)
	return err
}

func (s *Service) Unlike(ctx context.Context, activityID, userID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM activity_likes WHERE activity_id=$1 AND user_id=$2
	`, activityID, userID)
	return err
}

func (s *Service) Comment(ctx context.Context, activityID, userID, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, ErrEmptyComment
	}
	c := Comment{
		ID:         uuid.NewString(),
		ActivityID: activityID,
		UserID:     userID,
		Content:    content,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO activity_comments (id, activity_id, user_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, c.ID, c.ActivityID, c.UserID, c.Content)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// Comments lists an activity's comments, oldest first.
func (s *Service) Comments(ctx context.Context, activityID string) ([]Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, activity_id, user_id, content, created_at
		FROM activity_comments
		WHERE activity_id=$1
		ORDER BY created_at
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ActivityID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return ErrSelfFollow
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_follows (follower_id, following_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, followerID, followingID)
	return err
}

func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM user_follows WHERE follower_id=$1 AND following_id=$2
	`, followerID, followingID)
	return err
}

// Feed returns the user's own and followed users' activities, newest first.
func (s *Service) Feed(ctx context.Context, userID string, limit int) ([]FeedItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.user_id, a.type, a.title, a.location, a.distance_m, a.duration_s, a.pace, a.photo_url, a.start_time,
			(SELECT count(*) FROM activity_likes l WHERE l.activity_id = a.id),
			(SELECT count(*) FROM activity_comments c WHERE c.activity_id = a.id),
			EXISTS (SELECT 1 FROM activity_likes l WHERE l.activity_id = a.id AND l.user_id = $1)
		FROM activities a
		WHERE a.user_id=$1
		   OR a.user_id IN (SELECT following_id FROM user_follows WHERE follower_id=$1)
		ORDER BY a.start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FeedItem
	for rows.Next() {
		var (
			it   FeedItem
			kind string
			pace string
		)
		if err := rows.Scan(&it.ActivityID, &it.UserID, &kind, &it.Title, &it.Location, &it.DistanceM, &it.DurationS,
			&pace, &it.PhotoURL, &it.StartTime, &it.Likes, &it.Comments, &it.LikedByMe); err != nil {
			return nil, err
		}
		it.Kind = tracking.Kind(kind)
		it.Pace, _ = tracking.ParsePace(pace)
		items = append(items, it)
	}
	return items, rows.Err()
}
