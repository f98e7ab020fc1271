package db

import (
	"context"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		distance_m DOUBLE PRECISION NOT NULL,
		duration_s BIGINT NOT NULL,
		pace TEXT NOT NULL,
		calories DOUBLE PRECISION NOT NULL,
		steps INTEGER,
		route_path JSONB,
		start_time TIMESTAMPTZ NOT NULL,
		photo_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_user_start ON activities (user_id, start_time DESC)`,
	`CREATE TABLE IF NOT EXISTS user_badges (
		user_id TEXT NOT NULL,
		badge_id TEXT NOT NULL,
		unlocked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, badge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_likes (
		activity_id UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (activity_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_comments (
		id UUID PRIMARY KEY,
		activity_id UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_follows (
		follower_id TEXT NOT NULL,
		following_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (follower_id, following_id)
	)`,
	`CREATE TABLE IF NOT EXISTS storage_objects (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		url TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables the API relies on.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
