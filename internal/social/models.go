package social

import (
	"errors"
	"time"

	"backend-esterun/internal/tracking"
)

var (
	ErrSelfFollow   = errors.New("cannot follow yourself")
	ErrEmptyComment = errors.New("comment must not be empty")
)

type Comment struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type Follow struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

// FeedItem is an activity summary as shown in the feed, without its route.
type FeedItem struct {
	ActivityID string        `json:"activity_id"`
	UserID     string        `json:"user_id"`
	Kind       tracking.Kind `json:"type"`
	Title      string        `json:"title"`
	Location   string        `json:"location"`
	DistanceM  float64       `json:"distance_m"`
	DurationS  int64         `json:"duration_s"`
	Pace       tracking.Pace `json:"pace"`
	PhotoURL   string        `json:"photo_url,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	Likes      int           `json:"likes"`
	Comments   int           `json:"comments"`
	LikedByMe  bool          `json:"liked_by_me"`
}
