package activity

import (
	"errors"
	"time"

	"backend-esterun/internal/tracking"
)

var (
	ErrNotFound   = errors.New("activity not found")
	ErrEmptyTitle = errors.New("title must not be empty")
)

// Activity is a saved activity as stored and listed.
type Activity struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	Kind      tracking.Kind         `json:"type"`
	Title     string                `json:"title"`
	Location  string                `json:"location"`
	DistanceM float64               `json:"distance_m"`
	DurationS int64                 `json:"duration_s"`
	Pace      tracking.Pace         `json:"pace"`
	Calories  float64               `json:"calories"`
	StepCount *int                  `json:"steps,omitempty"`
	Route     []tracking.RoutePoint `json:"route_path,omitempty"`
	StartTime time.Time             `json:"start_time"`
	PhotoURL  string                `json:"photo_url,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

func (a Activity) Record() tracking.ActivityRecord {
	return tracking.ActivityRecord{
		UserID:      a.UserID,
		Kind:        a.Kind,
		DistanceM:   a.DistanceM,
		DurationS:   a.DurationS,
		AveragePace: a.Pace,
		Calories:    a.Calories,
		Route:       a.Route,
		StartTime:   a.StartTime,
		Title:       a.Title,
		Location:    a.Location,
		StepCount:   a.StepCount,
	}
}

// Patch carries the editable fields; nil means unchanged.
type Patch struct {
	Title    *string `json:"title"`
	Location *string `json:"location"`
}
