package tracking

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Kind string

const (
	KindRunning Kind = "running"
	KindWalking Kind = "walking"
	KindCycling Kind = "cycling"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRunning, KindWalking, KindCycling:
		return k, nil
	case "":
		return KindRunning, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// GeoSample is one reading from the location provider.
type GeoSample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (s GeoSample) Point() RoutePoint {
	return RoutePoint{Lat: s.Lat, Lng: s.Lng}
}

// RawSample is the loosely typed shape a device submits. Parse it before it
// reaches the session.
type RawSample struct {
	Lat       *float64   `json:"lat"`
	Lng       *float64   `json:"lng"`
	Accuracy  *float64   `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r RawSample) Parse(receivedAt time.Time) (GeoSample, error) {
	if r.Lat == nil || r.Lng == nil || r.Accuracy == nil {
		return GeoSample{}, fmt.Errorf("%w: lat, lng and accuracy required", ErrMalformedSample)
	}
	for _, v := range []float64{*r.Lat, *r.Lng, *r.Accuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return GeoSample{}, fmt.Errorf("%w: non-finite field", ErrMalformedSample)
		}
	}
	s := GeoSample{Lat: *r.Lat, Lng: *r.Lng, Accuracy: *r.Accuracy, Timestamp: receivedAt}
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		s.Timestamp = *r.Timestamp
	}
	return s, nil
}

type RoutePoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ActivityRecord is the finalized snapshot of a session handed to persistence.
type ActivityRecord struct {
	UserID      string       `json:"user_id"`
	Kind        Kind         `json:"type"`
	DistanceM   float64      `json:"distance_m"`
	DurationS   int64        `json:"duration_s"`
	AveragePace Pace         `json:"pace"`
	Calories    float64      `json:"calories"`
	Route       []RoutePoint `json:"route_path"`
	StartTime   time.Time    `json:"start_time"`
	Title       string       `json:"title"`
	Location    string       `json:"location,omitempty"`
	StepCount   *int         `json:"steps,omitempty"`
}

func (r ActivityRecord) DistanceKm() float64 {
	return r.DistanceM / 1000
}

type SavedActivity struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UnlockedBadges []string  `json:"unlocked_badges,omitempty"`
}

type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateError     State = "error"
	StateTracking  State = "tracking"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateSaved     State = "saved"
	StateDiscarded State = "discarded"
)

// Terminal states end the controller loop.
func (s State) Terminal() bool {
	return s == StateSaved || s == StateDiscarded
}

// Active states hold the location subscription.
func (s State) Active() bool {
	return s == StateAcquiring || s == StateTracking || s == StatePaused
}

// Snapshot is a read-only view of a session. Route is a copy.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	State     State           `json:"state"`
	Kind      Kind            `json:"type"`
	DistanceM float64         `json:"distance_m"`
	DurationS int64           `json:"duration_s"`
	Elapsed   string          `json:"elapsed"`
	Pace      Pace            `json:"pace"`
	Calories  float64         `json:"calories"`
	Route     []RoutePoint    `json:"route"`
	Position  *GeoSample      `json:"position,omitempty"`
	Locked    bool            `json:"gps_locked"`
	StartedAt time.Time       `json:"started_at,omitempty"`
	Error     string          `json:"error,omitempty"`
	Candidate *ActivityRecord `json:"candidate,omitempty"`
	Saved     *SavedActivity  `json:"saved,omitempty"`
}
