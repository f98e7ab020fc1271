package badge

import (
	"time"

	"backend-esterun/internal/tracking"
)

// Activity is the part of a finished activity the rules look at. StartTime
// should already be in the user's local zone.
type Activity struct {
	DistanceKm float64
	Pace       tracking.Pace
	StartTime  time.Time
}

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	rule func(Activity) bool
}

// Catalog lists every badge in display order.
var Catalog = []Badge{
	{
		ID:          "first_step",
		Name:        "First Step",
		Description: "Finish your first activity.",
		rule:        func(Activity) bool { return true },
	},
	{
		ID:          "5k_finisher",
		Name:        "5K Finisher",
		Description: "Cover at least 5 kilometers in one activity.",
		rule:        func(a Activity) bool { return a.DistanceKm >= 5 },
	},
	{
		ID:          "10k_finisher",
		Name:        "10K Finisher",
		Description: "Cover at least 10 kilometers in one activity.",
		rule:        func(a Activity) bool { return a.DistanceKm >= 10 },
	},
	{
		ID:          "early_bird",
		Name:        "Early Bird",
		Description: "Start an activity between 4 and 7 in the morning.",
		rule: func(a Activity) bool {
			h := a.StartTime.Hour()
			return h >= 4 && h < 7
		},
	},
	{
		ID:          "night_owl",
		Name:        "Night Owl",
		Description: "Start an activity after 8 in the evening.",
		rule:        func(a Activity) bool { return a.StartTime.Hour() >= 20 },
	},
	{
		ID:          "speedster",
		Name:        "Speedster",
		Description: "Average under 5:00 min/km over at least 1 km.",
		rule: func(a Activity) bool {
			return a.DistanceKm >= 1 && a.Pace.Defined() && a.Pace < 5*60
		},
	},
}

func Lookup(id string) (Badge, bool) {
	for _, b := range Catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Evaluate returns the badges a earns that are not in owned.
func Evaluate(a Activity, owned map[string]bool) []Badge {
	var earned []Badge
	for _, b := range Catalog {
		if owned[b.ID] {
			continue
		}
		if b.rule(a) {
			earned = append(earned, b)
		}
	}
	return earned
}
