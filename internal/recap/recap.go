package recap

import (
	"time"

	"backend-esterun/internal/tracking"

	"github.com/montanaflynn/stats"
)

// Entry is one activity as the recap sees it.
type Entry struct {
	DistanceM float64
	DurationS int64
	Calories  float64
	Pace      tracking.Pace
	StartTime time.Time
}

type Persona string

const (
	PersonaNew            Persona = "Ready to Start"
	PersonaRunner         Persona = "Runner"
	PersonaEarlyBird      Persona = "Early Bird"
	PersonaNightOwl       Persona = "Night Owl"
	PersonaWeekendWarrior Persona = "Weekend Warrior"
)

type Summary struct {
	Count          int           `json:"activity_count"`
	TotalKm        float64       `json:"total_distance_km"`
	TotalDurationS int64         `json:"total_duration_s"`
	TotalCalories  float64       `json:"total_calories"`
	BestPace       tracking.Pace `json:"best_pace"`
	LongestKm      float64       `json:"longest_km"`
	MedianKm       float64       `json:"median_km"`
	Persona        Persona       `json:"persona"`
}

// Calculate aggregates entries. Hours and weekdays are read from StartTime
// as given, so callers convert to the user's zone first.
func Calculate(entries []Entry) Summary {
	if len(entries) == 0 {
		return Summary{BestPace: tracking.UndefinedPace, Persona: PersonaNew}
	}

	var (
		distances = make(stats.Float64Data, 0, len(entries))
		durations = make(stats.Float64Data, 0, len(entries))
		calories  = make(stats.Float64Data, 0, len(entries))
		paces     stats.Float64Data
	)
	for _, e := range entries {
		distances = append(distances, e.DistanceM/1000)
		durations = append(durations, float64(e.DurationS))
		calories = append(calories, e.Calories)
		if e.Pace.Defined() && e.Pace > 0 {
			paces = append(paces, float64(e.Pace))
		}
	}

	s := Summary{Count: len(entries), BestPace: tracking.UndefinedPace}
	s.TotalKm, _ = distances.Sum()
	total, _ := durations.Sum()
	s.TotalDurationS = int64(total)
	s.TotalCalories, _ = calories.Sum()
	s.LongestKm, _ = distances.Max()
	s.MedianKm, _ = distances.Median()
	if best, err := paces.Min(); err == nil {
		s.BestPace = tracking.Pace(best)
	}
	s.Persona = personaOf(entries)
	return s
}

func personaOf(entries []Entry) Persona {
	var morning, night, weekend int
	for _, e := range entries {
		if e.StartTime.IsZero() {
			continue
		}
		h := e.StartTime.Hour()
		if h >= 5 && h < 10 {
			morning++
		}
		if h >= 18 || h < 4 {
			night++
		}
		if d := e.StartTime.Weekday(); d == time.Saturday || d == time.Sunday {
			weekend++
		}
	}

	half := float64(len(entries)) / 2
	switch {
	case morning > 0 && float64(morning) >= half:
		return PersonaEarlyBird
	case night > 0 && float64(night) >= half:
		return PersonaNightOwl
	case weekend > 0 && float64(weekend) >= half:
		return PersonaWeekendWarrior
	default:
		return PersonaRunner
	}
}

// WeekBounds returns the Monday 00:00 that starts the week containing t and
// the Monday after it, in t's zone.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 7)
}
