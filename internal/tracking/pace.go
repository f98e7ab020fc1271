package tracking

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pace is seconds per kilometer.
type Pace float64

// UndefinedPace is reported when no distance has been covered.
const UndefinedPace Pace = -1

const undefinedPaceText = "--:--"

func PaceFor(distanceM float64, durationS int64) Pace {
	if distanceM <= 0 || math.IsNaN(distanceM) || math.IsInf(distanceM, 0) || durationS < 0 {
		return UndefinedPace
	}
	return Pace(float64(durationS) / (distanceM / 1000))
}

func (p Pace) Defined() bool {
	return p >= 0 && !math.IsInf(float64(p), 0) && !math.IsNaN(float64(p))
}

func (p Pace) String() string {
	if !p.Defined() {
		return undefinedPaceText
	}
	total := int64(p)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func ParsePace(s string) (Pace, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == undefinedPaceText {
		return UndefinedPace, nil
	}
	min, sec, ok := strings.Cut(s, ":")
	if !ok {
		return UndefinedPace, fmt.Errorf("pace %q: want m:ss", s)
	}
	m, err := strconv.Atoi(min)
	if err != nil || m < 0 {
		return UndefinedPace, fmt.Errorf("pace %q: bad minutes", s)
	}
	sc, err := strconv.Atoi(sec)
	if err != nil || sc < 0 || sc > 59 {
		return UndefinedPace, fmt.Errorf("pace %q: bad seconds", s)
	}
	return Pace(m*60 + sc), nil
}

func (p Pace) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Pace) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePace(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Calories is a linear estimate; perKm is configuration, not a physiological model.
func Calories(distanceKm, perKm float64) float64 {
	if distanceKm <= 0 || perKm <= 0 {
		return 0
	}
	return distanceKm * perKm
}

func EstimateSteps(distanceM, strideM float64) int {
	if distanceM <= 0 || strideM <= 0 {
		return 0
	}
	return int(math.Round(distanceM / strideM))
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
