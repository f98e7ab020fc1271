package export

import (
	"time"

	"backend-esterun/internal/tracking"
)

// timeline spreads the active duration evenly over the route points. The
// record keeps no per-point timestamps, so this is an approximation.
func timeline(rec tracking.ActivityRecord) []time.Time {
	n := len(rec.Route)
	out := make([]time.Time, n)
	if n == 0 {
		return out
	}
	total := time.Duration(rec.DurationS) * time.Second
	for i := range out {
		if n == 1 {
			out[i] = rec.StartTime
			continue
		}
		out[i] = rec.StartTime.Add(total * time.Duration(i) / time.Duration(n-1))
	}
	return out
}
