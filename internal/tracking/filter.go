package tracking

import (
	"math"

	"backend-esterun/internal/shared/geo"
)

// Filter decides which samples may reach the route. A zero threshold
// disables the corresponding check.
type Filter struct {
	MaxAccuracyM float64
	MaxJumpM     float64
}

func (f Filter) Accept(s GeoSample, prev *RoutePoint) bool {
	if !geo.ValidCoordinate(s.Lat, s.Lng) {
		return false
	}
	if math.IsNaN(s.Accuracy) || math.IsInf(s.Accuracy, 0) || s.Accuracy < 0 {
		return false
	}
	if f.MaxAccuracyM > 0 && s.Accuracy > f.MaxAccuracyM {
		return false
	}
	if prev == nil || f.MaxJumpM <= 0 {
		return true
	}
	return AddSegment(*prev, s.Point()) <= f.MaxJumpM
}
