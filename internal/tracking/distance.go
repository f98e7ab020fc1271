package tracking

import "backend-esterun/internal/shared/geo"

// AddSegment returns the great-circle length of prev→curr in meters.
func AddSegment(prev, curr RoutePoint) float64 {
	return geo.HaversineM(prev.Lat, prev.Lng, curr.Lat, curr.Lng)
}

type Accumulator struct {
	totalM float64
}

func (a *Accumulator) Add(prev, curr RoutePoint) float64 {
	d := AddSegment(prev, curr)
	a.totalM += d
	return d
}

func (a *Accumulator) Total() float64 {
	return a.totalM
}

func (a *Accumulator) Reset() {
	a.totalM = 0
}
