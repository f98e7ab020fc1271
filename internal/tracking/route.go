package tracking

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Route is the ordered log of accepted points. Points are never reordered
// or modified after Append.
type Route struct {
	points []RoutePoint
}

func (r *Route) Append(p RoutePoint) {
	r.points = append(r.points, p)
}

func (r *Route) Len() int {
	return len(r.points)
}

func (r *Route) Last() (RoutePoint, bool) {
	if len(r.points) == 0 {
		return RoutePoint{}, false
	}
	return r.points[len(r.points)-1], true
}

// Points returns a copy safe to hand to renderers.
func (r *Route) Points() []RoutePoint {
	out := make([]RoutePoint, len(r.points))
	copy(out, r.points)
	return out
}

func (r *Route) Reset() {
	r.points = nil
}

// LineString converts points to orb order (lng, lat).
func LineString(points []RoutePoint) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, orb.Point{p.Lng, p.Lat})
	}
	return ls
}

func RouteGeoJSON(points []RoutePoint) ([]byte, error) {
	return geojson.NewFeature(LineString(points)).MarshalJSON()
}

func RouteFromGeoJSON(data []byte) ([]RoutePoint, error) {
	if len(data) == 0 {
		return nil, nil
	}
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, err
	}
	if f.Geometry == nil {
		return nil, nil
	}
	ls, ok := f.Geometry.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("route geometry is %s, want LineString", f.Geometry.GeoJSONType())
	}
	points := make([]RoutePoint, 0, len(ls))
	for _, p := range ls {
		points = append(points, RoutePoint{Lat: p.Lat(), Lng: p.Lon()})
	}
	return points, nil
}
