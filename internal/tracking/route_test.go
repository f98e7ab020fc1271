package tracking

import "testing"

func TestRouteAppendOnlyAndSnapshotCopy(t *testing.T) {
	var r Route
	if _, ok := r.Last(); ok {
		t.Fatalf("expected empty route")
	}
	r.Append(RoutePoint{Lat: 1, Lng: 2})
	r.Append(RoutePoint{Lat: 3, Lng: 4})

	snap := r.Points()
	snap[0].Lat = 99
	if got := r.Points()[0].Lat; got != 1 {
		t.Fatalf("renderer mutation leaked into route: %v", got)
	}
	if last, _ := r.Last(); last.Lat != 3 {
		t.Fatalf("expected insertion order preserved")
	}

	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected cleared route")
	}
}

func TestRouteGeoJSONRoundTrip(t *testing.T) {
	points := []RoutePoint{{Lat: -6.2, Lng: 106.816}, {Lat: -6.205, Lng: 106.816}}
	data, err := RouteGeoJSON(points)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := RouteFromGeoJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back) != 2 || back[1].Lat != -6.205 || back[1].Lng != 106.816 {
		t.Fatalf("unexpected points %+v", back)
	}

	if pts, err := RouteFromGeoJSON(nil); err != nil || pts != nil {
		t.Fatalf("expected empty route for missing data")
	}
	if _, err := RouteFromGeoJSON([]byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}`)); err == nil {
		t.Fatalf("expected error for non-linestring geometry")
	}
}
