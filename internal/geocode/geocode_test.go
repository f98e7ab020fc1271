package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

const nominatimBody = `[
	{"display_name":"Alun-alun Bandung, Jalan Asia Afrika, Bandung, Jawa Barat, Indonesia","lat":"-6.9218","lon":"107.6071"},
	{"display_name":"Gelora Bung Karno, Jakarta","lat":"-6.2185","lon":"106.8019"},
	{"lat":"0","lon":"0"}
]`

func TestSearchParsesResults(t *testing.T) {
	requests := make(chan *http.Request, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(nominatimBody))
	}))
	defer upstream.Close()

	places, err := NewClient(upstream.URL+"/", "id").Search(context.Background(), "alun alun")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}
	if places[0].Name != "Alun-alun Bandung" || places[0].Lat != -6.9218 || places[0].Lon != 107.6071 {
		t.Fatalf("unexpected first place %+v", places[0])
	}

	got := <-requests
	q := got.URL.Query()
	if got.URL.Path != "/search" || q.Get("q") != "alun alun" || q.Get("countrycodes") != "id" || q.Get("limit") != "5" || q.Get("format") != "json" {
		t.Fatalf("unexpected upstream request %s", got.URL.String())
	}
	if got.Header.Get("User-Agent") != userAgent {
		t.Fatalf("expected user agent, got %q", got.Header.Get("User-Agent"))
	}
}

func TestSearchShortQuery(t *testing.T) {
	places, err := NewClient("http://127.0.0.1:1", "id").Search(context.Background(), " ab ")
	if places != nil || err != nil {
		t.Fatalf("short query should not hit upstream")
	}
}

func TestSearchUpstreamFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusServiceUnavailable, "[]"},
		{"object body", http.StatusOK, "{}"},
		{"invalid json", http.StatusOK, "not json"},
	}
	for _, c := range cases {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))
		_, err := NewClient(upstream.URL, "").Search(context.Background(), "monas")
		upstream.Close()
		if err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}

func TestSearchRouteHidesErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	app := fiber.New()
	RegisterRoutes(app.Group("/places"), NewClient(upstream.URL, "id"), func(c *fiber.Ctx) error { return c.Next() })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/places/search?q=monas", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", err)
	}
	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil || len(places) != 0 {
		t.Fatalf("expected empty list, got %v %v", places, err)
	}
}
