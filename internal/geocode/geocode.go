package geocode

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

const (
	minQueryLen = 3
	maxResults  = 5
	userAgent   = "EsteRun/1.0"
)

// Place is one search hit. Name is the first part of the display name.
type Place struct {
	Name     string  `json:"display_name"`
	FullName string  `json:"full_name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Client searches places on a Nominatim compatible endpoint.
type Client struct {
	baseURL string
	country string
	timeout time.Duration
}

func NewClient(baseURL, country string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		country: country,
		timeout: 5 * time.Second,
	}
}

// Search returns at most five places for q. Short queries and upstream
// failures yield no places; failures are also returned for logging.
func (c *Client) Search(ctx context.Context, q string) ([]Place, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < minQueryLen {
		return nil, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", q)
	params.Set("limit", fmt.Sprint(maxResults))
	if c.country != "" {
		params.Set("countrycodes", c.country)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Get(c.baseURL + "/search?" + params.Encode())
	agent.Set(fiber.HeaderUserAgent, userAgent)
	agent.Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("geocode: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("geocode: upstream status %d", code)
	}
	return parsePlaces(body)
}

func parsePlaces(body []byte) ([]Place, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("geocode: invalid json")
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("geocode: expected array, got %s", res.Type)
	}

	var places []Place
	res.ForEach(func(_, v gjson.Result) bool {
		full := v.Get("display_name").String()
		if full == "" {
			return true
		}
		name, _, _ := strings.Cut(full, ",")
		places = append(places, Place{
			Name:     strings.TrimSpace(name),
			FullName: full,
			Lat:      v.Get("lat").Float(),
			Lon:      v.Get("lon").Float(),
		})
		return len(places) < maxResults
	})
	return places, nil
}

func RegisterRoutes(r fiber.Router, client *Client, authMiddleware fiber.Handler) {
	r.Get("/search", authMiddleware, func(c *fiber.Ctx) error {
		places, err := client.Search(c.Context(), c.Query("q"))
		if err != nil {
			log.Printf("geocode: search %q: %v", c.Query("q"), err)
		}
		if places == nil {
			places = []Place{}
		}
		return c.JSON(places)
	})
}
