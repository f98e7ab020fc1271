package recap

import (
	"context"
	"time"

	"backend-esterun/internal/db"
	"backend-esterun/internal/tracking"

	"github.com/gofiber/fiber/v2"
)

type Weekly struct {
	Summary
	WeekStart time.Time `json:"week_start"`
	WeekEnd   time.Time `json:"week_end"`
}

type Service struct {
	db  db.Querier
	loc *time.Location
	now func() time.Time
}

func NewService(db db.Querier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{db: db, loc: loc, now: time.Now}
}

// Weekly summarizes the user's activities in the Monday-start week holding now.
func (s *Service) Weekly(ctx context.Context, userID string) (Weekly, error) {
	start, end := WeekBounds(s.now().In(s.loc))
	rows, err := s.db.Query(ctx, `
		SELECT distance_m, duration_s, calories, pace, start_time
		FROM activities
		WHERE user_id=$1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time
	`, userID, start, end)
	if err != nil {
		return Weekly{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var pace string
		if err := rows.Scan(&e.DistanceM, &e.DurationS, &e.Calories, &pace, &e.StartTime); err != nil {
			return Weekly{}, err
		}
		e.Pace, _ = tracking.ParsePace(pace)
		e.StartTime = e.StartTime.In(s.loc)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Weekly{}, err
	}
	return Weekly{Summary: Calculate(entries), WeekStart: start, WeekEnd: end}, nil
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/weekly", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		weekly, err := svc.Weekly(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(weekly)
	})
}
