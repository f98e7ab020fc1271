package server

import (
	"context"
	"errors"

	"backend-esterun/internal/activity"
	"backend-esterun/internal/auth"
	"backend-esterun/internal/badge"
	"backend-esterun/internal/config"
	"backend-esterun/internal/db"
	"backend-esterun/internal/geocode"
	"backend-esterun/internal/recap"
	"backend-esterun/internal/social"
	"backend-esterun/internal/storage"
	"backend-esterun/internal/stream"
	"backend-esterun/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var errNoDatabase = errors.New("database unavailable")

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Sessions *tracking.Manager

	store db.Querier
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}
	if pool != nil {
		s.store = pool
	}

	registerRoutes(s)
	return s
}

// Close discards live sessions and stops the stream relay.
func (s *Server) Close() error {
	s.Sessions.Shutdown()
	return s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"database": s.store != nil,
			"sessions": s.Sessions.Len(),
		})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	loc := s.Cfg.Location()

	badges := badge.NewService(s.store, loc)
	activities := activity.NewService(s.store, badges)

	var saver tracking.Saver = activities
	if s.store == nil {
		saver = tracking.SaverFunc(func(context.Context, tracking.ActivityRecord) (*tracking.SavedActivity, error) {
			return nil, errNoDatabase
		})
	}
	s.Sessions = tracking.NewManager(s.Cfg.TrackingParams(), saver, tracking.NewHubSink(s.Stream))

	if s.Cfg.UploadDir != "" {
		s.App.Static("/uploads", s.Cfg.UploadDir)
	}

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Sessions, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware, ownsSession(s.Sessions))
	geocode.RegisterRoutes(s.App.Group("/places"), geocode.NewClient(s.Cfg.GeocoderURL, s.Cfg.GeocoderCountry), jwtMiddleware)

	needsDB := s.requireDatabase()
	activity.RegisterRoutes(s.App.Group("/activities", needsDB), activities, jwtMiddleware)
	badge.RegisterRoutes(s.App.Group("/badges", needsDB), badges, jwtMiddleware)
	recap.RegisterRoutes(s.App.Group("/recap", needsDB), recap.NewService(s.store, loc), jwtMiddleware)
	social.RegisterRoutes(s.App.Group("/social", needsDB), social.NewService(s.store), jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage", needsDB), storage.NewService(s.store, s.Cfg.UploadDir, s.Cfg.PublicURL, activities), jwtMiddleware)
}

func (s *Server) requireDatabase() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.store == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, errNoDatabase.Error())
		}
		return c.Next()
	}
}

// ownsSession keeps users from watching someone else's live session.
func ownsSession(m *tracking.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if _, err := m.Get(c.Params("sessionID"), userID); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.Next()
	}
}
