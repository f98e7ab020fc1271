package tracking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, m *Manager, authMiddleware fiber.Handler) {
	r.Post("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Kind string `json:"type"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		kind, err := ParseKind(body.Kind)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		live := m.Create(userID(c), kind)
		snap, err := live.Controller.Start(c.Context())
		if err != nil {
			return statusFor(err)
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})

	r.Get("/sessions/:id", authMiddleware, func(c *fiber.Ctx) error {
		live, err := m.Get(c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		snap, err := live.Controller.Snapshot(c.Context())
		if err != nil {
			return statusFor(err)
		}
		return c.JSON(snap)
	})

	r.Post("/sessions/:id/samples", authMiddleware, func(c *fiber.Ctx) error {
		live, err := m.Get(c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		var raw RawSample
		if err := c.BodyParser(&raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sample, err := raw.Parse(time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		queued := live.Provider.Push(sample)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued})
	})

	r.Post("/sessions/:id/location-errors", authMiddleware, func(c *fiber.Ctx) error {
		live, err := m.Get(c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		queued := live.Provider.Fail(locationError(body.Reason))
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued})
	})

	actions := map[string]func(*Controller, context.Context) (Snapshot, error){
		"begin":   (*Controller).Begin,
		"pause":   (*Controller).Pause,
		"resume":  (*Controller).Resume,
		"stop":    (*Controller).Stop,
		"retry":   (*Controller).Retry,
		"discard": (*Controller).Discard,
	}
	for name, action := range actions {
		action := action
		r.Post("/sessions/:id/"+name, authMiddleware, func(c *fiber.Ctx) error {
			live, err := m.Get(c.Params("id"), userID(c))
			if err != nil {
				return statusFor(err)
			}
			snap, err := action(live.Controller, c.Context())
			if err != nil {
				return statusFor(err)
			}
			return c.JSON(snap)
		})
	}

	r.Post("/sessions/:id/confirm", authMiddleware, func(c *fiber.Ctx) error {
		live, err := m.Get(c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		var body struct {
			Title    string `json:"title"`
			Location string `json:"location"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		snap, err := live.Controller.Confirm(c.Context(), body.Title, body.Location)
		if errors.Is(err, ErrSaveFailed) {
			return c.Status(fiber.StatusBadGateway).JSON(snap)
		}
		if err != nil {
			return statusFor(err)
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func locationError(reason string) error {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "permission_denied", "denied":
		return ErrPermissionDenied
	case "timeout":
		return ErrAcquisitionTimeout
	default:
		return ErrLocationUnavailable
	}
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrKindLocked), errors.Is(err, ErrNoGPSLock):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrControllerClosed):
		return fiber.NewError(fiber.StatusGone, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
