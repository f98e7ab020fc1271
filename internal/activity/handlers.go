package activity

import (
	"bytes"
	"errors"

	"backend-esterun/internal/export"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		list, err := svc.List(c.Context(), userID(c), c.QueryInt("limit", 50))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if list == nil {
			list = []Activity{}
		}
		return c.JSON(list)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		a, err := svc.Get(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		return c.JSON(a)
	})

	r.Patch("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var patch Patch
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if patch.Title == nil && patch.Location == nil {
			return fiber.NewError(fiber.StatusBadRequest, "title or location required")
		}
		id, uid := c.Params("id"), userID(c)
		if patch.Title != nil {
			if err := svc.UpdateTitle(c.Context(), id, uid, *patch.Title); err != nil {
				return statusFor(err)
			}
		}
		if patch.Location != nil {
			if err := svc.UpdateLocation(c.Context(), id, uid, *patch.Location); err != nil {
				return statusFor(err)
			}
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id"), userID(c)); err != nil {
			return statusFor(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id/export.gpx", authMiddleware, func(c *fiber.Ctx) error {
		a, err := svc.Get(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		out, err := export.GPX(a.Record())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Attachment(a.ID + ".gpx")
		c.Set(fiber.HeaderContentType, "application/gpx+xml")
		return c.Send(out)
	})

	r.Get("/:id/export.fit", authMiddleware, func(c *fiber.Ctx) error {
		a, err := svc.Get(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return statusFor(err)
		}
		var buf bytes.Buffer
		if err := export.FIT(&buf, a.Record()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Attachment(a.ID + ".fit")
		c.Set(fiber.HeaderContentType, "application/vnd.ant.fit")
		return c.Send(buf.Bytes())
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyTitle):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
