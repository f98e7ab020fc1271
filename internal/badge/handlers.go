package badge

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/catalog", func(c *fiber.Ctx) error {
		return c.JSON(Catalog)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		badges, err := svc.ForUser(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if badges == nil {
			badges = []Unlocked{}
		}
		return c.JSON(badges)
	})
}
