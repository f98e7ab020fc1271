package social

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/activities/:id/likes", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Like(c.Context(), c.Params("id"), userID(c)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Delete("/activities/:id/likes", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Unlike(c.Context(), c.Params("id"), userID(c)); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/activities/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		comments, err := svc.Comments(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if comments == nil {
			comments = []Comment{}
		}
		return c.JSON(comments)
	})

	r.Post("/activities/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		comment, err := svc.Comment(c.Context(), c.Params("id"), userID(c), body.Content)
		if err != nil {
			return statusFor(err)
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	r.Post("/follow/:userID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Follow(c.Context(), userID(c), c.Params("userID")); err != nil {
			return statusFor(err)
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Delete("/follow/:userID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Unfollow(c.Context(), userID(c), c.Params("userID")); err != nil {
			return statusFor(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/feed", authMiddleware, func(c *fiber.Ctx) error {
		feed, err := svc.Feed(c.Context(), userID(c), c.QueryInt("limit", 20))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if feed == nil {
			feed = []FeedItem{}
		}
		return c.JSON(feed)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func statusFor(err error) error {
	if errors.Is(err, ErrSelfFollow) || errors.Is(err, ErrEmptyComment) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
