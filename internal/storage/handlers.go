package storage

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"backend-esterun/internal/activity"
	"backend-esterun/internal/db"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PhotoAttacher sets the photo of an activity the user owns.
type PhotoAttacher interface {
	UpdatePhoto(ctx context.Context, id, userID, url string) error
}

type Service struct {
	db       db.Querier
	dir      string
	baseURL  string
	attacher PhotoAttacher
}

// NewService stores uploads under dir and serves them from baseURL.
func NewService(db db.Querier, dir, baseURL string, attacher PhotoAttacher) *Service {
	return &Service{db: db, dir: dir, baseURL: strings.TrimSuffix(baseURL, "/"), attacher: attacher}
}

func (s *Service) SaveObject(ctx context.Context, userID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, userID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) DeleteObject(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM storage_objects WHERE id = $1`, id)
	return err
}

// discard removes an upload whose activity attachment failed.
func (s *Service) discard(ctx context.Context, id, path string) {
	if err := os.Remove(path); err != nil {
		log.Printf("storage: remove %s: %v", path, err)
	}
	if err := s.DeleteObject(ctx, id); err != nil {
		log.Printf("storage: delete object %s: %v", id, err)
	}
}

var imageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		file, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !imageExt[ext] {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, "unsupported file type "+ext)
		}
		kind := c.FormValue("kind", "photo")
		userID, _ := c.Locals("user_id").(string)

		if err := os.MkdirAll(svc.dir, 0o755); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		name := uuid.NewString() + ext
		path := filepath.Join(svc.dir, name)
		if err := c.SaveFile(file, path); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		url := svc.baseURL + "/" + name

		id, err := svc.SaveObject(c.Context(), userID, url, kind)
		if err != nil {
			_ = os.Remove(path)
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		activityID := c.FormValue("activity_id")
		if activityID != "" && svc.attacher != nil {
			if err := svc.attacher.UpdatePhoto(c.Context(), activityID, userID, url); err != nil {
				svc.discard(c.Context(), id, path)
				if errors.Is(err, activity.ErrNotFound) {
					return fiber.NewError(fiber.StatusNotFound, err.Error())
				}
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":          id,
			"url":         url,
			"activity_id": activityID,
		})
	})
}
