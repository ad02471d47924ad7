package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pastelfeed/internal/middleware"
	"pastelfeed/internal/services"
)

// UploadHandler handles purpose-tagged image uploads.
type UploadHandler struct {
	uploadService *services.UploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// RegisterRoutes mounts the upload routes behind auth.
func (h *UploadHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/upload/image", auth, h.HandleUploadImage)
	router.Get("/user/feed-image", auth, h.HandleFeedImage)
}

// HandleUploadImage accepts a multipart "image" field and an optional
// "type" purpose tag.
func (h *UploadHandler) HandleUploadImage(c *fiber.Ctx) error {
	up, f, err := formUpload(c, "image")
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()
	up.Purpose = c.FormValue("type")

	img, err := h.uploadService.Upload(c.UserContext(), middleware.CurrentUser(c).ID, up)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"imageUrl": img.URL,
		"filename": img.Filename,
	})
}

// HandleFeedImage returns the caller's latest feed image.
func (h *UploadHandler) HandleFeedImage(c *fiber.Ctx) error {
	img, err := h.uploadService.FeedImage(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"imageUrl": img.URL,
	})
}
