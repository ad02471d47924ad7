package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"pastelfeed/internal/middleware"
	"pastelfeed/internal/services"
)

// ProfileHandler handles display name and profile photo updates.
type ProfileHandler struct {
	profileService *services.ProfileService
	validate       *validator.Validate
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, validate: newValidator()}
}

// RegisterRoutes mounts the profile routes behind auth.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/profile", auth, h.HandleUpdateDisplayName)
	router.Post("/profile/photo", auth, h.HandleUpdatePhoto)
}

// DisplayNameRequest is the body of POST /profile.
type DisplayNameRequest struct {
	DisplayName string `json:"displayName" form:"displayName" validate:"required,max=100"`
}

// HandleUpdateDisplayName changes the caller's display name.
func (h *ProfileHandler) HandleUpdateDisplayName(c *fiber.Ctx) error {
	var req DisplayNameRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	user := middleware.CurrentUser(c)
	name, err := h.profileService.UpdateDisplayName(c.UserContext(), user.ID, req.DisplayName)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"displayName": name,
	})
}

// HandleUpdatePhoto accepts a multipart "photo" field.
func (h *ProfileHandler) HandleUpdatePhoto(c *fiber.Ctx) error {
	up, f, err := formUpload(c, "photo")
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	user := middleware.CurrentUser(c)
	stored, err := h.profileService.UpdatePhoto(c.UserContext(), user.ID, up)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"photoUrl": stored.URL,
		"userId":   user.ID,
		"fileName": stored.Filename,
	})
}
