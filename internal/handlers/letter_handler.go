package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"pastelfeed/internal/middleware"
	"pastelfeed/internal/services"
)

// LetterHandler handles the per-user letter endpoints.
type LetterHandler struct {
	letterService *services.LetterService
	validate      *validator.Validate
}

// NewLetterHandler creates a new LetterHandler.
func NewLetterHandler(letterService *services.LetterService) *LetterHandler {
	return &LetterHandler{letterService: letterService, validate: newValidator()}
}

// RegisterRoutes mounts the letter routes behind auth.
func (h *LetterHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	letter := router.Group("/letter")
	letter.Get("/", auth, h.HandleGet)
	letter.Post("/save", auth, h.HandleSave)
	letter.Get("/user", auth, h.HandleUser)
}

// HandleGet returns {"letter": null} when the user has none yet.
func (h *LetterHandler) HandleGet(c *fiber.Ctx) error {
	letter, err := h.letterService.Get(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"letter":  letter,
	})
}

// SaveLetterRequest is the body of POST /letter/save.
type SaveLetterRequest struct {
	Title   string `json:"title" form:"title" validate:"max=255"`
	Content string `json:"content" form:"content" validate:"required"`
}

// HandleSave creates or overwrites the caller's letter.
func (h *LetterHandler) HandleSave(c *fiber.Ctx) error {
	var req SaveLetterRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	letter, err := h.letterService.Save(c.UserContext(), middleware.CurrentUser(c).ID, req.Title, req.Content)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"id":      letter.ID,
		"message": "Letter saved",
	})
}

// HandleUser returns the subset of the user the letter page renders.
func (h *LetterHandler) HandleUser(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":          user.ID,
			"username":    user.Username,
			"displayName": user.Name(),
			"photoUrl":    user.PhotoURL,
		},
	})
}
