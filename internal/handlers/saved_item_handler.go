package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"pastelfeed/internal/common"
	"pastelfeed/internal/middleware"
	"pastelfeed/internal/services"
)

// SavedItemHandler handles the caller's saved items.
type SavedItemHandler struct {
	itemService *services.SavedItemService
	validate    *validator.Validate
}

// NewSavedItemHandler creates a new SavedItemHandler.
func NewSavedItemHandler(itemService *services.SavedItemService) *SavedItemHandler {
	return &SavedItemHandler{itemService: itemService, validate: newValidator()}
}

// RegisterRoutes mounts the saved item routes behind auth.
func (h *SavedItemHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	items := router.Group("/saved-items")
	items.Get("/", auth, h.HandleList)
	items.Post("/", auth, h.HandleCreate)
	items.Delete("/:id", auth, h.HandleDelete)
}

// SavedItemRequest is the body of POST /saved-items.
type SavedItemRequest struct {
	ItemType    string  `json:"itemType" form:"itemType" validate:"required,max=64"`
	ItemID      *int64  `json:"itemId" form:"itemId"`
	Title       *string `json:"title" form:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" form:"description" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"imageUrl" form:"imageUrl" validate:"omitempty,max=2048"`
}

// HandleList returns the caller's items, newest first.
func (h *SavedItemHandler) HandleList(c *fiber.Ctx) error {
	items, err := h.itemService.List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"items":   items,
	})
}

// HandleCreate stores a new saved item.
func (h *SavedItemHandler) HandleCreate(c *fiber.Ctx) error {
	var req SavedItemRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	item, err := h.itemService.Save(c.UserContext(), middleware.CurrentUser(c).ID, services.SavedItemInput{
		ItemType:    req.ItemType,
		ItemID:      req.ItemID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"id":      item.ID,
		"message": "Item saved",
	})
}

// HandleDelete removes an item owned by the current user. Another user's
// item is indistinguishable from a missing one.
func (h *SavedItemHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, common.InvalidInput("Invalid item id"))
	}

	if err := h.itemService.Remove(c.UserContext(), middleware.CurrentUser(c).ID, uint(id)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
