package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"pastelfeed/internal/middleware"
	"pastelfeed/internal/services"
)

// MessageHandler serves the shared message wall.
type MessageHandler struct {
	messageService *services.MessageService
	validate       *validator.Validate
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService, validate: newValidator()}
}

// RegisterRoutes mounts the wall routes behind auth.
func (h *MessageHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/messages", auth, h.HandleList)
	router.Post("/messages", auth, h.HandlePost)
}

// HandleList returns a bare JSON array, newest first.
func (h *MessageHandler) HandleList(c *fiber.Ctx) error {
	wall, err := h.messageService.Recent(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(wall)
}

// PostMessageRequest is the body of POST /messages.
type PostMessageRequest struct {
	Message string `json:"message" form:"message" validate:"required,max=2000"`
}

// HandlePost appends a message to the wall.
func (h *MessageHandler) HandlePost(c *fiber.Ctx) error {
	var req PostMessageRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	msg, err := h.messageService.Post(c.UserContext(), middleware.CurrentUser(c).ID, req.Message)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"id":      msg.ID,
		"message": "Message sent",
	})
}
