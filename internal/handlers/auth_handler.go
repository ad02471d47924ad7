package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/middleware"
	"pastelfeed/internal/services"
	"pastelfeed/internal/sessions"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *sessions.Manager
	validate    *validator.Validate
	log         *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, sm *sessions.Manager, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sm,
		validate:    newValidator(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes. None of them require
// a session; logout is idempotent.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Get("/session", h.HandleSession)
	router.Get("/logout", h.HandleLogout)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
}

// HandleRegister creates the account and logs the new user in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return respondError(c, err)
	}

	sid, err := h.sessions.Login(c, user.ID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"message":   "User registered successfully",
		"user":      user,
		"sessionID": sid,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// HandleLogin checks the credentials and starts a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			h.log.WithField("username", req.Username).Info("Failed login attempt")
		}
		return respondError(c, err)
	}

	sid, err := h.sessions.Login(c, user.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"user":      user,
		"sessionID": sid,
	})
}

// HandleSession reports the logged-in user, or 401 when there is none.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	user, sid, err := middleware.Resolve(c, h.sessions, h.authService)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"loggedIn": false,
				"message":  "No active session",
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"loggedIn":  true,
		"user":      user,
		"sessionID": sid,
	})
}

// HandleLogout destroys the session if there is one.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
