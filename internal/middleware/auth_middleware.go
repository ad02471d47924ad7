package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"pastelfeed/internal/common"
	"pastelfeed/internal/models"
	"pastelfeed/internal/sessions"
)

const (
	userLocal      = "user"
	sessionIDLocal = "session_id"
)

// UserLookup resolves a session's user id to the stored user.
type UserLookup interface {
	CurrentUser(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired rejects requests without a valid session with 401 and
// stores the session's user in the Fiber context for later handlers.
func AuthRequired(sm *sessions.Manager, users UserLookup, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, sid, err := Resolve(c, sm, users)
		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unauthorized",
				})
			}
			log.WithError(err).Error("Session lookup failed")
			return err
		}

		c.Locals(userLocal, user)
		c.Locals(sessionIDLocal, sid)
		return c.Next()
	}
}

// Resolve loads the session user without writing a response. A session
// whose user no longer exists is destroyed and reported as Unauthorized.
func Resolve(c *fiber.Ctx, sm *sessions.Manager, users UserLookup) (*models.User, string, error) {
	userID, sid, err := sm.Authenticate(c)
	if err != nil {
		return nil, "", err
	}

	user, err := users.CurrentUser(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			if logoutErr := sm.Logout(c); logoutErr != nil {
				return nil, "", logoutErr
			}
			return nil, "", common.Unauthorized("Unauthorized")
		}
		return nil, "", err
	}
	return user, sid, nil
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}

// SessionID returns the session id stored by AuthRequired.
func SessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}
