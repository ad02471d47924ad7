// Package sessions keeps the authenticated user id in a server-side fiber
// session referenced by an opaque cookie.
package sessions

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"

	"pastelfeed/internal/common"
)

const userIDKey = "user_id"

type Options struct {
	CookieName string
	Expiration time.Duration
	Secure     bool
}

// Manager wraps a fiber session store. A nil Storage keeps sessions in
// process memory.
type Manager struct {
	store *session.Store
}

func NewManager(opts Options, storage fiber.Storage) *Manager {
	return &Manager{
		store: session.New(session.Config{
			Expiration:     opts.Expiration,
			Storage:        storage,
			KeyLookup:      "cookie:" + opts.CookieName,
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   opts.Secure,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
			KeyGenerator:   uuid.NewString,
		}),
	}
}

// Login starts a fresh session for userID and returns its id. Any session
// the client already had is discarded first.
func (m *Manager) Login(c *fiber.Ctx, userID uint) (string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return "", fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(userIDKey, userID)
	sid := sess.ID()
	if err := sess.Save(); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return sid, nil
}

// Logout destroys the current session. Without one it does nothing.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// Authenticate returns the user id and session id of the request. The
// session is saved again so its expiry rolls forward. A missing or empty
// session is Unauthorized.
func (m *Manager) Authenticate(c *fiber.Ctx) (uint, string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return 0, "", fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Fresh() {
		return 0, "", common.Unauthorized("Unauthorized")
	}

	userID, ok := sess.Get(userIDKey).(uint)
	if !ok || userID == 0 {
		return 0, "", common.Unauthorized("Unauthorized")
	}

	sid := sess.ID()
	if err := sess.Save(); err != nil {
		return 0, "", fmt.Errorf("failed to refresh session: %w", err)
	}
	return userID, sid, nil
}
