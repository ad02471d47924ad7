package sessions

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pastelfeed/internal/common"
)

func newApp(m *Manager) *fiber.App {
	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		sid, err := m.Login(c, 5)
		if err != nil {
			return err
		}
		return c.SendString(sid)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, _, err := m.Authenticate(c)
		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) {
				return c.SendStatus(fiber.StatusUnauthorized)
			}
			return err
		}
		return c.JSON(fiber.Map{"id": id})
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		if err := m.Logout(c); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestLoginSetsCookieAndRegenerates(t *testing.T) {
	m := NewManager(Options{CookieName: "pf.sid", Expiration: time.Hour, Secure: true}, nil)
	app := newApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	var first *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "pf.sid" {
			first = c
		}
	}
	require.NotNil(t, first)
	assert.True(t, first.HttpOnly)
	assert.True(t, first.Secure)
	assert.Equal(t, http.SameSiteLaxMode, first.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "pf.sid", Value: first.Value})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	var second *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "pf.sid" {
			second = c
		}
	}
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "pf.sid", Value: first.Value})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "regenerated session id must be invalid")

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "pf.sid", Value: second.Value})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutDestroysSession(t *testing.T) {
	m := NewManager(Options{CookieName: "pf.sid", Expiration: time.Hour}, nil)
	app := newApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	var sid string
	for _, c := range resp.Cookies() {
		if c.Name == "pf.sid" {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "pf.sid", Value: sid})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "pf.sid", Value: sid})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No session at all is still fine.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/logout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAuthenticateRollsExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on wall-clock session expiry")
	}
	m := NewManager(Options{CookieName: "pf.sid", Expiration: 4 * time.Second}, nil)
	app := newApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	var sid string
	for _, c := range resp.Cookies() {
		if c.Name == "pf.sid" {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)

	whoami := func() int {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: "pf.sid", Value: sid})
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	// Each request lands before the previous deadline; the last one is
	// well past the deadline set at login.
	for i := 0; i < 3; i++ {
		time.Sleep(3 * time.Second)
		assert.Equal(t, http.StatusOK, whoami(), "request %d", i+1)
	}

	time.Sleep(6 * time.Second)
	assert.Equal(t, http.StatusUnauthorized, whoami(), "idle session must expire")
}
