package handlers

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// PageHandler serves the HTML pages of the browser frontend.
type PageHandler struct {
	webDir string
}

// NewPageHandler creates a PageHandler serving files from webDir.
func NewPageHandler(webDir string) *PageHandler {
	return &PageHandler{webDir: webDir}
}

// RegisterRoutes mounts the page routes and their .html redirects.
func (h *PageHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.page("index.html"))
	router.Get("/feed", h.page("feed.html"))
	router.Get("/letter", h.page("letter.html"))

	router.Get("/index.html", redirectTo("/"))
	router.Get("/feed.html", redirectTo("/feed"))
	router.Get("/letter.html", redirectTo("/letter"))
}

func (h *PageHandler) page(name string) fiber.Handler {
	path := filepath.Join(h.webDir, name)
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.SendFile(path)
	}
}

func redirectTo(location string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Redirect(location)
	}
}

// RedirectHome is the fallback for every unmatched non-API path.
func RedirectHome(c *fiber.Ctx) error {
	return c.Redirect("/")
}
