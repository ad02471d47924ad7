package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"pastelfeed/internal/metrics"
)

// Metrics counts requests by method, matched route and status code.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chainErr := c.Next()

		m.Requests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(statusOf(c, chainErr))).Inc()
		return chainErr
	}
}
