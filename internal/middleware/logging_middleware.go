package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// SlowRequestThreshold is the duration above which a request is logged at
// warn level.
const SlowRequestThreshold = 2 * time.Second

// RequestLogger writes one structured line per request.
func RequestLogger(log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()

		status := statusOf(c, chainErr)
		duration := time.Since(start)
		entry := log.WithFields(logrus.Fields{
			"method":    c.Method(),
			"path":      c.Path(),
			"status":    status,
			"duration":  duration,
			"remote_ip": c.IP(),
		})
		if duration > SlowRequestThreshold {
			entry.Warn("Slow request detected")
		} else {
			entry.Info("Request completed")
		}
		return chainErr
	}
}

// statusOf is the status the client will see once the error handler has run.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
