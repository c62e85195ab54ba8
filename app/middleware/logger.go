package middleware

import (
	"slices"
	"time"

	"github.com/amirphl/business-registry/app/handlers"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured entry per request. Paths in skip are not logged.
func RequestLogger(logger *logrus.Logger, skip ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if slices.Contains(skip, c.Path()) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()

		fields := logrus.Fields{
			"request_id": handlers.RequestID(c),
			"status":     status,
			"method":     c.Method(),
			"path":       c.Path(),
			"ip":         c.IP(),
			"latency":    time.Since(start).String(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
			"bytes_in":   len(c.Body()),
			"bytes_out":  len(c.Response().Body()),
		}
		if userID, ok := GetUserIDFromContext(c); ok {
			fields["user_id"] = userID
		}
		entry := logger.WithFields(fields)

		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Error("Server error")
		case status >= fiber.StatusBadRequest:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
		return err
	}
}
