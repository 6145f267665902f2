package server

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/auth"
)

// RequireToken gates mutation endpoints behind a bearer token. The token is
// resolved to its owning user before any handler runs; a missing, invalid or
// unresolvable token is a 403 and no store mutation can have happened yet.
func RequireToken(tokens *auth.Tokens, logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return c.Status(fiber.StatusForbidden).JSON(errorPayload("missing authorization token"))
		}
		// Cargo sends the bare token; tolerate an explicit Bearer prefix too.
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

		entry, user, err := tokens.Verify(raw)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"action":     "auth_reject",
				"request_id": RequestID(c),
			}).Info("rejected authorization token")
			return c.Status(fiber.StatusForbidden).JSON(errorPayload("invalid authorization token"))
		}

		c.Locals(contextKeyUsername, user.Username)
		c.Locals(contextKeyTokenName, entry.Label)
		return c.Next()
	}
}
