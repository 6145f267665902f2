// Package server assembles the Fiber application: middleware, error
// rendering and the shared upstream HTTP client. Route handlers live in the
// routes subpackage; translating typed registry errors into wire responses
// happens here and nowhere deeper.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/crates"
)

const (
	contextKeyRequestID = "_cargohold_request_id"
	contextKeyUsername  = "_cargohold_username"
	contextKeyTokenName = "_cargohold_token_label"
)

// AppOptions controls how the Fiber application behaves.
type AppOptions struct {
	Logger *logrus.Logger
}

// NewApp builds a Fiber application with panic recovery and request-ID
// middleware. Routes are registered by the caller.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	return app, nil
}

// requestIDMiddleware tags every request with a UUID echoed back in
// X-Request-ID and reused by the handlers' log fields.
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := uuid.NewString()
		c.Locals(contextKeyRequestID, requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	}
}

// RequestID returns the request's UUID, or "" outside the middleware.
func RequestID(c fiber.Ctx) string {
	if id, ok := c.Locals(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// Username returns the authenticated username set by RequireToken.
func Username(c fiber.Ctx) string {
	if name, ok := c.Locals(contextKeyUsername).(string); ok {
		return name
	}
	return ""
}

// TokenLabel returns the label of the token that authenticated the request.
func TokenLabel(c fiber.Ctx) string {
	if label, ok := c.Locals(contextKeyTokenName).(string); ok {
		return label
	}
	return ""
}

// errorPayload is the wire shape registry clients parse for failures.
func errorPayload(detail string) fiber.Map {
	return fiber.Map{"errors": []fiber.Map{{"detail": detail}}}
}

// RenderError translates a typed registry error into its wire response. The
// full error is logged; clients see the opaque fallback for storage faults.
func RenderError(c fiber.Ctx, logger *logrus.Logger, err error) error {
	status := fiber.StatusInternalServerError
	switch crates.KindOf(err) {
	case crates.KindValidation, crates.KindConflict:
		status = fiber.StatusBadRequest
	case crates.KindNotFound:
		status = fiber.StatusNotFound
	case crates.KindUnauthenticated:
		status = fiber.StatusForbidden
	case crates.KindStorage:
		logger.WithFields(logrus.Fields{
			"action":     "request_error",
			"request_id": RequestID(c),
		}).Error(err.Error())
	}
	return c.Status(status).JSON(errorPayload(crates.Detail(err)))
}
