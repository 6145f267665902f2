package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/logging"
	"github.com/cargohold/cargohold/internal/mirror"
	"github.com/cargohold/cargohold/internal/server"
)

// IndexDeps carries what the sparse-index handlers need.
type IndexDeps struct {
	Logger *logrus.Logger
	Mirror *mirror.Cache

	// ExternalURL is the base URL clients use to reach this registry; it is
	// advertised in config.json.
	ExternalURL string
}

// RegisterIndexRoutes wires the sparse index: the registry descriptor plus
// the sharded metadata paths ("1/x", "2/xy", "3/a/abc", "ab/cd/name").
func RegisterIndexRoutes(app *fiber.App, deps IndexDeps) {
	base := strings.TrimRight(deps.ExternalURL, "/")

	app.Get("/index/config.json", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"dl":  base + "/crates",
			"api": base,
		})
	})

	app.Get("/index/1/:name", crateMetadata(deps))
	app.Get("/index/2/:name", crateMetadata(deps))
	app.Get("/index/:a/:b/:name", crateMetadata(deps))
}

// crateMetadata serves newline-delimited JSON, one PackageRecord per line in
// ascending semver order, pulling from upstream on a miss or a stale mirror.
func crateMetadata(deps IndexDeps) fiber.Handler {
	return func(c fiber.Ctx) error {
		name := c.Params("name")
		deps.Logger.WithFields(logging.RequestFields("crate_metadata", server.RequestID(c), name, "")).
			Info("pulling crate metadata")

		entry, err := deps.Mirror.CrateMetadata(c.Context(), name)
		if err != nil {
			if crates.KindOf(err) == crates.KindNotFound {
				return c.Status(fiber.StatusNotFound).SendString("not found")
			}
			return server.RenderError(c, deps.Logger, err)
		}

		body, err := crates.EncodeIndex(entry)
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Send(body)
	}
}
