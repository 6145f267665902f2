package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/logging"
	"github.com/cargohold/cargohold/internal/mirror"
	"github.com/cargohold/cargohold/internal/server"
)

// DownloadDeps carries what the blob download handler needs.
type DownloadDeps struct {
	Logger *logrus.Logger
	Mirror *mirror.Cache
}

// RegisterDownloadRoutes wires the archive download endpoint.
func RegisterDownloadRoutes(app *fiber.App, deps DownloadDeps) {
	app.Get("/crates/:name/:version/download", func(c fiber.Ctx) error {
		name := c.Params("name")
		version := c.Params("version")
		deps.Logger.WithFields(logging.RequestFields("crate_download", server.RequestID(c), name, version)).
			Info("pulling crate archive")

		blob, err := deps.Mirror.CrateBlob(c.Context(), name, version)
		if err != nil {
			if crates.KindOf(err) == crates.KindNotFound {
				return c.SendStatus(fiber.StatusNotFound)
			}
			return server.RenderError(c, deps.Logger, err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Send(blob)
	})
}
