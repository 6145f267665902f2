// Package routes registers the registry's HTTP endpoints on a Fiber app.
package routes

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/auth"
	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/logging"
	"github.com/cargohold/cargohold/internal/publish"
	"github.com/cargohold/cargohold/internal/server"
	"github.com/cargohold/cargohold/internal/storage"
)

// APIDeps carries everything the /api/v1 handlers need.
type APIDeps struct {
	Logger    *logrus.Logger
	Lifecycle *publish.Lifecycle
	Entries   *storage.EntryStore
	Tokens    *auth.Tokens
	Users     *auth.Users
}

// RegisterAPIRoutes wires the publish, yank, search, user and token
// endpoints. Mutations sit behind the bearer-token middleware.
func RegisterAPIRoutes(app *fiber.App, deps APIDeps) {
	requireToken := server.RequireToken(deps.Tokens, deps.Logger)

	// The token gate is the first handler in each mutation chain so a
	// rejected request can never reach the lifecycle.
	app.Put("/api/v1/crates/new", requireToken, publishCrate(deps))
	app.Delete("/api/v1/crates/:name/:version/yank", requireToken, yankCrate(deps, true))
	app.Put("/api/v1/crates/:name/:version/unyank", requireToken, yankCrate(deps, false))
	app.Get("/api/v1/crates", searchCrates(deps))

	app.Put("/api/v1/users", registerUser(deps))
	app.Put("/api/v1/tokens", createToken(deps))
	app.Delete("/api/v1/tokens", deleteToken(deps))
}

func publishCrate(deps APIDeps) fiber.Handler {
	return func(c fiber.Ctx) error {
		meta, blob, cksum, err := publish.Decode(c.Body())
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}

		fields := logging.RequestFields("publish", server.RequestID(c), meta.Name, meta.Vers)
		fields["user"] = server.Username(c)
		fields["token_label"] = server.TokenLabel(c)
		deps.Logger.WithFields(fields).Info("user attempting to upload crate")

		if err := deps.Lifecycle.Publish(c.Context(), meta, blob, cksum); err != nil {
			return server.RenderError(c, deps.Logger, err)
		}
		return c.JSON(fiber.Map{})
	}
}

func yankCrate(deps APIDeps, yank bool) fiber.Handler {
	action := "yank"
	if !yank {
		action = "unyank"
	}
	return func(c fiber.Ctx) error {
		name := c.Params("name")
		version := c.Params("version")

		fields := logging.RequestFields(action, server.RequestID(c), name, version)
		fields["user"] = server.Username(c)
		fields["token_label"] = server.TokenLabel(c)
		deps.Logger.WithFields(fields).Info("user attempting to toggle yank")

		var err error
		if yank {
			err = deps.Lifecycle.Yank(c.Context(), name, version)
		} else {
			err = deps.Lifecycle.Unyank(c.Context(), name, version)
		}
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

type searchResult struct {
	Name        string `json:"name"`
	MaxVersion  string `json:"max_version"`
	Description string `json:"description"`
}

func searchCrates(deps APIDeps) fiber.Handler {
	return func(c fiber.Ctx) error {
		query := c.Query("q")
		perPage, err := strconv.Atoi(c.Query("per_page"))
		if err != nil || perPage <= 0 {
			perPage = 10
		}

		var matches []searchResult
		total := 0
		err = deps.Entries.ForEach(func(name string, entry *crates.CrateEntry) error {
			if !strings.Contains(name, query) || len(entry.Versions) == 0 {
				return nil
			}
			total++
			if len(matches) >= perPage {
				return nil
			}
			latest := entry.Versions[len(entry.Versions)-1]
			result := searchResult{Name: name, MaxVersion: latest.Package.Vers}
			if latest.UploadMeta != nil && latest.UploadMeta.Description != nil {
				result.Description = *latest.UploadMeta.Description
			}
			matches = append(matches, result)
			return nil
		})
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}

		if matches == nil {
			matches = []searchResult{}
		}
		return c.JSON(fiber.Map{
			"crates": matches,
			"meta":   fiber.Map{"total": total},
		})
	}
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func registerUser(deps APIDeps) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body credentialsBody
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return server.RenderError(c, deps.Logger, crates.Validationf("could not parse request body"))
		}
		if err := deps.Users.Register(body.Username, body.Password); err != nil {
			return server.RenderError(c, deps.Logger, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

type tokenBody struct {
	Label string `json:"label"`
}

func createToken(deps APIDeps) fiber.Handler {
	return func(c fiber.Ctx) error {
		username, err := verifyBasicAuth(c, deps.Users)
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}

		var body tokenBody
		if err := json.Unmarshal(c.Body(), &body); err != nil || body.Label == "" {
			return server.RenderError(c, deps.Logger, crates.Validationf("token label required"))
		}

		token, issued, err := deps.Tokens.Issue(username, body.Label)
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}
		if !issued {
			return server.RenderError(c, deps.Logger, crates.Conflictf("a token with this label already exists"))
		}
		return c.JSON(fiber.Map{"token": token})
	}
}

func deleteToken(deps APIDeps) fiber.Handler {
	return func(c fiber.Ctx) error {
		username, err := verifyBasicAuth(c, deps.Users)
		if err != nil {
			return server.RenderError(c, deps.Logger, err)
		}

		var body tokenBody
		if err := json.Unmarshal(c.Body(), &body); err != nil || body.Label == "" {
			return server.RenderError(c, deps.Logger, crates.Validationf("token label required"))
		}

		if err := deps.Tokens.Revoke(username, body.Label); err != nil {
			return server.RenderError(c, deps.Logger, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}
}

// verifyBasicAuth resolves the Basic credentials on token-management
// requests; tokens cannot be used to mint or revoke tokens.
func verifyBasicAuth(c fiber.Ctx, users *auth.Users) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Basic ") {
		return "", crates.Unauthenticatedf("missing credentials")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", crates.Unauthenticatedf("invalid credentials")
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", crates.Unauthenticatedf("invalid credentials")
	}
	user, err := users.VerifyPassword(username, password)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}
