// Package api exposes the keyword engine over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"
	"vankeyword/app/config"
	"vankeyword/app/service/engine"
	"vankeyword/app/service/lexicon"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const Version = "1.0.0"

type Server struct {
	cfg       *config.Config
	engine    *engine.Service
	validate  *validator.Validate
	app       *fiber.App
	startedAt time.Time
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*engine.Service](di),
	), nil
}

func NewServer(cfg *config.Config, engineSvc *engine.Service) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    engineSvc,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		startedAt: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "vankeyword",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	app.Get("/", s.handleRoot)
	app.Get("/status", s.handleStatus)
	app.Get("/api/v1/examples", s.handleExamples)

	v1 := app.Group("/api/v1", keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator:  s.validateToken,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing token")
		},
	}))
	v1.Post("/keyword", s.handleKeyword)

	s.app = app

	return s
}

func (s *Server) validateToken(_ *fiber.Ctx, key string) (bool, error) {
	if !s.tokenMatches(key) {
		return false, keyauth.ErrMissingOrMalformedAPIKey
	}

	return true, nil
}

func (s *Server) tokenMatches(key string) bool {
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Server.Token)) == 1
}

// App is the underlying fiber application, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.Info("HTTP API listening", "addr", s.cfg.Server.Listen)
		errCh <- s.app.Listen(s.cfg.Server.Listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	case errors.Is(err, engine.ErrValidation), errors.As(err, &validationErrs):
		code = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, lexicon.ErrNotFound):
		code = fiber.StatusNotFound
		message = lexicon.ErrNotFound.Error()
	default:
		slog.Error("Request failed",
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success":   false,
		"error":     message,
		"timestamp": timestamp(),
	})
}

func timestamp() float64 {
	return float64(time.Now().UnixMilli()) / 1000
}
