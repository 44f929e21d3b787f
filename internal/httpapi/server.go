// Package httpapi exposes the battle service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/cory-johannsen/pokedo/internal/config"
	"github.com/cory-johannsen/pokedo/internal/game/battle"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
	"github.com/cory-johannsen/pokedo/internal/gameserver"
	"github.com/cory-johannsen/pokedo/internal/observability"
)

// BattleAPI is the part of the battle service the HTTP layer calls.
type BattleAPI interface {
	Challenge(ctx context.Context, challengerID, opponentID string, format battle.Format) (battle.Summary, error)
	Accept(ctx context.Context, battleID, responderID string) (battle.Summary, error)
	Decline(ctx context.Context, battleID, responderID string) (battle.Summary, error)
	SubmitTeam(ctx context.Context, battleID, playerID string) (battle.Summary, error)
	SubmitAction(ctx context.Context, battleID, playerID string, turn int, a battle.Action) (gameserver.ActionResult, error)
	GetState(ctx context.Context, battleID, requesterID string) (battle.View, error)
	GetHistory(ctx context.Context, battleID string) ([]battle.TurnEvent, error)
	GetCompletedHistory(ctx context.Context, playerID string, limit int) ([]battle.Summary, error)
	ListOpen(ctx context.Context, playerID string) ([]battle.Summary, error)
	GetLeaderboard(ctx context.Context, key rating.SortKey, limit, offset int) ([]rating.Standing, error)
	GetPlayerRating(ctx context.Context, playerID string) (rating.Standing, error)
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Server serves the battle API.
type Server struct {
	app             *fiber.App
	addr            string
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// Option configures a Server.
type Option func(*handler)

// WithHealthCheck adds a dependency check to GET /health.
func WithHealthCheck(name string, fn HealthFunc) Option {
	return func(h *handler) {
		h.checks = append(h.checks, namedCheck{name: name, fn: fn})
	}
}

// NewServer builds the fiber app and its routes.
//
// Precondition: svc and logger must be non-nil.
func NewServer(svc BattleAPI, logger *zap.Logger, cfg config.HTTPConfig, shutdownTimeout time.Duration, opts ...Option) *Server {
	h := &handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}

	app := fiber.New(fiber.Config{
		AppName:      "pokedo",
		ErrorHandler: errorHandler(logger),
		// Player and battle ids outlive the request in battle state.
		Immutable:             true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(observability.RequestLogger(logger))

	app.Get("/health", h.health)

	api := app.Group("/api/v1")
	api.Get("/leaderboard", h.leaderboard)
	api.Get("/players/:id/rating", h.playerRating)
	api.Get("/players/:id/battles", h.completed)
	api.Get("/players/:id/open", h.open)
	api.Get("/battles/:id/history", h.history)

	api.Post("/battles", requirePlayer, h.challenge)
	api.Get("/battles/:id", requirePlayer, h.state)
	api.Post("/battles/:id/accept", requirePlayer, h.accept)
	api.Post("/battles/:id/decline", requirePlayer, h.decline)
	api.Post("/battles/:id/team", requirePlayer, h.team)
	api.Post("/battles/:id/actions", requirePlayer, h.action)

	return &Server{app: app, addr: cfg.Addr(), shutdownTimeout: shutdownTimeout, logger: logger}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http listening", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// Stop drains in-flight requests, waiting at most the shutdown timeout.
func (s *Server) Stop() {
	if err := s.app.ShutdownWithTimeout(s.shutdownTimeout); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}

// requirePlayer rejects requests that carry no player id.
func requirePlayer(c *fiber.Ctx) error {
	if c.Get(observability.PlayerHeader) == "" {
		return fiber.NewError(fiber.StatusUnauthorized, observability.PlayerHeader+" header is required")
	}
	return c.Next()
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, battle.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, battle.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, battle.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, battle.ErrState):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// kindOf names the error class shown to clients.
func kindOf(err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	for _, kind := range []error{battle.ErrValidation, battle.ErrNotFound, battle.ErrConflict, battle.ErrState} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal server error"
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusOf(err)
		resp := ErrorResponse{Error: kindOf(err), Details: err.Error()}
		if code == fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			resp = ErrorResponse{Error: "internal server error"}
		}
		return c.Status(code).JSON(resp)
	}
}
