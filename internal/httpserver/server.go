package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chadiek/interview-demo/internal/interview"
	"github.com/chadiek/interview-demo/internal/rooms"
	"github.com/chadiek/interview-demo/internal/store"
)

// RoomCreator provisions one meeting room per interview.
type RoomCreator interface {
	Create(ctx context.Context) (rooms.Room, error)
}

// Deps are the services the HTTP surface exposes. Store may be nil when
// persistence is not configured; the session endpoints then answer 503.
type Deps struct {
	Rooms     RoomCreator
	Evaluator interview.TurnEvaluator
	Scorer    interview.Scorer
	Store     store.Store
	Questions interview.Config
}

// Server bundles the router and its dependencies.
type Server struct {
	echo *echo.Echo
	deps Deps
}

// New constructs the HTTP server with all routes registered.
func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{echo: e, deps: deps}

	e.GET("/healthz", s.handleHealthz)
	e.POST("/api/rooms", s.handleCreateRoom)
	e.POST("/api/llm", s.handleEvaluateTurn)
	e.POST("/api/score", s.handleScore)
	e.POST("/api/interviews", s.handleCreateInterview)
	e.GET("/api/interviews/:id", s.handleGetInterview)
	e.PATCH("/api/interviews/:id", s.handlePatchInterview)
	e.POST("/api/interviews/:id/score", s.handleScoreInterview)

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
