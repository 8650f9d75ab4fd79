package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/recoverycoach/internal/coach"
	"github.com/claude/recoverycoach/internal/ingest/alpha"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc    *coach.Service
	alpha  *alpha.Provider
	mcp    http.Handler
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured. mcpHandler may be nil,
// in which case /mcp is not mounted.
func New(svc *coach.Service, alphaProvider *alpha.Provider, mcpHandler http.Handler, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		alpha:  alphaProvider,
		mcp:    mcpHandler,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/muscles", s.handleMuscles)

		r.Post("/workouts", s.handleRecordWorkout)
		r.Get("/workouts", s.handleWorkouts)
		r.Get("/recovery", s.handleRecovery)

		r.Post("/chat/turns", s.handleRecordChatTurn)
		r.Get("/chat", s.handleChatWindow)
		r.Post("/chat/rate", s.handleChargeRate)
		r.Post("/chat/stream", s.handleChatStream)

		// Ingest endpoints (API key required when configured)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/ingest/alpha", s.handleAlphaIngest)
		})
	})

	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
	}
}
