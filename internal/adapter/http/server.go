// Package http exposes the service's operational endpoints and the
// synchronous assessment API.
package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
)

// maxScenarioBytes bounds a POSTed scenario body.
const maxScenarioBytes = 1 << 20

// ScenarioAssessor runs one scenario through enrichment and the engine.
type ScenarioAssessor interface {
	Assess(ctx context.Context, s domain.Scenario) (domain.Assessment, error)
}

// Server exposes health, readiness, metrics and assessment endpoints.
type Server struct {
	httpServer *http.Server
	assessor   ScenarioAssessor
	logger     *slog.Logger
}

// NewServer creates an HTTP server. A nil assessor leaves
// POST /v1/assessments unregistered.
func NewServer(addr string, ready sharedobs.ReadinessChecker, assessor ScenarioAssessor, logger *slog.Logger) *Server {
	s := &Server{assessor: assessor, logger: logger}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(30*time.Second),
	)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if assessor != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/assessments", s.handleAssess)
		})
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScenarioBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	scenario, err := domain.ParseScenario(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	assessment, err := s.assessor.Assess(r.Context(), scenario)
	switch {
	case errors.Is(err, domain.ErrInvalidScenario):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		s.logger.Error("assessment failed",
			"request_id", middleware.GetReqID(r.Context()),
			"scenario_id", scenario.ID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, assessment)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
