// Package api exposes the turn engine over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/ayokoji/aiko/internal/buildinfo"
	"github.com/ayokoji/aiko/internal/engine"
	"github.com/ayokoji/aiko/internal/events"
	"github.com/ayokoji/aiko/internal/persona"
)

// TurnRunner is the engine surface the server needs. Satisfied by
// *engine.Engine; tests substitute a scripted fake.
type TurnRunner interface {
	Run(ctx context.Context, req engine.TurnRequest) (*engine.TurnResponse, error)
	Stats() map[string]any
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	runner  TurnRunner
	persona *persona.Provider
	bus     *events.Bus
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates a new API server. bus may be nil; the events
// endpoint then reports unavailable.
func NewServer(address string, port int, runner TurnRunner, provider *persona.Provider, bus *events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address: address,
		port:    port,
		runner:  runner,
		persona: provider,
		bus:     bus,
		logger:  logger,
	}
}

// Handler builds the route table. Split from Start so tests can drive
// it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/turn", s.handleTurn)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("GET /v1/persona", s.handlePersona)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // turns can run long
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]any{
		"error": map[string]string{"message": message},
	}, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    s.persona.Name(),
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

// handleTurn runs one conversation turn. Failures inside the engine are
// logged in full here but surface to the caller as a generic message:
// internals never leak to the chat user.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req engine.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := s.runner.Run(r.Context(), req)
	if err != nil {
		s.logger.Error("turn failed",
			"thread", req.ThreadID,
			"user", req.User.Username,
			"error", err)
		s.errorResponse(w, http.StatusInternalServerError, "something went wrong, please try again")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.runner.Stats()
	stats["uptime"] = buildinfo.Uptime().Truncate(time.Second).String()
	stats["subscribers"] = s.bus.SubscriberCount()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats, s.logger)
}

// handlePersona renders the raw persona card to HTML for debugging what
// the character actually is. Placeholders stay unrendered on purpose.
func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(s.persona.Card()), &buf); err != nil {
		s.logger.Error("persona card render failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("failed to write persona response", "error", err)
	}
}
