// Package http exposes the gateway to telecom aggregators over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Gateway is the part of the USSD gateway served over HTTP.
type Gateway interface {
	ports.DialogHandler
	Graph() *automaton.Graph
	Reload() (*automaton.Graph, error)
}

// Server handles aggregator callbacks and operational endpoints.
type Server struct {
	gateway   Gateway
	validator *requestValidator
	logger    *slog.Logger
	version   string

	metrics  http.Handler
	onReload func(error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithReloadObserver is called with the outcome of every reload request.
func WithReloadObserver(fn func(error)) Option {
	return func(s *Server) {
		s.onReload = fn
	}
}

// NewHandler builds the HTTP handler. It fails when the embedded OpenAPI
// document does not validate.
func NewHandler(ctx context.Context, gw Gateway, opts ...Option) (http.Handler, error) {
	s := &Server{
		gateway: gw,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	if s.validator, err = newRequestValidator(doc); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(tracingMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/ussd", func(r chi.Router) {
		r.Post("/callback", s.Callback)
		r.Post("/test", s.Test)
		r.Get("/health", s.Health)
		r.Get("/automaton/info", s.AutomatonInfo)
		r.Post("/automaton/reload", s.AutomatonReload)
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(rawSpec)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r, nil
}

// Callback handles the form-encoded aggregator callback.
func (s *Server) Callback(w http.ResponseWriter, r *http.Request) {
	if err := s.validator.Validate(r); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "invalid form body")
		return
	}
	s.dispatch(w, r, r.PostForm.Get("sessionId"), r.PostForm.Get("phoneNumber"), r.PostForm.Get("text"))
}

type testRequest struct {
	SessionID   string `json:"sessionId"`
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

// Test handles the JSON variant of the callback.
func (s *Server) Test(w http.ResponseWriter, r *http.Request) {
	if err := s.validator.Validate(r); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	var body testRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.dispatch(w, r, body.SessionID, body.PhoneNumber, body.Text)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, sessionID, phone, text string) {
	clean, err := SanitizeInput(text)
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}
	req := domain.Request{
		SessionID: sessionID,
		Phone:     phone,
		Input:     LastSegment(clean),
	}

	s.logger.Debug("ussd request",
		"session_id", req.SessionID,
		"phone", logging.MaskPhone(req.Phone),
		"request_id", RequestIDFromContext(r.Context()),
	)
	d := s.gateway.Handle(r.Context(), req)
	writeText(w, http.StatusOK, d.String())
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Automaton string `json:"automaton"`
	Version   string `json:"version"`
}

// Health reports liveness and the automaton in service.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	st := s.gateway.Graph().Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Message:   "USSD Service is running",
		Automaton: st.AutomatonID + "@" + st.Version,
		Version:   s.version,
	})
}

// AutomatonInfo returns the statistics of the current graph.
func (s *Server) AutomatonInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Graph().Stats())
}

// AutomatonReload re-reads the automaton file. The running graph is kept on failure.
func (s *Server) AutomatonReload(w http.ResponseWriter, r *http.Request) {
	g, err := s.gateway.Reload()
	if s.onReload != nil {
		s.onReload(err)
	}
	switch {
	case errors.Is(err, automaton.ErrNoSource):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		s.logger.Warn("automaton reload rejected", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.logger.Info("automaton reloaded", "version", g.Stats().Version)
		writeJSON(w, http.StatusOK, g.Stats())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
