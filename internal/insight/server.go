// Package insight implements the HTTP API: athletes POST a question
// and get a grounded answer back, with the MCP tool endpoint and
// operational routes mounted alongside.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"

	"github.com/runlens/runlens/internal/agent"
	"github.com/runlens/runlens/internal/buildinfo"
	"github.com/runlens/runlens/internal/cache"
	"github.com/runlens/runlens/internal/observability"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// errorEnvelope is the uniform error body for every failure response.
type errorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// InsightRequest is the question payload.
type InsightRequest struct {
	Question string `json:"question"`
}

// InsightResponse is the answered question.
type InsightResponse struct {
	Question             string   `json:"question"`
	Answer               string   `json:"answer"`
	AnswerHTML           string   `json:"answer_html"`
	SupportingActivities []int64  `json:"supporting_activities"`
	Model                string   `json:"model"`
	Iterations           int      `json:"iterations"`
}

// Server is the insight HTTP server.
type Server struct {
	listen  string
	agent   *agent.Agent
	mcp     http.Handler
	cache   *cache.Cache
	logger  *slog.Logger
	server  *http.Server
	render  goldmark.Markdown
}

// NewServer assembles the server. The mcp handler is mounted at /mcp
// so external MCP hosts can drive the same analytics tools.
func NewServer(listen string, ag *agent.Agent, mcpHandler http.Handler, c *cache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		listen: listen,
		agent:  ag,
		mcp:    mcpHandler,
		cache:  c,
		logger: logger,
		render: goldmark.New(),
	}
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/insight", s.handleInsight)
	mux.HandleFunc("POST /v1/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	return s.withLogging(mux)
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // insight answers can take a while
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("starting insight server", "listen", s.listen)
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

func (s *Server) writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, errorEnvelope{Status: status, Message: message, Details: details}, s.logger)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	var req InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	start := time.Now()
	result, err := s.agent.GetInsight(r.Context(), req.Question)
	observability.InsightDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("insight failed", "error", err, "question", req.Question)
		s.writeError(w, http.StatusInternalServerError, "failed to answer question", err.Error())
		return
	}

	var html bytes.Buffer
	if err := s.render.Convert([]byte(result.Answer), &html); err != nil {
		s.logger.Warn("markdown rendering failed", "error", err)
		html.Reset()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, InsightResponse{
		Question:             req.Question,
		Answer:               result.Answer,
		AnswerHTML:           html.String(),
		SupportingActivities: []int64{},
		Model:                result.Model,
		Iterations:           result.Iterations,
	}, s.logger)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		s.cache.Clear()
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "cleared"}, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"name":    "RunLens",
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
