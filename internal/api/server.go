package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zenwatch-io/zenwatch/internal/logbuf"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

// LogQuerier abstracts log entry querying to avoid coupling to logbuf directly.
type LogQuerier interface {
	Query(since time.Time, minLevel slog.Level, limit int) []logbuf.Entry
}

// Runner is the interface the API server needs to trigger runs.
type Runner interface {
	RunClustering(ctx context.Context) (protocol.RunRecord, error)
	RunQuery(ctx context.Context, query string) (protocol.RunRecord, error)
}

// RunLister reads run history.
type RunLister interface {
	ListRuns(limit int) ([]protocol.RunRecord, error)
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth
}

// Server exposes run history, logs, and manual run triggers over REST.
type Server struct {
	runner Runner
	runs   RunLister
	cfg    Config
	logger *slog.Logger
	logs   LogQuerier
	srv    *http.Server
}

// NewServer creates a new API server. logs may be nil.
func NewServer(runner Runner, runs RunLister, cfg Config, logger *slog.Logger, logs LogQuerier) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runner: runner,
		runs:   runs,
		cfg:    cfg,
		logger: logger,
		logs:   logs,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/runs", s.requireAuth(s.handleListRuns))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	mux.HandleFunc("POST /api/run", s.requireAuth(s.handleTriggerRun))
	mux.HandleFunc("POST /api/query", s.requireAuth(s.handleQuery))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []protocol.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleTriggerRun kicks off a clustering run in the background. The run is
// detached from the request context so a closed connection doesn't abort it.
func (s *Server) handleTriggerRun(w http.ResponseWriter, _ *http.Request) {
	go func() {
		if _, err := s.runner.RunClustering(context.Background()); err != nil {
			s.logger.Error("triggered clustering run failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery runs a natural-language query synchronously and returns the
// run record.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	rec, err := s.runner.RunQuery(r.Context(), req.Query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		switch strings.ToLower(lvl) {
		case "info":
			minLevel = slog.LevelInfo
		case "warn":
			minLevel = slog.LevelWarn
		case "error":
			minLevel = slog.LevelError
		}
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Query(since, minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
