package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dubline/internal/config"
	"dubline/internal/dubbing"
	"dubline/internal/logging"
	"dubline/internal/services"
)

const maxRequestBody = 1 << 20

// Runner executes dubbing runs.
type Runner interface {
	Run(ctx context.Context, req dubbing.Request) (*dubbing.RunReport, error)
}

// Server is the HTTP front end for starting and inspecting runs.
type Server struct {
	bind    string
	token   string
	logger  *slog.Logger
	runs    *RunService
	runner  Runner
	metrics http.Handler

	mu       sync.Mutex
	baseCtx  context.Context
	inflight sync.WaitGroup
	listener net.Listener
	server   *http.Server
}

// NewServer wires the API routes. runner may be nil for a read-only server and
// metrics may be nil to omit /metrics.
func NewServer(cfg *config.Config, runner Runner, runs RunReader, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		bind:    strings.TrimSpace(cfg.API.Bind),
		token:   strings.TrimSpace(cfg.API.Token),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		runs:    NewRunService(runs),
		runner:  runner,
		metrics: metrics,
		baseCtx: context.Background(),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with request ids and auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", authMiddleware(s.token, s.handleRuns))
	mux.HandleFunc("/api/runs/", authMiddleware(s.token, s.handleRun))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return requestIDMiddleware(mux)
}

// Start listens on the configured bind address. Runs started through the API
// inherit ctx, so cancelling it cancels in-flight runs and stops the server.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "api", "start", "api.bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.baseCtx = ctx
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down. In-flight runs keep going; use Wait for them.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// Wait blocks until every run started through the API has returned.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
	case http.MethodPost:
		s.startRun(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	s.writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "server is read-only")
		return
	}
	var body StartRunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	body.VideoKey = strings.TrimSpace(body.VideoKey)
	if body.VideoKey == "" {
		s.writeError(w, http.StatusBadRequest, "videoKey is required")
		return
	}
	runID := strings.TrimSpace(body.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := dubbing.ValidateRunID(runID); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	existing, err := s.runs.Describe(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		s.writeError(w, http.StatusConflict, "run already exists: "+runID)
		return
	}

	requestID, _ := services.RequestIDFromContext(r.Context())
	req := dubbing.Request{RunID: runID, Bucket: body.Bucket, VideoKey: body.VideoKey, Languages: body.Languages}

	s.mu.Lock()
	ctx := services.WithRequestID(s.baseCtx, requestID)
	s.mu.Unlock()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		logger := logging.WithContext(services.WithRunID(ctx, runID), s.logger)
		report, err := s.runner.Run(ctx, req)
		if err != nil {
			logging.ErrorWithContext(logger, "api run failed", "api_run_failure", logging.Error(err))
			return
		}
		logger.Info("api run finished", logging.String("status", string(report.Status)))
	}()

	s.writeJSON(w, http.StatusAccepted, StartRunResponse{RunID: runID, RequestID: requestID})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	run, err := s.runs.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{Run: *run})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
