package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/flowstack/internal/presentation/graph"
	"github.com/aretw0/flowstack/internal/sanitize"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// Server exposes an Executor over HTTP.
type Server struct {
	Executor ports.Executor
	Flows    ports.FlowRegistry
	Streams  *StreamManager

	logger  *slog.Logger
	metrics http.Handler
}

type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// StartRequest is the body of POST /flows/{flowID}/executions.
type StartRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// EventRequest is the body of POST /executions/{id}/events.
type EventRequest struct {
	Event  string         `json:"event"`
	Params map[string]any `json:"params,omitempty"`
}

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewServer creates a server.
func NewServer(executor ports.Executor, flows ports.FlowRegistry, opts ...Option) *Server {
	s := &Server{
		Executor: executor,
		Flows:    flows,
		Streams:  NewStreamManager(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s
}

// NewHandler creates a new HTTP handler for the executor.
func NewHandler(executor ports.Executor, flows ports.FlowRegistry, opts ...Option) http.Handler {
	return NewServer(executor, flows, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlows)
		r.Get("/{flowID}/graph", s.GetGraph)
		r.Post("/{flowID}/executions", s.StartExecution)
	})

	r.Route("/executions", func(r chi.Router) {
		r.Get("/", s.ListExecutions)
		r.Get("/{executionID}", s.GetExecution)
		r.Delete("/{executionID}", s.DeleteExecution)
		r.Post("/{executionID}/events", s.SignalExecution)
		r.Get("/{executionID}/stream", s.SubscribeEvents)
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListFlows handles GET /flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"flows": s.Flows.IDs()})
}

// GetGraph handles GET /flows/{flowID}/graph. The response is a Mermaid flowchart.
// With ?execution=<id> the execution's states are highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	flow, err := s.Flows.GetFlow(chi.URLParam(r, "flowID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var overlay *graph.Overlay
	if id := r.URL.Query().Get("execution"); id != "" {
		snap, err := s.Executor.Inspect(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		overlay = &graph.Overlay{}
		for _, rec := range snap.Sessions {
			if rec.FlowID == flow.ID {
				overlay.VisitedStates = append(overlay.VisitedStates, rec.StateID)
			}
		}
		if snap.ActiveFlowID() == flow.ID {
			overlay.CurrentState = snap.CurrentStateID()
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(flow, overlay)))
}

// StartExecution handles POST /flows/{flowID}/executions.
func (s *Server) StartExecution(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if !s.decode(w, r, &body) {
		return
	}
	input, err := sanitize.Params(body.Input)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	res, err := s.Executor.Start(r.Context(), chi.URLParam(r, "flowID"), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

// SignalExecution handles POST /executions/{executionID}/events.
func (s *Server) SignalExecution(w http.ResponseWriter, r *http.Request) {
	var body EventRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Event == "" {
		s.badRequest(w, errors.New("event is required"))
		return
	}
	eventID, err := sanitize.Input(body.Event)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	params, err := sanitize.Params(body.Params)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	executionID := chi.URLParam(r, "executionID")
	res, err := s.Executor.Signal(r.Context(), executionID, eventID, params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if res.Diff != nil {
		s.logger.Debug("Signal: Diff calculated", "execution_id", executionID, "diff", res.Diff)
		if bytes, err := json.Marshal(res.Diff); err == nil {
			s.Streams.Broadcast(executionID, string(bytes))
		}
	}
	s.writeJSON(w, http.StatusOK, res)
}

// GetExecution handles GET /executions/{executionID}.
func (s *Server) GetExecution(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Executor.Inspect(r.Context(), chi.URLParam(r, "executionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DeleteExecution handles DELETE /executions/{executionID}.
func (s *Server) DeleteExecution(w http.ResponseWriter, r *http.Request) {
	if err := s.Executor.Abort(r.Context(), chi.URLParam(r, "executionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListExecutions handles GET /executions.
func (s *Server) ListExecutions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Executor.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"executions": ids})
}

// SubscribeEvents handles GET /executions/{executionID}/stream (SSE).
// Every successful signal publishes its snapshot diff. ?watch=state,scope,conversation,status
// filters the diffs by the fields they touch.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	executionID := chi.URLParam(r, "executionID")
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(executionID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to execution updates", "execution_id", executionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "execution_id", executionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, watchList []string) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "state":
			if diff.StateID != nil || diff.FlowIDStack != nil {
				return true
			}
		case "scope":
			if len(diff.Scope) > 0 {
				return true
			}
		case "conversation":
			if len(diff.Conversation) > 0 {
				return true
			}
		case "status":
			if diff.Status != nil || diff.Ended != nil {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.badRequest(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.logger.Warn("Request rejected", "err", err)
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// StatusFor maps an executor error to an HTTP status.
func StatusFor(err error) int {
	var noMatch *domain.NoMatchingTransitionError
	switch {
	case errors.As(err, &noMatch) && noMatch.Cascaded:
		// The flow definition cannot route its own event.
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrExecutionNotFound),
		errors.Is(err, domain.ErrNoSuchFlow):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoMatchingTransition),
		errors.Is(err, domain.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrReservedName),
		errors.Is(err, sanitize.ErrInputTooLarge),
		errors.Is(err, sanitize.ErrInvalidUTF8):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var coded domain.Coded
	if errors.As(err, &coded) {
		resp.Code = coded.FaultCode()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	} else {
		s.logger.Debug("Request failed", "status", status, "err", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
