package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arbiter-dev/arbiter/internal/lockmgr"
	"github.com/arbiter-dev/arbiter/internal/models"
)

// Server provides the HTTP API for Arbiter.
type Server struct {
	service *Service
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string) *Server {
	return &Server{
		service: service,
		addr:    addr,
	}
}

// Handler builds the request mux. Exposed for httptest use.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/locks", s.handleLocks)
	mux.HandleFunc("/locks/acquire", s.handleLockAcquire)
	mux.HandleFunc("/locks/release", s.handleLockRelease)
	mux.HandleFunc("/locks/extend", s.handleLockExtend)
	mux.HandleFunc("/permissions/check", s.handlePermissionCheck)
	mux.HandleFunc("/conflicts/resolve", s.handleConflictResolve)
	mux.HandleFunc("/workflows", s.handleWorkflows)
	mux.HandleFunc("/workflows/", s.handleWorkflowByID)
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/tasks/", s.handleTaskByID)
	mux.HandleFunc("/decisions", s.handleDecisions)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting Arbiter daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// --- Routing ---

type routeRequest struct {
	Text          string        `json:"text"`
	CurrentTarget models.Target `json:"current_target,omitempty"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.service.Route(req.Text, req.CurrentTarget))
}

// --- Locks ---

type lockRequest struct {
	Resource string `json:"resource"`
	Holder   string `json:"holder"`
	TTLSec   int    `json:"ttl_sec,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	locks, err := s.service.ListLocks(r.URL.Query().Get("prefix"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if locks == nil {
		locks = []models.Lock{}
	}
	writeJSON(w, http.StatusOK, locks)
}

func (s *Server) handleLockAcquire(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !decodePost(w, r, &req) {
		return
	}

	lock, err := s.service.AcquireLock(req.Resource, req.Holder, time.Duration(req.TTLSec)*time.Second, req.Force)
	if err != nil {
		var conflict *lockmgr.ConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":      conflict.Error(),
				"holder":     conflict.Holder,
				"expires_at": conflict.ExpiresAt,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lock)
}

func (s *Server) handleLockRelease(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !decodePost(w, r, &req) {
		return
	}

	released, err := s.service.ReleaseLock(req.Resource, req.Holder)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"released": released})
}

type extendRequest struct {
	Resource      string `json:"resource"`
	Holder        string `json:"holder"`
	AdditionalSec int    `json:"additional_sec"`
}

func (s *Server) handleLockExtend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if !decodePost(w, r, &req) {
		return
	}

	lock, err := s.service.ExtendLock(req.Resource, req.Holder, time.Duration(req.AdditionalSec)*time.Second)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if lock == nil {
		http.Error(w, "not the lock holder", http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, lock)
}

// --- Permissions and conflicts ---

type permissionRequest struct {
	Identity  models.Identity `json:"identity"`
	Path      string          `json:"path"`
	Operation string          `json:"operation"`
}

func (s *Server) handlePermissionCheck(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.CheckPermission(req.Identity, req.Path, req.Operation))
}

type resolveRequest struct {
	ConflictType models.ConflictType `json:"conflict_type"`
	Contenders   []models.Identity   `json:"contenders"`
}

func (s *Server) handleConflictResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodePost(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.ResolveConflict(req.ConflictType, req.Contenders))
}

// --- Workflows ---

type startWorkflowRequest struct {
	Workflow   models.Workflow   `json:"workflow,omitempty"`
	Scope      models.Scope      `json:"scope,omitempty"`
	Complexity models.Complexity `json:"complexity,omitempty"`
	Input      string            `json:"input"`
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.startWorkflow(w, r)
	case http.MethodGet:
		execs := s.service.ListExecutions()
		if execs == nil {
			execs = []models.WorkflowExecution{}
		}
		writeJSON(w, http.StatusOK, execs)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) startWorkflow(w http.ResponseWriter, r *http.Request) {
	var req startWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	wf := req.Workflow
	if wf == "" {
		wf = s.service.RecommendWorkflow(req.Scope, req.Complexity)
	}

	id, err := s.service.StartWorkflow(r.Context(), wf, req.Input)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrUnknownWorkflow) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "workflow": string(wf)})
}

// handleWorkflowByID handles /workflows/{id} and /workflows/{id}/{action}.
func (s *Server) handleWorkflowByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/workflows/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "execution id required", http.StatusBadRequest)
		return
	}

	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		exec, err := s.service.GetExecution(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, exec)
	case action == "pause" && r.Method == http.MethodPost:
		s.transition(w, id, s.service.PauseExecution)
	case action == "resume" && r.Method == http.MethodPost:
		s.transition(w, id, s.service.ResumeExecution)
	case action == "cancel" && r.Method == http.MethodPost:
		s.transition(w, id, s.service.CancelExecution)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) transition(w http.ResponseWriter, id string, fn func(string) error) {
	if err := fn(id); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrExecutionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrBadTransition):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Sync, tasks, decisions ---

type syncRequest struct {
	Dir string `json:"dir"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Dir == "" {
		http.Error(w, "dir is required", http.StatusBadRequest)
		return
	}

	count, err := s.service.Sync(req.Dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"ingested": count})
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/tasks/")
	if id == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	task, err := s.service.TaskStatus(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	recs, err := s.service.RecentDecisions(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []models.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// --- Health ---

// HealthResponse reports per-component reachability.
type HealthResponse struct {
	OK         bool                               `json:"ok"`
	Components map[string]models.ComponentStatus `json:"components"`
	Time       string                             `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	components := s.service.Health(r.Context())
	ok := true
	for _, st := range components {
		if st == models.StatusOffline {
			ok = false
		}
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		OK:         ok,
		Components: components,
		Time:       time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Helpers ---

func decodePost(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
