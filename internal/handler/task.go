package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tanvir/taskdeck/internal/auth"
	"github.com/tanvir/taskdeck/internal/kv"
	"github.com/tanvir/taskdeck/internal/task"
)

// TaskHandler exposes one user's task namespace over HTTP.
//
// STORE LIFETIME:
// A task.Store is constructed per request from the identity the auth
// middleware put in the context. The store loads its namespace on
// construction and writes the whole sequence through on every mutation, so
// there is nothing worth caching between requests — and caching would only
// widen the documented last-write-wins window between concurrent
// consumers of a namespace.
type TaskHandler struct {
	kv     kv.Store
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler over the persistence medium.
func NewTaskHandler(store kv.Store, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{kv: store, logger: logger}
}

// store builds the request-scoped task store. The middleware guarantees an
// identity on these routes; the ok-check is belt and braces.
func (h *TaskHandler) store(r *http.Request) (*task.Store, bool) {
	email, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return task.NewStore(r.Context(), h.kv, email, h.logger), true
}

type taskTextRequest struct {
	Text string `json:"text"`
}

// HandleList returns the namespace's tasks.
//
// HTTP: GET /api/tasks?filter=all|active|done&sort=new|old
//
// Unknown filter values behave as "all" and unknown sort values keep
// insertion order — the parse functions fold them, so a client typo
// degrades to the default view instead of a 400.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	q := r.URL.Query()
	tasks := store.List(task.ListOptions{
		Filter: task.ParseFilter(q.Get("filter")),
		Sort:   task.ParseSort(q.Get("sort")),
	})

	writeJSON(w, http.StatusOK, tasks)
}

// HandleAdd creates a task.
//
// HTTP: POST /api/tasks  {"text": "buy milk"}
//
// The empty-text rejection lives here, not in the store — the store's
// contract is to record what it is given, and "type something first" is a
// consumer rule.
func (h *TaskHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req taskTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "text is required"})
		return
	}

	created, err := store.Add(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("add task failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// HandleToggle flips a task's completed flag.
//
// HTTP: POST /api/tasks/{id}/toggle
//
// Responds 204 whether or not the id matched — unknown ids are silent
// no-ops all the way down, so clients never pre-check existence.
func (h *TaskHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	if _, err := store.Toggle(r.Context(), r.PathValue("id")); err != nil {
		h.logger.Error("toggle task failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdate replaces a task's text.
//
// HTTP: PUT /api/tasks/{id}  {"text": "new text"}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	var req taskTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "text is required"})
		return
	}

	if _, err := store.Update(r.Context(), r.PathValue("id"), req.Text); err != nil {
		h.logger.Error("update task failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove deletes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	if _, err := store.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.logger.Error("remove task failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleClearCompleted removes every completed task in the namespace.
//
// HTTP: DELETE /api/tasks/completed
func (h *TaskHandler) HandleClearCompleted(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	removed, err := store.ClearCompleted(r.Context())
	if err != nil {
		h.logger.Error("clear completed failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
