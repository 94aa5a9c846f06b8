package template

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"guildboard/internal/task"
)

// TaskCreator is the slice of the task board a materialized template is
// handed to.
type TaskCreator interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
}

type Handler struct {
	repo  Repo
	tasks TaskCreator
}

func NewHandler(repo Repo, tasks TaskCreator) *Handler {
	return &Handler{repo: repo, tasks: tasks}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// /api/templates  (collection)
func (h *Handler) TemplatesRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tps, err := h.repo.List(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, tps)

	case http.MethodPost:
		var in Template
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		if strings.TrimSpace(in.Name) == "" {
			writeErr(w, http.StatusBadRequest, `missing field "name"`)
			return
		}
		// Reject malformed node lists at save time, not at materialize time.
		if _, err := in.Materialize(""); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		tp, err := h.repo.Create(r.Context(), in)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, tp)

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/templates/{id}[/materialize]
func (h *Handler) TemplatesSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/templates/"), "/")
	if tail == "" {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	parts := strings.Split(tail, "/")

	switch {
	case len(parts) == 1:
		h.templateByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "materialize":
		h.materialize(w, r, parts[0])
	default:
		writeErr(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) templateByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		tp, err := h.repo.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeErr(w, http.StatusNotFound, err.Error())
				return
			}
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, tp)

	case http.MethodDelete:
		if err := h.repo.Delete(r.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeErr(w, http.StatusNotFound, err.Error())
				return
			}
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) materialize(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in struct {
		User string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.User) == "" {
		writeErr(w, http.StatusBadRequest, `missing field "user"`)
		return
	}

	tp, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeErr(w, http.StatusNotFound, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	draft, err := tp.Materialize(in.User)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.tasks.CreateTask(r.Context(), draft)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
