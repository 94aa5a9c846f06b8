package guild

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"guildboard/internal/task"
	"guildboard/internal/user"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound),
		errors.Is(err, task.ErrSubtaskNotFound),
		errors.Is(err, task.ErrResourceNotFound),
		errors.Is(err, user.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, task.ErrDuplicateSubtaskID):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		writeErr(w, http.StatusForbidden, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := task.ListFilter{
			Status:     q.Get("status"),
			Type:       q.Get("type"),
			AssignedTo: q.Get("assignedTo"),
			CreatedBy:  q.Get("createdBy"),
		}
		ts, err := h.svc.ListTasks(r.Context(), filter)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ts)

	case http.MethodPost:
		var in task.Task
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		t, err := h.svc.CreateTask(r.Context(), in)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/tasks/{id}[/claim|/complete|/status|/resources/{name}|/subtasks/{sid}/...]
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if tail == "" {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	parts := strings.Split(tail, "/")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad task id")
		return
	}

	switch {
	case len(parts) == 1:
		h.taskByID(w, r, id)
	case len(parts) == 2 && parts[1] == "claim":
		h.taskClaim(w, r, id)
	case len(parts) == 2 && parts[1] == "complete":
		h.taskComplete(w, r, id)
	case len(parts) == 2 && parts[1] == "status":
		h.taskStatus(w, r, id)
	case len(parts) == 3 && parts[1] == "resources":
		h.taskContribute(w, r, id, parts[2])
	case len(parts) == 4 && parts[1] == "subtasks" && parts[3] == "claim":
		h.subtaskClaim(w, r, id, parts[2])
	case len(parts) == 4 && parts[1] == "subtasks" && parts[3] == "complete":
		h.subtaskComplete(w, r, id, parts[2])
	default:
		writeErr(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) taskByID(w http.ResponseWriter, r *http.Request, id int) {
	switch r.Method {
	case http.MethodGet:
		t, err := h.svc.GetTask(r.Context(), id)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)

	case http.MethodPatch:
		var p task.Patch
		if err := decodeJSON(r, &p); err != nil {
			writeErr(w, http.StatusBadRequest, "bad json")
			return
		}
		t, err := h.svc.UpdateTask(r.Context(), id, p)
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)

	case http.MethodDelete:
		if err := h.svc.DeleteTask(r.Context(), id); err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})

	default:
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type claimRequest struct {
	User string `json:"user"`
}

func (h *Handler) taskClaim(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in claimRequest
	if err := decodeJSON(r, &in); err != nil || strings.TrimSpace(in.User) == "" {
		writeErr(w, http.StatusBadRequest, `missing field "user"`)
		return
	}
	t, claimed, err := h.svc.ToggleTaskClaim(r.Context(), id, in.User)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t, "assigned": claimed})
}

func (h *Handler) taskComplete(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	t, err := h.svc.CompleteTask(r.Context(), id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) taskStatus(w http.ResponseWriter, r *http.Request, id int) {
	if r.Method != http.MethodPut {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in struct {
		Status task.Status `json:"status"`
		User   string      `json:"user"`
	}
	if err := decodeJSON(r, &in); err != nil || in.Status == "" || strings.TrimSpace(in.User) == "" {
		writeErr(w, http.StatusBadRequest, `fields "status" and "user" are required`)
		return
	}
	t, err := h.svc.SetStatus(r.Context(), id, in.Status, in.User)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) taskContribute(w http.ResponseWriter, r *http.Request, id int, rawName string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, err := url.PathUnescape(rawName)
	if err != nil || strings.TrimSpace(name) == "" {
		writeErr(w, http.StatusBadRequest, "bad resource name")
		return
	}
	var in struct {
		User      string `json:"user"`
		Amount    int    `json:"amount"`
		SubtaskID *int   `json:"subtaskId,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(in.User) == "" {
		writeErr(w, http.StatusBadRequest, `missing field "user"`)
		return
	}
	t, err := h.svc.AdjustContribution(r.Context(), id, in.SubtaskID, name, in.User, in.Amount)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) subtaskClaim(w http.ResponseWriter, r *http.Request, id int, rawSid string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sid, err := strconv.Atoi(rawSid)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad subtask id")
		return
	}
	var in claimRequest
	if err := decodeJSON(r, &in); err != nil || strings.TrimSpace(in.User) == "" {
		writeErr(w, http.StatusBadRequest, `missing field "user"`)
		return
	}
	t, claimed, err := h.svc.ToggleSubtaskClaim(r.Context(), id, sid, in.User)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t, "assigned": claimed})
}

func (h *Handler) subtaskComplete(w http.ResponseWriter, r *http.Request, id int, rawSid string) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sid, err := strconv.Atoi(rawSid)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad subtask id")
		return
	}
	t, err := h.svc.ToggleSubtaskCompletion(r.Context(), id, sid)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
