package api

import (
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/go-chi/chi/v5"
)

// tasksHandler groups task HTTP handlers. Reads follow mission visibility.
type tasksHandler struct {
	missions *mission.Service
}

func newTasksHandler(missions *mission.Service) *tasksHandler {
	return &tasksHandler{missions: missions}
}

// List handles GET /api/tasks?mission=<documentId>.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.missions.Tasks(r.Context(), auth.CallerFromContext(r.Context()), r.URL.Query().Get("mission"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, tasks)
}

// Get handles GET /api/tasks/{id}.
func (h *tasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.missions.Task(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// Create handles POST /api/tasks.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in mission.CreateTaskInput
	if err := readData(r, &in); err != nil {
		writeBodyError(w, err)
		return
	}

	t, err := h.missions.CreateTask(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "create", "task", t.DocumentID, "mission", in.Mission)
	writeData(w, http.StatusCreated, t)
}

// Update handles PUT /api/tasks/{id}.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in mission.UpdateTaskInput
	if err := readData(r, &in); err != nil {
		writeBodyError(w, err)
		return
	}

	t, err := h.missions.UpdateTask(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "update", "task", t.DocumentID)
	writeData(w, http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.missions.DeleteTask(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "delete", "task", id)
	w.WriteHeader(http.StatusNoContent)
}
