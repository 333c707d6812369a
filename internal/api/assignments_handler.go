package api

import (
	"net/http"
	"strconv"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
)

// assignmentsHandler serves mission-user rows: who is assigned to which
// mission and how far along they are.
type assignmentsHandler struct {
	missions *mission.Service
}

func newAssignmentsHandler(missions *mission.Service) *assignmentsHandler {
	return &assignmentsHandler{missions: missions}
}

// List handles GET /api/mission-users?user=&mission=.
func (h *assignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := mission.AssignmentQuery{Mission: r.URL.Query().Get("mission")}
	if v := r.URL.Query().Get("user"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_filter", "user must be a positive integer")
			return
		}
		q.UserID = id
	}

	assignments, err := h.missions.Assignments(r.Context(), auth.CallerFromContext(r.Context()), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, assignments)
}

// Get handles GET /api/mission-users/{id}.
func (h *assignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		writeBadID(w, "id")
		return
	}

	a, err := h.missions.Assignment(r.Context(), auth.CallerFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// Create handles POST /api/mission-users. It follows the same rules as
// assigning through /missions/{id}/assign; a non-default status also needs
// the user to be in the caller's scope.
func (h *assignmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mission string `json:"mission"`
		User    flexID `json:"user"`
		Status  string `json:"status"`
	}
	if err := readData(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	if req.Mission == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "mission is required")
		return
	}

	a, err := h.missions.CreateAssignment(r.Context(), auth.CallerFromContext(r.Context()), req.Mission, int64(req.User), req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "create", "mission_user", a.ID, "mission", req.Mission, "assigned_user_id", int64(req.User))
	writeData(w, http.StatusCreated, a)
}

// Update handles PUT /api/mission-users/{id}. Only the status can change.
func (h *assignmentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		writeBadID(w, "id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := readData(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	a, err := h.missions.UpdateAssignmentStatus(r.Context(), auth.CallerFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "update", "mission_user", id, "status", a.Status)
	writeData(w, http.StatusOK, a)
}

// Delete handles DELETE /api/mission-users/{id}.
func (h *assignmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		writeBadID(w, "id")
		return
	}

	if err := h.missions.DeleteAssignment(r.Context(), auth.CallerFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "delete", "mission_user", id)
	w.WriteHeader(http.StatusNoContent)
}
