package api

import (
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/go-chi/chi/v5"
)

// missionsHandler groups mission CRUD and participation HTTP handlers.
type missionsHandler struct {
	missions *mission.Service
}

func newMissionsHandler(missions *mission.Service) *missionsHandler {
	return &missionsHandler{missions: missions}
}

// List handles GET /api/missions.
func (h *missionsHandler) List(w http.ResponseWriter, r *http.Request) {
	missions, err := h.missions.List(r.Context(), auth.CallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, missions)
}

// Get handles GET /api/missions/{id}.
func (h *missionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.missions.Get(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// Create handles POST /api/missions.
func (h *missionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in mission.CreateInput
	if err := readData(r, &in); err != nil {
		writeBodyError(w, err)
		return
	}

	m, err := h.missions.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "create", "mission", m.DocumentID, "title", m.Title)
	writeData(w, http.StatusCreated, m)
}

// Update handles PUT /api/missions/{id}.
func (h *missionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in mission.UpdateInput
	if err := readData(r, &in); err != nil {
		writeBodyError(w, err)
		return
	}

	m, err := h.missions.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "update", "mission", m.DocumentID)
	writeData(w, http.StatusOK, m)
}

// Delete handles DELETE /api/missions/{id}.
func (h *missionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.missions.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "delete", "mission", id)
	w.WriteHeader(http.StatusNoContent)
}

// Assign handles POST /api/missions/{id}/assign.
func (h *missionsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID flexID `json:"userId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	a, err := h.missions.AssignUser(r.Context(), id, int64(req.UserID))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "assign", "mission", id, "assigned_user_id", a.UserID, "assignment_id", a.ID)
	writeData(w, http.StatusOK, a)
}

// Participants handles GET /api/missions/{id}/participants.
func (h *missionsHandler) Participants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.missions.Participants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, participants)
}

// RemoveParticipant handles DELETE /api/missions/{id}/participants/{userId}.
func (h *missionsHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := intParam(r, "userId")
	if !ok {
		writeBadID(w, "userId")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.missions.RemoveParticipant(r.Context(), id, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "remove_participant", "mission", id, "removed_user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Participant removed successfully"})
}

// AssignOrganization handles POST /api/missions/{id}/assign-organization.
func (h *missionsHandler) AssignOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organizationId"`
	}
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.missions.AssignOrganization(r.Context(), id, req.OrganizationID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "assign_organization", "mission", id,
		"organization_id", req.OrganizationID,
		"added", result.AddedCount,
		"failed", len(result.Errors),
	)
	writeJSON(w, http.StatusOK, result)
}
