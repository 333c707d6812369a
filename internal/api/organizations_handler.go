package api

import (
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/go-chi/chi/v5"
)

// organizationsHandler groups organization and membership HTTP handlers.
type organizationsHandler struct {
	orgs *organization.Service
}

func newOrganizationsHandler(orgs *organization.Service) *organizationsHandler {
	return &organizationsHandler{orgs: orgs}
}

type organizationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Manager     *flexID `json:"manager"`
}

func (req organizationRequest) manager() *int64 {
	if req.Manager == nil || *req.Manager == 0 {
		return nil
	}
	id := int64(*req.Manager)
	return &id
}

type memberRequest struct {
	UserID flexID `json:"userId"`
	Role   string `json:"role"`
}

// List handles GET /api/organizations.
func (h *organizationsHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context(), auth.CallerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, orgs)
}

// Get handles GET /api/organizations/{id}.
func (h *organizationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.orgs.Get(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o)
}

// Create handles POST /api/organizations.
func (h *organizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := readData(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	in := organization.CreateInput{Manager: req.manager()}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}

	o, err := h.orgs.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "create", "organization", o.DocumentID, "name", o.Name)
	writeData(w, http.StatusCreated, o)
}

// Update handles PUT /api/organizations/{id}. A manager in the body is
// added as a manager member.
func (h *organizationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := readData(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	o, err := h.orgs.Update(r.Context(), chi.URLParam(r, "id"), organization.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Manager:     req.manager(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	detail := []any{}
	if m := req.manager(); m != nil {
		detail = append(detail, "manager", *m)
	}
	auditLog(r, "update", "organization", o.DocumentID, detail...)
	writeData(w, http.StatusOK, o)
}

// Delete handles DELETE /api/organizations/{id}.
func (h *organizationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.orgs.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "delete", "organization", id)
	w.WriteHeader(http.StatusNoContent)
}

// Members handles GET /api/organizations/{id}/members.
func (h *organizationsHandler) Members(w http.ResponseWriter, r *http.Request) {
	o, err := h.orgs.Members(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o)
}

// AddMember handles POST /api/organizations/{id}/members.
func (h *organizationsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	m, err := h.orgs.AddMember(r.Context(), id, int64(req.UserID), req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "add_member", "organization", id, "member_user_id", m.UserID, "member_role", m.Role)
	writeData(w, http.StatusOK, m)
}

// UpdateMember handles PUT /api/organizations/{id}/members/{userId}.
func (h *organizationsHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := intParam(r, "userId")
	if !ok {
		writeBadID(w, "userId")
		return
	}

	var req memberRequest
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	m, err := h.orgs.UpdateMemberRole(r.Context(), id, userID, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "update_member", "organization", id, "member_user_id", userID, "member_role", m.Role)
	writeData(w, http.StatusOK, m)
}

// RemoveMember handles DELETE /api/organizations/{id}/members/{userId}.
func (h *organizationsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := intParam(r, "userId")
	if !ok {
		writeBadID(w, "userId")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.orgs.RemoveMember(r.Context(), id, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "remove_member", "organization", id, "member_user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Member removed successfully"})
}
