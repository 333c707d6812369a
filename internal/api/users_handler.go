package api

import (
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// usersHandler groups user account HTTP handlers. Users are returned
// without an envelope; password and token fields never serialize.
type usersHandler struct {
	users *user.Service
}

func newUsersHandler(users *user.Service) *usersHandler {
	return &usersHandler{users: users}
}

// Me handles GET /api/users/me.
func (h *usersHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	u, err := h.users.Get(r.Context(), caller.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List handles GET /api/users.
func (h *usersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *usersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		writeBadID(w, "user id")
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update handles PUT /api/users/{id}. The body is a flat partial user.
func (h *usersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		writeBadID(w, "user id")
		return
	}

	var in user.UpdateUserInput
	if err := readJSON(r, &in); err != nil {
		writeBodyError(w, err)
		return
	}

	u, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	detail := []any{}
	if in.Role != nil {
		detail = append(detail, "role", *in.Role)
	}
	if in.Blocked != nil {
		detail = append(detail, "blocked", *in.Blocked)
	}
	auditLog(r, "update", "user", u.ID, detail...)
	writeJSON(w, http.StatusOK, u)
}

// rolesHandler serves the global role catalogue.
type rolesHandler struct {
	roles *role.Service
}

func newRolesHandler(roles *role.Service) *rolesHandler {
	return &rolesHandler{roles: roles}
}

// List handles GET /api/roles.
func (h *rolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": nonNil(roles)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
