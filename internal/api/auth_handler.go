package api

import (
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/metrics"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users   *user.Service
	tokens  *auth.Tokens
	metrics *metrics.Metrics
}

func newAuthHandler(users *user.Service, tokens *auth.Tokens, m *metrics.Metrics) *authHandler {
	return &authHandler{users: users, tokens: tokens, metrics: m}
}

type sessionResponse struct {
	JWT  string     `json:"jwt"`
	User *user.User `json:"user"`
}

// Login handles POST /api/auth/local.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.metrics.IncAuthFailure("invalid_credentials")
		writeServiceError(w, r, err)
		return
	}

	h.issue(w, r, http.StatusOK, u, "local")
}

// Register handles POST /api/auth/local/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.CreateUserInput
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	auditLog(r, "register", "user", u.ID, "username", u.Username)
	h.issue(w, r, http.StatusOK, u, "register")
}

func (h *authHandler) issue(w http.ResponseWriter, r *http.Request, status int, u *user.User, method string) {
	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.metrics.IncAuthSuccess(method)
	writeJSON(w, status, sessionResponse{JWT: token, User: u})
}
