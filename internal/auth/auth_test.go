package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock lookup ---

type mockCallerLookup struct {
	callers map[int64]*Caller
}

func (m *mockCallerLookup) LookupCaller(ctx context.Context, userID int64) (*Caller, error) {
	c, ok := m.callers[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

func newTestTokens(now time.Time) *Tokens {
	t := NewTokens("test-secret-0123456789", time.Hour)
	t.now = func() time.Time { return now }
	return t
}

// --- token tests ---

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := newTestTokens(time.Now())

	signed, err := tokens.Issue(42)
	require.NoError(t, err)

	id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokens_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	signed, err := newTestTokens(issuedAt).Issue(1)
	require.NoError(t, err)

	_, err = newTestTokens(time.Now()).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a-0123456789", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewTokens("secret-b-0123456789", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("test-secret-0123456789", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_NonNumericSubject(t *testing.T) {
	tokens := NewTokens("test-secret-0123456789", time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokens.secret)
	require.NoError(t, err)

	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// --- caller helpers ---

func TestCallerRoles(t *testing.T) {
	var anonymous *Caller
	assert.False(t, anonymous.IsAdmin())
	assert.False(t, anonymous.IsManager())
	assert.Equal(t, "Public", anonymous.RoleName())

	admin := &Caller{ID: 1, Role: "Admin"}
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsManager())

	manager := &Caller{ID: 2, Role: "Manager"}
	assert.True(t, manager.IsManager())
	assert.Equal(t, "Manager", manager.RoleName())
}

// --- middleware tests ---

func newAuthedHandler(t *testing.T, tokens *Tokens, lookup CallerLookup, failures *[]string) http.Handler {
	t.Helper()
	return Middleware(tokens, lookup, func(reason string) {
		*failures = append(*failures, reason)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := CallerFromContext(r.Context())
		if c == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(c.Username))
	}))
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("test-secret-0123456789", time.Hour)
	lookup := &mockCallerLookup{callers: map[int64]*Caller{
		7: {ID: 7, Username: "alice", Role: "Authenticated"},
	}}
	valid, err := tokens.Issue(7)
	require.NoError(t, err)
	unknown, err := tokens.Issue(8)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantReason string
	}{
		{"no header", "", http.StatusOK, "anonymous", ""},
		{"valid token", "Bearer " + valid, http.StatusOK, "alice", ""},
		{"malformed header", "Token abc", http.StatusUnauthorized, "", "malformed"},
		{"garbage token", "Bearer abc", http.StatusUnauthorized, "", "invalid_token"},
		{"unknown user", "Bearer " + unknown, http.StatusUnauthorized, "", "unknown_user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failures []string
			handler := newAuthedHandler(t, tokens, lookup, &failures)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				assert.Empty(t, failures)
				return
			}

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body.Error.Code)
			assert.Equal(t, []string{tt.wantReason}, failures)
		})
	}
}

func TestRequireCaller(t *testing.T) {
	handler := RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithCaller(req.Context(), &Caller{ID: 1}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
