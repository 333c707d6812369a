package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey int

const callerContextKey contextKey = iota

// ContextWithCaller returns a new context carrying the given caller.
func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext extracts the caller from the context, or nil if the
// request is anonymous.
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey).(*Caller)
	return caller
}

// Middleware resolves a bearer token into a Caller and injects it into the
// request context. Requests without an Authorization header pass through as
// anonymous; a header that does not resolve to a user is rejected with 401.
// onFailure is called for every rejected request.
func Middleware(tokens *Tokens, lookup CallerLookup, onFailure ...func(reason string)) func(http.Handler) http.Handler {
	fail := func(w http.ResponseWriter, reason, message string) {
		for _, fn := range onFailure {
			fn(reason)
		}
		writeUnauthorized(w, message)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				fail(w, "malformed", "missing or malformed authorization header")
				return
			}

			userID, err := tokens.Parse(token)
			if err != nil {
				fail(w, "invalid_token", "invalid or expired token")
				return
			}

			caller, err := lookup.LookupCaller(r.Context(), userID)
			if err != nil || caller == nil {
				fail(w, "unknown_user", "invalid or expired token")
				return
			}

			ctx := ContextWithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCaller rejects anonymous requests with 401.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CallerFromContext(r.Context()) == nil {
			writeUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Status:  http.StatusUnauthorized,
			Code:    "unauthorized",
			Message: message,
		},
	})
}
