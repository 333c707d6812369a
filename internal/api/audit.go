package api

import (
	"log/slog"
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/auth"
	"github.com/Ksenialiashchuk/test-portal/internal/ratelimit"
)

// auditLog emits a structured audit log entry for a mutation.
func auditLog(r *http.Request, action string, resourceType string, resourceID any, detail ...any) {
	attrs := []any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", ratelimit.ClientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}

	if c := auth.CallerFromContext(r.Context()); c != nil {
		attrs = append(attrs, "user_id", c.ID, "user_email", c.Email, "user_role", c.Role)
	}

	attrs = append(attrs, detail...)
	slog.Info("audit", attrs...)
}
