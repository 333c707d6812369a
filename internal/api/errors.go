package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Ksenialiashchuk/test-portal/internal/apperr"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Status:  statusCode,
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps a service error onto an HTTP error response.
// Unclassified errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrConflict):
		status, code = http.StatusBadRequest, "conflict"
	case errors.Is(err, apperr.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperr.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeError(w, status, code, apperr.Message(err, http.StatusText(status)))
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

type listMeta struct {
	Pagination pagination `json:"pagination"`
}

type listEnvelope struct {
	Data any      `json:"data"`
	Meta listMeta `json:"meta"`
}

// writeData writes a single entity wrapped in {"data": ...}.
func writeData(w http.ResponseWriter, statusCode int, v any) {
	writeJSON(w, statusCode, dataEnvelope{Data: v})
}

// writeList writes a listing as a single page holding every row.
func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{
		Data: items,
		Meta: listMeta{Pagination: pagination{
			Page:      1,
			PageSize:  len(items),
			PageCount: 1,
			Total:     len(items),
		}},
	})
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v any) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// readData decodes a {"data": {...}} body into v.
func readData(r *http.Request, v any) error {
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := readJSON(r, &body); err != nil {
		return err
	}
	if len(body.Data) == 0 || string(body.Data) == "null" {
		return errMissingData
	}
	return json.Unmarshal(body.Data, v)
}

var errMissingData = errors.New(`request body must contain a "data" object`)

// writeBodyError reports a body that could not be decoded.
func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingData) {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body")
}
