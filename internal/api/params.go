package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// flexID is a numeric id that clients may send either as a JSON number or
// as a numeric string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return errors.New("id must be an integer")
	}
	*f = flexID(n)
	return nil
}

// intParam parses a positive integer route parameter.
func intParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeBadID reports a malformed integer route parameter.
func writeBadID(w http.ResponseWriter, name string) {
	writeError(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer")
}
