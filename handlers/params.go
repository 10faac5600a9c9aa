package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/genealogybackend/models"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: field, Err: fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)}
	}
	return t, nil
}

// parseDatePtr treats nil and "" as unknown
func parseDatePtr(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func urlID(r *http.Request, param string) (uint, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", param, raw)
	}
	return uint(id), nil
}

// pathIDs parses the named URL params, writing a 400 and returning false on failure
func pathIDs(w http.ResponseWriter, r *http.Request, params ...string) ([]uint, bool) {
	ids := make([]uint, len(params))
	for i, p := range params {
		id, err := urlID(r, p)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_id", err.Error())
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

// decodeBody decodes JSON into dst, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request payload: "+err.Error())
		return false
	}
	return true
}
