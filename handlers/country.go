package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/camden-git/genealogybackend/services"
)

type CountryHandler struct {
	Countries *services.CountryService
}

// ListFormerCountries returns the whole table, or the rows for ?name=
func (h *CountryHandler) ListFormerCountries(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusOK, h.Countries.List())
		return
	}
	rows, err := h.Countries.Lookup(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Normalize translates ?name= as of the optional ?date=
func (h *CountryHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", "query parameter 'name' is required")
		return
	}
	var at *time.Time
	if raw := q.Get("date"); raw != "" {
		parsed, err := parseDate("date", raw)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		at = &parsed
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":   name,
		"date":   at,
		"modern": h.Countries.Normalize(name, at),
	})
}
