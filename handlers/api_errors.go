package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/services"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	writeAPIErrorDetail(w, httpStatus, APIErrorDetail{Code: code, Detail: detail})
}

func writeAPIErrorDetail(w http.ResponseWriter, httpStatus int, detail APIErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	detail.Status = strconv.Itoa(httpStatus)
	resp := APIErrorResponse{Errors: []APIErrorDetail{detail}}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

type errorMapping struct {
	target error
	status int
	code   string
}

// checked in order; the first match wins
var errorMappings = []errorMapping{
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrIndividualNotFound, http.StatusNotFound, "individual_not_found"},
	{models.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{models.ErrDuplicateRelationship, http.StatusConflict, "duplicate_relationship"},
	{models.ErrDuplicateCurrentName, http.StatusConflict, "duplicate_current_name"},
	{models.ErrProfileTaken, http.StatusConflict, "profile_taken"},
	{models.ErrAlreadyConfirmed, http.StatusConflict, "already_confirmed"},
	{models.ErrMarriageAlreadyEnded, http.StatusConflict, "marriage_already_ended"},
	{models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{models.ErrLoginCooldown, http.StatusTooManyRequests, "login_cooldown"},
	{models.ErrInvalidConfirmCode, http.StatusBadRequest, "invalid_confirmation_code"},
	{models.ErrNoResetPending, http.StatusBadRequest, "no_reset_pending"},
	{models.ErrInvalidResetToken, http.StatusBadRequest, "invalid_reset_token"},
	{models.ErrResetTokenExpired, http.StatusBadRequest, "reset_token_expired"},
	{services.ErrUploadsDisabled, http.StatusServiceUnavailable, "uploads_disabled"},
	{models.ErrInvalidInterval, http.StatusUnprocessableEntity, "invalid_interval"},
	{models.ErrDeathBeforeBirth, http.StatusUnprocessableEntity, "death_before_birth"},
	{models.ErrSelfRelationship, http.StatusUnprocessableEntity, "self_relationship"},
	{models.ErrAncestryCycle, http.StatusUnprocessableEntity, "ancestry_cycle"},
	{models.ErrImageNotOwned, http.StatusUnprocessableEntity, "image_not_owned"},
}

// writeServiceError maps a service error onto the standard error body.
// Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var field string
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		field = ve.Field
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeAPIErrorDetail(w, m.status, APIErrorDetail{Code: m.code, Detail: err.Error(), Field: field})
			return
		}
	}
	if models.IsValidationError(err) {
		writeAPIErrorDetail(w, http.StatusBadRequest, APIErrorDetail{Code: "validation_failed", Detail: err.Error(), Field: field})
		return
	}

	log.Printf("handlers: %s %s failed: %v", r.Method, r.URL.Path, err)
	WriteAPIError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
