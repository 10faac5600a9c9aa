package handlers

import (
	"net/http"

	"github.com/camden-git/genealogybackend/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: authService}
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailPayload struct {
	Email string `json:"email"`
}

type confirmPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type redeemResetPayload struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordPayload struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type linkProfilePayload struct {
	IndividualID uint `json:"individual_id"`
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}

// Register creates an unconfirmed account. The confirmation code goes to the notifier.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	user, err := h.Auth.Register(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	result, err := h.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var payload confirmPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.Auth.ConfirmEmail(r.Context(), payload.Email, payload.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Email confirmed."))
}

func (h *AuthHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var payload emailPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.Auth.ResendConfirmation(r.Context(), payload.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, message("If the address is registered, a new code has been sent."))
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload emailPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.Auth.RequestPasswordReset(r.Context(), payload.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, message("If the address is registered, a reset token has been sent."))
}

func (h *AuthHandler) RedeemPasswordReset(w http.ResponseWriter, r *http.Request) {
	var payload redeemResetPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.Auth.RedeemPasswordReset(r.Context(), payload.Email, payload.Token, payload.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Password updated. Please log in."))
}

// CurrentUser retrieves the authenticated user from the request context.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Could not retrieve user from context")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload changePasswordPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), currentUser(r).ID, payload.OldPassword, payload.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Password changed."))
}

// LinkProfile attaches the individual the account describes
func (h *AuthHandler) LinkProfile(w http.ResponseWriter, r *http.Request) {
	var payload linkProfilePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.IndividualID == 0 {
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", "individual_id is required")
		return
	}
	user, err := h.Auth.LinkProfile(r.Context(), currentUser(r).ID, payload.IndividualID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
