package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/camden-git/genealogybackend/auth"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// Authenticator resolves bearer tokens to users
type Authenticator struct {
	Issuer *auth.Issuer
	Users  repository.UserRepository
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

func (a *Authenticator) userFromToken(token string) (*models.User, error) {
	userID, err := a.Issuer.Verify(token)
	if err != nil {
		return nil, err
	}
	return a.Users.GetByID(userID)
}

// Required rejects requests without a valid token and puts the user in the context.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authorization header format must be Bearer {token}")
			return
		}
		user, err := a.userFromToken(token)
		if err != nil {
			if !repository.IsNotFound(err) {
				log.Printf("auth: rejected token: %v", err)
			}
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional adds the user to the context when a valid token is present and
// otherwise serves the request anonymously.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if user, err := a.userFromToken(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireConfirmedEmail must run after Required.
func RequireConfirmedEmail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !user.IsConfirmed() {
			WriteAPIError(w, http.StatusForbidden, "email_unconfirmed", "confirm your email address before making changes")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserContextKey).(*models.User)
	return user
}

// canSeePrivate reports whether the caller may read private individuals
func canSeePrivate(r *http.Request) bool {
	user := currentUser(r)
	return user != nil && user.IsConfirmed()
}
