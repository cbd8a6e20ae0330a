package handlers

import (
	"context"
	"net/http"

	"series-tracker/models"
)

// AuthBackend is the service behind the auth routes
type AuthBackend interface {
	SignUp(ctx context.Context, email, password string) (models.Identity, error)
	SignIn(ctx context.Context, email, password string) (models.Identity, error)
	SignOut(ctx context.Context, token string) error
}

// AuthHandler handles account requests
type AuthHandler struct {
	auth AuthBackend
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthBackend) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUp handles POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.auth.SignUp(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, identity)
}

// SignIn handles POST /api/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.auth.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

// SignOut handles POST /api/auth/signout. The route sits behind RequireAuth.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), BearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
