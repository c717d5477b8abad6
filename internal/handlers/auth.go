package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/hireboard/apiserver/internal/services"
	"github.com/hireboard/apiserver/types"
)

// AuthHandler provides signup, login and current-user endpoints.
type AuthHandler struct {
	auth *services.AuthService
	resp *Responder
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, resp *Responder) *AuthHandler {
	return &AuthHandler{auth: auth, resp: resp}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, resp *Responder) {
	handler := NewAuthHandler(auth, resp)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.With(RequireAuth(auth, resp)).Get("/me", handler.Me)
}

// RequireAuth resolves the bearer token and stores the identity in the
// request context. Failures are rejected with 401.
func RequireAuth(auth *services.AuthService, resp *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				resp.fail(w, http.StatusUnauthorized, "not authorized, no token", err)
				return
			}

			identity, err := auth.ResolveToken(token)
			if err != nil {
				resp.fail(w, http.StatusUnauthorized, services.MessageOf(err), err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
// It must run after RequireAuth.
func RequireRole(resp *Responder, roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromContext(r.Context())
			if !ok {
				resp.fail(w, http.StatusUnauthorized, "not authorized", nil)
				return
			}
			if !slices.Contains(roles, identity.Role) {
				resp.fail(w, http.StatusForbidden, "role "+string(identity.Role)+" is not allowed to access this resource", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Signup creates an account and returns a token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		h.resp.fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}

	h.resp.success(w, http.StatusCreated, "user registered successfully", Envelope{
		"token": result.Token,
		"user":  result.User,
	})
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		h.resp.fail(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}

	h.resp.success(w, http.StatusOK, "login successful", Envelope{
		"token": result.Token,
		"user":  result.User,
	})
}

// Me returns the authenticated user without credentials.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.resp.fail(w, http.StatusUnauthorized, "not authorized", nil)
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), identity.UserID)
	if err != nil {
		h.resp.fromError(w, r, err)
		return
	}

	h.resp.success(w, http.StatusOK, "", Envelope{"user": user})
}
