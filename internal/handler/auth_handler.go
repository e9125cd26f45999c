package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"mojo-insights/internal/domain"
	"mojo-insights/internal/middleware"
	"mojo-insights/internal/observability"
	"mojo-insights/internal/security"
	"mojo-insights/internal/service"
)

const (
	sessionCookie = "session_id"
	stateCookie   = "oauth_state"
)

// AuthHandler handles the login flow endpoints
type AuthHandler struct {
	sessionService *service.SessionService
	states         *security.StateManager
	secureCookies  bool
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(sessionService *service.SessionService, states *security.StateManager, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		sessionService: sessionService,
		states:         states,
		secureCookies:  secureCookies,
	}
}

// MeResponse represents the current session's identity
type MeResponse struct {
	Authenticated bool            `json:"authenticated"`
	Profile       *domain.Profile `json:"profile,omitempty"`
}

// Login starts the OAuth flow: park a state nonce in a cookie and redirect
// the browser to the platform's login dialog.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Generate()
	if err != nil {
		http.Error(w, `{"error":"Failed to start login"}`, http.StatusInternalServerError)
		return
	}

	loginURL, err := h.sessionService.LoginURL(state)
	if err != nil {
		if errors.Is(err, domain.ErrClientUnavailable) {
			http.Error(w, `{"error":"Login is not available"}`, http.StatusServiceUnavailable)
			return
		}
		http.Error(w, `{"error":"Failed to start login"}`, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes, the dialog round trip only
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// Callback completes the OAuth flow. A missing code or an error query
// parameter means the user declined: nothing is stored and the failure is
// reported. On success the login chain runs (token, profile, pages — in that
// order) and the session cookie is set.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("error") != "" || query.Get("code") == "" {
		http.Error(w, `{"error":"Not logged in. Please grant all requested permissions"}`, http.StatusUnauthorized)
		return
	}

	parked, err := r.Cookie(stateCookie)
	if err != nil {
		http.Error(w, `{"error":"Missing login state"}`, http.StatusUnauthorized)
		return
	}
	if err := h.states.Verify(query.Get("state"), parked.Value); err != nil {
		http.Error(w, `{"error":"Invalid login state"}`, http.StatusUnauthorized)
		return
	}

	session, err := h.sessionService.Login(r.Context(), query.Get("code"))
	if err != nil && session == nil {
		switch {
		case errors.Is(err, domain.ErrClientUnavailable):
			http.Error(w, `{"error":"Login is not available"}`, http.StatusServiceUnavailable)
		case errors.Is(err, domain.ErrAuthorizationDenied):
			http.Error(w, `{"error":"Not logged in. Please grant all requested permissions"}`, http.StatusUnauthorized)
		default:
			http.Error(w, `{"error":"Login failed"}`, http.StatusInternalServerError)
		}
		return
	}
	if err != nil {
		// Token established but a later chain step failed; the session is
		// valid, the dashboard will surface what is missing.
		observability.FromContext(r.Context()).Warn("login chain incomplete",
			"error", err.Error())
	}

	// Drop the state cookie, it is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// Me returns the rehydrated identity for the current session. No platform
// call is made; the persisted token and profile are enough to reproduce the
// authenticated view.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Error(w, `{"error":"Session not found"}`, http.StatusUnauthorized)
		return
	}

	resp := MeResponse{
		Authenticated: session.Authenticated(),
		Profile:       session.Profile,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Logout clears the persisted store and all derived session state, then
// drops the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Error(w, `{"error":"Session not found"}`, http.StatusUnauthorized)
		return
	}

	if err := h.sessionService.Logout(r.Context(), session.Token); err != nil {
		http.Error(w, `{"error":"Failed to logout"}`, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
