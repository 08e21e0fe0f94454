package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/service"
)

const stateCookieName = "oauth_state"

// OAuthProvider is the part of *auth.GitHubProvider the login flow needs.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, string, error)
}

// Authenticator signs a GitHub user in. *service.AuthService implements it.
type Authenticator interface {
	LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser, accessToken string) (*service.AuthResult, error)
}

// AuthHandler manages the GitHub OAuth login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, sign the user in, set the JWT cookie
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → return the caller's identity and role
type AuthHandler struct {
	github        OAuthProvider
	auth          Authenticator
	tokens        *auth.TokenService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies should be true whenever the
// app is served over HTTPS (production).
func NewAuthHandler(
	github OAuthProvider,
	authenticator Authenticator,
	tokens *auth.TokenService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:        github,
		auth:          authenticator,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the GitHub profile + access token
//  3. Upsert the user and issue a JWT (AuthService)
//  4. Store the JWT in an HttpOnly cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_state", Message: "invalid OAuth state"})
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_state", Message: "invalid OAuth state"})
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	ghUser, accessToken, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication failed"})
		return
	}

	// --- Step 3: Sign in ---
	// A store failure here is an authentication failure; the user can simply retry.
	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser, accessToken)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.String("login", ghUser.Login),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication failed"})
		return
	}

	// --- Step 4: Set the session cookie ---
	// HttpOnly: JavaScript cannot read it (XSS protection).
	// SameSite=Lax: sent on top-level navigations but not on cross-site POSTs.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless, so the token itself stays valid until it expires;
// without the cookie the browser just stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// MeResponse is the body of GET /api/me.
type MeResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	Role     string `json:"role"` // "ADMIN" or "USER"
}

// HandleMe returns the caller's identity and role.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		ID:       identity.ID,
		Username: identity.Username,
		IsAdmin:  identity.IsAdmin,
		Role:     identity.Role(),
	})
}
