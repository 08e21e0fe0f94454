package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/repohub/internal/model"
)

// CookieName is the HttpOnly cookie that carries the session JWT.
const CookieName = "token"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "identity", id), ANY package that knows the string can read
// or shadow your value. A package-private type prevents collisions: only THIS package
// can create a key of type contextKey.
type contextKey string

const identityKey contextKey = "identity"

// IdentityResolver turns validated token claims into the caller's current identity.
// service.AuthService implements it; it reads isAdmin from the database on every call.
type IdentityResolver interface {
	Resolve(ctx context.Context, claims *Claims) (*model.Identity, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "token" cookie (or an "Authorization: Bearer" header),
// validates it, resolves the user and stores a *model.Identity in the request context.
// If any step fails it returns 401 Unauthorized and stops the request chain.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	        // ... after ...
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(r, tokens, resolver)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches the identity if a valid session is present, but does NOT block
// the request if it's missing or invalid.
//
// Used on GET /api/repositories: anonymous users can read the public listing.
func OptionalAuth(tokens *TokenService, resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, err := authenticate(r, tokens, resolver); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects callers that are not admins with 403 Forbidden.
//
// It must run AFTER RequireAuth. A request without an identity gets 401, so the
// two failure modes stay distinct: 401 = "who are you?", 403 = "you can't do that".
// Every admin-only route uses this one gate, so the status is the same everywhere.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
			return
		}
		if !identity.IsAdmin {
			writeAuthError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the caller's identity from the request context.
// Returns (nil, false) if the request is anonymous.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*model.Identity)
	return identity, ok && identity != nil
}

var errNoToken = errors.New("auth: no session token")

func authenticate(r *http.Request, tokens *TokenService, resolver IdentityResolver) (*model.Identity, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return nil, errNoToken
	}

	claims, err := tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	return resolver.Resolve(r.Context(), claims)
}

// tokenFromRequest prefers the cookie (browsers) and falls back to a bearer header
// (scripts, tests).
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authError has the same shape as handler.ErrorResponse; auth cannot import handler.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authError{Error: code, Message: message})
}
