package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	TokenKey     contextKey = "session_token"
)

// LoginPath is where unauthenticated requests are sent
const LoginPath = "/login"

// Authenticator resolves a session token into a principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (policy.Principal, error)
}

// Authenticate resolves the session cookie or bearer token into a principal
// and stores it on the request context. Requests without a valid session
// continue as anonymous.
func Authenticate(authn Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := policy.Anonymous()

			token := sessionToken(r, cookieName)
			if token != "" {
				p, err := authn.Authenticate(r.Context(), token)
				switch {
				case err == nil:
					principal = p
				case errors.Is(err, auth.ErrInvalidSession), errors.Is(err, auth.ErrSessionRevoked):
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("Ignoring invalid session")
					token = ""
				default:
					log.Error().Err(err).Msg("Failed to resolve session")
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			if token != "" {
				ctx = context.WithValue(ctx, TokenKey, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// GetPrincipal extracts the principal from context, anonymous when absent
func GetPrincipal(ctx context.Context) policy.Principal {
	p, ok := ctx.Value(PrincipalKey).(policy.Principal)
	if !ok {
		return policy.Anonymous()
	}
	return p
}

// GetToken extracts the raw session token from context
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// RedirectToLogin sends the client to the login page, remembering where it was going
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}

// RequireLogin redirects anonymous requests to the login page
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetPrincipal(r.Context()).Authenticated {
			RedirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only the listed roles: anonymous requests are sent to
// login, other roles get 403
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := policy.RequireRole(GetPrincipal(r.Context()), roles...)
			switch d.Effect {
			case policy.Allow:
				next.ServeHTTP(w, r)
			case policy.Unauthenticated:
				RedirectToLogin(w, r)
			default:
				http.Error(w, "Forbidden", http.StatusForbidden)
			}
		})
	}
}
