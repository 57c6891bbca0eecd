package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator map[string]policy.Principal

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (policy.Principal, error) {
	switch token {
	case "revoked":
		return policy.Principal{}, auth.ErrSessionRevoked
	case "broken":
		return policy.Principal{}, errors.New("cache unavailable")
	}
	p, ok := s[token]
	if !ok {
		return policy.Principal{}, auth.ErrInvalidSession
	}
	return p, nil
}

var authn = stubAuthenticator{
	"admin-token":   {UserID: 1, Username: "root", Role: models.RoleAdmin, Authenticated: true},
	"analyst-token": {UserID: 2, Username: "ana", Role: models.RoleAnalyst, Authenticated: true},
}

func serve(h http.Handler, target string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateResolvesPrincipal(t *testing.T) {
	var got policy.Principal
	var token string
	h := Authenticate(authn, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
		token, _ = GetToken(r.Context())
	}))

	serve(h, "/", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: "admin-token"}) })
	assert.Equal(t, "root", got.Username)
	assert.Equal(t, "admin-token", token)

	serve(h, "/", func(r *http.Request) { r.Header.Set("Authorization", "Bearer analyst-token") })
	assert.Equal(t, models.RoleAnalyst, got.Role)

	for _, bad := range []string{"revoked", "garbage"} {
		serve(h, "/", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: bad}) })
		assert.False(t, got.Authenticated, bad)
		assert.Empty(t, token, bad)
	}
}

func TestAuthenticateFailsClosedOnLookupError(t *testing.T) {
	called := false
	h := Authenticate(authn, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := serve(h, "/", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: "broken"}) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
}

func TestRequireLogin(t *testing.T) {
	h := Authenticate(authn, "sid")(RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := serve(h, "/patients?page=2", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fpatients%3Fpage%3D2", rec.Header().Get("Location"))

	rec = serve(h, "/patients", func(r *http.Request) { r.Header.Set("Authorization", "Bearer analyst-token") })
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := Authenticate(authn, "sid")(RequireRole(models.RoleAdmin, models.RoleSuperAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"anonymous", "", http.StatusFound},
		{"wrong role", "analyst-token", http.StatusForbidden},
		{"admin", "admin-token", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, "/admin/users", func(r *http.Request) {
				if tt.token != "" {
					r.Header.Set("Authorization", "Bearer "+tt.token)
				}
			})
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := serve(h, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
