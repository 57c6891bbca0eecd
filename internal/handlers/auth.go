package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/otcheredev/hospital-records/internal/middleware"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/services"
	"github.com/rs/zerolog/log"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	guard
	accounts *services.AccountService
	cookie   CookieConfig
}

func NewAuthHandler(accounts *services.AccountService, cookie CookieConfig, engine *policy.Engine) *AuthHandler {
	return &AuthHandler{guard: guard{policy: engine}, accounts: accounts, cookie: cookie}
}

type homeResponse struct {
	Authenticated bool        `json:"authenticated"`
	Username      string      `json:"username,omitempty"`
	Role          models.Role `json:"role,omitempty"`
	Links         []string    `json:"links"`
}

// Home is the public landing page context
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	resp := homeResponse{Authenticated: p.Authenticated, Username: p.Username, Role: p.Role}
	switch {
	case !p.Authenticated:
		resp.Links = []string{"/login", "/signup"}
	case p.Role.IsStaff():
		resp.Links = []string{"/dashboard", "/departments", "/doctors", "/patients", "/health-records", "/appointments", "/admin/users", "/admin/audit-logs"}
	case p.Role == models.RoleAnalyst:
		resp.Links = []string{"/dashboard", "/departments", "/doctors", "/patients", "/health-records", "/appointments"}
	case p.Role == models.RoleDoctor:
		resp.Links = []string{"/patients", "/health-records", "/appointments", "/departments", "/doctors"}
	default:
		resp.Links = []string{"/patients", "/health-records", "/appointments", "/appointments/book", "/account/delete"}
	}
	writeJSON(w, http.StatusOK, resp)
}

// LoginForm returns the login page context
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"next": safeNext(r.URL.Query().Get("next"))})
}

// Login verifies credentials, sets the session cookie and redirects
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read login")
		return
	}
	if req.Next == "" {
		req.Next = r.URL.Query().Get("next")
	}

	session, err := h.accounts.Login(r.Context(), &req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		err = &services.ValidationError{Fields: map[string]string{
			services.NonFieldErrors: "Please enter a correct username and password. Note that both fields may be case-sensitive.",
		}}
	}
	if err != nil {
		writeError(w, r, err, "Failed to log in")
		return
	}

	h.setCookie(w, session)
	redirect(w, r, safeNext(req.Next))
}

// Logout revokes the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.GetToken(r.Context()); ok {
		if err := h.accounts.Logout(r.Context(), token); err != nil {
			log.Error().Err(err).Msg("Failed to revoke session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	redirect(w, r, middleware.LoginPath)
}

// SignupForm returns the signup page context
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, patientFormContext())
}

// Signup registers a patient, logs them in and redirects home
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.PatientAccountRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read signup")
		return
	}
	session, err := h.accounts.Signup(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, "Failed to sign up")
		return
	}
	h.setCookie(w, session)
	redirect(w, r, "/")
}

// PasswordReset mails a reset link. The response never reveals whether the address is known.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read password reset")
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), &req); err != nil {
		writeError(w, r, err, "Failed to request password reset")
		return
	}
	redirect(w, r, "/password-reset/done")
}

// PasswordResetDone acknowledges a reset request
func (h *AuthHandler) PasswordResetDone(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists with that email address, a password reset link has been sent.",
	})
}

// PasswordResetConfirmForm returns the token for the set-password form
func (h *AuthHandler) PasswordResetConfirmForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": r.URL.Query().Get("token")})
}

// PasswordResetConfirm sets a new password from a reset token
func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirmRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err, "Failed to read password reset confirmation")
		return
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}
	if err := h.accounts.ConfirmPasswordReset(r.Context(), &req); err != nil {
		writeError(w, r, err, "Failed to reset password")
		return
	}
	redirect(w, r, middleware.LoginPath)
}

// DeleteAccountPreview returns what a self-delete will remove
func (h *AuthHandler) DeleteAccountPreview(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourceAccount, policy.ActionDelete) {
		return
	}
	p := middleware.GetPrincipal(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": p.Username,
		"warning":  "Deleting your account removes your patient record and every health record attached to it.",
	})
}

// DeleteAccount removes the caller's own account and logs them out
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, policy.ResourceAccount, policy.ActionDelete) {
		return
	}
	p := middleware.GetPrincipal(r.Context())
	if _, err := h.accounts.DeleteOwnAccount(r.Context(), p); err != nil {
		writeError(w, r, err, "Failed to delete account")
		return
	}
	h.Logout(w, r)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, s *services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext keeps redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
