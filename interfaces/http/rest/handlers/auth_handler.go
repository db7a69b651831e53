package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/interfaces/http/rest/middleware"
	"elbiefit/pkg/auth"
	apperrors "elbiefit/pkg/errors"
)

const (
	refreshTokenMaxAge = 7 * 24 * time.Hour
	themeCookieMaxAge  = 365 * 24 * time.Hour
)

// CodeExchanger is the identity provider's hosted login
type CodeExchanger interface {
	LoginURL() string
	Exchange(ctx context.Context, code string) (*auth.Tokens, error)
}

// AuthHandler handles login, logout and the session lookup
type AuthHandler struct {
	Responder
	provider CodeExchanger
	verifier middleware.TokenVerifier
	profiles ports.ProfileRepository
	themes   map[string]struct{}
}

func NewAuthHandler(
	resp Responder,
	provider CodeExchanger,
	verifier middleware.TokenVerifier,
	profiles ports.ProfileRepository,
	themes []string,
) *AuthHandler {
	return &AuthHandler{
		Responder: resp,
		provider:  provider,
		verifier:  verifier,
		profiles:  profiles,
		themes:    themeSet(themes),
	}
}

// Login handles GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.provider.LoginURL(), http.StatusFound)
}

// Callback handles GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.provider.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	maxAge := time.Duration(tokens.ExpiresIn) * time.Second
	http.SetCookie(w, sessionCookie(middleware.IDTokenCookie, tokens.IDToken, maxAge))
	http.SetCookie(w, sessionCookie(middleware.AccessTokenCookie, tokens.AccessToken, maxAge))
	if tokens.RefreshToken != "" {
		http.SetCookie(w, sessionCookie(middleware.RefreshTokenCookie, tokens.RefreshToken, refreshTokenMaxAge))
	}

	h.restoreTheme(r.Context(), w, tokens.IDToken)

	http.Redirect(w, r, "/auth/me", http.StatusFound)
}

// restoreTheme sets the theme cookie from the stored profile. Failures only
// cost the user their theme, so they are logged and ignored.
func (h *AuthHandler) restoreTheme(ctx context.Context, w http.ResponseWriter, idToken string) {
	claims, err := h.verifier.Verify(ctx, idToken)
	if err != nil {
		h.logger.Debug("Skipping theme restore", zap.Error(err))
		return
	}
	profile, err := h.profiles.GetProfile(ctx, claims.Sub())
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.logger.Warn("Failed to load profile for theme", zap.String("user_sub", claims.Sub()), zap.Error(err))
		}
		return
	}
	if _, ok := h.themes[profile.Preferences.Theme]; ok {
		http.SetCookie(w, themeCookie(profile.Preferences.Theme))
	}
}

type meResponse struct {
	ID      string      `json:"id"`
	Profile interface{} `json:"profile"`
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	profile, err := h.profiles.GetProfile(r.Context(), sub)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, meResponse{ID: sub, Profile: profile})
}

// Logout handles GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.IDTokenCookie, middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		c := sessionCookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func sessionCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// themeCookie is HttpOnly on purpose: only the server reads it, to pick the
// stylesheet, and no script in the pages touches it.
func themeCookie(theme string) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.ThemeCookie,
		Value:    theme,
		Path:     "/",
		MaxAge:   int(themeCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func themeSet(themes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(themes))
	for _, t := range themes {
		set[t] = struct{}{}
	}
	return set
}
