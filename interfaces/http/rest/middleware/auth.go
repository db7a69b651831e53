package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"elbiefit/pkg/auth"
	"elbiefit/pkg/common"
	apperrors "elbiefit/pkg/errors"
)

// Session cookie names set by the login callback
const (
	IDTokenCookie      = "id_token"
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// TokenVerifier validates an id token
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// Authenticator resolves the caller from the id_token cookie
type Authenticator struct {
	verifier TokenVerifier
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

func NewAuthenticator(verifier TokenVerifier, errs *apperrors.ErrorHandler, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		errors:   errs,
		logger:   logger,
	}
}

// Require rejects unauthenticated requests. Page navigations are sent to
// the login page by the error handler.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return a.require(next, a.errors.Handle)
}

// RequireJSON rejects unauthenticated requests with a JSON 401
func (a *Authenticator) RequireJSON(next http.Handler) http.Handler {
	return a.require(next, a.errors.HandleJSON)
}

func (a *Authenticator) require(next http.Handler, fail func(http.ResponseWriter, *http.Request, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw string
		if c, err := r.Cookie(IDTokenCookie); err == nil {
			raw = c.Value
		}

		claims, err := a.verifier.Verify(r.Context(), raw)
		if err != nil {
			if apperrors.GetAppError(err) == nil {
				err = apperrors.NewUnauthorizedError("Invalid token").WithCause(err)
			}
			fail(w, r, err)
			return
		}

		a.logger.Debug("Authenticated request",
			zap.String("user_sub", claims.Sub()),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(common.WithUser(r.Context(), claims.Sub(), claims.Email)))
	})
}
