// Package auth verifies Cognito id tokens and talks to the Cognito hosted UI.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "elbiefit/pkg/errors"
)

var (
	ErrMissingToken  = errors.New("missing authentication token")
	ErrUnknownKey    = errors.New("token signed with unknown key")
	ErrWrongTokenUse = errors.New("token is not an id token")
)

// Error codes carried on the UNAUTHORIZED errors Verify returns.
const (
	CodeTokenMissing = "token_missing"
	CodeTokenExpired = "token_expired"
	CodeTokenInvalid = "token_invalid"
	CodeTokenType    = "token_type"
)

// Claims are the id-token claims the application reads
type Claims struct {
	Email    string `json:"email"`
	TokenUse string `json:"token_use"`
	Username string `json:"cognito:username"`
	jwt.RegisteredClaims
}

// Sub is the stable user identifier
func (c *Claims) Sub() string {
	return c.Subject
}

type VerifierConfig struct {
	Issuer   string
	Audience string
	// JWKSURL defaults to {Issuer}/.well-known/jwks.json
	JWKSURL string
	Timeout time.Duration

	// MinRefreshInterval bounds how often an unknown kid may trigger a
	// refetch. Defaults to one minute.
	MinRefreshInterval time.Duration
}

// Verifier checks RS256 id tokens against the issuer's JWKS. Keys are cached
// in memory and refetched when a token names an unknown kid, at most once per
// MinRefreshInterval.
type Verifier struct {
	cfg        VerifierConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewVerifier(cfg VerifierConfig, logger *zap.Logger) *Verifier {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = strings.TrimSuffix(cfg.Issuer, "/") + "/.well-known/jwks.json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	return &Verifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    newBreaker("jwks", logger),
		logger:     logger,
		now:        time.Now,
		keys:       map[string]*rsa.PublicKey{},
	}
}

// WithClock replaces the time source used to space out key refreshes.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify parses and validates a raw id token. Every failure is an
// UNAUTHORIZED AppError.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, apperrors.NewUnauthorizedError("Not authenticated").WithCode(CodeTokenMissing).WithCause(ErrMissingToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			kid, _ := token.Header["kid"].(string)
			return v.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedError("Token expired").WithCode(CodeTokenExpired).WithCause(err)
		}
		return nil, apperrors.NewUnauthorizedError("Invalid token").WithCode(CodeTokenInvalid).WithCause(err)
	}
	if claims.TokenUse != "id" {
		return nil, apperrors.NewUnauthorizedError("Invalid token type").WithCode(CodeTokenType).WithCause(ErrWrongTokenUse)
	}
	if claims.Subject == "" {
		return nil, apperrors.NewUnauthorizedError("Invalid token").WithCode(CodeTokenInvalid).WithCause(jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	recent := !v.fetchedAt.IsZero() && v.now().Sub(v.fetchedAt) < v.cfg.MinRefreshInterval
	v.mu.RUnlock()
	if ok {
		return key, nil
	}
	if recent {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
}

func (v *Verifier) refresh(ctx context.Context) error {
	result, err := v.breaker.Execute(func() (interface{}, error) {
		return v.fetchKeys(ctx)
	})
	if err != nil {
		v.logger.Warn("Failed to refresh signing keys", zap.String("url", v.cfg.JWKSURL), zap.Error(err))
		return fmt.Errorf("fetch jwks: %w", err)
	}

	keys := result.(map[string]*rsa.PublicKey)
	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.now()
	v.mu.Unlock()
	v.logger.Debug("Signing keys refreshed", zap.Int("keys", len(keys)))
	return nil
}

func (v *Verifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Use != "" && jwk.Use != "sig" {
			continue
		}
		if pub, ok := jwk.Key.(*rsa.PublicKey); ok {
			keys[jwk.KeyID] = pub
		}
	}
	return keys, nil
}

func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
