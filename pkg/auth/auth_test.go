package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "elbiefit/pkg/errors"
)

const (
	testAudience = "client-abc"
	testKid      = "key-1"
)

type jwksServer struct {
	*httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &jwksServer{key: key}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key:       &key.PublicKey,
			KeyID:     testKid,
			Algorithm: "RS256",
			Use:       "sig",
		}}}
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) mint(t *testing.T, kid string, mutate func(*Claims)) string {
	t.Helper()
	claims := &Claims{
		Email:    "lisa@example.com",
		TokenUse: "id",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    s.URL,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

func newTestVerifier(s *jwksServer) *Verifier {
	return NewVerifier(VerifierConfig{Issuer: s.URL, Audience: testAudience}, zap.NewNop())
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("Should accept a valid id token and cache the keys", func(t *testing.T) {
		s := newJWKSServer(t)
		v := newTestVerifier(s)

		claims, err := v.Verify(ctx, s.mint(t, testKid, nil))
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Sub())
		assert.Equal(t, "lisa@example.com", claims.Email)

		_, err = v.Verify(ctx, "Bearer "+s.mint(t, testKid, nil))
		require.NoError(t, err)
		assert.Equal(t, int32(1), s.fetches.Load())
	})

	t.Run("Should refetch keys for an unknown kid", func(t *testing.T) {
		s := newJWKSServer(t)
		v := newTestVerifier(s)

		_, err := v.Verify(ctx, s.mint(t, "rotated", nil))
		assert.True(t, apperrors.IsUnauthorized(err))
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Equal(t, int32(1), s.fetches.Load())
	})

	t.Run("Should not refetch for unknown kids within the refresh interval", func(t *testing.T) {
		s := newJWKSServer(t)
		now := time.Unix(1_740_000_000, 0)
		v := newTestVerifier(s).WithClock(func() time.Time { return now })

		for _, kid := range []string{"rotated", "bogus-1", "bogus-2"} {
			_, err := v.Verify(ctx, s.mint(t, kid, nil))
			assert.ErrorIs(t, err, ErrUnknownKey)
		}
		assert.Equal(t, int32(1), s.fetches.Load())

		_, err := v.Verify(ctx, s.mint(t, testKid, nil))
		require.NoError(t, err)
		assert.Equal(t, int32(1), s.fetches.Load())

		now = now.Add(time.Minute)
		_, err = v.Verify(ctx, s.mint(t, "rotated", nil))
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Equal(t, int32(2), s.fetches.Load())
	})

	tests := []struct {
		name    string
		mutate  func(*Claims)
		message string
		code    string
	}{
		{"Should reject an expired token", func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute)) }, "Token expired", CodeTokenExpired},
		{"Should reject another audience", func(c *Claims) { c.Audience = jwt.ClaimStrings{"someone-else"} }, "Invalid token", CodeTokenInvalid},
		{"Should reject another issuer", func(c *Claims) { c.Issuer = "https://evil.example.com" }, "Invalid token", CodeTokenInvalid},
		{"Should reject an access token", func(c *Claims) { c.TokenUse = "access" }, "Invalid token type", CodeTokenType},
		{"Should reject a token without expiry", func(c *Claims) { c.ExpiresAt = nil }, "Invalid token", CodeTokenInvalid},
		{"Should reject a token without subject", func(c *Claims) { c.Subject = "" }, "Invalid token", CodeTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newJWKSServer(t)
			_, err := newTestVerifier(s).Verify(ctx, s.mint(t, testKid, tt.mutate))

			require.Error(t, err)
			assert.True(t, apperrors.IsUnauthorized(err))
			assert.Equal(t, tt.message, apperrors.GetAppError(err).Message)
			assert.Equal(t, tt.code, apperrors.GetAppError(err).Code)
		})
	}

	t.Run("Should reject a missing token", func(t *testing.T) {
		s := newJWKSServer(t)
		_, err := newTestVerifier(s).Verify(ctx, "  ")
		assert.ErrorIs(t, err, ErrMissingToken)
		assert.Equal(t, CodeTokenMissing, apperrors.GetAppError(err).Code)
		assert.Zero(t, s.fetches.Load())
	})

	t.Run("Should reject a token signed by another key", func(t *testing.T) {
		s := newJWKSServer(t)
		other := newJWKSServer(t)
		forged := other.mint(t, testKid, func(c *Claims) { c.Issuer = s.URL })

		_, err := newTestVerifier(s).Verify(ctx, forged)
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestCognitoClient(t *testing.T) {
	ctx := context.Background()

	tokenServer := func(t *testing.T, body map[string]interface{}) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "/oauth2/token", r.URL.Path)
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "the-code", r.PostForm.Get("code"))
			assert.Equal(t, testAudience, r.PostForm.Get("client_id"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("Should build the hosted UI login URL", func(t *testing.T) {
		c := NewCognitoClient(CognitoConfig{Domain: "elbiefit", Region: "eu-west-2", ClientID: testAudience, RedirectURI: "https://app.example.com/auth/callback"}, zap.NewNop())

		u, err := url.Parse(c.LoginURL())
		require.NoError(t, err)
		assert.Equal(t, "elbiefit.auth.eu-west-2.amazoncognito.com", u.Host)
		assert.Equal(t, "/oauth2/authorize", u.Path)
		q := u.Query()
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, testAudience, q.Get("client_id"))
		assert.Equal(t, "https://app.example.com/auth/callback", q.Get("redirect_uri"))
		assert.Equal(t, "openid email profile", q.Get("scope"))
	})

	t.Run("Should exchange a code for tokens", func(t *testing.T) {
		srv := tokenServer(t, map[string]interface{}{
			"id_token":      "id.jwt",
			"access_token":  "access.jwt",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
		c := NewCognitoClient(CognitoConfig{ClientID: testAudience, BaseURL: srv.URL}, zap.NewNop())

		tokens, err := c.Exchange(ctx, "the-code")
		require.NoError(t, err)
		assert.Equal(t, "id.jwt", tokens.IDToken)
		assert.Equal(t, "access.jwt", tokens.AccessToken)
		assert.Equal(t, "refresh", tokens.RefreshToken)
		assert.Equal(t, 3600, tokens.ExpiresIn)
	})

	t.Run("Should reject a non bearer token type", func(t *testing.T) {
		srv := tokenServer(t, map[string]interface{}{
			"id_token":     "id.jwt",
			"access_token": "access.jwt",
			"token_type":   "mac",
			"expires_in":   3600,
		})
		c := NewCognitoClient(CognitoConfig{ClientID: testAudience, BaseURL: srv.URL}, zap.NewNop())

		_, err := c.Exchange(ctx, "the-code")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeBadRequest))
	})

	t.Run("Should reject a missing code without calling out", func(t *testing.T) {
		c := NewCognitoClient(CognitoConfig{ClientID: testAudience, BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
		_, err := c.Exchange(ctx, "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeBadRequest))
	})
}
