package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	apperrors "elbiefit/pkg/errors"
)

// CognitoConfig describes the hosted UI app client
type CognitoConfig struct {
	Domain      string
	Region      string
	ClientID    string
	RedirectURI string
	// BaseURL overrides https://{Domain}.auth.{Region}.amazoncognito.com
	BaseURL string
	Timeout time.Duration
}

func (c CognitoConfig) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.auth.%s.amazoncognito.com", c.Domain, c.Region)
}

// Tokens is the result of a successful code exchange
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type CognitoClient struct {
	oauth   *oauth2.Config
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewCognitoClient(cfg CognitoConfig, logger *zap.Logger) *CognitoClient {
	base := cfg.baseURL()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CognitoClient{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		timeout: timeout,
		breaker: newBreaker("cognito-token", logger),
		logger:  logger,
	}
}

// LoginURL is the hosted UI authorize URL for the code flow
func (c *CognitoClient) LoginURL() string {
	return c.oauth.AuthCodeURL("")
}

// Exchange trades an authorization code for tokens. Failures are
// BAD_REQUEST AppErrors.
func (c *CognitoClient) Exchange(ctx context.Context, code string) (*Tokens, error) {
	if code == "" {
		return nil, apperrors.NewBadRequestError("Missing authorization code")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.oauth.Exchange(ctx, code)
	})
	if err != nil {
		c.logger.Warn("Token exchange failed", zap.Error(err))
		return nil, apperrors.NewBadRequestError("Token exchange failed").WithCause(err)
	}

	token := result.(*oauth2.Token)
	if !strings.EqualFold(token.TokenType, "Bearer") {
		return nil, apperrors.NewBadRequestError("Unexpected token type")
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, apperrors.NewBadRequestError("Token response had no id token")
	}

	expiresIn := int(token.ExpiresIn)
	if expiresIn <= 0 && !token.Expiry.IsZero() {
		expiresIn = int(time.Until(token.Expiry).Seconds())
	}
	return &Tokens{
		IDToken:      idToken,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}
