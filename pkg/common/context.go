package common

import (
	"context"
	"time"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyUserSub   ContextKey = "user_sub"
	ContextKeyEmail     ContextKey = "email"
	ContextKeyTheme     ContextKey = "theme"
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyStartTime ContextKey = "start_time"
)

// WithUser stores the authenticated subject and email
func WithUser(ctx context.Context, sub, email string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserSub, sub)
	return context.WithValue(ctx, ContextKeyEmail, email)
}

// GetUserSub extracts the authenticated subject from context
func GetUserSub(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ContextKeyUserSub).(string)
	return sub, ok && sub != ""
}

func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(ContextKeyEmail).(string)
	return email
}

// WithTheme stores the resolved UI theme
func WithTheme(ctx context.Context, theme string) context.Context {
	return context.WithValue(ctx, ContextKeyTheme, theme)
}

// GetTheme returns the resolved theme or fallback when none was set
func GetTheme(ctx context.Context, fallback string) string {
	if theme, ok := ctx.Value(ContextKeyTheme).(string); ok && theme != "" {
		return theme
	}
	return fallback
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithStartTime adds start time to context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyStartTime, startTime)
}

// GetElapsedTime calculates elapsed time from start time in context
func GetElapsedTime(ctx context.Context) time.Duration {
	if startTime, ok := ctx.Value(ContextKeyStartTime).(time.Time); ok {
		return time.Since(startTime)
	}
	return 0
}
