package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/observability"
	"elbiefit/pkg/ratelimit"
)

const (
	TierStandard = "standard"
	TierDemo     = "demo"
)

// uaBuckets truncates the user-agent hash to seven digits
const uaBuckets = 10_000_000

// Hitter is the fixed-window counter consulted per request
type Hitter interface {
	Hit(ctx context.Context, clientID string, limit int, ttl time.Duration) (ratelimit.Decision, error)
}

// RateLimitOptions configures RateLimit
type RateLimitOptions struct {
	Enabled          bool
	ReadPerMin       int
	WritePerMin      int
	DemoReadPerMin   int
	DemoWritePerMin  int
	TTL              time.Duration
	ExcludedPrefixes []string
	DemoCookieName   string
}

func (o RateLimitOptions) limit(tier, method string) int {
	read := isRead(method)
	switch {
	case tier == TierDemo && read:
		return o.DemoReadPerMin
	case tier == TierDemo:
		return o.DemoWritePerMin
	case read:
		return o.ReadPerMin
	default:
		return o.WritePerMin
	}
}

// RateLimit enforces per-client budgets. Denials go out as plain-text 429s
// through errs; counter failures let the request through. metrics may be nil.
func RateLimit(limiter Hitter, opts RateLimitOptions, errs *apperrors.ErrorHandler, metrics *observability.Collector, logger *zap.Logger) func(next http.Handler) http.Handler {
	record := func(tier, outcome string) {
		if metrics != nil {
			metrics.RecordRateLimit(tier, outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		if !opts.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasPrefix(r.URL.Path, opts.ExcludedPrefixes) {
				record(TierStandard, observability.OutcomeExcluded)
				next.ServeHTTP(w, r)
				return
			}

			clientID, tier := ClientID(r, opts.DemoCookieName)
			limit := opts.limit(tier, r.Method)

			decision, err := limiter.Hit(r.Context(), clientID, limit, opts.TTL)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					zap.String("client_id", clientID),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				record(tier, observability.OutcomeFailOpen)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				logger.Debug("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.String("tier", tier),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int64("count", decision.Count),
					zap.Int("limit", limit),
				)
				record(tier, observability.OutcomeDenied)
				errs.HandlePlain(w, r, apperrors.NewRateLimitError(decision.RetryAfter))
				return
			}

			record(tier, observability.OutcomeAllowed)
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID fingerprints the caller. A demo session cookie selects the demo
// tier; everyone else is keyed by address and a user-agent hash.
func ClientID(r *http.Request, demoCookie string) (string, string) {
	if demoCookie != "" {
		if c, err := r.Cookie(demoCookie); err == nil && c.Value != "" {
			return "demo:" + c.Value, TierDemo
		}
	}

	ua := r.UserAgent()
	if ua == "" {
		ua = "unknown"
	}
	return fmt.Sprintf("ip:%s:ua:%d", clientIP(r), xxhash.Sum64String(ua)%uaBuckets), TierStandard
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

func isRead(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
