// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/astrorhythm/internal/log"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	// WindowSize is the time window for rate limiting
	WindowSize time.Duration
	// KeyFunc extracts the rate limit key from the request.
	// If nil, defaults to IP-based rate limiting
	KeyFunc func(r *http.Request) (string, error)
	// Whitelist lists IPs or CIDR blocks that bypass the limiter.
	Whitelist []string
}

// RateLimit creates a rate limiting middleware using the httprate sliding window counter.
// Invalid whitelist entries are logged and ignored.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 600
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = time.Minute
	}

	whitelist, err := ParseCIDRs(cfg.Whitelist)
	if err != nil {
		log.L().Warn().
			Err(err).
			Str(log.FieldEvent, "ratelimit.whitelist_invalid").
			Msg("invalid rate limit whitelist, ignoring value")
		whitelist = nil
	}

	retryAfter := strconv.Itoa(max(1, int(cfg.WindowSize.Seconds())))
	limiter := httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":     "rate_limit_exceeded",
				"detail":    "Too many requests. Please try again later.",
				"requestId": log.RequestIDFromContext(r.Context()),
			})
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		if len(whitelist) == 0 {
			return limited
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := remoteIP(r); ip != nil && IsIPAllowed(ip, whitelist) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
