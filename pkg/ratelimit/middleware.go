package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
)

// Config holds rate limiting configuration for the link endpoints
type Config struct {
	Capacity       int
	RefillRate     float64 // requests per second
	BucketTTL      time.Duration
	IncludeHeaders bool
}

// DefaultConfig allows a burst of 20 and one request per second per client
func DefaultConfig() Config {
	return Config{
		Capacity:       20,
		RefillRate:     1,
		BucketTTL:      time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware limits requests per client IP
type Middleware struct {
	config  Config
	limiter *RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
// A capacity below 1 falls back to the default capacity.
func NewMiddleware(config Config) *Middleware {
	if config.Capacity < 1 {
		config.Capacity = DefaultConfig().Capacity
	}
	return &Middleware{
		config:  config,
		limiter: NewRateLimiter(config.Capacity, config.RefillRate, config.BucketTTL),
	}
}

// Limiter exposes the underlying limiter, e.g. to Run its sweeper
func (m *Middleware) Limiter() *RateLimiter {
	return m.limiter
}

// Handler is the chi middleware
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed := m.limiter.Allow(ip)

		if m.config.IncludeHeaders {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limiter.Capacity()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(m.limiter.Remaining(ip)))
		}

		if !allowed {
			slog.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
			if m.config.RefillRate > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(1/m.config.RefillRate)+1))
			}
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, map[string]string{
				"error":             "rate_limited",
				"error_description": "Too many requests, try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For entry, then X-Real-IP
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
