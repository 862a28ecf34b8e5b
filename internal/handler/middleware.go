package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kataria/backend/internal/metrics"
)

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// WindowStore counts requests per key over a sliding window.
type WindowStore interface {
	// Hit records a request at now unless key already has max requests in the
	// window. When the request is rejected, retryAfter is the time until the
	// oldest counted request leaves the window.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimiter provides IP-based rate limiting using a sliding window.
// Loopback clients are never limited.
type RateLimiter struct {
	max               int
	window            time.Duration
	trustedProxyCount int
	store             WindowStore
	now               func() time.Time
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithTrustedProxies sets how many X-Forwarded-For entries our own proxies append.
func WithTrustedProxies(n int) RateLimitOption {
	return func(rl *RateLimiter) { rl.trustedProxyCount = n }
}

// WithWindowStore replaces the in-memory store, e.g. with a Redis store
// shared between instances.
func WithWindowStore(s WindowStore) RateLimitOption {
	return func(rl *RateLimiter) {
		if s != nil {
			rl.store = s
		}
	}
}

// NewRateLimiter allows max requests per window per client IP.
func NewRateLimiter(max int, window time.Duration, opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	if rl.store == nil {
		rl.store = NewMemoryWindowStore()
	}
	return rl
}

type rateLimitedResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware returns an http.Handler that enforces rate limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, rl.trustedProxyCount)
		if IsLoopback(ip) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, retryAfter, err := rl.store.Hit(r.Context(), ip, rl.now(), rl.window, rl.max)
		if err != nil {
			// A broken window store must not take the contact form down.
			slog.WarnContext(r.Context(), "rate limit store failed; allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RecordRateLimited()
		secs := retryAfterSeconds(retryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		if err := json.NewEncoder(w).Encode(rateLimitedResponse{
			Success:    false,
			Message:    "Too many contact form submissions, please try again later.",
			RetryAfter: secs,
		}); err != nil {
			slog.Warn("failed to write rate limit response", "error", err)
		}
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ClientIP extracts the real client IP, reading from the rightmost trusted
// proxy position in X-Forwarded-For to prevent spoofing. With no trusted
// proxies the connection address is used.
func ClientIP(r *http.Request, trustedProxyCount int) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		// The rightmost entry added by our infrastructure is at
		// index len(parts) - trustedProxyCount.
		idx := len(parts) - trustedProxyCount
		if idx >= 0 && idx < len(parts) {
			return strings.TrimSpace(parts[idx])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsLoopback reports whether ip is 127.0.0.0/8, ::1 or an IPv4-mapped loopback.
func IsLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

// ---------------------------------------------------------------------------
// in-memory window store
// ---------------------------------------------------------------------------

// MemoryWindowStore keeps request timestamps in process memory.
type MemoryWindowStore struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	stop    chan struct{}
	once    sync.Once
}

type clientWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// NewMemoryWindowStore starts a store with a background sweep of idle clients.
// Call Close to stop the sweep.
func NewMemoryWindowStore() *MemoryWindowStore {
	s := &MemoryWindowStore{
		clients: make(map[string]*clientWindow),
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop(5 * time.Minute)
	return s
}

// Close stops the background sweep.
func (s *MemoryWindowStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, now time.Time, window time.Duration, max int) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cw, ok := s.clients[key]
	if !ok {
		cw = &clientWindow{}
		s.clients[key] = cw
	}
	cw.window = window
	cw.prune(now.Add(-window))

	if len(cw.timestamps) >= max {
		oldest := cw.timestamps[0]
		return false, oldest.Add(window).Sub(now), nil
	}
	cw.timestamps = append(cw.timestamps, now)
	return true, 0, nil
}

// prune drops timestamps at or before windowStart; in-place filter on shared backing array.
func (cw *clientWindow) prune(windowStart time.Time) {
	valid := cw.timestamps[:0]
	for _, ts := range cw.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	cw.timestamps = valid
}

// cleanupLoop periodically removes stale entries from the clients map.
func (s *MemoryWindowStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryWindowStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, cw := range s.clients {
		cw.prune(now.Add(-cw.window))
		if len(cw.timestamps) == 0 {
			delete(s.clients, ip)
		}
	}
}
