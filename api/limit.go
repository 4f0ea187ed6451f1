package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gregtusar/armadex/pkg/clock"
	"golang.org/x/time/rate"
)

type RateLimit struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

const (
	clientIdleTTL = 5 * time.Minute
	sweepInterval = time.Minute
)

// limiter keeps one token bucket per client address.
type limiter struct {
	cfg   RateLimit
	clock clock.Clock

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func newLimiter(cfg RateLimit, clk clock.Clock) *limiter {
	return &limiter{
		cfg:       cfg,
		clock:     clk,
		clients:   make(map[string]*client),
		lastSweep: clk.Now(),
	}
}

func (l *limiter) allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > clientIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.bucket.AllowN(now, 1)
}

func (l *limiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *limiter) middleware(next http.Handler, s *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
