package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const defaultHostTTL = 5 * time.Minute

// RateLimiter paces outbound requests per key.
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

type hostBucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// HostRateLimiter keeps one token bucket per remote host. Buckets unused for
// longer than the ttl are forgotten.
type HostRateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu    sync.Mutex
	clock clockwork.Clock
	hosts map[string]*hostBucket
}

// NewHostRateLimiter admits requests per window for each host, plus burst.
// Non-positive arguments fall back to one request per second, a burst of one
// and a five minute ttl.
func NewHostRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) *HostRateLimiter {
	requests = max(requests, 1)
	burst = max(burst, 1)
	if window <= 0 {
		window = time.Second
	}
	if ttl <= 0 {
		ttl = defaultHostTTL
	}

	return &HostRateLimiter{
		limit: rate.Every(window / time.Duration(requests)),
		burst: burst,
		ttl:   ttl,
		clock: clockwork.NewRealClock(),
		hosts: make(map[string]*hostBucket),
	}
}

// WithClock replaces the clock used to expire idle hosts.
func (l *HostRateLimiter) WithClock(clock clockwork.Clock) *HostRateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
	return l
}

// Wait blocks until host may send another request or ctx is done.
func (l *HostRateLimiter) Wait(ctx context.Context, host string) error {
	return l.bucket(host).Wait(ctx)
}

// Allow consumes a token for host when one is available.
func (l *HostRateLimiter) Allow(host string) bool {
	return l.bucket(host).Allow()
}

func (l *HostRateLimiter) trackedHosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hosts)
}

func (l *HostRateLimiter) bucket(host string) *rate.Limiter {
	if host == "" {
		host = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	for key, b := range l.hosts {
		if key != host && now.Sub(b.lastUsed) > l.ttl {
			delete(l.hosts, key)
		}
	}

	b, ok := l.hosts[host]
	if !ok || now.Sub(b.lastUsed) > l.ttl {
		b = &hostBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.hosts[host] = b
	}
	b.lastUsed = now
	return b.limiter
}

// RateLimit delays each request until the limiter admits its host.
func RateLimit(limiter RateLimiter) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if limiter == nil {
			return next
		}
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context(), r.URL.Host); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}
