package chi

import (
	"net/http"

	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// RateLimit configures per API key token buckets; RPS <= 0 disables limiting
type RateLimit struct {
	RPS   float64
	Burst int
}

/* keyLimiter keeps one bucket per known API key
 * Keys the lookup cannot resolve get no bucket; admission rejects them anyway
 */
type keyLimiter struct {
	limit    RateLimit
	tunnels  tunnel.Lookup
	limiters *xsync.Map[string, *rate.Limiter]
}

func newKeyLimiter(limit RateLimit, tunnels tunnel.Lookup) *keyLimiter {
	if limit.Burst <= 0 {
		limit.Burst = 1
	}
	return &keyLimiter{
		limit:    limit,
		tunnels:  tunnels,
		limiters: xsync.NewMap[string, *rate.Limiter](),
	}
}

func (l *keyLimiter) allow(apiKey string) bool {
	if l.limit.RPS <= 0 || apiKey == "" {
		return true
	}
	lim, ok := l.limiters.Load(apiKey)
	if !ok {
		if l.tunnels == nil {
			return true
		}
		if _, err := l.tunnels.Get(apiKey); err != nil {
			return true
		}
		lim, _ = l.limiters.LoadOrStore(apiKey, rate.NewLimiter(rate.Limit(l.limit.RPS), l.limit.Burst))
	}
	return lim.Allow()
}

// middleware rejects calls over the key's budget with 429
func (l *keyLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(credentialsFrom(r).APIKey) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
