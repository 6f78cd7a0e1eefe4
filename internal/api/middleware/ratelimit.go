package middleware

import (
	"net"
	"net/http"
	"sync"

	"brokerage/pkg/ratelimit"
)

// clientLimiters - per-IP token buckets для торговой поверхности
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*ratelimit.RateLimiter
	rate     float64
	burst    float64
}

func (cl *clientLimiters) get(addr string) *ratelimit.RateLimiter {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	limiter, ok := cl.limiters[host]
	if !ok {
		limiter = ratelimit.NewRateLimiter(cl.rate, cl.burst)
		cl.limiters[host] = limiter
	}
	return limiter
}

// RateLimit - middleware ограничения частоты запросов по IP клиента.
// Превышение лимита отвечает 429 без обработки запроса.
func RateLimit(rate, burst float64) func(http.Handler) http.Handler {
	clients := &clientLimiters{
		limiters: make(map[string]*ratelimit.RateLimiter),
		rate:     rate,
		burst:    burst,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !clients.get(r.RemoteAddr).Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
