package ratelimit

import (
    "sync"

    "github.com/labstack/echo/v4"
    "golang.org/x/time/rate"

    xhttp "CropVol/pkg/http"
)

// Limiter keeps one token bucket per key, typically the client IP.
type Limiter struct {
    mu    sync.Mutex
    m     map[string]*rate.Limiter
    limit rate.Limit
    burst int
}

// New creates a limiter allowing rps requests per second per key with the given burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
    if burst < 1 {
        burst = 1
    }
    lim := rate.Limit(rps)
    if rps <= 0 {
        lim = rate.Inf
    }
    return &Limiter{m: make(map[string]*rate.Limiter), limit: lim, burst: burst}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
    l.mu.Lock()
    b, ok := l.m[key]
    if !ok {
        b = rate.NewLimiter(l.limit, l.burst)
        l.m[key] = b
    }
    l.mu.Unlock()
    return b.Allow()
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !l.Allow(c.RealIP()) {
                return xhttp.TooManyRequestsResponse(c)
            }
            return next(c)
        }
    }
}
