// Package ratelimit throttles clients by IP over a fixed window and
// escalates repeat offenders to a temporary ban. The limiter owns its keyed
// counter store; it runs as the first pipeline stage after logging.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Policy holds the throttling parameters.
type Policy struct {
	// Max requests allowed per client within one Window.
	Max int
	// Window is the fixed counting interval.
	Window time.Duration
	// BanAfter is the number of window violations that triggers a ban. The
	// ban lasts one Window; violations are tracked over two Windows.
	BanAfter int
	// AllowList clients bypass counting entirely.
	AllowList []string
}

// Decision is the outcome of one request against the policy.
type Decision struct {
	Allowed bool
	Banned  bool
}

// CounterStore tracks per-client request counts, violations, and bans.
type CounterStore interface {
	Hit(ctx context.Context, key string, policy Policy) (Decision, error)
}

// Limiter enforces the policy as gin middleware.
type Limiter struct {
	policy Policy
	store  CounterStore
	allow  map[string]struct{}
	logger *zap.Logger
}

// NewLimiter builds a limiter over the given store. A nil store or
// non-positive Max disables throttling.
func NewLimiter(policy Policy, store CounterStore, logger *zap.Logger) *Limiter {
	if store == nil || policy.Max <= 0 {
		return nil
	}
	if policy.Window <= 0 {
		policy.Window = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.L()
	}
	allow := make(map[string]struct{}, len(policy.AllowList))
	for _, ip := range policy.AllowList {
		allow[ip] = struct{}{}
	}
	return &Limiter{policy: policy, store: store, allow: allow, logger: logger}
}

// Handler returns the gin middleware enforcing the policy.
func (l *Limiter) Handler() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	message := fmt.Sprintf("Rate limit exceeded: max %d in %s", l.policy.Max, formatWindow(l.policy.Window))

	return func(c *gin.Context) {
		key := c.ClientIP()
		if _, ok := l.allow[key]; ok {
			c.Next()
			return
		}

		decision, err := l.store.Hit(c.Request.Context(), key, l.policy)
		if err != nil {
			// Counter store outage must not take down the service.
			l.logger.Error("rate limit store failure", zap.Error(err), zap.String("client_ip", key))
			c.Next()
			return
		}

		if !decision.Allowed {
			if decision.Banned {
				l.logger.Warn("client banned",
					zap.String("event", "ratelimit-ban"),
					zap.String("client_ip", key),
				)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"statusCode": http.StatusTooManyRequests,
				"error":      "Too Many Requests",
				"message":    message,
			})
			return
		}

		c.Next()
	}
}

func formatWindow(window time.Duration) string {
	if window >= time.Minute && window%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(window/time.Minute))
	}
	return window.String()
}
