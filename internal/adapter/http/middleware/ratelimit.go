package middleware

import (
	"strconv"
	"time"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
// admin_adjust is overridden from ledger.adjust_rate_limit / adjust_rate_window.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"admin_adjust":    {Limit: 10, Window: time.Minute},
		"admin_provision": {Limit: 30, Window: time.Minute},
		"admin_read":      {Limit: 60, Window: time.Minute},
		"wallets_read":    {Limit: 120, Window: time.Minute},
	}
}

// RateLimiter counts each request against the caller's budget for group.
// Store errors let the request through.
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := group + ":" + callerKey(c)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)
		if result.Allowed {
			c.Next()
			return
		}

		retryAfter := result.ResetAt - time.Now().Unix()
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		log.Warn().
			Str("group", group).
			Str("caller", callerKey(c)).
			Int64("limit", result.Limit).
			Msg("rate limit exceeded")
		response.Error(c, apperror.ErrRateLimitExceeded())
		c.Abort()
	}
}

func setRateLimitHeaders(c *gin.Context, r *ports.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(r.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(r.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt, 10))
}

// callerKey identifies authenticated callers by actor, everyone else by IP.
func callerKey(c *gin.Context) string {
	if actor, ok := ActorFrom(c); ok {
		return "actor:" + actor.ID.String()
	}
	return "ip:" + c.ClientIP()
}
