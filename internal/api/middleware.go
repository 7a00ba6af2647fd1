package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RequestLogger logs one line per request.
func RequestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Debug().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("latency", time.Since(start)).
		Str("ip", c.ClientIP()).
		Msg("http request")
}

func RecoveryMiddleware(c *gin.Context) {
	defer func() {
		if err := recover(); err != nil {
			log.Error().
				Interface("panic", err).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("PANIC_RECOVERED")
			c.AbortWithStatusJSON(http.StatusInternalServerError, fail("internal server error"))
		}
	}()
	c.Next()
}

// RateLimiter throttles mutating endpoints per client IP.
func RateLimiter(perSec float64, burst int) gin.HandlerFunc {
	limiters := cache.New(10*time.Minute, 20*time.Minute)
	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter
		if val, found := limiters.Get(ip); found {
			limiter = val.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Limit(perSec), burst)
			limiters.Set(ip, limiter, cache.DefaultExpiration)
		}

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, fail("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
