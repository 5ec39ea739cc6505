package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"ticketly/internal/shared/utils/response"
	"ticketly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware applies the sliding window limit per client IP. A Redis
// failure lets the request through.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.Request.Method, c.FullPath())

		result, err := rateLimiter.Allow(c.Request.Context(), clientIP, limitType)
		if err != nil {
			logger.GetDefault().WithError(err).Warn("rate limiter unavailable", "ip", clientIP)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(method, path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"),
		strings.HasPrefix(path, "/metrics"):
		return RateLimitHealth

	case strings.Contains(path, "/analytics"):
		return RateLimitAdmin

	case strings.Contains(path, "/auth/"):
		return RateLimitAuth

	// Checkout and seat holds write to the seat map
	case method == http.MethodPost && strings.HasSuffix(path, "/tickets"),
		method == http.MethodPost && strings.HasSuffix(path, "/holds"):
		return RateLimitCheckout

	case strings.Contains(path, "/tickets"),
		strings.Contains(path, "/holds"),
		strings.Contains(path, "/seats"):
		return RateLimitBooking

	case strings.Contains(path, "/events"):
		if method != http.MethodGet {
			return RateLimitAdmin
		}
		return RateLimitPublic

	default:
		return RateLimitDefault
	}
}

// extracts real client IP
func getClientIP(c *gin.Context) string {
	if xForwardedFor := c.GetHeader("X-Forwarded-For"); xForwardedFor != "" {
		ip := strings.TrimSpace(strings.Split(xForwardedFor, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := c.GetHeader("X-Real-IP"); net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
