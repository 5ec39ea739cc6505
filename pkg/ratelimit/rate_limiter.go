package ratelimit

import (
	"context"
	"fmt"
	"net"
	"time"

	"ticketly/internal/shared/config"
	"ticketly/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitType groups endpoints that share a request budget
type RateLimitType string

const (
	RateLimitDefault  RateLimitType = "default"
	RateLimitPublic   RateLimitType = "public"
	RateLimitAuth     RateLimitType = "auth"
	RateLimitBooking  RateLimitType = "booking"
	RateLimitCheckout RateLimitType = "checkout"
	RateLimitAdmin    RateLimitType = "admin"
	RateLimitHealth   RateLimitType = "health"
)

// RateLimitResult is the outcome of a single Allow call
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds the per-type request budgets for one sliding window
type Config struct {
	Enabled        bool
	WindowDuration time.Duration
	Limits         map[RateLimitType]int
	WhitelistedIPs []string
}

// NewConfig maps the application rate limit settings onto limiter budgets.
func NewConfig(cfg config.RateLimitConfig) *Config {
	return &Config{
		Enabled:        cfg.Enabled,
		WindowDuration: cfg.WindowDuration,
		Limits: map[RateLimitType]int{
			RateLimitDefault:  cfg.DefaultRequests,
			RateLimitPublic:   cfg.PublicRequests,
			RateLimitAuth:     cfg.AuthRequests,
			RateLimitBooking:  cfg.BookingRequests,
			RateLimitCheckout: cfg.CheckoutRequests,
			RateLimitAdmin:    cfg.AdminRequests,
			RateLimitHealth:   cfg.DefaultRequests * 10,
		},
		WhitelistedIPs: cfg.WhitelistedIPs,
	}
}

// Sliding window over a sorted set scored in nanoseconds.
// KEYS[1] = window key
// ARGV[1] = window start, ARGV[2] = now, ARGV[3] = limit,
// ARGV[4] = window in ms, ARGV[5] = member
// Returns {allowed, count}
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[5])
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
	return {1, count + 1}
end
return {0, count}
`)

type RateLimiter struct {
	client    redis.Cmdable
	config    *Config
	whitelist []*net.IPNet
	now       func() time.Time
	member    func() string
}

func NewRateLimiter(client redis.Cmdable, cfg *Config) *RateLimiter {
	rl := &RateLimiter{
		client: client,
		config: cfg,
		now:    time.Now,
		member: uuid.NewString,
	}
	for _, entry := range cfg.WhitelistedIPs {
		if n := parseIPNet(entry); n != nil {
			rl.whitelist = append(rl.whitelist, n)
		}
	}
	return rl
}

// Allow records one request for identifier under limitType and reports
// whether it fits in the current window.
func (r *RateLimiter) Allow(ctx context.Context, identifier string, limitType RateLimitType) (*RateLimitResult, error) {
	limit := r.limitFor(limitType)
	window := r.config.WindowDuration
	now := r.now()

	if !r.config.Enabled || r.isWhitelisted(identifier) {
		return &RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: now.Add(window),
		}, nil
	}

	key := r.key(identifier, limitType)
	res, err := slidingWindowScript.Run(ctx, r.client, []string{key},
		now.Add(-window).UnixNano(),
		now.UnixNano(),
		limit,
		window.Milliseconds(),
		r.member(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected rate limit result: %v", res)
	}

	allowed := toInt(res[0]) == 1
	count := toInt(res[1])

	result := &RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetTime: now.Add(window),
	}
	if !allowed {
		result.RetryAfter = window
	}
	return result, nil
}

// Reset clears the window for identifier.
func (r *RateLimiter) Reset(ctx context.Context, identifier string, limitType RateLimitType) error {
	return r.client.Del(ctx, r.key(identifier, limitType)).Err()
}

func (r *RateLimiter) key(identifier string, limitType RateLimitType) string {
	return fmt.Sprintf("%s:ratelimit:%s:%s", constants.CACHE_PREFIX, limitType, identifier)
}

func (r *RateLimiter) limitFor(limitType RateLimitType) int {
	if limit, ok := r.config.Limits[limitType]; ok && limit > 0 {
		return limit
	}
	return r.config.Limits[RateLimitDefault]
}

func (r *RateLimiter) isWhitelisted(identifier string) bool {
	ip := net.ParseIP(identifier)
	if ip == nil {
		return false
	}
	for _, n := range r.whitelist {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// parseIPNet accepts either a CIDR or a bare address.
func parseIPNet(entry string) *net.IPNet {
	if _, n, err := net.ParseCIDR(entry); err == nil {
		return n
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
