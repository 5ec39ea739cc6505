package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "/api", cfg.GetAPIBasePath())
	assert.Equal(t, 10*time.Minute, cfg.Redis.SeatHoldTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=ticketly_db")
	assert.Equal(t, 10, cfg.Booking.MaxSeatsPerTicket)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_VERSION", "v2")
	t.Setenv("REDIS_SEAT_HOLD_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_EXPIRES_IN", "60")
	t.Setenv("BOOKING_MAX_SEATS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "/api/v2", cfg.GetAPIBasePath())
	assert.Equal(t, 90*time.Second, cfg.Redis.SeatHoldTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.JWT.JWTExpiresIn)
	assert.Equal(t, 10, cfg.Booking.MaxSeatsPerTicket)
}
