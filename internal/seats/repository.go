package seats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticketly/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

// SeatHoldDetails is the Redis view of a hold.
type SeatHoldDetails struct {
	HoldID    string    `json:"holdId"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	SeatKeys  []string  `json:"seatKeys"`
	CreatedAt time.Time `json:"createdAt"`
	TTL       int       `json:"ttlSeconds"`
}

// SeatHolder is the hold currently owning a seat.
type SeatHolder struct {
	UserID string
	HoldID string
}

// HoldRepository stores seat holds.
type HoldRepository interface {
	CreateHold(ctx context.Context, holdID, userID, eventID string, seatKeys []string, ttl time.Duration) ([]string, error)
	ReleaseHold(ctx context.Context, holdID, userID string) (int, error)
	GetHoldDetails(ctx context.Context, holdID string) (*SeatHoldDetails, error)
	GetSeatHolders(ctx context.Context, eventID string, seatKeys []string) (map[string]SeatHolder, error)
	GetUserHolds(ctx context.Context, userID string) ([]string, error)
	PreloadScripts(ctx context.Context) error
}

type holdRepository struct {
	redis *redis.Client
}

func NewHoldRepository(redisClient *redis.Client) HoldRepository {
	return &holdRepository{redis: redisClient}
}

var errRedisUnavailable = errors.New("redis client not available - seat holding disabled")

func (r *holdRepository) CreateHold(ctx context.Context, holdID, userID, eventID string, seatKeys []string, ttl time.Duration) ([]string, error) {
	if r.redis == nil {
		return nil, errRedisUnavailable
	}
	return atomicHoldSeats(ctx, r.redis, holdID, userID, eventID, seatKeys, ttl)
}

func (r *holdRepository) ReleaseHold(ctx context.Context, holdID, userID string) (int, error) {
	if r.redis == nil {
		return 0, errRedisUnavailable
	}
	return atomicReleaseHold(ctx, r.redis, holdID, userID)
}

func (r *holdRepository) GetHoldDetails(ctx context.Context, holdID string) (*SeatHoldDetails, error) {
	if r.redis == nil {
		return nil, errRedisUnavailable
	}

	holdKey := constants.BuildHoldKey(holdID)
	holdData, err := r.redis.HGetAll(ctx, holdKey).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(holdData) == 0 {
		return nil, ErrHoldNotFound
	}

	seatKeys, err := r.redis.SMembers(ctx, constants.BuildHoldSeatsKey(holdID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	ttl, err := r.redis.TTL(ctx, holdKey).Result()
	if err != nil || ttl < 0 {
		ttl = 0
	}

	details := &SeatHoldDetails{
		HoldID:   holdID,
		UserID:   holdData["user_id"],
		EventID:  holdData["event_id"],
		SeatKeys: seatKeys,
		TTL:      int(ttl.Seconds()),
	}
	if ts, err := strconv.ParseInt(holdData["created_at"], 10, 64); err == nil {
		details.CreatedAt = time.Unix(ts, 0).UTC()
	}

	return details, nil
}

func (r *holdRepository) GetSeatHolders(ctx context.Context, eventID string, seatKeys []string) (map[string]SeatHolder, error) {
	holders := make(map[string]SeatHolder)
	if r.redis == nil || len(seatKeys) == 0 {
		return holders, nil
	}

	redisKeys := make([]string, len(seatKeys))
	for i, k := range seatKeys {
		redisKeys[i] = constants.BuildSeatHoldKey(eventID, k)
	}

	values, err := r.redis.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat holds: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		userID, holdID, found := strings.Cut(s, ":")
		if !found {
			continue
		}
		holders[seatKeys[i]] = SeatHolder{UserID: userID, HoldID: holdID}
	}
	return holders, nil
}

func (r *holdRepository) GetUserHolds(ctx context.Context, userID string) ([]string, error) {
	if r.redis == nil {
		return []string{}, nil
	}

	holdIDs, err := r.redis.SMembers(ctx, constants.BuildUserHoldsKey(userID)).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	return holdIDs, err
}

func (r *holdRepository) PreloadScripts(ctx context.Context) error {
	if r.redis == nil {
		return errRedisUnavailable
	}
	return preloadScripts(ctx, r.redis)
}
