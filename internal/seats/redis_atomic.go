package seats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrHoldNotFound  = errors.New("hold not found")
	ErrHoldForbidden = errors.New("hold belongs to another user")
)

// Atomic hold: every seat of the selection is held or none is.
//
// KEYS[1] = hold id
// ARGV[1] = user id, ARGV[2] = event id, ARGV[3] = ttl seconds,
// ARGV[4..N] = canonical seat keys
//
// Returns {1, "ok"} or {0, seat, seat, ...} listing the seats already held.
var holdSeatsScript = redis.NewScript(`
local hold_id = KEYS[1]
local user_id = ARGV[1]
local event_id = ARGV[2]
local ttl = tonumber(ARGV[3])

local conflicts = {0}
for i = 4, #ARGV do
    if redis.call("EXISTS", "seat_hold:" .. event_id .. ":" .. ARGV[i]) == 1 then
        table.insert(conflicts, ARGV[i])
    end
end
if #conflicts > 1 then
    return conflicts
end

local hold_key = "hold:" .. hold_id
local hold_seats_key = "hold_seats:" .. hold_id
local user_holds_key = "user_holds:" .. user_id

redis.call("HSET", hold_key,
    "user_id", user_id,
    "event_id", event_id,
    "seat_count", #ARGV - 3,
    "created_at", redis.call("TIME")[1]
)
redis.call("EXPIRE", hold_key, ttl)

local owner = user_id .. ":" .. hold_id
for i = 4, #ARGV do
    redis.call("SET", "seat_hold:" .. event_id .. ":" .. ARGV[i], owner, "EX", ttl)
    redis.call("SADD", hold_seats_key, ARGV[i])
end
redis.call("EXPIRE", hold_seats_key, ttl)

redis.call("SADD", user_holds_key, hold_id)
redis.call("EXPIRE", user_holds_key, ttl)

return {1, "ok"}
`)

// Atomic release. Seat keys are only deleted while they still point at
// this hold, so a seat re-held after expiry is left alone.
//
// KEYS[1] = hold id
// ARGV[1] = requesting user id, empty to skip the ownership check
//
// Returns {1, released} or {0, reason}.
var releaseHoldScript = redis.NewScript(`
local hold_id = KEYS[1]
local hold_key = "hold:" .. hold_id
local hold_seats_key = "hold_seats:" .. hold_id

local user_id = redis.call("HGET", hold_key, "user_id")
local event_id = redis.call("HGET", hold_key, "event_id")
if not user_id or not event_id then
    return {0, "hold_not_found"}
end
if ARGV[1] ~= "" and ARGV[1] ~= user_id then
    return {0, "forbidden"}
end

local owner = user_id .. ":" .. hold_id
local released = 0
local seats = redis.call("SMEMBERS", hold_seats_key)
for i = 1, #seats do
    local seat_key = "seat_hold:" .. event_id .. ":" .. seats[i]
    if redis.call("GET", seat_key) == owner then
        redis.call("DEL", seat_key)
        released = released + 1
    end
end

redis.call("SREM", "user_holds:" .. user_id, hold_id)
redis.call("DEL", hold_key, hold_seats_key)

return {1, released}
`)

// holdSeconds is the EX value of a hold: whole seconds rounded up, at
// least 1. SET with EX 0 is an error.
func holdSeconds(ttl time.Duration) int {
	secs := int((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// atomicHoldSeats runs the hold script and returns the seats that were
// already held. An empty result means the hold was created.
func atomicHoldSeats(ctx context.Context, client redis.Scripter, holdID, userID, eventID string, seatKeys []string, ttl time.Duration) ([]string, error) {
	args := make([]interface{}, 0, len(seatKeys)+3)
	args = append(args, userID, eventID, strconv.Itoa(holdSeconds(ttl)))
	for _, k := range seatKeys {
		args = append(args, k)
	}

	result, err := holdSeatsScript.Run(ctx, client, []string{holdID}, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic seat hold: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) < 2 {
		return nil, fmt.Errorf("unexpected result format from hold script")
	}

	success, ok := resultArray[0].(int64)
	if !ok {
		return nil, fmt.Errorf("invalid success flag in hold script result")
	}
	if success == 1 {
		return nil, nil
	}

	conflicts := make([]string, 0, len(resultArray)-1)
	for _, v := range resultArray[1:] {
		if s, ok := v.(string); ok {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts, nil
}

// atomicReleaseHold runs the release script and returns how many seats
// were freed.
func atomicReleaseHold(ctx context.Context, client redis.Scripter, holdID, userID string) (int, error) {
	result, err := releaseHoldScript.Run(ctx, client, []string{holdID}, userID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to execute atomic seat release: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return 0, fmt.Errorf("unexpected result format from release script")
	}

	success, ok := resultArray[0].(int64)
	if !ok {
		return 0, fmt.Errorf("invalid success flag in release script result")
	}

	if success == 0 {
		switch reason, _ := resultArray[1].(string); reason {
		case "hold_not_found":
			return 0, ErrHoldNotFound
		case "forbidden":
			return 0, ErrHoldForbidden
		default:
			return 0, fmt.Errorf("failed to release hold: %s", reason)
		}
	}

	released, ok := resultArray[1].(int64)
	if !ok {
		return 0, fmt.Errorf("invalid released count in release script result")
	}
	return int(released), nil
}

// preloadScripts loads both scripts into the Redis script cache.
func preloadScripts(ctx context.Context, client redis.Scripter) error {
	if err := holdSeatsScript.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("failed to load seat hold script: %w", err)
	}
	if err := releaseHoldScript.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("failed to load seat release script: %w", err)
	}
	return nil
}
