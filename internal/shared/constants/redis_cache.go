package constants

import (
	"fmt"
	"time"
)

// Redis keys and TTLs used across the service.
// Pattern: ticketly:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // event details
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour    // event listings
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // analytics
	TTL_DYNAMIC_MEDIUM     = 10 * time.Minute // user tickets
	TTL_REALTIME_SHORT     = 30 * time.Second // seat maps
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "ticketly"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENTS_LIST  = CACHE_PREFIX + ":events:list"         // + :page:X:limit:Y:status:Z
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
	CACHE_KEY_EVENT_SEATS  = CACHE_PREFIX + ":events:seats:uuid:"  // + event-id
)

const (
	TTL_EVENT_LIST   = TTL_SEMI_STATIC_SHORT
	TTL_EVENT_DETAIL = TTL_SEMI_STATIC_MEDIUM
	TTL_EVENT_SEATS  = TTL_REALTIME_SHORT
)

// ================== HOLDS ==================

// Hold keys are not namespaced by CACHE_PREFIX: the Lua scripts build them
// from these prefixes directly and they are never swept by pattern deletes.
const (
	HOLD_KEY_PREFIX       = "hold:"
	HOLD_SEAT_KEY_PREFIX  = "seat_hold:"
	HOLD_SEATS_KEY_PREFIX = "hold_seats:"
	HOLD_USER_KEY_PREFIX  = "user_holds:"
)

// ================== TICKETS MODULE ==================

const (
	CACHE_KEY_USER_TICKETS = CACHE_PREFIX + ":tickets:user:uuid:" // + user-id
)

const (
	TTL_USER_TICKETS = TTL_DYNAMIC_MEDIUM
)

// ================== ANALYTICS MODULE ==================

const (
	CACHE_KEY_ANALYTICS_EVENT    = CACHE_PREFIX + ":analytics:event:uuid:" // + event-id
	CACHE_KEY_ANALYTICS_OVERVIEW = CACHE_PREFIX + ":analytics:overview"
)

const (
	TTL_ANALYTICS_EVENT = TTL_SEMI_STATIC_QUICK
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_EVENT_LIST = CACHE_PREFIX + ":events:list*"
	PATTERN_INVALIDATE_EVENT_ALL  = CACHE_PREFIX + ":events:*"
)

// ================== HELPER FUNCTIONS ==================

// BuildEventListKey -> "ticketly:events:list:page:1:limit:10:status:active:category:music:q:rock"
func BuildEventListKey(page, limit int, status, category, query string) string {
	return fmt.Sprintf("%s:page:%d:limit:%d:status:%s:category:%s:q:%s",
		CACHE_KEY_EVENTS_LIST, page, limit, status, category, query)
}

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildEventSeatsKey(eventID string) string {
	return CACHE_KEY_EVENT_SEATS + eventID
}

func BuildUserTicketsKey(userID string) string {
	return CACHE_KEY_USER_TICKETS + userID
}

func BuildAnalyticsEventKey(eventID string) string {
	return CACHE_KEY_ANALYTICS_EVENT + eventID
}

func BuildHoldKey(holdID string) string {
	return HOLD_KEY_PREFIX + holdID
}

func BuildSeatHoldKey(eventID, seatKey string) string {
	return HOLD_SEAT_KEY_PREFIX + eventID + ":" + seatKey
}

func BuildHoldSeatsKey(holdID string) string {
	return HOLD_SEATS_KEY_PREFIX + holdID
}

func BuildUserHoldsKey(userID string) string {
	return HOLD_USER_KEY_PREFIX + userID
}
