package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketly_bookings_total",
			Help: "Ticket checkouts by outcome",
		},
		[]string{"result"},
	)

	seatsSold = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketly_seats_sold_total",
			Help: "Seats marked occupied by committed bookings",
		},
		[]string{"event_id"},
	)

	seatConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketly_seat_conflicts_total",
			Help: "Bookings or holds rejected because a seat was taken or held",
		},
		[]string{"event_id", "reason"},
	)

	holdOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketly_hold_operations_total",
			Help: "Seat hold operations",
		},
		[]string{"operation", "status"},
	)

	bookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticketly_booking_duration_seconds",
			Help:    "Time spent in the booking transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketly_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Booking outcomes
const (
	ResultSuccess  = "success"
	ResultConflict = "conflict"
	ResultReplay   = "replay"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// TrackBooking records a checkout outcome
func TrackBooking(result string, duration time.Duration) {
	bookingsTotal.WithLabelValues(result).Inc()
	bookingDuration.Observe(duration.Seconds())
}

// TrackSeatsSold adds committed seats for an event
func TrackSeatsSold(eventID string, seats int) {
	seatsSold.WithLabelValues(eventID).Add(float64(seats))
}

// TrackSeatConflict records a rejected seat, reason is "taken" or "held"
func TrackSeatConflict(eventID, reason string) {
	seatConflicts.WithLabelValues(eventID, reason).Inc()
}

// TrackHoldOperation records hold create/release outcomes
func TrackHoldOperation(operation, status string) {
	holdOperations.WithLabelValues(operation, status).Inc()
}

// Middleware observes request latency per matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
