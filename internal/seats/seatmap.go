package seats

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	SeatFree     = 0
	SeatOccupied = 1
)

var (
	ErrInvalidSeatKey = errors.New("invalid seat key")
	ErrSeatNotFound   = errors.New("seat not found")
	ErrDuplicateSeat  = errors.New("duplicate seat")
	ErrSeatTaken      = errors.New("seat already taken")
	ErrSeatHeld       = errors.New("seat held by another user")
	ErrInvalidSeatMap = errors.New("invalid seat map")

	// ErrSeatConflict matches every *ConflictError
	ErrSeatConflict = errors.New("seat conflict")
)

// ConflictError lists the seats that blocked a hold or booking. It
// matches ErrSeatConflict and its Reason (ErrSeatTaken or ErrSeatHeld)
// through errors.Is.
type ConflictError struct {
	Reason error
	Seats  []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s", e.Reason, strings.Join(e.Seats, ", "))
}

func (e *ConflictError) Unwrap() error {
	return e.Reason
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}

// SeatMap is the occupancy grid of an event. Rows may differ in length;
// the last row is usually short.
type SeatMap [][]int

// NewSeatMap lays out capacity seats in a near-square grid. The column
// count is ceil(sqrt(capacity*1.2)) and rows are filled until the
// capacity is used up, so only the last row can be short.
func NewSeatMap(capacity int) SeatMap {
	if capacity <= 0 {
		return SeatMap{}
	}

	cols := int(math.Ceil(math.Sqrt(float64(capacity) * 1.2)))
	rows := int(math.Ceil(float64(capacity) / float64(cols)))

	m := make(SeatMap, 0, rows)
	remaining := capacity
	for i := 0; i < rows && remaining > 0; i++ {
		n := cols
		if remaining < n {
			n = remaining
		}
		m = append(m, make([]int, n))
		remaining -= n
	}
	return m
}

// Count returns the number of seats.
func (m SeatMap) Count() int {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	return n
}

// Occupied returns the number of occupied seats.
func (m SeatMap) Occupied() int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v == SeatOccupied {
				n++
			}
		}
	}
	return n
}

func (m SeatMap) Free() int {
	return m.Count() - m.Occupied()
}

// Columns returns the length of the longest row.
func (m SeatMap) Columns() int {
	cols := 0
	for _, row := range m {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

func (m SeatMap) Contains(k SeatKey) bool {
	return k.Row >= 0 && k.Row < len(m) && k.Col >= 0 && k.Col < len(m[k.Row])
}

func (m SeatMap) IsOccupied(k SeatKey) bool {
	return m.Contains(k) && m[k.Row][k.Col] == SeatOccupied
}

// Index returns the row-major position of k, used for tier allocation.
func (m SeatMap) Index(k SeatKey) (int, bool) {
	if !m.Contains(k) {
		return 0, false
	}
	idx := 0
	for r := 0; r < k.Row; r++ {
		idx += len(m[r])
	}
	return idx + k.Col, true
}

// Keys returns every seat key in row-major order.
func (m SeatMap) Keys() []SeatKey {
	keys := make([]SeatKey, 0, m.Count())
	for r, row := range m {
		for c := range row {
			keys = append(keys, SeatKey{Row: r, Col: c})
		}
	}
	return keys
}

func (m SeatMap) Clone() SeatMap {
	out := make(SeatMap, len(m))
	for i, row := range m {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Validate checks that every cell is 0 or 1.
func (m SeatMap) Validate() error {
	for r, row := range m {
		for c, v := range row {
			if v != SeatFree && v != SeatOccupied {
				return fmt.Errorf("%w: value %d at %d-%d", ErrInvalidSeatMap, v, r, c)
			}
		}
	}
	return nil
}

// Reserve returns a copy of the map with keys marked occupied. The
// receiver is left untouched. If any key is already occupied nothing is
// reserved and a *ConflictError naming every taken seat is returned.
func (m SeatMap) Reserve(keys []SeatKey) (SeatMap, error) {
	seen := make(map[SeatKey]struct{}, len(keys))
	var taken []string

	for _, k := range keys {
		if !m.Contains(k) {
			return nil, fmt.Errorf("%w: %s", ErrSeatNotFound, k)
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSeat, k)
		}
		seen[k] = struct{}{}
		if m[k.Row][k.Col] == SeatOccupied {
			taken = append(taken, k.String())
		}
	}

	if len(taken) > 0 {
		return nil, &ConflictError{Reason: ErrSeatTaken, Seats: taken}
	}

	out := m.Clone()
	for _, k := range keys {
		out[k.Row][k.Col] = SeatOccupied
	}
	return out, nil
}
