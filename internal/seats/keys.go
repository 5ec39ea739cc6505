package seats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SeatKey identifies a seat by its zero-based position in the seat map.
// The canonical string form is "row-col" (e.g. "0-3"); "A-4" style labels
// are for display only.
type SeatKey struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (k SeatKey) String() string {
	return strconv.Itoa(k.Row) + "-" + strconv.Itoa(k.Col)
}

// Label renders the seat as row letters plus a 1-based column, "A-1" for 0-0.
func (k SeatKey) Label() string {
	return RowLabel(k.Row) + "-" + strconv.Itoa(k.Col+1)
}

// RowLabel converts a zero-based row index to spreadsheet letters:
// 0 -> A, 25 -> Z, 26 -> AA.
func RowLabel(row int) string {
	if row < 0 {
		return ""
	}
	var b []byte
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func rowFromLabel(label string) (int, error) {
	n := 0
	for _, r := range strings.ToUpper(label) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("%w: bad row %q", ErrInvalidSeatKey, label)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// ParseSeatKey accepts both the canonical "row-col" form and the
// display "A-4" form and returns the canonical key.
func ParseSeatKey(s string) (SeatKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return SeatKey{}, fmt.Errorf("%w: %q", ErrInvalidSeatKey, s)
	}

	col, err := strconv.Atoi(parts[1])
	if err != nil {
		return SeatKey{}, fmt.Errorf("%w: %q", ErrInvalidSeatKey, s)
	}

	if row, err := strconv.Atoi(parts[0]); err == nil {
		if row < 0 || col < 0 {
			return SeatKey{}, fmt.Errorf("%w: %q", ErrInvalidSeatKey, s)
		}
		return SeatKey{Row: row, Col: col}, nil
	}

	row, err := rowFromLabel(parts[0])
	if err != nil {
		return SeatKey{}, err
	}
	if col < 1 {
		return SeatKey{}, fmt.Errorf("%w: %q", ErrInvalidSeatKey, s)
	}
	return SeatKey{Row: row, Col: col - 1}, nil
}

// ParseSeatKeys parses every key and rejects duplicates.
func ParseSeatKeys(raw []string) ([]SeatKey, error) {
	keys := make([]SeatKey, 0, len(raw))
	seen := make(map[SeatKey]struct{}, len(raw))
	for _, s := range raw {
		k, err := ParseSeatKey(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSeat, k)
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// SortKeys orders keys row-major.
func SortKeys(keys []SeatKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row != keys[j].Row {
			return keys[i].Row < keys[j].Row
		}
		return keys[i].Col < keys[j].Col
	})
}

// KeyStrings returns the canonical form of each key.
func KeyStrings(keys []SeatKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
