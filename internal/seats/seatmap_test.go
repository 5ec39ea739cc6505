package seats

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeatMap(t *testing.T) {
	tests := []struct {
		capacity int
		rows     int
		cols     int
		lastRow  int
	}{
		{capacity: 100, rows: 10, cols: 11, lastRow: 1},
		{capacity: 40, rows: 6, cols: 7, lastRow: 5},
		{capacity: 1, rows: 1, cols: 2, lastRow: 1},
	}

	for _, tt := range tests {
		m := NewSeatMap(tt.capacity)
		assert.Equal(t, tt.capacity, m.Count(), "capacity %d", tt.capacity)
		assert.Len(t, m, tt.rows, "capacity %d", tt.capacity)
		assert.Len(t, m[len(m)-1], tt.lastRow, "capacity %d", tt.capacity)
		assert.LessOrEqual(t, m.Columns(), tt.cols)
		assert.Equal(t, tt.capacity, m.Free())
	}

	assert.Empty(t, NewSeatMap(0))
}

func TestSeatMap_Reserve(t *testing.T) {
	m := NewSeatMap(12)

	reserved, err := m.Reserve([]SeatKey{{0, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, reserved.Occupied())
	assert.Zero(t, m.Occupied(), "receiver must not change")

	t.Run("taken seats are reported together", func(t *testing.T) {
		_, err := reserved.Reserve([]SeatKey{{0, 0}, {0, 1}, {1, 0}})
		require.Error(t, err)

		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, []string{"0-0", "0-1"}, conflict.Seats)
		assert.ErrorIs(t, err, ErrSeatConflict)
		assert.ErrorIs(t, err, ErrSeatTaken)
		assert.NotErrorIs(t, err, ErrSeatHeld)
	})

	t.Run("unknown seat", func(t *testing.T) {
		_, err := m.Reserve([]SeatKey{{99, 0}})
		assert.ErrorIs(t, err, ErrSeatNotFound)
	})

	t.Run("duplicate seat", func(t *testing.T) {
		_, err := m.Reserve([]SeatKey{{0, 0}, {0, 0}})
		assert.ErrorIs(t, err, ErrDuplicateSeat)
	})
}

func TestSeatMap_IndexAndValidate(t *testing.T) {
	m := SeatMap{{0, 0, 0}, {0, 1}}

	idx, ok := m.Index(SeatKey{1, 1})
	assert.True(t, ok)
	assert.Equal(t, 4, idx)

	_, ok = m.Index(SeatKey{1, 2})
	assert.False(t, ok)

	assert.NoError(t, m.Validate())
	assert.ErrorIs(t, SeatMap{{0, 2}}.Validate(), ErrInvalidSeatMap)
}

func TestParseSeatKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SeatKey
		wantErr bool
	}{
		{in: "0-3", want: SeatKey{0, 3}},
		{in: " 12-0 ", want: SeatKey{12, 0}},
		{in: "A-1", want: SeatKey{0, 0}},
		{in: "c-4", want: SeatKey{2, 3}},
		{in: "AA-2", want: SeatKey{26, 1}},
		{in: "A-0", wantErr: true},
		{in: "-1-2", wantErr: true},
		{in: "x-y", wantErr: true},
		{in: "3", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSeatKey(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSeatKey, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseSeatKeys_RejectsDuplicateForms(t *testing.T) {
	_, err := ParseSeatKeys([]string{"0-0", "A-1"})
	assert.ErrorIs(t, err, ErrDuplicateSeat)
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "AA", RowLabel(26))
	assert.Equal(t, "", RowLabel(-1))
	assert.Equal(t, "B-3", SeatKey{Row: 1, Col: 2}.Label())
}

func TestSortKeys(t *testing.T) {
	keys := []SeatKey{{2, 0}, {0, 5}, {0, 1}}
	SortKeys(keys)
	assert.Equal(t, []string{"0-1", "0-5", "2-0"}, KeyStrings(keys))
}

func TestRowTiers(t *testing.T) {
	m := NewSeatMap(40) // 6 rows of 7, last row 5
	list := RowTiers(m, decimal.NewFromInt(150), decimal.NewFromInt(90), decimal.NewFromInt(45))

	require.Len(t, list, 3)
	assert.Equal(t, TierVIP, list[0].Tier)
	assert.Equal(t, 14, list[0].Capacity)
	assert.Equal(t, 21, list[1].Capacity)
	assert.Zero(t, list[2].Capacity)
	assert.NoError(t, list.Validate(40))

	vip, err := list.Lookup(m, SeatKey{1, 6})
	require.NoError(t, err)
	assert.Equal(t, TierVIP, vip.Tier)

	general, err := list.Lookup(m, SeatKey{5, 4})
	require.NoError(t, err)
	assert.Equal(t, TierGeneral, general.Tier)
}

func TestRowTiers_SmallVenue(t *testing.T) {
	m := NewSeatMap(4) // 2 rows of 3 and 1
	list := RowTiers(m, decimal.NewFromInt(100), decimal.NewFromInt(50), decimal.NewFromInt(10))

	require.Len(t, list, 1)
	assert.Equal(t, TierVIP, list[0].Tier)
	assert.Zero(t, list[0].Capacity)
	assert.NoError(t, list.Validate(4))
}

func TestPriceList_Validate(t *testing.T) {
	ten := decimal.NewFromInt(10)

	tests := []struct {
		name string
		list PriceList
		want error
	}{
		{"empty", PriceList{}, ErrNoTicketTypes},
		{"bad tier", PriceList{{Tier: "gold", Price: ten}}, ErrInvalidTier},
		{"duplicate", PriceList{{Tier: TierVIP, Price: ten, Capacity: 5}, {Tier: TierVIP, Price: ten}}, ErrDuplicateTier},
		{"negative price", PriceList{{Tier: TierGeneral, Price: decimal.NewFromInt(-1)}}, ErrNegativePrice},
		{"open tier first", PriceList{{Tier: TierVIP, Price: ten}, {Tier: TierGeneral, Price: ten, Capacity: 5}}, ErrOpenTierNotLast},
		{"short", PriceList{{Tier: TierVIP, Price: ten, Capacity: 5}}, ErrTierCapacity},
		{"too many", PriceList{{Tier: TierVIP, Price: ten, Capacity: 50}, {Tier: TierGeneral, Price: ten}}, ErrTierCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.list.Validate(20), tt.want)
		})
	}

	assert.NoError(t, SinglePrice("", "Regular", ten).Validate(20))
}

func TestPriceList_Quote(t *testing.T) {
	m := NewSeatMap(40)
	list := RowTiers(m, decimal.RequireFromString("150.00"), decimal.RequireFromString("90.50"), decimal.RequireFromString("45.00"))

	priced, total, tier, err := list.Quote(m, []SeatKey{{0, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, TierVIP, tier)
	assert.True(t, total.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "A-1", priced[0].Label)

	_, total, tier, err = list.Quote(m, []SeatKey{{0, 0}, {2, 0}, {5, 0}})
	require.NoError(t, err)
	assert.Equal(t, TierMixed, tier)
	assert.Equal(t, "285.5", total.String())

	_, _, _, err = list.Quote(m, []SeatKey{{9, 9}})
	assert.ErrorIs(t, err, ErrSeatNotFound)
}
