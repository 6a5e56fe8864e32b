package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
)

func at(day, hour int) time.Time {
	return time.Date(2020, time.June, day, hour, 0, 0, 0, time.UTC)
}

func date(day int) calendar.Date {
	return calendar.NewDate(2020, time.June, day)
}

func makeTrade(ticket, account, instrument string, closeDay int, volume float64) domain.TradeRecord {
	return domain.TradeRecord{
		TicketID:   ticket,
		AccountID:  account,
		ServerID:   "srv",
		Instrument: instrument,
		Volume:     volume,
		OpenTime:   at(closeDay, 8),
		CloseTime:  at(closeDay, 12),
		Currency:   "USD",
	}
}

func TestGrid_Empty(t *testing.T) {
	g := New(nil)

	assert.Empty(t, g.Keys())
	assert.Equal(t, 0, g.Len())
	_, _, ok := g.Span()
	assert.False(t, ok)
	assert.True(t, g.VolumeBetween(domain.PositionKey{}, date(1), date(30)).IsZero())
}

func TestGrid_KeysSorted(t *testing.T) {
	g := New([]domain.TradeRecord{
		makeTrade("t1", "b", "EURUSD", 5, 1),
		makeTrade("t2", "a", "XAUUSD", 6, 1),
		makeTrade("t3", "a", "EURUSD", 7, 1),
	})

	keys := g.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, "a", keys[0].AccountID)
	assert.Equal(t, "EURUSD", keys[0].Instrument)
	assert.Equal(t, "XAUUSD", keys[1].Instrument)
	assert.Equal(t, "b", keys[2].AccountID)
}

func TestGrid_WindowQueries(t *testing.T) {
	g := New([]domain.TradeRecord{
		makeTrade("t1", "a", "EURUSD", 3, 1.25),
		makeTrade("t2", "a", "EURUSD", 10, 2.5),
		makeTrade("t3", "a", "EURUSD", 10, 0.25),
		makeTrade("t4", "a", "EURUSD", 15, 4),
	})
	key := domain.PositionKey{AccountID: "a", ServerID: "srv", Instrument: "EURUSD"}

	tests := []struct {
		name     string
		from, to int
		volume   string
		count    int
	}{
		{"before first trade", 1, 2, "0", 0},
		{"single day", 10, 10, "2.75", 2},
		{"inclusive bounds", 3, 15, "8", 4},
		{"gap", 11, 14, "0", 0},
		{"inverted", 15, 3, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vol := g.VolumeBetween(key, date(tt.from), date(tt.to))
			assert.Equal(t, tt.volume, vol.String())
			assert.Equal(t, tt.count, g.CountBetween(key, date(tt.from), date(tt.to)))
		})
	}
}

func TestGrid_Visibility(t *testing.T) {
	g := New([]domain.TradeRecord{
		makeTrade("t1", "a", "EURUSD", 10, 1),
		makeTrade("t2", "b", "EURUSD", 12, 1),
	})
	keyA := domain.PositionKey{AccountID: "a", ServerID: "srv", Instrument: "EURUSD"}

	assert.False(t, g.Visible(keyA, date(9)))
	assert.True(t, g.Visible(keyA, date(10)))
	assert.Len(t, g.VisibleKeys(date(11)), 1)
	assert.Len(t, g.VisibleKeys(date(12)), 2)

	_, ok := g.FirstClose(keyA, date(9))
	assert.False(t, ok)
	first, ok := g.FirstClose(keyA, date(20))
	require.True(t, ok)
	assert.Equal(t, at(10, 12), first)

	lo, hi, ok := g.Span()
	require.True(t, ok)
	assert.Equal(t, date(10), lo)
	assert.Equal(t, date(12), hi)
}

func TestGrid_DecimalSumIsExact(t *testing.T) {
	var records []domain.TradeRecord
	for i := 0; i < 10; i++ {
		records = append(records, makeTrade(string(rune('a'+i)), "a", "EURUSD", 10, 0.1))
	}
	g := New(records)
	key := domain.PositionKey{AccountID: "a", ServerID: "srv", Instrument: "EURUSD"}

	assert.Equal(t, "1", g.VolumeBetween(key, date(1), date(30)).String())
}
