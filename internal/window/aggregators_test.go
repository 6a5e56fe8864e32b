package window

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/grid"
)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2020, month, day, hour, 0, 0, 0, time.UTC)
}

func june(day int) calendar.Date {
	return calendar.NewDate(2020, time.June, day)
}

func makeTrade(ticket, account, server, instrument string, closeAt time.Time, volume float64) domain.TradeRecord {
	return domain.TradeRecord{
		TicketID:   ticket,
		AccountID:  account,
		ServerID:   server,
		Instrument: instrument,
		Volume:     volume,
		OpenTime:   closeAt.Add(-time.Hour),
		CloseTime:  closeAt,
		Currency:   "USD",
	}
}

func juneDates(t *testing.T) []calendar.Date {
	t.Helper()
	dates, err := calendar.Range(june(1), june(30))
	require.NoError(t, err)
	return dates
}

var keyA = domain.PositionKey{AccountID: "A", ServerID: "S", Instrument: "X"}

func TestTrailingVolume_SingleTradeWindow(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})

	series, err := TrailingVolume(context.Background(), g, juneDates(t), DefaultDays)
	require.NoError(t, err)

	_, ok := series[Cell{Date: june(9), Key: keyA}]
	assert.False(t, ok, "no value before the trade closes")

	for d := 10; d <= 16; d++ {
		v, ok := series[Cell{Date: june(d), Key: keyA}]
		require.True(t, ok, "day %d inside window", d)
		assert.Equal(t, "100", v.String())
	}

	_, ok = series[Cell{Date: june(17), Key: keyA}]
	assert.False(t, ok, "trade leaves the window after seven days")
}

func TestAllTimeVolume_Cumulative(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
		makeTrade("t2", "A", "S", "X", at(time.June, 20, 9), 50),
	})

	series, err := AllTimeVolume(context.Background(), g, juneDates(t))
	require.NoError(t, err)

	_, ok := series[Cell{Date: june(9), Key: keyA}]
	assert.False(t, ok)
	assert.Equal(t, "100", series[Cell{Date: june(10), Key: keyA}].String())
	assert.Equal(t, "100", series[Cell{Date: june(19), Key: keyA}].String())
	assert.Equal(t, "150", series[Cell{Date: june(20), Key: keyA}].String())
	assert.Equal(t, "150", series[Cell{Date: june(30), Key: keyA}].String())
}

func TestTrailingInstrumentVolume_MergesServers(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S1", "X", at(time.June, 10, 14), 30),
		makeTrade("t2", "A", "S2", "X", at(time.June, 11, 14), 20),
		makeTrade("t3", "A", "S2", "Y", at(time.June, 11, 15), 5),
	})

	series, err := TrailingInstrumentVolume(context.Background(), g, juneDates(t), DefaultDays)
	require.NoError(t, err)

	ax := domain.PositionKey{AccountID: "A", Instrument: "X"}
	ay := domain.PositionKey{AccountID: "A", Instrument: "Y"}
	assert.Equal(t, "30", series[Cell{Date: june(10), Key: ax}].String())
	assert.Equal(t, "50", series[Cell{Date: june(11), Key: ax}].String())
	assert.Equal(t, "5", series[Cell{Date: june(11), Key: ay}].String())
	// t1 leaves on 06-17, t2 on 06-18
	assert.Equal(t, "20", series[Cell{Date: june(17), Key: ax}].String())
}

func TestTrailingTradeCount_AccountGrain(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S1", "X", at(time.June, 10, 14), 1),
		makeTrade("t2", "A", "S2", "Y", at(time.June, 10, 15), 1),
		makeTrade("t3", "A", "S1", "X", at(time.June, 12, 15), 1),
		makeTrade("t4", "B", "S1", "X", at(time.June, 12, 15), 1),
	})

	series, err := TrailingTradeCount(context.Background(), g, juneDates(t), DefaultDays)
	require.NoError(t, err)

	a := domain.PositionKey{AccountID: "A"}
	b := domain.PositionKey{AccountID: "B"}
	assert.Equal(t, 2, series[Cell{Date: june(10), Key: a}])
	assert.Equal(t, 3, series[Cell{Date: june(12), Key: a}])
	assert.Equal(t, 1, series[Cell{Date: june(12), Key: b}])
	assert.Equal(t, 1, series[Cell{Date: june(17), Key: a}])
	_, ok := series[Cell{Date: june(19), Key: a}]
	assert.False(t, ok)
}

func TestFixedMonthVolume(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.July, 31, 23), 7),
		makeTrade("t2", "A", "S", "X", at(time.August, 5, 10), 10),
		makeTrade("t3", "A", "S", "X", at(time.August, 31, 10), 5),
		makeTrade("t4", "A", "S", "X", at(time.September, 1, 0), 3),
	})
	dates, err := calendar.Range(calendar.NewDate(2020, time.July, 30), calendar.NewDate(2020, time.September, 10))
	require.NoError(t, err)
	month := calendar.Month{Year: 2020, Month: time.August}

	series, err := FixedMonthVolume(context.Background(), g, dates, month)
	require.NoError(t, err)

	cell := func(m time.Month, d int) Cell {
		return Cell{Date: calendar.NewDate(2020, m, d), Key: keyA}
	}

	_, ok := series[cell(time.July, 31)]
	assert.False(t, ok, "July trade is outside the month")
	_, ok = series[cell(time.August, 4)]
	assert.False(t, ok, "no August trade visible yet")
	assert.Equal(t, "10", series[cell(time.August, 5)].String())
	assert.Equal(t, "15", series[cell(time.August, 31)].String())
	assert.Equal(t, "15", series[cell(time.September, 10)].String(), "September trade excluded")
}

func TestFirstTrade(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t2", "A", "S", "X", at(time.June, 12, 9), 1),
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 1),
	})

	series, err := FirstTrade(context.Background(), g, juneDates(t))
	require.NoError(t, err)

	_, ok := series[Cell{Date: june(9), Key: keyA}]
	assert.False(t, ok)
	assert.Equal(t, at(time.June, 10, 14), series[Cell{Date: june(10), Key: keyA}])
	assert.Equal(t, at(time.June, 10, 14), series[Cell{Date: june(30), Key: keyA}])
}

func TestTrailingVolume_CustomWindow(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})

	series, err := TrailingVolume(context.Background(), g, juneDates(t), 1)
	require.NoError(t, err)

	_, ok := series[Cell{Date: june(10), Key: keyA}]
	assert.True(t, ok)
	_, ok = series[Cell{Date: june(11), Key: keyA}]
	assert.False(t, ok)
}

func TestTrailingVolume_InvalidWindow(t *testing.T) {
	_, err := TrailingVolume(context.Background(), grid.New(nil), juneDates(t), 0)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestAggregators_Cancelled(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AllTimeVolume(ctx, g, juneDates(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGrain_Project(t *testing.T) {
	k := domain.PositionKey{AccountID: "A", ServerID: "S", Instrument: "X"}

	assert.Equal(t, k, GrainPosition.Project(k))
	assert.Equal(t, domain.PositionKey{AccountID: "A", Instrument: "X"}, GrainAccountInstrument.Project(k))
	assert.Equal(t, domain.PositionKey{AccountID: "A"}, GrainAccount.Project(k))
}
