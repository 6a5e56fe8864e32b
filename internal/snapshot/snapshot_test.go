package snapshot

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
	"trade-snapshot-lab/internal/window"
)

func at(month time.Month, day, hour int) time.Time {
	return time.Date(2020, month, day, hour, 0, 0, 0, time.UTC)
}

func makeTrade(ticket, account, server, instrument string, closeAt time.Time, volume float64) domain.TradeRecord {
	return domain.TradeRecord{
		TicketID:   ticket,
		AccountID:  account,
		ServerID:   server,
		Instrument: instrument,
		Volume:     volume,
		OpenTime:   closeAt.Add(-30 * time.Minute),
		CloseTime:  closeAt,
		Currency:   "USD",
	}
}

func juneConfig() Config {
	cfg := DefaultConfig()
	cfg.Start = calendar.NewDate(2020, time.June, 1)
	cfg.End = calendar.NewDate(2020, time.June, 30)
	return cfg
}

func runEngine(t *testing.T, cfg Config, records []domain.TradeRecord) []domain.SnapshotRow {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	rows, err := e.Run(context.Background(), records)
	require.NoError(t, err)
	return rows
}

func rowsByDate(rows []domain.SnapshotRow) map[string][]domain.SnapshotRow {
	out := make(map[string][]domain.SnapshotRow)
	for _, r := range rows {
		out[r.DtReport] = append(out[r.DtReport], r)
	}
	return out
}

func TestEngine_SingleTrade(t *testing.T) {
	rows := runEngine(t, juneConfig(), []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})
	byDate := rowsByDate(rows)

	assert.Empty(t, byDate["2020-06-05"], "key is not visible before its first trade")
	assert.Len(t, rows, 21, "one row per day from 06-10 to 06-30")

	d10 := byDate["2020-06-10"]
	require.Len(t, d10, 1)
	assert.Equal(t, 100.0, d10[0].Trailing7dVolume)
	assert.Equal(t, 100.0, d10[0].AllTimeVolume)
	assert.Equal(t, 1, d10[0].VolumeRank7d)
	assert.Equal(t, 1, d10[0].TradeCountRank7d)
	assert.Equal(t, "USD", d10[0].Currency)

	d20 := byDate["2020-06-20"]
	require.Len(t, d20, 1)
	assert.Equal(t, 0.0, d20[0].Trailing7dVolume)
	assert.Equal(t, 100.0, d20[0].AllTimeVolume)
	assert.Equal(t, 0, d20[0].VolumeRank7d, "unranked rows render 0")
	assert.Equal(t, 0, d20[0].TradeCountRank7d)

	for _, r := range rows {
		require.NotNil(t, r.FirstTradeTime)
		assert.Equal(t, at(time.June, 10, 14), *r.FirstTradeTime)
	}
}

func TestEngine_DenseRankTies(t *testing.T) {
	rows := runEngine(t, juneConfig(), []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 15, 10), 50),
		makeTrade("t2", "B", "S", "X", at(time.June, 15, 11), 50),
		makeTrade("t3", "C", "S", "X", at(time.June, 15, 12), 10),
	})

	got := make(map[string]int)
	for _, r := range rowsByDate(rows)["2020-06-15"] {
		got[r.AccountID] = r.VolumeRank7d
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 2}, got)
}

func TestEngine_VolumeRankSharedAcrossServers(t *testing.T) {
	rows := runEngine(t, juneConfig(), []domain.TradeRecord{
		makeTrade("t1", "A", "S1", "X", at(time.June, 15, 10), 30),
		makeTrade("t2", "A", "S2", "X", at(time.June, 15, 11), 30),
		makeTrade("t3", "B", "S1", "X", at(time.June, 15, 12), 50),
	})

	for _, r := range rowsByDate(rows)["2020-06-15"] {
		switch r.AccountID {
		case "A":
			assert.Equal(t, 1, r.VolumeRank7d, "A ranks on 60 across both servers")
			assert.Equal(t, 30.0, r.Trailing7dVolume)
		case "B":
			assert.Equal(t, 2, r.VolumeRank7d)
		}
	}
}

func TestEngine_TradeCountRank(t *testing.T) {
	rows := runEngine(t, juneConfig(), []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 15, 10), 1),
		makeTrade("t2", "A", "S", "Y", at(time.June, 15, 11), 1),
		makeTrade("t3", "B", "S", "X", at(time.June, 15, 12), 100),
	})

	for _, r := range rowsByDate(rows)["2020-06-15"] {
		if r.AccountID == "A" {
			assert.Equal(t, 1, r.TradeCountRank7d)
		} else {
			assert.Equal(t, 2, r.TradeCountRank7d)
			assert.Equal(t, 1, r.VolumeRank7d)
		}
	}
}

func TestEngine_FixedMonthDefault(t *testing.T) {
	cfg := DefaultConfig()
	rows := runEngine(t, cfg, []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.July, 20, 10), 5),
		makeTrade("t2", "A", "S", "X", at(time.August, 10, 10), 7),
		makeTrade("t3", "A", "S", "X", at(time.September, 2, 10), 11),
	})
	byDate := rowsByDate(rows)

	assert.Equal(t, 0.0, byDate["2020-07-31"][0].FixedMonthVolume)
	assert.Equal(t, 0.0, byDate["2020-08-09"][0].FixedMonthVolume)
	assert.Equal(t, 7.0, byDate["2020-08-10"][0].FixedMonthVolume)
	assert.Equal(t, 7.0, byDate["2020-09-30"][0].FixedMonthVolume)
	assert.Equal(t, 23.0, byDate["2020-09-30"][0].AllTimeVolume)
}

func TestEngine_OutputOrderAndIDs(t *testing.T) {
	rows := runEngine(t, juneConfig(), []domain.TradeRecord{
		makeTrade("t1", "B", "S", "X", at(time.June, 28, 10), 1),
		makeTrade("t2", "A", "S", "X", at(time.June, 29, 10), 1),
	})
	// B: 06-28, 06-29, 06-30; A: 06-29, 06-30
	require.Len(t, rows, 5)

	n := int64(len(rows))
	for i, r := range rows {
		assert.Equal(t, n-int64(i), r.RowNumber, "rows are emitted by descending row_number")
		assert.Equal(t, n+1-r.RowNumber, r.ID)
	}

	last := rows[0]
	assert.Equal(t, "2020-06-30", last.DtReport)
	assert.Equal(t, "B", last.AccountID)

	first := rows[len(rows)-1]
	assert.Equal(t, "2020-06-28", first.DtReport)
	assert.Equal(t, int64(1), first.RowNumber)
	assert.Equal(t, n, first.ID)

	// On 06-29 A sorts before B.
	assert.Equal(t, "A", rows[3].AccountID)
	assert.Equal(t, "2020-06-29", rows[3].DtReport)
}

func TestEngine_EmptyLedger(t *testing.T) {
	rows := runEngine(t, juneConfig(), nil)
	assert.Empty(t, rows)
}

func TestEngine_KeysBeforeRangeAreCarried(t *testing.T) {
	cfg := juneConfig()
	cfg.Start = calendar.NewDate(2020, time.June, 20)

	rows := runEngine(t, cfg, []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.May, 1, 10), 3),
	})

	require.Len(t, rows, 11)
	for _, r := range rows {
		assert.Equal(t, 3.0, r.AllTimeVolume)
		assert.Equal(t, 0.0, r.Trailing7dVolume)
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"inverted range", func(c *Config) { c.Start, c.End = c.End, c.Start }},
		{"zero window", func(c *Config) { c.WindowDays = 0 }},
		{"bad month", func(c *Config) { c.Month.Month = 13 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewEngine(cfg)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
		})
	}
}

func TestEngine_DataContractViolation(t *testing.T) {
	bad := makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100)
	bad.Volume = 0

	e, err := NewEngine(juneConfig())
	require.NoError(t, err)
	_, err = e.Run(context.Background(), []domain.TradeRecord{bad})
	assert.ErrorIs(t, err, domain.ErrDataContract)
}

func TestEngine_Cancelled(t *testing.T) {
	e, err := NewEngine(juneConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Run(ctx, []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Observer(t *testing.T) {
	e, err := NewEngine(juneConfig())
	require.NoError(t, err)

	var stages []string
	observed := e.WithObserver(func(stage string, _ time.Duration) {
		stages = append(stages, stage)
	})

	_, err = observed.Compute(context.Background(), []domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{StageValidate, StageGrid, StageAggregate, StageRank, StageAssemble}, stages)
}

func TestEngine_ObserverDoesNotLeakAcrossCopies(t *testing.T) {
	e, err := NewEngine(juneConfig())
	require.NoError(t, err)

	var first, second int
	a := e.WithObserver(func(string, time.Duration) { first++ })
	b := e.WithObserver(func(string, time.Duration) { second++ })

	records := []domain.TradeRecord{makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100)}

	_, err = a.Compute(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 5, first)
	assert.Equal(t, 0, second)

	_, err = b.Compute(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 5, first)
	assert.Equal(t, 5, second)

	_, err = e.Compute(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 5, first, "base engine keeps its no-op observer")
	assert.Equal(t, 5, second)
}

func TestAssemble_JoinIntegrity(t *testing.T) {
	g := grid.New([]domain.TradeRecord{
		makeTrade("t1", "A", "S", "X", at(time.June, 10, 14), 100),
	})
	dates := []calendar.Date{calendar.NewDate(2020, time.June, 10)}

	_, err := Assemble(dates, g, Aggregates{
		AllTime:    window.VolumeSeries{},
		FirstTrade: window.TimeSeries{},
	}, Rankings{})
	assert.ErrorIs(t, err, domain.ErrJoinIntegrity)
}

func TestFormat_Empty(t *testing.T) {
	assert.Empty(t, Format(nil))
}
