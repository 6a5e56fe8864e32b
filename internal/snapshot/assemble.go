package snapshot

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/grid"
	"trade-snapshot-lab/internal/ranking"
	"trade-snapshot-lab/internal/window"
)

// Row is an assembled snapshot row before output formatting.
type Row struct {
	Date             calendar.Date
	Key              domain.PositionKey
	Currency         string
	TrailingVolume   decimal.Decimal
	AllTimeVolume    decimal.Decimal
	VolumeRank       domain.Rank
	TradeCountRank   domain.Rank
	FixedMonthVolume decimal.Decimal
	FirstTradeTime   *time.Time
	RowNumber        int64
}

// Aggregates bundles the outputs of the window aggregators.
type Aggregates struct {
	Trailing           window.VolumeSeries
	AllTime            window.VolumeSeries
	TrailingInstrument window.VolumeSeries
	TrailingCount      window.CountSeries
	FixedMonth         window.VolumeSeries
	FirstTrade         window.TimeSeries
}

// Rankings bundles the outputs of the rank assigners.
type Rankings struct {
	Volume     ranking.Ranks
	TradeCount ranking.Ranks
}

// Assemble builds one row per (date, visible key), joining every
// aggregate and rank and applying defaults for missing values. Dates
// must be ascending; rows come out ordered by (date, account, server,
// instrument) and numbered from 1.
//
// A visible key without an all-time volume, first trade or currency
// fails with domain.ErrJoinIntegrity.
func Assemble(dates []calendar.Date, g *grid.Grid, aggs Aggregates, ranks Rankings) ([]Row, error) {
	var rows []Row
	var n int64

	for _, d := range dates {
		for _, k := range g.VisibleKeys(d) {
			cell := window.Cell{Date: d, Key: k}

			allTime, ok := aggs.AllTime[cell]
			if !ok {
				return nil, fmt.Errorf("%w: no all-time volume for %s %v", domain.ErrJoinIntegrity, d, k)
			}
			first, ok := aggs.FirstTrade[cell]
			if !ok {
				return nil, fmt.Errorf("%w: no first trade for %s %v", domain.ErrJoinIntegrity, d, k)
			}
			currency, ok := g.Currency(k)
			if !ok {
				return nil, fmt.Errorf("%w: no currency for %v", domain.ErrJoinIntegrity, k)
			}

			n++
			firstCopy := first
			rows = append(rows, Row{
				Date:             d,
				Key:              k,
				Currency:         currency,
				TrailingVolume:   valueOrZero(aggs.Trailing, cell),
				AllTimeVolume:    allTime,
				VolumeRank:       ranks.Volume[window.Cell{Date: d, Key: window.GrainAccountInstrument.Project(k)}],
				TradeCountRank:   ranks.TradeCount[window.Cell{Date: d, Key: window.GrainAccount.Project(k)}],
				FixedMonthVolume: valueOrZero(aggs.FixedMonth, cell),
				FirstTradeTime:   &firstCopy,
				RowNumber:        n,
			})
		}
	}

	return rows, nil
}

func valueOrZero(s window.VolumeSeries, c window.Cell) decimal.Decimal {
	if v, ok := s[c]; ok {
		return v
	}
	return decimal.Zero
}
