package domain

import (
	"strconv"
	"time"
)

// PositionKey identifies an (account, server, instrument) combination.
// Coarser grains leave trailing fields empty.
type PositionKey struct {
	AccountID  string
	ServerID   string
	Instrument string
}

// Less orders keys by account, then server, then instrument.
func (k PositionKey) Less(o PositionKey) bool {
	if k.AccountID != o.AccountID {
		return k.AccountID < o.AccountID
	}
	if k.ServerID != o.ServerID {
		return k.ServerID < o.ServerID
	}
	return k.Instrument < o.Instrument
}

// Rank is a dense rank that may be absent.
// The zero value is NoRank.
type Rank struct {
	value    int
	assigned bool
}

// NoRank marks a key that did not take part in a ranking.
var NoRank = Rank{}

// RankOf returns an assigned rank.
func RankOf(v int) Rank {
	return Rank{value: v, assigned: true}
}

// Value returns the rank and whether it was assigned.
func (r Rank) Value() (int, bool) {
	return r.value, r.assigned
}

// OrZero returns the rank, or 0 when absent.
func (r Rank) OrZero() int {
	if !r.assigned {
		return 0
	}
	return r.value
}

func (r Rank) String() string {
	if !r.assigned {
		return "none"
	}
	return strconv.Itoa(r.value)
}

// SnapshotRow is one formatted row of the trading activity fact table.
// Column order matches the published output contract.
type SnapshotRow struct {
	ID               int64      // max(row_number) + 1 - row_number
	DtReport         string     // YYYY-MM-DD
	AccountID        string
	ServerID         string
	Instrument       string
	Currency         string
	Trailing7dVolume float64    // trailing window volume, (account, server, instrument)
	AllTimeVolume    float64    // cumulative volume up to the report date
	VolumeRank7d     int        // dense rank of (account, instrument) trailing volume, 0 if unranked
	TradeCountRank7d int        // dense rank of account trailing trade count, 0 if unranked
	FixedMonthVolume float64    // volume inside the configured month, up to the report date
	FirstTradeTime   *time.Time // earliest close time, nil if none visible
	RowNumber        int64      // position in (date, account, server, instrument) order
}

// Columns lists output column names in contract order.
var Columns = []string{
	"id",
	"dt_report",
	"account_id",
	"server_id",
	"instrument",
	"currency",
	"trailing_7d_volume",
	"all_time_volume",
	"volume_rank_7d",
	"trade_count_rank_7d",
	"fixed_month_volume",
	"first_trade_time",
	"row_number",
}
