package snapshot

import (
	"sort"

	"trade-snapshot-lab/internal/domain"
)

// Format converts assembled rows into output rows: dates become
// YYYY-MM-DD, absent ranks become 0, id = max(row_number) + 1 - row_number,
// and rows are emitted in descending row_number order.
func Format(rows []Row) []domain.SnapshotRow {
	var maxRow int64
	for _, r := range rows {
		if r.RowNumber > maxRow {
			maxRow = r.RowNumber
		}
	}

	out := make([]domain.SnapshotRow, 0, len(rows))
	for _, r := range rows {
		var first = r.FirstTradeTime
		if first != nil {
			t := first.UTC()
			first = &t
		}
		out = append(out, domain.SnapshotRow{
			ID:               maxRow + 1 - r.RowNumber,
			DtReport:         r.Date.String(),
			AccountID:        r.Key.AccountID,
			ServerID:         r.Key.ServerID,
			Instrument:       r.Key.Instrument,
			Currency:         r.Currency,
			Trailing7dVolume: r.TrailingVolume.InexactFloat64(),
			AllTimeVolume:    r.AllTimeVolume.InexactFloat64(),
			VolumeRank7d:     r.VolumeRank.OrZero(),
			TradeCountRank7d: r.TradeCountRank.OrZero(),
			FixedMonthVolume: r.FixedMonthVolume.InexactFloat64(),
			FirstTradeTime:   first,
			RowNumber:        r.RowNumber,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].RowNumber > out[j].RowNumber
	})

	return out
}
