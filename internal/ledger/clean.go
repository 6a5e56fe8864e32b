package ledger

import (
	"sort"

	"trade-snapshot-lab/internal/domain"
)

// Join turns raw accounts and trades into TradeRecords the same way the
// Postgres loader does: only enabled accounts, one account row per
// (login, server), closed trades whose close time is after the open time.
// Output is ordered by close time, then ticket.
func Join(accounts []*domain.Account, trades []*domain.Trade) []domain.TradeRecord {
	enabled := make(map[domain.AccountKey]*domain.Account, len(accounts))
	for _, a := range accounts {
		if a == nil || !a.Enable {
			continue
		}
		if _, seen := enabled[a.Key()]; seen {
			continue
		}
		enabled[a.Key()] = a
	}

	records := make([]domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t == nil || t.CloseTime == nil {
			continue
		}
		if !t.OpenTime.Before(*t.CloseTime) {
			continue
		}
		acc, ok := enabled[t.AccountKey()]
		if !ok {
			continue
		}
		records = append(records, domain.TradeRecord{
			TicketID:   t.TicketHash,
			AccountID:  t.LoginHash,
			ServerID:   t.ServerHash,
			Instrument: t.Symbol,
			Volume:     t.Volume,
			OpenTime:   t.OpenTime.UTC(),
			CloseTime:  t.CloseTime.UTC(),
			Currency:   acc.Currency,
		})
	}

	SortByClose(records)
	return records
}

// SortByClose orders records by close time, then ticket id.
func SortByClose(records []domain.TradeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CloseTime.Equal(records[j].CloseTime) {
			return records[i].CloseTime.Before(records[j].CloseTime)
		}
		return records[i].TicketID < records[j].TicketID
	})
}
