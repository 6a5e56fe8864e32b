// Package ranking assigns dense ranks over windowed aggregates.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/window"
)

// Dense ranks values in descending order. Equal values share a rank and
// the next distinct value gets the following integer, so ranks run 1..K
// for K distinct values. Order among tied keys is not defined.
func Dense[K comparable, V any](values map[K]V, cmp func(a, b V) int) map[K]int {
	type entry struct {
		key K
		val V
	}
	entries := make([]entry, 0, len(values))
	for k, v := range values {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return cmp(entries[i].val, entries[j].val) > 0
	})

	ranks := make(map[K]int, len(entries))
	rank := 0
	for i, e := range entries {
		if i == 0 || cmp(entries[i-1].val, e.val) != 0 {
			rank++
		}
		ranks[e.key] = rank
	}
	return ranks
}

// Ranks maps a cell to its dense rank on that cell's date.
type Ranks map[window.Cell]domain.Rank

// VolumeRanks ranks (account, instrument) entries by trailing volume,
// independently for every date. Entries with no volume are not ranked.
func VolumeRanks(series window.VolumeSeries) Ranks {
	byDate := make(map[calendar.Date]map[domain.PositionKey]decimal.Decimal)
	for cell, v := range series {
		if !v.IsPositive() {
			continue
		}
		m, ok := byDate[cell.Date]
		if !ok {
			m = make(map[domain.PositionKey]decimal.Decimal)
			byDate[cell.Date] = m
		}
		m[cell.Key] = v
	}

	out := make(Ranks, len(series))
	for d, values := range byDate {
		for k, r := range Dense(values, func(a, b decimal.Decimal) int { return a.Cmp(b) }) {
			out[window.Cell{Date: d, Key: k}] = domain.RankOf(r)
		}
	}
	return out
}

// TradeCountRanks ranks accounts by trailing trade count, independently
// for every date. Accounts with no trades are not ranked.
func TradeCountRanks(series window.CountSeries) Ranks {
	byDate := make(map[calendar.Date]map[domain.PositionKey]int)
	for cell, n := range series {
		if n <= 0 {
			continue
		}
		m, ok := byDate[cell.Date]
		if !ok {
			m = make(map[domain.PositionKey]int)
			byDate[cell.Date] = m
		}
		m[cell.Key] = n
	}

	out := make(Ranks, len(series))
	for d, values := range byDate {
		for k, r := range Dense(values, compareInt) {
			out[window.Cell{Date: d, Key: k}] = domain.RankOf(r)
		}
	}
	return out
}

func compareInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
