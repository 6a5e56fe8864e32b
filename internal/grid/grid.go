// Package grid indexes the trade ledger by (account, server, instrument)
// so that any (reporting date, key) cell can be answered without
// materializing the date × key cross product.
package grid

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
)

// series holds one position's trades sorted by close time.
// cum[i] is the volume of the first i trades.
type series struct {
	dates    []calendar.Date
	closes   []time.Time
	cum      []decimal.Decimal
	currency string
}

// Grid is a read-only index over a cleaned ledger. Safe for concurrent reads.
type Grid struct {
	positions map[domain.PositionKey]*series
	keys      []domain.PositionKey
	trades    int
	first     calendar.Date
	last      calendar.Date
}

// New builds a Grid from validated trade records.
func New(records []domain.TradeRecord) *Grid {
	sorted := make([]domain.TradeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CloseTime.Equal(sorted[j].CloseTime) {
			return sorted[i].CloseTime.Before(sorted[j].CloseTime)
		}
		return sorted[i].TicketID < sorted[j].TicketID
	})

	g := &Grid{
		positions: make(map[domain.PositionKey]*series),
		trades:    len(sorted),
	}

	for _, r := range sorted {
		key := r.Position()
		s, ok := g.positions[key]
		if !ok {
			s = &series{
				cum:      []decimal.Decimal{decimal.Zero},
				currency: r.Currency,
			}
			g.positions[key] = s
			g.keys = append(g.keys, key)
		}

		d := calendar.DateOf(r.CloseTime)
		s.dates = append(s.dates, d)
		s.closes = append(s.closes, r.CloseTime.UTC())
		s.cum = append(s.cum, s.cum[len(s.cum)-1].Add(decimal.NewFromFloat(r.Volume)))
	}

	if len(sorted) > 0 {
		g.first = calendar.DateOf(sorted[0].CloseTime)
		g.last = calendar.DateOf(sorted[len(sorted)-1].CloseTime)
	}

	sort.Slice(g.keys, func(i, j int) bool {
		return g.keys[i].Less(g.keys[j])
	})

	return g
}

// Keys returns all position keys ordered by account, server, instrument.
func (g *Grid) Keys() []domain.PositionKey {
	out := make([]domain.PositionKey, len(g.keys))
	copy(out, g.keys)
	return out
}

// Len returns the number of indexed trades.
func (g *Grid) Len() int {
	return g.trades
}

// Span returns the earliest and latest close dates in the ledger.
// ok is false for an empty ledger.
func (g *Grid) Span() (first, last calendar.Date, ok bool) {
	return g.first, g.last, g.trades > 0
}

// Currency returns the account currency of the key.
func (g *Grid) Currency(key domain.PositionKey) (string, bool) {
	s, ok := g.positions[key]
	if !ok {
		return "", false
	}
	return s.currency, true
}

// Visible reports whether the key has at least one trade closed on or before d.
func (g *Grid) Visible(key domain.PositionKey, d calendar.Date) bool {
	s, ok := g.positions[key]
	return ok && s.dates[0] <= d
}

// VisibleKeys returns the keys visible on d, in Keys order.
func (g *Grid) VisibleKeys(d calendar.Date) []domain.PositionKey {
	var out []domain.PositionKey
	for _, k := range g.keys {
		if g.Visible(k, d) {
			out = append(out, k)
		}
	}
	return out
}

// FirstActive returns the first close date of the key.
func (g *Grid) FirstActive(key domain.PositionKey) (calendar.Date, bool) {
	s, ok := g.positions[key]
	if !ok {
		return 0, false
	}
	return s.dates[0], true
}

// FirstClose returns the earliest close time of the key visible on d.
func (g *Grid) FirstClose(key domain.PositionKey, d calendar.Date) (time.Time, bool) {
	s, ok := g.positions[key]
	if !ok || s.dates[0] > d {
		return time.Time{}, false
	}
	return s.closes[0], true
}

// VolumeBetween sums volume of trades with close date in [from, to].
func (g *Grid) VolumeBetween(key domain.PositionKey, from, to calendar.Date) decimal.Decimal {
	s, ok := g.positions[key]
	if !ok || from > to {
		return decimal.Zero
	}
	lo, hi := s.bounds(from, to)
	return s.cum[hi].Sub(s.cum[lo])
}

// CountBetween counts trades with close date in [from, to].
func (g *Grid) CountBetween(key domain.PositionKey, from, to calendar.Date) int {
	s, ok := g.positions[key]
	if !ok || from > to {
		return 0
	}
	lo, hi := s.bounds(from, to)
	return hi - lo
}

// bounds returns the half-open trade index range [lo, hi) whose close
// dates fall in [from, to].
func (s *series) bounds(from, to calendar.Date) (lo, hi int) {
	lo = sort.Search(len(s.dates), func(i int) bool { return s.dates[i] >= from })
	hi = sort.Search(len(s.dates), func(i int) bool { return s.dates[i] > to })
	return lo, hi
}
