// Package verification checks that snapshot runs are reproducible and
// that persisted snapshots match a fresh computation.
package verification

import (
	"context"
	"fmt"
	"math"
	"sort"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/idhash"
	"trade-snapshot-lab/internal/reporting"
	"trade-snapshot-lab/internal/snapshot"
	"trade-snapshot-lab/internal/storage"
)

// FloatTolerance is the tolerance for volume comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between expected and actual values.
type FieldDivergence struct {
	Field    string      // column name
	Expected interface{} // reference value
	Actual   interface{} // compared value
}

// RowResult contains the comparison of one (date, position) row.
type RowResult struct {
	Key         string // dt_report/account/server/instrument
	Match       bool
	Divergences []FieldDivergence
}

// Report contains results for a full snapshot comparison.
type Report struct {
	TotalRows      int
	MatchedRows    int
	DivergentRows  int
	MissingRows    int // present in expected only
	ExtraRows      int // present in actual only
	ExpectedDigest string
	ActualDigest   string
	Results        []RowResult // divergent, missing and extra rows only
}

// OK reports whether both sides are identical.
func (r *Report) OK() bool {
	return r.DivergentRows == 0 && r.MissingRows == 0 && r.ExtraRows == 0 &&
		r.ExpectedDigest == r.ActualDigest
}

// CompareSnapshotRows compares two rows and returns divergences.
// Uses FloatTolerance for volumes.
func CompareSnapshotRows(expected, actual *domain.SnapshotRow) []FieldDivergence {
	var d []FieldDivergence
	add := func(field string, e, a interface{}) {
		d = append(d, FieldDivergence{Field: field, Expected: e, Actual: a})
	}

	if expected.ID != actual.ID {
		add("id", expected.ID, actual.ID)
	}
	if expected.DtReport != actual.DtReport {
		add("dt_report", expected.DtReport, actual.DtReport)
	}
	if expected.AccountID != actual.AccountID {
		add("account_id", expected.AccountID, actual.AccountID)
	}
	if expected.ServerID != actual.ServerID {
		add("server_id", expected.ServerID, actual.ServerID)
	}
	if expected.Instrument != actual.Instrument {
		add("instrument", expected.Instrument, actual.Instrument)
	}
	if expected.Currency != actual.Currency {
		add("currency", expected.Currency, actual.Currency)
	}
	if !floatEquals(expected.Trailing7dVolume, actual.Trailing7dVolume) {
		add("trailing_7d_volume", expected.Trailing7dVolume, actual.Trailing7dVolume)
	}
	if !floatEquals(expected.AllTimeVolume, actual.AllTimeVolume) {
		add("all_time_volume", expected.AllTimeVolume, actual.AllTimeVolume)
	}
	if expected.VolumeRank7d != actual.VolumeRank7d {
		add("volume_rank_7d", expected.VolumeRank7d, actual.VolumeRank7d)
	}
	if expected.TradeCountRank7d != actual.TradeCountRank7d {
		add("trade_count_rank_7d", expected.TradeCountRank7d, actual.TradeCountRank7d)
	}
	if !floatEquals(expected.FixedMonthVolume, actual.FixedMonthVolume) {
		add("fixed_month_volume", expected.FixedMonthVolume, actual.FixedMonthVolume)
	}
	if !timePtrEquals(expected, actual) {
		add("first_trade_time", expected.FirstTradeTime, actual.FirstTradeTime)
	}
	if expected.RowNumber != actual.RowNumber {
		add("row_number", expected.RowNumber, actual.RowNumber)
	}

	return d
}

// CompareSnapshots matches rows on (dt_report, position) and compares
// every column. Digests are taken over the rendered CSV of each side.
func CompareSnapshots(expected, actual []domain.SnapshotRow) (*Report, error) {
	expDigest, err := digest(expected)
	if err != nil {
		return nil, err
	}
	actDigest, err := digest(actual)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TotalRows:      len(expected),
		ExpectedDigest: expDigest,
		ActualDigest:   actDigest,
	}

	byKey := make(map[string]*domain.SnapshotRow, len(actual))
	for i := range actual {
		byKey[rowKey(&actual[i])] = &actual[i]
	}

	for i := range expected {
		e := &expected[i]
		k := rowKey(e)
		a, ok := byKey[k]
		if !ok {
			report.MissingRows++
			report.Results = append(report.Results, RowResult{Key: k})
			continue
		}
		delete(byKey, k)

		div := CompareSnapshotRows(e, a)
		if len(div) == 0 {
			report.MatchedRows++
			continue
		}
		report.DivergentRows++
		report.Results = append(report.Results, RowResult{Key: k, Divergences: div})
	}

	extra := make([]string, 0, len(byKey))
	for k := range byKey {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		report.ExtraRows++
		report.Results = append(report.Results, RowResult{Key: k})
	}

	return report, nil
}

// DeterminismVerifier recomputes a snapshot and compares the outputs.
type DeterminismVerifier struct {
	engine *snapshot.Engine
}

// NewDeterminismVerifier creates a verifier for engine.
func NewDeterminismVerifier(engine *snapshot.Engine) *DeterminismVerifier {
	return &DeterminismVerifier{engine: engine}
}

// Verify runs the engine on records and on a reversed copy of records.
// Both runs must produce identical output.
func (v *DeterminismVerifier) Verify(ctx context.Context, records []domain.TradeRecord) (*Report, error) {
	first, err := v.engine.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("first run: %w", err)
	}

	reversed := make([]domain.TradeRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	second, err := v.engine.Run(ctx, reversed)
	if err != nil {
		return nil, fmt.Errorf("second run: %w", err)
	}

	return CompareSnapshots(first, second)
}

// VerifyStore compares expected rows with what store returns for the same
// report dates.
func VerifyStore(ctx context.Context, store storage.SnapshotStore, expected []domain.SnapshotRow) (*Report, error) {
	var dates []string
	seen := make(map[string]struct{})
	for _, r := range expected {
		if _, ok := seen[r.DtReport]; ok {
			continue
		}
		seen[r.DtReport] = struct{}{}
		dates = append(dates, r.DtReport)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var stored []domain.SnapshotRow
	for _, d := range dates {
		rows, err := store.GetByDate(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d, err)
		}
		stored = append(stored, rows...)
	}

	return CompareSnapshots(expected, stored)
}

func digest(rows []domain.SnapshotRow) (string, error) {
	data, err := reporting.RenderCSV(rows)
	if err != nil {
		return "", err
	}
	return idhash.ComputeDigest(data), nil
}

func rowKey(r *domain.SnapshotRow) string {
	return r.DtReport + "/" + r.AccountID + "/" + r.ServerID + "/" + r.Instrument
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

func timePtrEquals(a, b *domain.SnapshotRow) bool {
	if a.FirstTradeTime == nil || b.FirstTradeTime == nil {
		return a.FirstTradeTime == nil && b.FirstTradeTime == nil
	}
	return a.FirstTradeTime.Equal(*b.FirstTradeTime)
}
