package reporting

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"trade-snapshot-lab/internal/domain"
)

// TimestampLayout formats first_trade_time in flat files.
const TimestampLayout = "2006-01-02 15:04:05"

// record renders one row as strings in output column order.
func record(r domain.SnapshotRow) []string {
	first := ""
	if r.FirstTradeTime != nil {
		first = r.FirstTradeTime.UTC().Format(TimestampLayout)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.DtReport,
		r.AccountID,
		r.ServerID,
		r.Instrument,
		r.Currency,
		formatVolume(r.Trailing7dVolume),
		formatVolume(r.AllTimeVolume),
		strconv.Itoa(r.VolumeRank7d),
		strconv.Itoa(r.TradeCountRank7d),
		formatVolume(r.FixedMonthVolume),
		first,
		strconv.FormatInt(r.RowNumber, 10),
	}
}

// formatVolume prints the shortest representation that round-trips.
func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderCSV renders snapshot rows as CSV with a header line. Rows are
// written in the order given.
func RenderCSV(rows []domain.SnapshotRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(domain.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(record(r)); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", r.RowNumber, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseTimestamp parses a first_trade_time cell. Empty cells return nil.
func ParseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseCSV reads a file written by RenderCSV back into rows, in file
// order. The header must match the output columns exactly.
func ParseCSV(r io.Reader) ([]domain.SnapshotRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.Columns)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read csv header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !slices.Equal(header, domain.Columns) {
		return nil, fmt.Errorf("unexpected csv header %v", header)
	}

	var rows []domain.SnapshotRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("parse csv line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRecord is the inverse of record.
func parseRecord(rec []string) (domain.SnapshotRow, error) {
	var r domain.SnapshotRow
	var err error

	ints := []struct {
		field string
		value string
		dst   *int64
	}{
		{"id", rec[0], &r.ID},
		{"row_number", rec[12], &r.RowNumber},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.ParseInt(f.value, 10, 64); err != nil {
			return r, fmt.Errorf("%s: %w", f.field, err)
		}
	}

	floats := []struct {
		field string
		value string
		dst   *float64
	}{
		{"trailing_7d_volume", rec[6], &r.Trailing7dVolume},
		{"all_time_volume", rec[7], &r.AllTimeVolume},
		{"fixed_month_volume", rec[10], &r.FixedMonthVolume},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(f.value, 64); err != nil {
			return r, fmt.Errorf("%s: %w", f.field, err)
		}
	}

	if r.VolumeRank7d, err = strconv.Atoi(rec[8]); err != nil {
		return r, fmt.Errorf("volume_rank_7d: %w", err)
	}
	if r.TradeCountRank7d, err = strconv.Atoi(rec[9]); err != nil {
		return r, fmt.Errorf("trade_count_rank_7d: %w", err)
	}
	if r.FirstTradeTime, err = ParseTimestamp(rec[11]); err != nil {
		return r, fmt.Errorf("first_trade_time: %w", err)
	}

	r.DtReport = rec[1]
	r.AccountID = rec[2]
	r.ServerID = rec[3]
	r.Instrument = rec[4]
	r.Currency = rec[5]
	return r, nil
}
