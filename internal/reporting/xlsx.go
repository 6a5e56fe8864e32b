package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"trade-snapshot-lab/internal/domain"
)

// SheetName is the worksheet holding the fact table.
const SheetName = "snapshot"

// RenderXLSX writes snapshot rows to a single-sheet workbook.
// Numeric columns are stored as numbers, first_trade_time as text.
func RenderXLSX(w io.Writer, rows []domain.SnapshotRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(domain.Columns))
	for i, c := range domain.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		first := ""
		if r.FirstTradeTime != nil {
			first = r.FirstTradeTime.UTC().Format(TimestampLayout)
		}
		values := []interface{}{
			r.ID,
			r.DtReport,
			r.AccountID,
			r.ServerID,
			r.Instrument,
			r.Currency,
			r.Trailing7dVolume,
			r.AllTimeVolume,
			r.VolumeRank7d,
			r.TradeCountRank7d,
			r.FixedMonthVolume,
			first,
			r.RowNumber,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r.RowNumber, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
