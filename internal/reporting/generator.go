package reporting

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade-snapshot-lab/internal/domain"
)

// File names written to the output directory.
const (
	SummaryFile  = "SNAPSHOT_SUMMARY.md"
	SnapshotBase = "trading_activity_snapshot"
)

// Format is a flat-file encoding of the fact table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Generator writes run summaries to an output directory.
type Generator struct {
	dir string
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a generator writing into dir.
func NewGenerator(dir string) *Generator {
	return &Generator{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Now returns the generator clock reading.
func (g *Generator) Now() time.Time {
	return g.now()
}

// WriteSummary renders s and writes it as SNAPSHOT_SUMMARY.md.
// Returns the written path.
func (g *Generator) WriteSummary(s *Summary) (string, error) {
	path := filepath.Join(g.dir, SummaryFile)
	if err := writeFile(path, []byte(RenderMarkdown(s))); err != nil {
		return "", err
	}
	return path, nil
}

// FileSink writes the fact table to a single file in the output directory.
// Each write replaces the previous file.
type FileSink struct {
	dir    string
	format Format
}

// NewFileSink creates a sink writing dir/trading_activity_snapshot.<format>.
func NewFileSink(dir string, format Format) *FileSink {
	return &FileSink{dir: dir, format: format}
}

// Path returns the file the sink writes.
func (s *FileSink) Path() string {
	return filepath.Join(s.dir, SnapshotBase+"."+string(s.format))
}

// WriteSnapshot implements storage.SnapshotSink.
func (s *FileSink) WriteSnapshot(ctx context.Context, runID string, rows []domain.SnapshotRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var data []byte
	switch s.format {
	case FormatCSV:
		b, err := RenderCSV(rows)
		if err != nil {
			return err
		}
		data = b
	case FormatXLSX:
		var buf bytes.Buffer
		if err := RenderXLSX(&buf, rows); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unknown output format %q", s.format)
	}

	if err := writeFile(s.Path(), data); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}

// writeFile writes data through a temp file and renames it into place.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
