// Package sheet normalizes spreadsheet input into tab-delimited text and
// exports ID-value records back to a workbook. Only the first three columns
// of a source are ever read.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fexcel/internal/types"

	"github.com/xuri/excelize/v2"
)

// ErrColumnCount means the source sheet has fewer than the three required
// columns. Reported before any row is emitted.
var ErrColumnCount = errors.New("spreadsheet needs at least 3 columns (id, source text, target text)")

// ErrNoData means the first sheet holds no rows at all.
var ErrNoData = errors.New("spreadsheet has no rows")

const (
	requiredColumns = 3
	exportSheetName = "ID Values"
)

type Config struct {
	// LargeFileBytes selects the large-file path, which enforces RowCap.
	LargeFileBytes int64
	// RowCap is the maximum row count on the large-file path. Sources over
	// the cap keep the LAST RowCap rows, not the first, and the result is
	// flagged truncated. Surprising but deliberate; do not flip to
	// keep-head without a product decision.
	RowCap int
	// ChunkRows bounds one progress-reporting unit of row normalization.
	ChunkRows int
	// ProbeRows is how many leading rows are inspected for the column check.
	ProbeRows int
	// ChunkPause is slept between chunks, mirroring the batch converter's
	// cooperative yield.
	ChunkPause time.Duration
}

func DefaultConfig() Config {
	return Config{
		LargeFileBytes: 50 * 1024 * 1024,
		RowCap:         100000,
		ChunkRows:      5000,
		ProbeRows:      1000,
		ChunkPause:     10 * time.Millisecond,
	}
}

// Reader streams a workbook's first three columns into normalized
// tab-delimited lines.
type Reader struct {
	cfg Config
}

func NewReader(cfg Config) *Reader {
	if cfg.ChunkRows <= 0 {
		cfg.ChunkRows = DefaultConfig().ChunkRows
	}
	if cfg.ProbeRows <= 0 {
		cfg.ProbeRows = DefaultConfig().ProbeRows
	}
	return &Reader{cfg: cfg}
}

// Load reads the first sheet of the workbook at path. Every retained row
// contributes exactly one line of exactly three tab-separated fields; empty
// cells become empty fields, never omitted ones.
func (r *Reader) Load(path string, onProgress types.ProgressFunc) (*types.SheetText, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading spreadsheet: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading spreadsheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if maxWidth(rows, r.cfg.ProbeRows) < requiredColumns {
		return nil, ErrColumnCount
	}

	truncated := false
	if info.Size() > r.cfg.LargeFileBytes && len(rows) > r.cfg.RowCap {
		// Keep the tail, not the head.
		rows = rows[len(rows)-r.cfg.RowCap:]
		truncated = true
	}

	total := len(rows)
	var b strings.Builder
	for i := 0; i < total; i += r.cfg.ChunkRows {
		end := min(i+r.cfg.ChunkRows, total)
		for _, row := range rows[i:end] {
			writeLine(&b, row)
		}

		percent := min(100, float64(end)/float64(total)*100)
		if onProgress != nil {
			onProgress(percent, fmt.Sprintf("reading rows %d-%d/%d", i+1, end, total))
		}
		if end < total {
			time.Sleep(r.cfg.ChunkPause)
		}
	}

	return &types.SheetText{
		Text:      strings.TrimSuffix(b.String(), "\n"),
		Rows:      total,
		Truncated: truncated,
	}, nil
}

// maxWidth returns the widest row among the first probe rows. GetRows trims
// trailing empty cells per row, so a single short row is not proof of a
// missing column.
func maxWidth(rows [][]string, probe int) int {
	widest := 0
	for i, row := range rows {
		if i >= probe {
			break
		}
		if len(row) > widest {
			widest = len(row)
		}
	}
	return widest
}

func writeLine(b *strings.Builder, row []string) {
	for col := 0; col < requiredColumns; col++ {
		if col > 0 {
			b.WriteByte('\t')
		}
		if col < len(row) {
			b.WriteString(row[col])
		}
	}
	b.WriteByte('\n')
}

// WriteIDValueWorkbook writes records as a two-column ID/Value sheet. The
// stream writer keeps memory flat for large record sets.
func WriteIDValueWorkbook(path string, records []types.Record, onProgress types.ProgressFunc) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheetName)
	if err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := sw.SetRow("A1", []interface{}{"ID", "Value"}); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	total := len(records)
	chunk := DefaultConfig().ChunkRows
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		if err := sw.SetRow(cell, []interface{}{rec.ID, rec.Value}); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		if onProgress != nil && (i+1)%chunk == 0 {
			onProgress(min(100, float64(i+1)/float64(total)*100), fmt.Sprintf("exporting rows %d/%d", i+1, total))
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	if onProgress != nil {
		onProgress(100, fmt.Sprintf("exported %d records", total))
	}
	return nil
}
