// Package writer serializes record lists to line-oriented text files with a
// fixed line-ending contract: one LF per record, never CRLF, on every
// platform.
package writer

import (
	"bufio"
	"fmt"
	"os"

	"fexcel/internal/types"
)

type Config struct {
	// BatchSize is the record count above which writes are batched with
	// per-batch progress reporting.
	BatchSize int
}

func DefaultConfig() Config {
	return Config{BatchSize: 10000}
}

type Writer struct {
	cfg Config
}

func New(cfg Config) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Writer{cfg: cfg}
}

// Write serializes records to path, one line each, and returns the number of
// lines written. Output bytes are identical across platforms: UTF-8 content
// untouched, exactly one '\n' per record, no '\r' ever.
func (w *Writer) Write(path string, records []types.Record, onProgress types.ProgressFunc) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("writing output: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	total := len(records)

	if total > w.cfg.BatchSize {
		for i := 0; i < total; i += w.cfg.BatchSize {
			end := min(i+w.cfg.BatchSize, total)
			if err := writeBatch(buf, records[i:end]); err != nil {
				return i, err
			}
			if onProgress != nil {
				percent := min(100, float64(end)/float64(total)*100)
				onProgress(percent, fmt.Sprintf("writing lines %d-%d/%d", i+1, end, total))
			}
		}
	} else {
		if err := writeBatch(buf, records); err != nil {
			return 0, err
		}
	}

	if err := buf.Flush(); err != nil {
		return 0, fmt.Errorf("writing output: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("writing output: %w", err)
	}
	return total, nil
}

func writeBatch(buf *bufio.Writer, records []types.Record) error {
	for _, rec := range records {
		if _, err := buf.WriteString(rec.Line()); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if err := buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}
