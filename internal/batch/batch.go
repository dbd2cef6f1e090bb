// Package batch drives a format parser over arbitrarily large line sets in
// fixed-size chunks, reporting progress between chunks and honoring
// cooperative cancellation.
package batch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fexcel/internal/parser"
	"fexcel/internal/types"
)

// ErrBusy is returned by RunAsync while a previous run is still active.
// Runs are rejected, never queued.
var ErrBusy = errors.New("a conversion is already in progress")

// ErrNoData means the input matched nothing the active parser recognizes.
var ErrNoData = errors.New("no valid data found in input")

type Config struct {
	// ChunkSize is the number of lines processed per progress step.
	ChunkSize int
	// ChunkPause is slept between chunks so the owning UI loop stays
	// responsive. This is a scheduling requirement, not a tuning knob.
	ChunkPause time.Duration
	// AsyncThreshold is the line count above which callers should prefer
	// RunAsync over RunSync.
	AsyncThreshold int
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:      1000,
		ChunkPause:     10 * time.Millisecond,
		AsyncThreshold: 10000,
	}
}

// Converter executes one parser over chunked input. At most one asynchronous
// run may be active per Converter; the run's accumulator is owned by its
// worker goroutine alone, so the mutex only guards the running/cancelled
// flags.
type Converter struct {
	parser parser.Parser
	cfg    Config

	mu        sync.Mutex
	running   bool
	cancelled bool
}

func New(p parser.Parser, cfg Config) *Converter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	return &Converter{parser: p, cfg: cfg}
}

// ShouldRunAsync reports whether the input is large enough that the caller
// should prefer the background path.
func (c *Converter) ShouldRunAsync(text string) bool {
	return len(parser.FilterLines(text)) > c.cfg.AsyncThreshold
}

// RunSync converts the whole input in one pass. Invalid input yields an
// empty result, not an error. Progress is coarse: start, then completion.
func (c *Converter) RunSync(text string, onProgress types.ProgressFunc) []types.Record {
	if !c.parser.Validate(text) {
		return nil
	}
	report(onProgress, 0, "converting...")
	records := c.parser.Parse(text)
	report(onProgress, 100, fmt.Sprintf("converted %d records", len(records)))
	return records
}

// RunAsync starts a single background worker over the input. Exactly one of
// onComplete and onError fires on a terminal outcome; neither fires after
// Cancel. Returns ErrBusy if a run is already active.
func (c *Converter) RunAsync(text string, onProgress types.ProgressFunc, onComplete func([]types.Record), onError func(error)) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrBusy
	}
	c.running = true
	c.cancelled = false
	c.mu.Unlock()

	go c.convert(text, onProgress, onComplete, onError)
	return nil
}

func (c *Converter) convert(text string, onProgress types.ProgressFunc, onComplete func([]types.Record), onError func(error)) {
	defer func() {
		if r := recover(); r != nil {
			c.finish()
			if onError != nil {
				onError(fmt.Errorf("conversion failed: %v", r))
			}
		}
	}()

	lines := parser.FilterLines(text)
	total := len(lines)
	if total == 0 || !c.parser.Validate(text) {
		c.finish()
		if onError != nil {
			onError(ErrNoData)
		}
		return
	}

	var records []types.Record
	for i := 0; i < total; i += c.cfg.ChunkSize {
		if c.Cancelled() {
			break
		}
		end := min(i+c.cfg.ChunkSize, total)
		records = append(records, c.parser.ParseLines(lines[i:end])...)

		percent := min(100, float64(end)/float64(total)*100)
		report(onProgress, percent, fmt.Sprintf("processing lines %d-%d/%d", i+1, end, total))

		// Yield between chunks; this bounds cancellation latency to one
		// chunk and keeps the UI loop responsive.
		time.Sleep(c.cfg.ChunkPause)
	}

	cancelled := c.Cancelled()
	c.finish()
	if cancelled {
		return
	}
	if onComplete != nil {
		onComplete(records)
	}
}

// Cancel requests a cooperative stop. It is idempotent and never interrupts
// a chunk already in progress; records appended before the flag is observed
// are kept.
func (c *Converter) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.cancelled = true
	}
}

func (c *Converter) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Converter) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *Converter) finish() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func report(onProgress types.ProgressFunc, percent float64, message string) {
	if onProgress != nil {
		onProgress(percent, message)
	}
}
