package parser

import (
	"regexp"
	"strings"

	"fexcel/internal/types"
)

// Format selects a line-format parsing strategy.
type Format int

const (
	// IDValue handles "410325=提升{0}" style lines anywhere in the text.
	IDValue Format = iota
	// TranslationTriple handles tab-delimited "id<TAB>source<TAB>target" lines.
	TranslationTriple
)

func (f Format) String() string {
	switch f {
	case IDValue:
		return "id-value"
	case TranslationTriple:
		return "translation-triple"
	}
	return "unknown"
}

// ExampleMarker prefixes the example-block header lines that upstream tools
// embed in pasted input. Such lines are never parsed as data.
const ExampleMarker = "示例格式"

// Parser converts raw text into records. Partial garbage is tolerated:
// non-matching lines are skipped, never reported as errors.
type Parser interface {
	Validate(text string) bool
	Parse(text string) []types.Record
	// ParseLines converts one batch of pre-filtered lines without
	// revalidating the whole input. The batch converter calls this per
	// chunk so accumulation stays incremental.
	ParseLines(lines []string) []types.Record
	Kind() Format
}

// New returns the parser for the given format.
func New(f Format) Parser {
	switch f {
	case TranslationTriple:
		return &TranslationTripleParser{}
	default:
		return &IDValueParser{}
	}
}

// FilterLines trims and drops blank and example-marker lines. This is the
// line view shared by parsers and the batch converter, so chunk accounting
// and parsing agree on what a "line" is.
func FilterLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ExampleMarker) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// idValuePattern matches a digit run, '=', then a maximal run of
// non-whitespace characters. "12=" does not match: the value needs at least
// one character.
var idValuePattern = regexp.MustCompile(`(\d+)=([^\s]+)`)

// IDValueParser extracts id=value pairs with a single pattern scan over the
// whole text rather than per-line splitting. Matches are emitted in source
// order and duplicates are kept.
type IDValueParser struct{}

func (p *IDValueParser) Kind() Format { return IDValue }

func (p *IDValueParser) Validate(text string) bool {
	lines := FilterLines(text)
	if len(lines) == 0 {
		return false
	}
	return idValuePattern.MatchString(strings.Join(lines, "\n"))
}

func (p *IDValueParser) Parse(text string) []types.Record {
	if !p.Validate(text) {
		return nil
	}
	return p.ParseLines(FilterLines(text))
}

func (p *IDValueParser) ParseLines(lines []string) []types.Record {
	matches := idValuePattern.FindAllStringSubmatch(strings.Join(lines, "\n"), -1)
	records := make([]types.Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, types.Record{
			ID:    m[1],
			Value: strings.TrimSpace(m[2]),
		})
	}
	return records
}

// TranslationTripleParser reads tab-delimited id/source/target lines and
// produces records whose Output field is the "id=target" export line.
type TranslationTripleParser struct{}

const tripleColumns = 3

func (p *TranslationTripleParser) Kind() Format { return TranslationTriple }

func (p *TranslationTripleParser) Validate(text string) bool {
	for _, line := range FilterLines(text) {
		if _, ok := parseTriple(line); ok {
			return true
		}
	}
	return false
}

func (p *TranslationTripleParser) Parse(text string) []types.Record {
	if !p.Validate(text) {
		return nil
	}
	return p.ParseLines(FilterLines(text))
}

func (p *TranslationTripleParser) ParseLines(lines []string) []types.Record {
	var records []types.Record
	for _, line := range lines {
		if rec, ok := parseTriple(line); ok {
			records = append(records, rec)
		}
	}
	return records
}

// parseTriple splits strictly on single tab characters. Lines with fewer
// than three fields, or a non-digit id, are skipped; fields beyond the third
// are ignored. Blank source or target cells normalize to "".
func parseTriple(line string) (types.Record, bool) {
	if !strings.Contains(line, "\t") {
		return types.Record{}, false
	}
	parts := strings.Split(line, "\t")
	if len(parts) < tripleColumns {
		return types.Record{}, false
	}
	id := strings.TrimSpace(parts[0])
	if !isDigits(id) {
		return types.Record{}, false
	}
	source := strings.TrimSpace(parts[1])
	target := strings.TrimSpace(parts[2])
	return types.Record{
		ID:     id,
		Source: source,
		Target: target,
		Output: id + "=" + target,
	}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
