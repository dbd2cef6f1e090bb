package types

// ProgressFunc receives percent in [0,100] and a short status message.
// Within one run percent never decreases and a successful run ends at 100.
type ProgressFunc func(percent float64, message string)

// Record is one converted unit of data. The ID-value format fills ID and
// Value; the translation-triple format fills ID, Source, Target and Output,
// where Output is the "id=target" line written to text exports.
type Record struct {
	ID     string
	Value  string
	Source string
	Target string
	Output string
}

// Line returns the text-export form of the record.
func (r Record) Line() string {
	if r.Output != "" {
		return r.Output
	}
	return r.ID + "=" + r.Value
}

// SheetText is the normalized output of a spreadsheet load: the first three
// columns of every retained row as tab-delimited lines.
type SheetText struct {
	Text      string
	Rows      int
	Truncated bool
}

type ConversionResult struct {
	InputFile  string
	OutputFile string
	Records    int
	Truncated  bool
}
