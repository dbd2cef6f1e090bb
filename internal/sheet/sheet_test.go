package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"fexcel/internal/types"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "in.xlsx")
	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			t.Fatalf("setting row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunkRows = 10
	cfg.ChunkPause = 0
	return cfg
}

func TestLoadNormalizesRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"999470001", "反馈问题", "피드백"},
		{"999470002", "画质:", "해상도:"},
		{"999470003", "", "로그 업로드:"},
		{"999470004", "确认"}, // missing target cell
	})

	st, err := NewReader(testConfig()).Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if st.Truncated {
		t.Error("small file flagged truncated")
	}
	if st.Rows != 4 {
		t.Errorf("Rows = %d; want 4", st.Rows)
	}

	lines := strings.Split(st.Text, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines; want 4: %q", len(lines), st.Text)
	}
	for i, line := range lines {
		if got := strings.Count(line, "\t"); got != 2 {
			t.Errorf("line %d has %d tabs; want 2: %q", i, got, line)
		}
	}
	if lines[0] != "999470001\t反馈问题\t피드백" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[2] != "999470003\t\t로그 업로드:" {
		t.Errorf("empty cell not preserved as empty field: %q", lines[2])
	}
	if lines[3] != "999470004\t确认\t" {
		t.Errorf("short row not padded: %q", lines[3])
	}
}

func TestLoadColumnCountFailure(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"1", "only two columns"},
		{"2", "still two"},
	})

	_, err := NewReader(testConfig()).Load(path, nil)
	if !errors.Is(err, ErrColumnCount) {
		t.Errorf("Load = %v; want ErrColumnCount", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewReader(testConfig()).Load(filepath.Join(t.TempDir(), "nope.xlsx"), nil)
	if err == nil {
		t.Error("Load on a missing file returned nil error")
	}
}

func TestLoadKeepsTailWhenOverCap(t *testing.T) {
	var rows [][]interface{}
	for i := 1; i <= 150; i++ {
		rows = append(rows, []interface{}{fmt.Sprint(i), fmt.Sprintf("源%d", i), fmt.Sprintf("목표%d", i)})
	}
	path := writeWorkbook(t, rows)

	cfg := testConfig()
	cfg.LargeFileBytes = 1 // force the large-file path
	cfg.RowCap = 100

	st, err := NewReader(cfg).Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if !st.Truncated {
		t.Error("Truncated = false; want true")
	}
	if st.Rows != 100 {
		t.Errorf("Rows = %d; want 100", st.Rows)
	}

	lines := strings.Split(st.Text, "\n")
	if len(lines) != 100 {
		t.Fatalf("got %d lines; want 100", len(lines))
	}
	// The tail is kept, not the head.
	if !strings.HasPrefix(lines[0], "51\t") {
		t.Errorf("first retained row = %q; want id 51", lines[0])
	}
	if !strings.HasPrefix(lines[99], "150\t") {
		t.Errorf("last retained row = %q; want id 150", lines[99])
	}
}

func TestLoadUnderCapNotTruncated(t *testing.T) {
	var rows [][]interface{}
	for i := 1; i <= 50; i++ {
		rows = append(rows, []interface{}{fmt.Sprint(i), "a", "b"})
	}
	path := writeWorkbook(t, rows)

	cfg := testConfig()
	cfg.LargeFileBytes = 1
	cfg.RowCap = 100

	st, err := NewReader(cfg).Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if st.Truncated {
		t.Error("Truncated = true under the cap; want false")
	}
	if st.Rows != 50 {
		t.Errorf("Rows = %d; want 50", st.Rows)
	}
}

func TestLoadProgress(t *testing.T) {
	var rows [][]interface{}
	for i := 1; i <= 35; i++ {
		rows = append(rows, []interface{}{fmt.Sprint(i), "a", "b"})
	}
	path := writeWorkbook(t, rows)

	var events []float64
	_, err := NewReader(testConfig()).Load(path, func(percent float64, _ string) {
		events = append(events, percent)
	})
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("got %d progress events; want 4: %v", len(events), events)
	}
	for i := 1; i < len(events); i++ {
		if events[i] < events[i-1] {
			t.Errorf("progress not monotonic: %v", events)
		}
	}
	if events[len(events)-1] != 100 {
		t.Errorf("final progress = %v; want 100", events[len(events)-1])
	}
}

func TestWriteIDValueWorkbook(t *testing.T) {
	records := []types.Record{
		{ID: "410325", Value: "提升{0}"},
		{ID: "410326", Value: "降低{0}"},
		{ID: "410327", Value: "无变化"},
	}
	path := filepath.Join(t.TempDir(), "out.xlsx")

	if err := WriteIDValueWorkbook(path, records, nil); err != nil {
		t.Fatalf("WriteIDValueWorkbook returned %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("reading rows: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("got %d rows; want %d", len(rows), len(records)+1)
	}
	if rows[0][0] != "ID" || rows[0][1] != "Value" {
		t.Errorf("header = %v; want [ID Value]", rows[0])
	}
	for i, rec := range records {
		if rows[i+1][0] != rec.ID || rows[i+1][1] != rec.Value {
			t.Errorf("row %d = %v; want [%s %s]", i+1, rows[i+1], rec.ID, rec.Value)
		}
	}
}
