package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sadopc/timeledger/internal/engine"
)

var base = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func id(n int64) *int64 { return &n }

func sampleData() ([]engine.TimeEntry, engine.Directory) {
	end := base.Add(time.Hour)
	entries := []engine.TimeEntry{
		{
			ID:          1,
			ProjectID:   id(1),
			TeamID:      id(7),
			UserID:      id(3),
			StartTime:   base,
			EndTime:     &end,
			Description: "worked on feature",
		},
		{
			ID:        2,
			ProjectID: id(2),
			TaskID:    id(10),
			StartTime: base.Add(30 * time.Minute),
			EndTime:   &end,
		},
		{
			ID:        3,
			ProjectID: id(1),
			StartTime: base.Add(50 * time.Minute),
			EndTime:   nil, // still running
		},
	}

	dir := engine.Directory{
		Projects: map[int64]string{1: "Project Alpha", 2: "Project Beta"},
		Teams:    map[int64]string{7: "Platform"},
		Users:    map[int64]string{3: "ana"},
	}
	return entries, dir
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	r := csv.NewReader(buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	return records
}

// ============================================================
// CSV
// ============================================================

func TestEntriesCSV(t *testing.T) {
	entries, dir := sampleData()
	var buf bytes.Buffer

	if err := EntriesCSV(&buf, entries, dir, base.Add(time.Hour)); err != nil {
		t.Fatalf("EntriesCSV: %v", err)
	}
	records := readCSV(t, &buf)

	// header + 3 data rows
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	expectedHeader := []string{"ID", "Project", "Team", "User", "Start", "End", "Duration (s)", "Duration", "Description"}
	for i, h := range expectedHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	row := records[1]
	if row[0] != "1" || row[1] != "Project Alpha" || row[2] != "Platform" || row[3] != "ana" {
		t.Fatalf("unexpected names in %v", row)
	}
	if row[6] != "3600" || row[7] != "01:00:00" {
		t.Fatalf("duration = %q / %q", row[6], row[7])
	}
	if row[8] != "worked on feature" {
		t.Fatalf("Description = %q", row[8])
	}

	// Running entry has no end and is measured up to now.
	running := records[3]
	if running[5] != "" {
		t.Fatalf("running entry should have empty end time, got %q", running[5])
	}
	if running[6] != "600" {
		t.Fatalf("running duration = %q, want 600", running[6])
	}
}

func TestEntriesCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := EntriesCSV(&buf, nil, engine.Directory{}, base); err != nil {
		t.Fatal(err)
	}
	if records := readCSV(t, &buf); len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestEntriesCSVUnknownProject(t *testing.T) {
	end := base.Add(time.Minute)
	entries := []engine.TimeEntry{{ID: 1, ProjectID: id(999), StartTime: base, EndTime: &end}}

	var buf bytes.Buffer
	if err := EntriesCSV(&buf, entries, engine.Directory{}, base); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)
	if records[1][1] != "Unknown" {
		t.Fatalf("expected 'Unknown' for missing project, got %q", records[1][1])
	}
	if records[1][2] != "" {
		t.Fatalf("entry without team should have empty team, got %q", records[1][2])
	}
}

func TestEntriesCSVInvalidRange(t *testing.T) {
	end := base.Add(-time.Minute)
	entries := []engine.TimeEntry{{ID: 1, StartTime: base, EndTime: &end}}
	err := EntriesCSV(&bytes.Buffer{}, entries, engine.Directory{}, base)
	if err == nil {
		t.Fatal("expected invalid range error")
	}
}

func TestEntriesCSVSpecialCharacters(t *testing.T) {
	end := base.Add(time.Minute)
	entries := []engine.TimeEntry{
		{ID: 1, ProjectID: id(1), StartTime: base, EndTime: &end, Description: `notes with "quotes" and, commas`},
	}
	dir := engine.Directory{Projects: map[int64]string{1: `Project "Special"`}}

	var buf bytes.Buffer
	if err := EntriesCSV(&buf, entries, dir, base); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)
	if records[1][1] != `Project "Special"` {
		t.Fatalf("project name mangled: %q", records[1][1])
	}
	if records[1][8] != `notes with "quotes" and, commas` {
		t.Fatalf("description mangled: %q", records[1][8])
	}
}

func TestGroupsCSV(t *testing.T) {
	groups := []engine.AggregateGroup{
		{ID: "1", Label: "Alpha", TotalSeconds: 5400, PercentageOfTotal: 75, Color: "#FF0000", EntryCount: 2},
		{ID: engine.UnassignedID, Label: "Not set", TotalSeconds: 1800, PercentageOfTotal: 25, Color: "#00FF00", EntryCount: 1},
	}
	var buf bytes.Buffer
	if err := GroupsCSV(&buf, groups); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)
	if len(records) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(records))
	}
	want := []string{"1", "Alpha", "2", "5400", "01:30:00", "75.00", "#FF0000"}
	for i, v := range want {
		if records[1][i] != v {
			t.Fatalf("row[%d] = %q, want %q", i, records[1][i], v)
		}
	}
}

func TestComparisonCSV(t *testing.T) {
	pct := 50.0
	cmp := engine.PeriodComparison{
		CurrentTotal:  5400,
		PreviousTotal: 3600,
		DeltaSeconds:  1800,
		PercentChange: &pct,
		Deltas: []engine.BucketDelta{
			{Index: 0, CurrentKey: "2024-01-15", PreviousKey: "2024-01-08", CurrentSeconds: 5400, PreviousSeconds: 3600, DeltaSeconds: 1800},
		},
	}
	var buf bytes.Buffer
	if err := ComparisonCSV(&buf, cmp); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)
	if len(records) != 3 {
		t.Fatalf("expected header, one bucket and totals, got %d rows", len(records))
	}
	if records[1][1] != "2024-01-15" || records[1][5] != "1800" {
		t.Fatalf("unexpected bucket row %v", records[1])
	}
	if records[2][0] != "total" || records[2][2] != "50.00" {
		t.Fatalf("unexpected totals row %v", records[2])
	}

	// No baseline leaves the change blank.
	cmp.PercentChange = nil
	buf.Reset()
	ComparisonCSV(&buf, cmp)
	records = readCSV(t, &buf)
	if records[2][2] != "" {
		t.Fatalf("undefined change should be blank, got %q", records[2][2])
	}
}

func sampleInvoice() InvoiceDocument {
	groups := []engine.AggregateGroup{
		{ID: "1", Label: "Alpha", TotalSeconds: 5400},
		{ID: "2", Label: "Beta", TotalSeconds: 1200},
	}
	rates := map[string]decimal.Decimal{"1": decimal.NewFromInt(3000), "2": decimal.NewFromInt(1000)}
	inv, _ := engine.ComputeInvoice(groups, rates, decimal.RequireFromString("0.10"))
	period := engine.DateRange{Start: base, End: base.AddDate(0, 0, 7)}
	return NewInvoiceDocument(inv, "JPY", engine.DimProject, period, base)
}

func TestInvoiceCSV(t *testing.T) {
	doc := sampleInvoice()
	var buf bytes.Buffer
	if err := InvoiceCSV(&buf, doc); err != nil {
		t.Fatal(err)
	}
	records := readCSV(t, &buf)
	// title, header, 2 lines, subtotal, tax, total
	if len(records) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(records))
	}
	if records[0][1] != doc.Number || records[0][2] != "JPY" {
		t.Fatalf("unexpected title row %v", records[0])
	}
	if records[2][2] != "1.50" || records[2][4] != "4500" {
		t.Fatalf("unexpected first line %v", records[2])
	}
	if records[3][4] != "333" {
		t.Fatalf("second line amount = %q, want 333", records[3][4])
	}
	if records[4][4] != "4833" || records[5][4] != "483" || records[6][4] != "5316" {
		t.Fatalf("unexpected footer %v", records[4:])
	}
}

// ============================================================
// JSON
// ============================================================

func TestEntriesJSON(t *testing.T) {
	entries, dir := sampleData()
	var buf bytes.Buffer

	if err := EntriesJSON(&buf, entries, dir, base.Add(time.Hour)); err != nil {
		t.Fatalf("EntriesJSON: %v", err)
	}

	var result entriesExport
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Count != 3 || len(result.Entries) != 3 {
		t.Fatalf("count = %d entries = %d, want 3", result.Count, len(result.Entries))
	}
	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}

	e := result.Entries[0]
	if e.ID != 1 || e.Project != "Project Alpha" || e.Team != "Platform" || e.User != "ana" {
		t.Fatalf("unexpected first entry %+v", e)
	}
	if e.DurationSec != 3600 || e.Duration != "01:00:00" {
		t.Fatalf("duration = %d / %q", e.DurationSec, e.Duration)
	}

	running := result.Entries[2]
	if running.EndTime != "" {
		t.Fatalf("running entry end_time should be empty, got %q", running.EndTime)
	}
	for _, e := range result.Entries {
		if _, err := time.Parse(time.RFC3339, e.StartTime); err != nil {
			t.Fatalf("start_time is not valid RFC3339: %q", e.StartTime)
		}
	}
}

func TestEntriesJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := EntriesJSON(&buf, nil, engine.Directory{}, base); err != nil {
		t.Fatal(err)
	}
	var result entriesExport
	json.Unmarshal(buf.Bytes(), &result)
	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
	if result.Entries != nil {
		t.Fatal("entries should be nil/null for empty export")
	}
}

func TestJSONPrettyPrinted(t *testing.T) {
	var buf bytes.Buffer
	SummaryJSON(&buf, engine.DimProject, engine.DateRange{Start: base, End: base.Add(time.Hour)}, nil)

	out := buf.String()
	if !strings.Contains(out, "\n") || !strings.Contains(out, "  ") {
		t.Fatal("JSON should be pretty-printed with newlines and indentation")
	}
}

func TestSummaryJSON(t *testing.T) {
	groups := []engine.AggregateGroup{
		{ID: "2024-01-15", Label: "Mon, Jan 15 2024", TotalSeconds: 3600, PercentageOfTotal: 100, EntryCount: 1},
	}
	period := engine.DateRange{Start: base, End: base.AddDate(0, 0, 1)}
	var buf bytes.Buffer
	if err := SummaryJSON(&buf, engine.DimDay, period, groups); err != nil {
		t.Fatal(err)
	}

	var result summaryExport
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Dimension != engine.DimDay || result.TotalSeconds != 3600 || result.Total != "01:00:00" {
		t.Fatalf("unexpected summary %+v", result)
	}
	if !result.Period.Start.Equal(base) || len(result.Groups) != 1 {
		t.Fatalf("unexpected summary body %+v", result)
	}
}

func TestComparisonJSONNullChange(t *testing.T) {
	var buf bytes.Buffer
	if err := ComparisonJSON(&buf, engine.PeriodComparison{CurrentTotal: 60}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"percent_change": null`) {
		t.Fatalf("undefined change should encode as null:\n%s", buf.String())
	}
}

func TestInvoiceJSON(t *testing.T) {
	doc := sampleInvoice()
	var buf bytes.Buffer
	if err := InvoiceJSON(&buf, doc); err != nil {
		t.Fatal(err)
	}

	var result InvoiceDocument
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Number != doc.Number || result.Invoice.Total != 5316 {
		t.Fatalf("unexpected invoice %+v", result)
	}
	if !result.Invoice.TaxRate.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("tax rate = %s", result.Invoice.TaxRate)
	}
}

// ============================================================
// Documents and files
// ============================================================

func TestInvoiceNumbersUnique(t *testing.T) {
	a := sampleInvoice()
	b := sampleInvoice()
	if a.Number == b.Number {
		t.Fatal("invoice numbers should differ")
	}
	if _, err := uuid.Parse(a.Number); err != nil {
		t.Fatalf("invoice number %q is not a uuid: %v", a.Number, err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Fatalf("ParseFormat(CSV) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.csv")
	err := ToFile(path, func(w io.Writer) error {
		return GroupsCSV(w, nil)
	})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "Group,Label") {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestToFileBadPath(t *testing.T) {
	err := ToFile("/nonexistent/dir/file.csv", func(w io.Writer) error { return nil })
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
