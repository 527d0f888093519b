package sheet

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []pii.Row {
	return []pii.Row{
		{FileName: "a.pdf", PageNumber: "1", Occurrence: "1", Phone: "123"},
		{FileName: "b.pdf", PageNumber: "2", Occurrence: "3", Email: "x@y.com"},
	}
}

func TestExporters_EmptyIsNoop(t *testing.T) {
	for _, format := range []Format{FormatXLSX, FormatJSON, FormatMarkdown} {
		t.Run(string(format), func(t *testing.T) {
			exp, err := Build(format, nil)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if exp != nil {
				t.Errorf("Build() = %+v, want nil for zero rows", exp)
			}
		})
	}
}

func TestXLSX_HeaderPlusRows(t *testing.T) {
	rows := sampleRows()

	exp, err := XLSX(rows)
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}
	if exp.Name != "pii_extracted_preview.xlsx" {
		t.Errorf("Name = %q", exp.Name)
	}
	if exp.Rows != 2 {
		t.Errorf("Rows = %d, want 2", exp.Rows)
	}

	f, err := excelize.OpenReader(bytes.NewReader(exp.Data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != SheetName {
		t.Fatalf("sheets = %v, want [%s]", got, SheetName)
	}

	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(got) != len(rows)+1 {
		t.Fatalf("sheet has %d rows, want %d (header + data)", len(got), len(rows)+1)
	}

	header := got[0]
	if len(header) != len(pii.Columns) {
		t.Fatalf("header has %d cells, want %d", len(header), len(pii.Columns))
	}
	for i, c := range pii.Columns {
		if header[i] != c.Label {
			t.Errorf("header[%d] = %q, want %q", i, header[i], c.Label)
		}
	}

	cell := func(ref string) string {
		v, err := f.GetCellValue(SheetName, ref)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", ref, err)
		}
		return v
	}
	if v := cell("A2"); v != "a.pdf" {
		t.Errorf("A2 = %q, want a.pdf", v)
	}
	if v := cell("E2"); v != "123" {
		t.Errorf("E2 (Phone) = %q, want 123", v)
	}
	if v := cell("F2"); v != "" {
		t.Errorf("F2 (Email) = %q, want blank", v)
	}
	if v := cell("F3"); v != "x@y.com" {
		t.Errorf("F3 (Email) = %q, want x@y.com", v)
	}
	if v := cell("D3"); v != "3" {
		t.Errorf("D3 (Occ) = %q, want 3", v)
	}
}

func TestXLSX_ColumnWidths(t *testing.T) {
	rows := []pii.Row{{FileName: "a-very-long-document-name.pdf", PageNumber: "1", Occurrence: "1"}}

	exp, err := XLSX(rows)
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(exp.Data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	w, err := f.GetColWidth(SheetName, "A")
	if err != nil {
		t.Fatalf("GetColWidth() error = %v", err)
	}
	want := float64(len("a-very-long-document-name.pdf") + columnPadding)
	if w != want {
		t.Errorf("column A width = %v, want %v", w, want)
	}
}

func TestColumnWidths(t *testing.T) {
	long := strings.Repeat("x", 300)
	rows := []pii.Row{
		{FileName: "a.pdf", Address: long},
		{FileName: "longer-name.pdf"},
	}

	widths := ColumnWidths(rows)
	if len(widths) != len(pii.Columns) {
		t.Fatalf("len = %d, want %d", len(widths), len(pii.Columns))
	}
	if widths[0] != len("longer-name.pdf")+columnPadding {
		t.Errorf("File Name width = %d", widths[0])
	}
	// header wider than any value
	if widths[1] != len("User Name")+columnPadding {
		t.Errorf("User Name width = %d", widths[1])
	}
	if widths[8] != maxColumnWidth {
		t.Errorf("Address width = %d, want cap %d", widths[8], maxColumnWidth)
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"Ramesh Kumar", 12},
		{"東京", 4},
		{"ｱ", 1}, // halfwidth katakana
		{"Ａ", 2}, // fullwidth latin
	}
	for _, tt := range tests {
		if got := DisplayWidth(tt.in); got != tt.want {
			t.Errorf("DisplayWidth(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestJSON(t *testing.T) {
	exp, err := JSON(sampleRows())
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if exp.Name != "pii_extracted_preview.json" {
		t.Errorf("Name = %q", exp.Name)
	}

	var back []pii.Row
	if err := json.Unmarshal(exp.Data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back) != 2 || back[1].Email != "x@y.com" {
		t.Errorf("decoded rows = %+v", back)
	}
	if !bytes.Contains(exp.Data, []byte("\n  {")) {
		t.Errorf("JSON export is not indented:\n%s", exp.Data)
	}
}

func TestMarkdown(t *testing.T) {
	rows := sampleRows()
	rows[0].Address = "12 MG Road | Block A\nBengaluru"

	exp, err := Markdown(rows)
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	out := string(exp.Data)

	if !strings.Contains(out, "# Extracted PII - Preview") {
		t.Errorf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "2 rows") {
		t.Errorf("missing row count:\n%s", out)
	}
	if !strings.Contains(out, "File Name") || !strings.Contains(out, "Voter ID") {
		t.Errorf("missing headers:\n%s", out)
	}
	onOneLine := false
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "12 MG Road") && strings.Contains(line, "Bengaluru") {
			onOneLine = true
		}
	}
	if !onOneLine {
		t.Errorf("address not kept on one table line:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"XLSX", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"json", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
