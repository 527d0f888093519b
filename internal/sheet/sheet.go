// Package sheet serializes extraction rows into downloadable preview files.
//
// Every exporter maps rows through the fixed pii.Columns set so the
// downloaded file always matches the results table. Exporting zero rows is a
// no-op: the functions return a nil *Export and a nil error, and callers
// skip the download.
package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

// BaseName is the file name, without extension, of every export.
const BaseName = "pii_extracted_preview"

// SheetName is the name of the single worksheet in the XLSX export.
const SheetName = "PII Preview"

const (
	// columnPadding is added to the widest cell of each column.
	columnPadding = 2

	// maxColumnWidth keeps long free-text columns (addresses) readable.
	maxColumnWidth = 100
)

// Format identifies an export file format.
type Format string

const (
	FormatXLSX     Format = "xlsx"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat maps a user-supplied format name to a Format. The empty
// string selects XLSX.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want xlsx, json or md)", s)
	}
}

// Export is a generated file ready for download.
type Export struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// Build generates the export for rows in the given format.
func Build(format Format, rows []pii.Row) (*Export, error) {
	switch format {
	case FormatXLSX:
		return XLSX(rows)
	case FormatJSON:
		return JSON(rows)
	case FormatMarkdown:
		return Markdown(rows)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// XLSX writes rows to a one-sheet workbook: a header row followed by one row
// per record, with each column sized to its widest value.
func XLSX(rows []pii.Row) (*Export, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(pii.Columns))
	for i, c := range pii.Columns {
		header[i] = c.Label
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := recordValues(r)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := styleHeader(f, len(pii.Columns)); err != nil {
		return nil, err
	}

	for i, w := range ColumnWidths(rows) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, float64(w)); err != nil {
			return nil, fmt.Errorf("set width %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	return &Export{
		Name:        BaseName + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
		Rows:        len(rows),
	}, nil
}

// recordValues returns the row's cells in column order, with counters as
// numbers so spreadsheet tools can sort and sum them.
func recordValues(r pii.Row) []any {
	out := make([]any, len(pii.Columns))
	for i, c := range pii.Columns {
		v := c.Value(r)
		if c.Numeric && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				out[i] = n
				continue
			}
		}
		out[i] = v
	}
	return out
}

// styleHeader bolds the header row and freezes it above the data.
func styleHeader(f *excelize.File, cols int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F3F4F6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// ColumnWidths returns the display width of each column: the widest of the
// header and every cell, plus padding, capped at maxColumnWidth.
func ColumnWidths(rows []pii.Row) []int {
	widths := make([]int, len(pii.Columns))
	for i, c := range pii.Columns {
		widths[i] = DisplayWidth(c.Label)
	}
	for _, r := range rows {
		for i, c := range pii.Columns {
			if w := DisplayWidth(c.Value(r)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] += columnPadding
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}
	return widths
}

// DisplayWidth returns the number of character cells s occupies. East Asian
// wide and fullwidth runes count as two cells.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// JSON writes rows as an indented JSON array.
func JSON(rows []pii.Row) (*Export, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}

	return &Export{
		Name:        BaseName + ".json",
		ContentType: "application/json",
		Data:        data,
		Rows:        len(rows),
	}, nil
}

// Markdown writes rows as a titled Markdown table.
func Markdown(rows []pii.Row) (*Export, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := WriteMarkdownTable(&buf, "Extracted PII - Preview", rows); err != nil {
		return nil, err
	}

	return &Export{
		Name:        BaseName + ".md",
		ContentType: "text/markdown; charset=utf-8",
		Data:        buf.Bytes(),
		Rows:        len(rows),
	}, nil
}
