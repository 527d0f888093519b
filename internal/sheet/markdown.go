package sheet

import (
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/nao1215/markdown"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// WriteMarkdownTable writes a level-one title, a row count line and the rows
// as a Markdown table. An empty title omits the heading.
func WriteMarkdownTable(w io.Writer, title string, rows []pii.Row) error {
	md := markdown.NewMarkdown(w)

	if title != "" {
		md.H1(title)
		md.PlainText("")
	}
	md.PlainText(strconv.Itoa(len(rows)) + " rows")
	md.PlainText("")

	table := markdown.TableSet{
		Header: pii.Headers(),
		Rows:   make([][]string, len(rows)),
	}
	for i, r := range rows {
		cells := r.Cells()
		for j := range cells {
			cells[j] = cellEscaper.Replace(cells[j])
		}
		table.Rows[i] = cells
	}
	md.Table(table)

	return md.Build()
}
