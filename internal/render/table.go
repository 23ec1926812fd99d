package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/phobologic/refdoc/internal/site"
)

var tableHeader = []string{"LOCATION", "FROM", "REFERENCE", "SUGGESTIONS"}

// Table writes unresolved references as aligned columns. Widths are measured
// in terminal cells so wide names stay aligned.
func Table(w io.Writer, refs []site.Unresolved) error {
	rows := [][]string{tableHeader}
	for _, u := range refs {
		loc := u.From.Location()
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", loc.File, loc.Line),
			u.From.QualifiedName(),
			u.Ref.Text,
			strings.Join(u.Suggestions, ", "),
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		line := strings.TrimRight(b.String(), " ")
		b.Reset()
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
