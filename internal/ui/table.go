package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// minKeyWidth keeps short key-value blocks aligned with each other.
const minKeyWidth = 14

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values. Cells may already carry ANSI styling.
type Row []string

// Table renders connector and wallet listings.
type Table struct {
	Columns []Column
	Rows    []Row
	active  map[int]bool
}

// NewTable creates a table with the given columns.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, active: map[int]bool{}}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// AddActiveRow appends a row rendered with a leading marker, used for the
// connected session or the default wallet.
func (t *Table) AddActiveRow(r Row) {
	t.active[len(t.Rows)] = true
	t.AddRow(r)
}

// IsActive reports whether row i was added with AddActiveRow.
func (t *Table) IsActive(i int) bool { return t.active[i] }

// Render returns the full table as a string.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)

	line := func(marker string, cells []string) {
		sb.WriteString(marker)
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteString("\n")
	}

	var headers, divider []string
	for _, col := range t.Columns {
		headers = append(headers, headerStyle.Render(fit(col.Title, col.Width)))
		divider = append(divider, StyleMeta.Render(strings.Repeat("-", col.Width)))
	}
	line("  ", headers)
	line("  ", divider)

	for i, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			cells[j] = cellStyle.Render(fit(val, col.Width))
		}
		marker := "  "
		if t.active[i] {
			marker = StyleSuccess.Render("›") + " "
		}
		line(marker, cells)
	}
	return sb.String()
}

// fit pads s to width visible columns. Plain text that overflows is cut with
// an ellipsis; styled text is left whole so escape sequences stay intact.
func fit(s string, width int) string {
	w := lipgloss.Width(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	if len(s) == w && width > 1 {
		return s[:width-1] + "…"
	}
	return s
}

// KeyValueBlock renders labelled values in a bordered box. Keys are aligned
// to the longest label.
func KeyValueBlock(title string, pairs [][2]string) string {
	keyWidth := minKeyWidth
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]) + 1; w > keyWidth {
			keyWidth = w
		}
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fit(p[0]+":", keyWidth))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(sb.String())
}
