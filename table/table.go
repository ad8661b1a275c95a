package table

import (
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ColumnDef defines the properties of a table column.
type ColumnDef struct {
	Width float64 // Fixed width. 0 means auto/fill.
	Align string  // Default alignment for this column ("L", "C", "R").
}

// Table is a grid of fixed-height rows drawn at a fixed position.
type Table struct {
	pdf        *gofpdf.Fpdf
	columns    []ColumnDef
	rows       []*Row
	style      TableStyle
	x, y       float64
	tableWidth float64 // 0 means page width minus margins
	rowHeight  float64
	tr         func(string) string
}

// New creates a new Table associated with the given PDF document.
func New(pdf *gofpdf.Fpdf) *Table {
	return &Table{
		pdf:       pdf,
		rowHeight: 20,
		tr:        pdf.UnicodeTranslatorFromDescriptor(""),
		style: TableStyle{
			CellPadding: UniformPadding(4),
		},
	}
}

// SetColumns sets column definitions for the table.
func (t *Table) SetColumns(cols ...ColumnDef) *Table {
	t.columns = cols
	return t
}

// SetStyle sets the table-wide style.
func (t *Table) SetStyle(s TableStyle) *Table {
	t.style = s
	return t
}

// SetPosition sets the top-left corner of the table.
func (t *Table) SetPosition(x, y float64) *Table {
	t.x = x
	t.y = y
	return t
}

// SetWidth sets the total table width. If not called, uses page width minus margins.
func (t *Table) SetWidth(w float64) *Table {
	t.tableWidth = w
	return t
}

// SetRowHeight sets the height of every row without its own height.
func (t *Table) SetRowHeight(h float64) *Table {
	if h > 0 {
		t.rowHeight = h
	}
	return t
}

// AddRow adds a new data row to the table and returns it for chaining.
func (t *Table) AddRow() *Row {
	r := &Row{}
	t.rows = append(t.rows, r)
	return r
}

// AddHeaderRow adds a header row. Header rows are drawn before body rows
// regardless of the order they were added in.
func (t *Table) AddHeaderRow() *Row {
	r := &Row{kind: headerRow}
	t.rows = append(t.rows, r)
	return r
}

// AddFooterRow adds a totals row. Footer rows are drawn after body rows.
func (t *Table) AddFooterRow() *Row {
	r := &Row{kind: footerRow}
	t.rows = append(t.rows, r)
	return r
}

// Render draws the table to the current page.
func (t *Table) Render() error {
	if t.pdf.Err() {
		return t.pdf.Error()
	}

	widths := t.calculateWidths()
	if len(widths) == 0 {
		return nil
	}

	var header, body, footer []*Row
	for _, r := range t.rows {
		switch r.kind {
		case headerRow:
			header = append(header, r)
		case footerRow:
			footer = append(footer, r)
		default:
			body = append(body, r)
		}
	}

	// Rows were paginated by the caller; never let gofpdf break a page here.
	auto, margin := t.pdf.GetAutoPageBreak()
	t.pdf.SetAutoPageBreak(false, margin)
	defer t.pdf.SetAutoPageBreak(auto, margin)

	y := t.y
	for _, r := range header {
		y = t.renderRow(r, widths, y, -1)
	}
	for i, r := range body {
		y = t.renderRow(r, widths, y, i)
	}
	for _, r := range footer {
		y = t.renderRow(r, widths, y, -1)
	}
	return t.pdf.Error()
}

// calculateWidths computes final column widths based on definitions and available space.
func (t *Table) calculateWidths() []float64 {
	totalWidth := t.tableWidth
	if totalWidth == 0 {
		pageW, _ := t.pdf.GetPageSize()
		lMargin, _, rMargin, _ := t.pdf.GetMargins()
		totalWidth = pageW - lMargin - rMargin
	}

	numCols := len(t.columns)
	if numCols == 0 {
		// Auto-detect from first row
		if len(t.rows) > 0 {
			numCols = len(t.rows[0].cells)
		}
		if numCols == 0 {
			return nil
		}
		t.columns = make([]ColumnDef, numCols)
	}

	widths := make([]float64, numCols)
	fixedTotal := 0.0
	autoCount := 0

	for i, col := range t.columns {
		if col.Width > 0 {
			widths[i] = col.Width
			fixedTotal += col.Width
		} else {
			autoCount++
		}
	}

	// Distribute remaining space to auto columns
	if autoCount > 0 {
		remaining := totalWidth - fixedTotal
		if remaining < 0 {
			remaining = 0
		}
		autoWidth := remaining / float64(autoCount)
		for i, col := range t.columns {
			if col.Width == 0 {
				widths[i] = autoWidth
			}
		}
	}

	return widths
}

func (t *Table) heightOf(r *Row) float64 {
	if r.height > 0 {
		return r.height
	}
	return t.rowHeight
}

// renderRow draws r with its top at y and returns the y below it.
func (t *Table) renderRow(r *Row, widths []float64, y float64, bodyIdx int) float64 {
	rowH := t.heightOf(r)
	padding := t.style.CellPadding
	x := t.x

	col := 0
	for _, cell := range r.cells {
		if col >= len(widths) {
			break
		}

		// Calculate cell width (including colspan)
		cellW := 0.0
		for j := 0; j < cell.colspan && col+j < len(widths); j++ {
			cellW += widths[col+j]
		}

		style := t.resolveCellStyle(cell, r, bodyIdx)

		if style.FillColor != nil {
			t.pdf.SetFillColor(style.FillColor.R, style.FillColor.G, style.FillColor.B)
			t.pdf.Rect(x, y, cellW, rowH, "F")
		}
		if b := t.style.Border; b != nil {
			t.pdf.SetDrawColor(b.Color.R, b.Color.G, b.Color.B)
			if b.Width > 0 {
				t.pdf.SetLineWidth(b.Width)
			}
			t.pdf.Rect(x, y, cellW, rowH, "D")
		}

		if style.TextColor != nil {
			t.pdf.SetTextColor(style.TextColor.R, style.TextColor.G, style.TextColor.B)
		} else {
			t.pdf.SetTextColor(0, 0, 0)
		}
		if style.Font != nil {
			t.pdf.SetFont(style.Font.Family, style.Font.Style, style.Font.Size)
		}

		align := "L"
		if style.Align != "" {
			align = style.Align
		} else if col < len(t.columns) && t.columns[col].Align != "" && cell.colspan == 1 {
			align = t.columns[col].Align
		}

		contentW := cellW - padding.Left - padding.Right
		if contentW > 0 {
			text := t.fit(cell.text, contentW)
			t.pdf.SetXY(x+padding.Left, y+padding.Top)
			t.pdf.CellFormat(contentW, rowH-padding.Top-padding.Bottom, text, "", 0, align+"M", false, 0, "")
		}

		x += cellW
		col += cell.colspan
	}

	// Restore colors to defaults
	t.pdf.SetDrawColor(0, 0, 0)
	t.pdf.SetFillColor(0, 0, 0)
	t.pdf.SetTextColor(0, 0, 0)

	return y + rowH
}

// fit shortens s with an ellipsis until it fits w. Rows have a fixed
// height, so text is never wrapped.
func (t *Table) fit(s string, w float64) string {
	s = strings.Join(strings.Fields(s), " ")
	tr := t.tr
	if t.pdf.GetStringWidth(tr(s)) <= w {
		return tr(s)
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out := tr(strings.TrimSpace(string(runes)) + "...")
		if t.pdf.GetStringWidth(out) <= w {
			return out
		}
	}
	return ""
}

// resolveCellStyle determines the effective style for a cell by merging
// table, alternate row, header or footer, row, and cell-level styles.
func (t *Table) resolveCellStyle(cell *Cell, row *Row, bodyIdx int) CellStyle {
	var result CellStyle

	// Table-level font
	if t.style.CellFont != nil {
		result.Font = t.style.CellFont
	}

	switch row.kind {
	case headerRow:
		if t.style.HeaderStyle != nil {
			mergeStyle(&result, t.style.HeaderStyle)
		}
	case footerRow:
		if t.style.FooterStyle != nil {
			mergeStyle(&result, t.style.FooterStyle)
		}
	default:
		if t.style.AlternateRows != nil && bodyIdx >= 0 {
			if bodyIdx%2 == 0 {
				mergeStyle(&result, &t.style.AlternateRows.Even)
			} else {
				mergeStyle(&result, &t.style.AlternateRows.Odd)
			}
		}
	}

	// Row-level style
	if row.style != nil {
		mergeStyle(&result, row.style)
	}

	// Cell-level style (highest priority)
	if cell.style != nil {
		mergeStyle(&result, cell.style)
	}

	return result
}

// mergeStyle copies non-nil fields from src to dst.
func mergeStyle(dst, src *CellStyle) {
	if src.FillColor != nil {
		dst.FillColor = src.FillColor
	}
	if src.TextColor != nil {
		dst.TextColor = src.TextColor
	}
	if src.Font != nil {
		dst.Font = src.Font
	}
	if src.Align != "" {
		dst.Align = src.Align
	}
}
