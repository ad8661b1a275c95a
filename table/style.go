// Package table draws table grids onto a gofpdf page.
//
// Pagination happens before drawing: a Table holds exactly the rows that
// belong on the current page, every row has a fixed height, and text that
// does not fit its cell is shortened rather than wrapped. Header, body and
// totals rows are styled separately, with optional alternating row fills.
package table

// RGBColor represents an RGB color value.
type RGBColor struct {
	R, G, B int
}

// FontSpec defines font properties for text rendering.
type FontSpec struct {
	Family string
	Style  string  // "", "B", "I", "BI"
	Size   float64 // in points
}

// Padding defines spacing inside a cell.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// UniformPadding creates a Padding with the same value on all sides.
func UniformPadding(v float64) Padding {
	return Padding{Top: v, Right: v, Bottom: v, Left: v}
}

// BorderStyle defines the appearance of cell borders.
type BorderStyle struct {
	Width float64
	Color RGBColor
}

// CellStyle defines the visual appearance of a cell.
type CellStyle struct {
	FillColor *RGBColor
	TextColor *RGBColor
	Font      *FontSpec
	Align     string // "L", "C", "R"
}

// AlternateStyle defines alternating row colors.
type AlternateStyle struct {
	Even CellStyle
	Odd  CellStyle
}

// TableStyle defines the overall appearance of a table.
type TableStyle struct {
	Border        *BorderStyle // nil draws no cell borders
	AlternateRows *AlternateStyle
	HeaderStyle   *CellStyle
	FooterStyle   *CellStyle
	CellPadding   Padding
	CellFont      *FontSpec
}
