package bind

import (
	"time"

	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/scene"
)

// Model is a scene graph with every expression resolved against one data
// context. Export and preview both consume a Model, so what the editor
// shows is what the PDF contains.
type Model struct {
	Page       scene.Page
	Background string // resolved asset reference, "" for none
	// BackgroundSrc is the background image as a data URI when images are
	// embedded and the background is an image.
	BackgroundSrc string
	Elements   []*Element
	Warnings   []string
	Now        time.Time

	scope *expr.Scope
}

// Element is a scene element plus its resolved content.
type Element struct {
	scene.Element

	// Text is the resolved content: the text of Text and Watermark, the
	// value of Barcode, the asset reference of Image, the formatted date of
	// CurrentDate. Unused for Shape, Table and PageNumber.
	Text string

	// Src is the image as a data URI when images are embedded.
	Src string

	// Table is set for table elements.
	Table *Table
}

// Table is a table with its rows resolved and formatted.
type Table struct {
	Columns   []Column
	Records   []datactx.Row // as returned by the data source resolver
	Cells     [][]string    // one formatted row per record
	Footer    []FooterLine
	EmptyText string
}

// Column is a resolved column header.
type Column struct {
	Header string
	Width  float64 // points, always positive
	Align  string
}

// FooterLine is a resolved totals line.
type FooterLine struct {
	Label string
	Value string
}

// PageLabel renders a page number element for page n of total.
func (m *Model) PageLabel(el *scene.PageNumber, n, total int) string {
	return el.Format.Render(m.scope.With("page", n).With("pages", total))
}
