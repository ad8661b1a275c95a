package scene

import (
	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/rows"
)

// Kind is an element kind tag.
type Kind string

const (
	KindText        Kind = "text"
	KindShape       Kind = "shape"
	KindImage       Kind = "image"
	KindTable       Kind = "table"
	KindBarcode     Kind = "barcode"
	KindPageNumber  Kind = "pageNumber"
	KindCurrentDate Kind = "currentDate"
	KindWatermark   Kind = "watermark"
)

// Kinds lists the element catalog.
func Kinds() []Kind {
	return []Kind{KindText, KindShape, KindImage, KindTable, KindBarcode, KindPageNumber, KindCurrentDate, KindWatermark}
}

// Element is one node of the scene graph. The implementations are exactly
// *Text, *Shape, *Image, *Table, *Barcode, *PageNumber, *CurrentDate and
// *Watermark; code that switches on an Element handles all eight.
type Element interface {
	Kind() Kind
	Common() Base
	sealed()
}

// Rect is a box in points, origin top-left.
type Rect struct {
	X, Y, W, H float64
}

// Bottom returns Y+H.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Base holds the attributes shared by every element.
type Base struct {
	ID       string
	Box      Rect
	Rotation float64 // degrees, counter-clockwise
	Opacity  float64 // 0..1
	Z        int
	Style    Style
	Index    int // declaration order
}

// Common returns the shared attributes.
func (b Base) Common() Base { return b }

// Text is a block of text whose content is a template.
type Text struct {
	Base
	Content *expr.Template
}

// ShapeKind selects the geometry of a Shape.
type ShapeKind string

const (
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
	ShapeLine   ShapeKind = "line"
)

// Shape is a rectangle, circle (ellipse inscribed in the box) or line (from
// the box's top-left to its bottom-right corner).
type Shape struct {
	Base
	Shape ShapeKind
}

// Image draws an asset. An empty source is a placeholder and is skipped.
type Image struct {
	Base
	Src *expr.Template
}

// Column is a table column.
type Column struct {
	Header *expr.Template
	Field  string
	Value  *expr.Template // overrides Field when set
	Width  float64
	Align  string // L, C, R
	Format string
}

// FooterLine is one label/value pair of a table's totals block.
type FooterLine struct {
	Label *expr.Template
	Value *expr.Template
}

// Table lists the rows of a data source.
type Table struct {
	Base
	Source     rows.Source
	Columns    []Column
	ShowHeader bool
	ShowFooter bool
	Footer     []FooterLine
	EmptyText  *expr.Template
	HeaderFill Color
	StripeFill Color
}

// BarcodeFormat is a supported symbology.
type BarcodeFormat string

const (
	BarcodeCode128    BarcodeFormat = "code128"
	BarcodeQR         BarcodeFormat = "qr"
	BarcodePDF417     BarcodeFormat = "pdf417"
	BarcodeDataMatrix BarcodeFormat = "datamatrix"
)

// Barcode is a barcode placeholder; when its value resolves to an empty
// string the placeholder frame is drawn instead.
type Barcode struct {
	Base
	Format BarcodeFormat
	Value  *expr.Template
}

// PageNumber prints the page position on every page. Format is a template
// with page and pages in scope.
type PageNumber struct {
	Base
	Format *expr.Template
}

// CurrentDate prints the render date.
type CurrentDate struct {
	Base
	Pattern string
}

// Watermark is drawn beneath other content on every page.
type Watermark struct {
	Base
	Text  *expr.Template
	Angle float64
}

func (*Text) Kind() Kind        { return KindText }
func (*Shape) Kind() Kind       { return KindShape }
func (*Image) Kind() Kind       { return KindImage }
func (*Table) Kind() Kind       { return KindTable }
func (*Barcode) Kind() Kind     { return KindBarcode }
func (*PageNumber) Kind() Kind  { return KindPageNumber }
func (*CurrentDate) Kind() Kind { return KindCurrentDate }
func (*Watermark) Kind() Kind   { return KindWatermark }

func (*Text) sealed()        {}
func (*Shape) sealed()       {}
func (*Image) sealed()       {}
func (*Table) sealed()       {}
func (*Barcode) sealed()     {}
func (*PageNumber) sealed()  {}
func (*CurrentDate) sealed() {}
func (*Watermark) sealed()   {}

// Graph is a validated, immutable scene graph for one render.
type Graph struct {
	Page     Page
	Elements []Element // declaration order
	Warnings []string
}
