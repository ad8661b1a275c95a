// Package scene parses and validates document templates and turns them into
// an immutable scene graph.
//
// A template is either a structured design:
//
//	{
//	  "unit": "pt",
//	  "page": {"size": "A4", "orientation": "portrait"},
//	  "elements": [
//	    {"id": "title", "type": "text", "x": 40, "y": 40, "width": 300, "height": 24,
//	     "content": "Invoice {{ document.number }}", "style": {"fontSize": 18, "fontWeight": "bold"}},
//	    {"id": "items", "type": "table", "x": 40, "y": 120, "width": 515, "height": 400,
//	     "dataSource": "combined_items",
//	     "columns": [{"header": "Description", "field": "description"},
//	                 {"header": "Amount", "field": "total_amount", "format": "money", "align": "R"}]}
//	  ]
//	}
//
// or a legacy free-form markup document {"html": "...", "css": "..."}. When
// both are present the structured design wins; the two are never merged.
package scene

import "encoding/json"

// Template is the stored form of a document template. Unknown JSON fields
// are ignored so that older saved templates with extra decorative
// attributes keep loading.
type Template struct {
	Unit     string            `json:"unit,omitempty"` // pt (default) or px
	Page     PageSpec          `json:"page"`
	Elements []json.RawMessage `json:"elements,omitempty"`

	// Legacy markup.
	HTML string `json:"html,omitempty"`
	CSS  string `json:"css,omitempty"`
}

// HasStructuredGraph reports whether the template carries a structured
// design. Templates without one are rendered from their legacy markup.
func (t *Template) HasStructuredGraph() bool {
	return t != nil && t.Elements != nil
}

// PageSpec is the stored page setup.
type PageSpec struct {
	Size        string   `json:"size,omitempty"` // A3, A4, A5, Letter, Legal, Tabloid
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	Orientation string   `json:"orientation,omitempty"` // portrait, landscape
	Margins     *Margins `json:"margins,omitempty"`
	Background  string   `json:"background,omitempty"` // PDF asset drawn under every page
}

// Margins are page margins in template units.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// rawElement is the union of all element fields as stored. The Type field
// selects which of them apply.
type rawElement struct {
	ID       string   `json:"id,omitempty"`
	Type     string   `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Rotation float64  `json:"rotation,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	ZIndex   int      `json:"zIndex,omitempty"`
	Style    RawStyle `json:"style,omitempty"`

	// text
	Content *string `json:"content,omitempty"`

	// shape
	Shape string `json:"shape,omitempty"` // rect, circle, line

	// image
	Src *string `json:"src,omitempty"`

	// table
	DataSource string        `json:"dataSource,omitempty"`
	Columns    []RawColumn   `json:"columns,omitempty"`
	ShowHeader *bool         `json:"showHeader,omitempty"`
	ShowFooter *bool         `json:"showFooter,omitempty"`
	Footer     []RawFooterLn `json:"footer,omitempty"`
	EmptyText  string        `json:"emptyText,omitempty"`
	HeaderFill string        `json:"headerFill,omitempty"`
	StripeFill string        `json:"stripeFill,omitempty"`

	// barcode
	Format string  `json:"format,omitempty"`
	Value  *string `json:"value,omitempty"`

	// pageNumber, currentDate
	Pattern string `json:"pattern,omitempty"`

	// watermark
	Text  *string `json:"text,omitempty"`
	Angle float64 `json:"angle,omitempty"`
}

// RawStyle is the stored style bag.
type RawStyle struct {
	FontFamily  string  `json:"fontFamily,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	FontWeight  string  `json:"fontWeight,omitempty"` // normal, bold
	FontStyle   string  `json:"fontStyle,omitempty"`  // normal, italic
	Color       string  `json:"color,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Align       string  `json:"align,omitempty"` // left, center, right (or L, C, R)
}

// RawColumn is a stored table column.
type RawColumn struct {
	Header string  `json:"header"`
	Field  string  `json:"field,omitempty"` // a row field such as description
	Value  string  `json:"value,omitempty"` // a template evaluated with row in scope
	Width  float64 `json:"width,omitempty"` // 0 = share of remaining width
	Align  string  `json:"align,omitempty"`
	Format string  `json:"format,omitempty"` // money, number, date
}

// RawFooterLn is one stored footer line of a table.
type RawFooterLn struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
