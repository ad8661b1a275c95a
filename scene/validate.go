package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/rows"
)

// Mode selects how strictly templates are validated.
type Mode int

const (
	// Lenient is used at export time: unknown element kinds and data
	// sources are dropped or normalised with a warning so previously saved
	// templates keep rendering.
	Lenient Mode = iota
	// Strict is used by the authoring UI and rejects anything unknown.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// ValidationError describes one problem with a template.
type ValidationError struct {
	Path   string // e.g. elements[3].columns[1]
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "scene: " + e.Path + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Problems flattens an error returned by Parse or Validate into its
// validation errors. It returns nil if err holds none.
func Problems(err error) []*ValidationError {
	var out []*ValidationError
	var walk func(error)
	walk = func(err error) {
		if ve, ok := err.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				walk(e)
			}
			return
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			out = append(out, ve)
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}

// Parse decodes and validates a template.
func Parse(raw []byte, mode Mode) (*Graph, error) {
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &ValidationError{Path: "$", Reason: "invalid JSON", Err: err}
	}
	return Validate(&t, mode)
}

// Decode decodes a stored template without validating it.
func Decode(raw []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &ValidationError{Path: "$", Reason: "invalid JSON", Err: err}
	}
	return &t, nil
}

// Validate checks t and converts it into a scene graph. All problems found
// are returned together, joined with errors.Join.
func Validate(t *Template, mode Mode) (*Graph, error) {
	if t == nil {
		return nil, &ValidationError{Path: "$", Reason: "template is nil"}
	}
	v := &validator{mode: mode, scale: 1}
	switch strings.ToLower(t.Unit) {
	case "", "pt":
	case "px":
		v.scale = PxToPt
	default:
		v.fail("unit", fmt.Sprintf("unknown unit %q", t.Unit), nil)
	}

	g := &Graph{Page: v.page(t.Page)}
	for i, raw := range t.Elements {
		if el := v.element(fmt.Sprintf("elements[%d]", i), raw, len(g.Elements)); el != nil {
			g.Elements = append(g.Elements, el)
		}
	}
	g.Warnings = v.warnings
	if len(v.errs) > 0 {
		return nil, errors.Join(v.errs...)
	}
	return g, nil
}

type validator struct {
	mode     Mode
	scale    float64
	errs     []error
	warnings []string
}

func (v *validator) fail(path, reason string, err error) {
	v.errs = append(v.errs, &ValidationError{Path: path, Reason: reason, Err: err})
}

// soft records a problem that is an error in strict mode and a warning in
// lenient mode.
func (v *validator) soft(path, reason string) {
	if v.mode == Strict {
		v.fail(path, reason, nil)
		return
	}
	v.warnings = append(v.warnings, path+": "+reason)
}

func (v *validator) page(p PageSpec) Page {
	name := p.Size
	if name == "" && p.Width == 0 && p.Height == 0 {
		name = "A4"
	}
	var out Page
	switch {
	case p.Width > 0 && p.Height > 0:
		out.Width, out.Height = p.Width*v.scale, p.Height*v.scale
	case p.Width != 0 || p.Height != 0:
		v.fail("page", "width and height must both be positive", nil)
		out.Width, out.Height = pageSizes["a4"].W, pageSizes["a4"].H
	default:
		size, ok := PageSize(name)
		if !ok {
			v.fail("page.size", fmt.Sprintf("unknown page size %q", name), nil)
			size = pageSizes["a4"]
		}
		out.Name = strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
		out.Width, out.Height = size.W, size.H
	}
	switch strings.ToLower(p.Orientation) {
	case "", "portrait":
		if out.Width > out.Height {
			out.Landscape = true
		}
	case "landscape":
		out.Landscape = true
		if out.Width < out.Height {
			out.Width, out.Height = out.Height, out.Width
		}
	default:
		v.soft("page.orientation", fmt.Sprintf("unknown orientation %q", p.Orientation))
	}
	if m := p.Margins; m != nil {
		if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
			v.fail("page.margins", "margins must not be negative", nil)
		}
		out.Margins = Margins{Top: m.Top * v.scale, Right: m.Right * v.scale, Bottom: m.Bottom * v.scale, Left: m.Left * v.scale}
		out.HasMargins = true
	}
	out.Background = strings.TrimSpace(p.Background)
	return out
}

func (v *validator) element(path string, raw json.RawMessage, index int) Element {
	var r rawElement
	if err := json.Unmarshal(raw, &r); err != nil {
		v.fail(path, "malformed element", err)
		return nil
	}
	if r.ID != "" {
		path += "(" + r.ID + ")"
	}
	base, ok := v.base(path, &r)
	if !ok {
		return nil
	}
	base.Index = index

	switch Kind(r.Type) {
	case KindText:
		if r.Content == nil {
			v.fail(path, "text requires content", nil)
			return nil
		}
		content, ok := v.template(path+".content", *r.Content)
		if !ok {
			return nil
		}
		return &Text{Base: base, Content: content}

	case KindShape:
		shape := ShapeKind(strings.ToLower(r.Shape))
		switch shape {
		case ShapeRect, ShapeCircle, ShapeLine:
		case "rectangle":
			shape = ShapeRect
		case "ellipse":
			shape = ShapeCircle
		default:
			v.fail(path, fmt.Sprintf("unknown shape %q", r.Shape), nil)
			return nil
		}
		return &Shape{Base: base, Shape: shape}

	case KindImage:
		if r.Src == nil {
			v.fail(path, "image requires src", nil)
			return nil
		}
		src, ok := v.template(path+".src", *r.Src)
		if !ok {
			return nil
		}
		return &Image{Base: base, Src: src}

	case KindTable:
		return v.table(path, base, &r)

	case KindBarcode:
		format := BarcodeFormat(strings.ToLower(r.Format))
		switch format {
		case BarcodeCode128, BarcodeQR, BarcodePDF417, BarcodeDataMatrix:
		case "":
			v.fail(path, "barcode requires format", nil)
			return nil
		default:
			v.fail(path, fmt.Sprintf("unknown barcode format %q", r.Format), nil)
			return nil
		}
		src := ""
		if r.Value != nil {
			src = *r.Value
		}
		value, ok := v.template(path+".value", src)
		if !ok {
			return nil
		}
		return &Barcode{Base: base, Format: format, Value: value}

	case KindPageNumber:
		src := r.Pattern
		if src == "" {
			src = "{{ t('page') }} {{ page }} {{ t('of') }} {{ pages }}"
		}
		f, ok := v.template(path+".pattern", src)
		if !ok {
			return nil
		}
		return &PageNumber{Base: base, Format: f}

	case KindCurrentDate:
		return &CurrentDate{Base: base, Pattern: r.Pattern}

	case KindWatermark:
		if r.Text == nil {
			v.fail(path, "watermark requires text", nil)
			return nil
		}
		text, ok := v.template(path+".text", *r.Text)
		if !ok {
			return nil
		}
		angle := r.Angle
		if angle == 0 {
			angle = 45
		}
		if r.Opacity == nil {
			base.Opacity = 0.3
		}
		if base.Style.FontSize == 0 {
			base.Style.FontSize = 60
		}
		if !base.Style.Color.Set {
			base.Style.Color = RGB(200, 200, 200)
		}
		return &Watermark{Base: base, Text: text, Angle: angle}

	case "":
		v.fail(path, "element has no type", nil)
	default:
		v.soft(path, fmt.Sprintf("unknown element type %q", r.Type))
	}
	return nil
}

func (v *validator) base(path string, r *rawElement) (Base, bool) {
	b := Base{
		ID:       r.ID,
		Box:      Rect{X: r.X * v.scale, Y: r.Y * v.scale, W: r.Width * v.scale, H: r.Height * v.scale},
		Rotation: r.Rotation,
		Opacity:  1,
		Z:        r.ZIndex,
	}
	for _, f := range []float64{r.X, r.Y, r.Width, r.Height, r.Rotation} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v.fail(path, "geometry must be finite", nil)
			return b, false
		}
	}
	if r.Type != string(KindShape) || !strings.EqualFold(r.Shape, string(ShapeLine)) {
		if r.Width < 0 || r.Height < 0 {
			v.fail(path, "width and height must not be negative", nil)
			return b, false
		}
	}
	if r.Opacity != nil {
		if *r.Opacity < 0 || *r.Opacity > 1 {
			v.soft(path+".opacity", fmt.Sprintf("opacity %v out of range", *r.Opacity))
		}
		b.Opacity = math.Min(1, math.Max(0, *r.Opacity))
	}
	b.Style = v.style(path+".style", r.Style)
	return b, true
}

func (v *validator) style(path string, r RawStyle) Style {
	s := Style{
		FontSize:    r.FontSize * v.scale,
		StrokeWidth: r.StrokeWidth * v.scale,
	}
	if r.FontSize < 0 || r.StrokeWidth < 0 {
		v.soft(path, "sizes must not be negative")
		s.FontSize = math.Max(0, s.FontSize)
		s.StrokeWidth = math.Max(0, s.StrokeWidth)
	}
	family, ok := FontFamily(r.FontFamily)
	if !ok {
		v.soft(path+".fontFamily", fmt.Sprintf("font %q is not available, using %s", r.FontFamily, family))
		family = FontHelvetica
	}
	s.FontFamily = family
	switch strings.ToLower(r.FontWeight) {
	case "bold", "bolder", "600", "700", "800", "900":
		s.Bold = true
	}
	switch strings.ToLower(r.FontStyle) {
	case "italic", "oblique":
		s.Italic = true
	}
	s.Align, ok = Align(r.Align)
	if !ok {
		v.soft(path+".align", fmt.Sprintf("unknown alignment %q", r.Align))
	}
	s.Color = v.color(path+".color", r.Color)
	s.Fill = v.color(path+".fill", r.Fill)
	s.Stroke = v.color(path+".stroke", r.Stroke)
	return s
}

func (v *validator) color(path, s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		v.soft(path, err.Error())
	}
	return c
}

func (v *validator) template(path, src string) (*expr.Template, bool) {
	t, err := expr.Compile(src)
	if err != nil {
		v.fail(path, "invalid expression", err)
		return nil, false
	}
	return t, true
}

// defaultColumns is used when a lenient template carries a table without
// columns, so the table still appears.
var defaultColumns = []RawColumn{
	{Header: "{{ t('description') }}", Field: "description"},
	{Header: "{{ t('quantity') }}", Field: "quantity", Align: "R", Format: "number", Width: 60},
	{Header: "{{ t('unit_price') }}", Field: "unit_price", Align: "R", Format: "money", Width: 80},
	{Header: "{{ t('amount') }}", Field: "total_amount", Align: "R", Format: "money", Width: 90},
}

func (v *validator) table(path string, base Base, r *rawElement) Element {
	t := &Table{Base: base, ShowHeader: true, ShowFooter: true}
	if r.ShowHeader != nil {
		t.ShowHeader = *r.ShowHeader
	}
	if r.ShowFooter != nil {
		t.ShowFooter = *r.ShowFooter
	}

	t.Source = rows.Source(r.DataSource)
	switch {
	case t.Source == "":
		t.Source = rows.SourceCombined
	case !rows.Known(t.Source):
		v.soft(path+".dataSource", fmt.Sprintf("unknown data source %q", r.DataSource))
		t.Source = rows.SourceCombined
	}

	cols := r.Columns
	if len(cols) == 0 {
		v.soft(path+".columns", "table has no columns")
		cols = defaultColumns
	}
	ok := true
	for i, c := range cols {
		cp := fmt.Sprintf("%s.columns[%d]", path, i)
		col := Column{Field: c.Field, Width: c.Width * v.scale, Format: strings.ToLower(c.Format)}
		var hok bool
		col.Header, hok = v.template(cp+".header", c.Header)
		ok = ok && hok
		if c.Value != "" {
			col.Value, hok = v.template(cp+".value", c.Value)
			ok = ok && hok
		} else if c.Field == "" {
			v.fail(cp, "column requires field or value", nil)
			ok = false
		}
		var aok bool
		if col.Align, aok = Align(c.Align); !aok {
			v.soft(cp+".align", fmt.Sprintf("unknown alignment %q", c.Align))
		}
		switch col.Format {
		case "", "text", "money", "number", "date":
		default:
			v.soft(cp+".format", fmt.Sprintf("unknown format %q", c.Format))
			col.Format = ""
		}
		if c.Width < 0 {
			v.fail(cp+".width", "width must not be negative", nil)
			ok = false
		}
		t.Columns = append(t.Columns, col)
	}

	for i, f := range r.Footer {
		fp := fmt.Sprintf("%s.footer[%d]", path, i)
		label, lok := v.template(fp+".label", f.Label)
		value, vok := v.template(fp+".value", f.Value)
		if !lok || !vok {
			ok = false
			continue
		}
		t.Footer = append(t.Footer, FooterLine{Label: label, Value: value})
	}
	if len(r.Footer) == 0 && t.ShowFooter {
		t.Footer = defaultFooter()
	}

	empty := r.EmptyText
	if empty == "" {
		empty = "{{ t('no_items') }}"
	}
	var eok bool
	t.EmptyText, eok = v.template(path+".emptyText", empty)
	ok = ok && eok

	t.HeaderFill = v.color(path+".headerFill", r.HeaderFill)
	t.StripeFill = v.color(path+".stripeFill", r.StripeFill)
	if !ok {
		return nil
	}
	return t
}

func defaultFooter() []FooterLine {
	lines := []struct{ label, value string }{
		{"{{ t('subtotal') }}", "{{ formatMoney(document.subtotal) }}"},
		{"{{ t('tax') }}", "{{ formatMoney(document.tax) }}"},
		{"{{ t('total') }}", "{{ formatMoney(document.total) }}"},
	}
	out := make([]FooterLine, 0, len(lines))
	for _, l := range lines {
		label, _ := expr.Compile(l.label)
		value, _ := expr.Compile(l.value)
		out = append(out, FooterLine{Label: label, Value: value})
	}
	return out
}
