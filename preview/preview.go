// Package preview renders a bound model as HTML for the template editor.
//
// The preview is built from the same bind.Model the PDF export draws, so
// every resolved value, row and totals line matches the exported document.
// Layout fidelity is approximate: elements are absolutely positioned in
// points and tables show all rows without page breaks.
package preview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lvillar/invoicepdf/bind"
	"github.com/lvillar/invoicepdf/layout"
	"github.com/lvillar/invoicepdf/scene"
)

// ErrNoModel is returned for a nil model or document.
var ErrNoModel = errors.New("preview: nil model")

// Renderer turns models into HTML markup. It is safe for concurrent use.
type Renderer struct {
	metrics layout.Metrics
}

// New returns a Renderer using m for default font sizes and row heights.
func New(m layout.Metrics) *Renderer {
	return &Renderer{metrics: m}
}

// Render returns m as a single unpaginated page.
func (r *Renderer) Render(m *bind.Model) (string, error) {
	if m == nil {
		return "", ErrNoModel
	}
	page := r.page(m, 1)
	for _, el := range m.Elements {
		page.AppendChild(r.element(m, el, el.Common().Box, nil, 1, 1))
	}
	return renderNode(page)
}

// RenderLayout returns doc with one section per page.
func (r *Renderer) RenderLayout(doc *layout.Document) (string, error) {
	if doc == nil || doc.Model == nil {
		return "", ErrNoModel
	}
	root := node("div", "class", "invoicepdf-document")
	for _, p := range doc.Pages {
		sec := r.page(doc.Model, p.Number)
		sec.Data, sec.DataAtom = "section", atom.Section
		for _, pl := range p.Placements {
			sec.AppendChild(r.element(doc.Model, pl.Element, pl.Box, pl.Fragment, p.Number, len(doc.Pages)))
		}
		root.AppendChild(sec)
	}
	return renderNode(root)
}

func (r *Renderer) page(m *bind.Model, n int) *html.Node {
	css := &style{}
	css.set("position", "relative")
	css.set("width", pt(m.Page.Width))
	css.set("height", pt(m.Page.Height))
	css.set("background", "#fff")
	css.set("overflow", "hidden")
	bg := m.BackgroundSrc
	if bg == "" && !strings.HasSuffix(strings.ToLower(m.Background), ".pdf") {
		bg = m.Background
	}
	if bg != "" {
		css.set("background-image", "url("+strconv.Quote(bg)+")")
		css.set("background-size", "100% 100%")
	}
	return node("div", "class", "page", "data-page", strconv.Itoa(n), "style", css.String())
}

func (r *Renderer) element(m *bind.Model, el *bind.Element, box scene.Rect, frag *layout.TableFragment, page, pages int) *html.Node {
	base := el.Common()
	css := r.boxStyle(base, box)
	div := node("div", "class", "el el-"+string(el.Kind()), "data-id", base.ID)

	switch e := el.Element.(type) {
	case *scene.Text:
		r.textStyle(css, base.Style)
		appendLines(div, el.Text)
	case *scene.CurrentDate:
		r.textStyle(css, base.Style)
		appendLines(div, el.Text)
	case *scene.PageNumber:
		r.textStyle(css, base.Style)
		appendLines(div, m.PageLabel(e, page, pages))
	case *scene.Shape:
		shapeStyle(css, e, box)
	case *scene.Image:
		src := el.Src
		if src == "" {
			src = el.Text
		}
		if src == "" {
			break
		}
		div.AppendChild(node("img", "src", src, "alt", base.ID, "style", "width:100%;height:100%;object-fit:contain"))
	case *scene.Barcode:
		css.set("border", "1px dashed #999")
		css.set("font-family", "monospace")
		css.set("font-size", "7pt")
		css.set("text-align", "center")
		div.AppendChild(node("span", "class", "barcode-"+string(e.Format)))
		div.LastChild.AppendChild(textNode(el.Text))
	case *scene.Watermark:
		r.watermark(css, e, box, m)
		appendLines(div, el.Text)
	case *scene.Table:
		r.textStyle(css, base.Style)
		css.set("height", "auto")
		if el.Table != nil {
			div.AppendChild(r.table(e, el.Table, frag))
		}
	}
	div.Attr = append(div.Attr, html.Attribute{Key: "style", Val: css.String()})
	return div
}

func (r *Renderer) boxStyle(b scene.Base, box scene.Rect) *style {
	css := &style{}
	css.set("position", "absolute")
	css.set("left", pt(box.X))
	css.set("top", pt(box.Y))
	if box.W > 0 {
		css.set("width", pt(box.W))
	}
	if box.H > 0 {
		css.set("height", pt(box.H))
	}
	if b.Opacity < 1 {
		css.set("opacity", num(b.Opacity))
	}
	if b.Rotation != 0 {
		// PDF angles turn counter-clockwise, CSS angles clockwise.
		css.set("transform", "rotate("+num(-b.Rotation)+"deg)")
	}
	if b.Z != 0 {
		css.set("z-index", strconv.Itoa(b.Z))
	}
	return css
}

func (r *Renderer) textStyle(css *style, s scene.Style) {
	css.set("font-family", cssFont(s.FontFamily))
	css.set("font-size", pt(r.metrics.FontSize(s)))
	css.set("line-height", num(r.metrics.LineHeightFactor))
	css.set("white-space", "pre-wrap")
	if s.Bold {
		css.set("font-weight", "bold")
	}
	if s.Italic {
		css.set("font-style", "italic")
	}
	if s.Color.Set {
		css.set("color", hex(s.Color))
	}
	if s.Fill.Set {
		css.set("background-color", hex(s.Fill))
	}
	switch s.Align {
	case "C":
		css.set("text-align", "center")
	case "R":
		css.set("text-align", "right")
	}
}

func shapeStyle(css *style, e *scene.Shape, box scene.Rect) {
	s := e.Style
	lw := s.StrokeWidth
	if lw <= 0 {
		lw = 1
	}
	stroke := hex(s.Stroke.Or(scene.RGB(0, 0, 0)))
	if s.Fill.Set {
		css.set("background-color", hex(s.Fill))
	}
	switch e.Shape {
	case scene.ShapeLine:
		css.set("height", "0")
		css.set("border-top", pt(lw)+" solid "+stroke)
		css.set("transform-origin", "0 0")
		w, h := box.W, box.H
		css.set("width", pt(hypot(w, h)))
		if h != 0 {
			css.set("transform", "rotate("+num(atan2deg(h, w))+"deg)")
		}
		return
	case scene.ShapeCircle:
		css.set("border-radius", "50%")
	}
	if s.Stroke.Set || !s.Fill.Set {
		css.set("border", pt(lw)+" solid "+stroke)
		css.set("box-sizing", "border-box")
	}
}

func (r *Renderer) watermark(css *style, e *scene.Watermark, box scene.Rect, m *bind.Model) {
	if box.W <= 0 || box.H <= 0 {
		css.set("left", "0")
		css.set("top", "0")
		css.set("width", pt(m.Page.Width))
		css.set("height", pt(m.Page.Height))
	}
	css.set("display", "flex")
	css.set("align-items", "center")
	css.set("justify-content", "center")
	css.set("pointer-events", "none")
	css.set("opacity", num(e.Opacity))
	css.set("font-family", cssFont(e.Style.FontFamily))
	css.set("font-size", pt(r.metrics.FontSize(e.Style)))
	css.set("font-weight", "bold")
	css.set("color", hex(e.Style.Color.Or(scene.RGB(200, 200, 200))))
	css.set("transform", "rotate("+num(-e.Angle)+"deg)")
}

// table renders t. With a fragment only its rows are shown.
func (r *Renderer) table(e *scene.Table, t *bind.Table, frag *layout.TableFragment) *html.Node {
	tbl := node("table", "style", "width:100%;border-collapse:collapse;table-layout:fixed")
	colgroup := node("colgroup")
	for _, c := range t.Columns {
		colgroup.AppendChild(node("col", "style", "width:"+pt(c.Width)))
	}
	tbl.AppendChild(colgroup)

	showHeader, showFooter := e.ShowHeader, e.ShowFooter && len(t.Footer) > 0
	start, end, empty := 0, len(t.Cells), len(t.Cells) == 0
	if frag != nil {
		showHeader, showFooter = frag.Header, frag.Footer
		start, end, empty = frag.Start, frag.End, frag.Empty
	}
	cell := func(tag, text, align string, span int) *html.Node {
		css := "border:0.5pt solid #c8c8c8;padding:0 " + pt(r.metrics.CellPadding) +
			";overflow:hidden;white-space:nowrap;text-overflow:ellipsis"
		switch align {
		case "C":
			css += ";text-align:center"
		case "R":
			css += ";text-align:right"
		}
		n := node(tag, "style", css)
		if span > 1 {
			n.Attr = append(n.Attr, html.Attribute{Key: "colspan", Val: strconv.Itoa(span)})
		}
		n.AppendChild(textNode(text))
		return n
	}

	if showHeader {
		thead := node("thead")
		tr := node("tr", "style", "background:"+hex(e.HeaderFill.Or(scene.RGB(240, 240, 240))))
		for _, c := range t.Columns {
			tr.AppendChild(cell("th", c.Header, c.Align, 1))
		}
		thead.AppendChild(tr)
		tbl.AppendChild(thead)
	}

	tbody := node("tbody")
	if empty {
		tr := node("tr", "class", "empty")
		tr.AppendChild(cell("td", t.EmptyText, "C", len(t.Columns)))
		tbody.AppendChild(tr)
	}
	for i := start; i < end; i++ {
		tr := node("tr")
		if e.StripeFill.Set && (i-start)%2 == 1 {
			tr.Attr = append(tr.Attr, html.Attribute{Key: "style", Val: "background:" + hex(e.StripeFill)})
		}
		for j, v := range t.Cells[i] {
			align := ""
			if j < len(t.Columns) {
				align = t.Columns[j].Align
			}
			tr.AppendChild(cell("td", v, align, 1))
		}
		tbody.AppendChild(tr)
	}
	tbl.AppendChild(tbody)

	if showFooter {
		tfoot := node("tfoot", "style", "font-weight:bold")
		for _, f := range t.Footer {
			tr := node("tr")
			if len(t.Columns) > 1 {
				tr.AppendChild(cell("td", f.Label, "R", len(t.Columns)-1))
				tr.AppendChild(cell("td", f.Value, "R", 1))
			} else {
				tr.AppendChild(cell("td", f.Label+" "+f.Value, "R", 1))
			}
			tfoot.AppendChild(tr)
		}
		tbl.AppendChild(tfoot)
	}
	return tbl
}

func renderNode(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", fmt.Errorf("preview: %w", err)
	}
	return b.String(), nil
}
