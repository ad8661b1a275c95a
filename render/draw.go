package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/datamatrix"
	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"

	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/layout"
	"github.com/lvillar/invoicepdf/scene"
	"github.com/lvillar/invoicepdf/table"
)

var (
	black      = scene.RGB(0, 0, 0)
	gridColor  = scene.RGB(200, 200, 200)
	headerFill = scene.RGB(240, 240, 240)
)

func (j *job) draw(ctx context.Context, pl layout.Placement) error {
	el := pl.Element
	switch e := el.Element.(type) {
	case *scene.Text:
		j.text(e.Base, pl.Box, el.Text)
	case *scene.CurrentDate:
		j.text(e.Base, pl.Box, el.Text)
	case *scene.PageNumber:
		j.text(e.Base, pl.Box, j.doc.Model.PageLabel(e, j.page.Number, len(j.doc.Pages)))
	case *scene.Shape:
		j.shape(e, pl.Box)
	case *scene.Image:
		return j.image(ctx, e, pl.Box, el.Text)
	case *scene.Table:
		if pl.Fragment == nil || el.Table == nil {
			return errors.New("table placement without fragment")
		}
		return j.table(e, pl)
	case *scene.Barcode:
		return j.barcode(e, pl.Box, el.Text)
	case *scene.Watermark:
		j.watermark(e, pl.Box, el.Text)
	default:
		return fmt.Errorf("unsupported element %T", e)
	}
	return nil
}

// transform applies opacity and rotation around the box centre and returns
// the function undoing them.
func (j *job) transform(b scene.Base, box scene.Rect) func() {
	pdf := j.pdf
	alpha := b.Opacity < 1
	if alpha {
		pdf.SetAlpha(b.Opacity, "Normal")
	}
	rotate := b.Rotation != 0
	if rotate {
		pdf.TransformBegin()
		pdf.TransformRotate(b.Rotation, box.X+box.W/2, box.Y+box.H/2)
	}
	return func() {
		if rotate {
			pdf.TransformEnd()
		}
		if alpha {
			pdf.SetAlpha(1, "Normal")
		}
	}
}

func (j *job) setFont(s scene.Style) float64 {
	family := s.FontFamily
	if family == "" {
		family = scene.FontHelvetica
	}
	size := j.metrics.FontSize(s)
	j.pdf.SetFont(family, s.FontStyle(), size)
	return size
}

func (j *job) text(b scene.Base, box scene.Rect, s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	pdf := j.pdf
	defer j.transform(b, box)()

	if b.Style.Fill.Set && box.W > 0 && box.H > 0 {
		pdf.SetFillColor(b.Style.Fill.Channels())
		pdf.Rect(box.X, box.Y, box.W, box.H, "F")
	}
	size := j.setFont(b.Style)
	pdf.SetTextColor(b.Style.Color.Or(black).Channels())
	lineH := size * j.metrics.LineHeightFactor
	align := b.Style.Align
	if align == "" {
		align = "L"
	}

	w := box.W
	if w <= 0 {
		for _, line := range strings.Split(s, "\n") {
			w = max(w, pdf.GetStringWidth(j.tr(line)))
		}
		w += 1
	}
	pdf.SetXY(box.X, box.Y)
	pdf.MultiCell(w, lineH, j.tr(s), "", align, false)
	pdf.SetTextColor(0, 0, 0)
}

func (j *job) shape(e *scene.Shape, box scene.Rect) {
	pdf := j.pdf
	defer j.transform(e.Base, box)()

	st := e.Style
	style := ""
	if st.Fill.Set {
		pdf.SetFillColor(st.Fill.Channels())
		style += "F"
	}
	if st.Stroke.Set || !st.Fill.Set || e.Shape == scene.ShapeLine {
		pdf.SetDrawColor(st.Stroke.Or(black).Channels())
		lw := st.StrokeWidth
		if lw <= 0 {
			lw = 1
		}
		pdf.SetLineWidth(lw)
		style += "D"
	}

	switch e.Shape {
	case scene.ShapeLine:
		pdf.Line(box.X, box.Y, box.X+box.W, box.Y+box.H)
	case scene.ShapeCircle:
		pdf.Ellipse(box.X+box.W/2, box.Y+box.H/2, box.W/2, box.H/2, 0, style)
	default:
		pdf.Rect(box.X, box.Y, box.W, box.H, style)
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(0, 0, 0)
}

func (j *job) image(ctx context.Context, e *scene.Image, box scene.Rect, ref string) error {
	if ref == "" {
		return nil
	}
	if j.assets == nil {
		return &assets.MissingError{Ref: ref, Err: errors.New("no asset loader")}
	}
	a, err := j.assets.Load(ctx, ref)
	if err != nil {
		return err
	}
	if !a.IsImage() {
		return &assets.MissingError{Ref: ref, Err: errors.New("not an image")}
	}
	name := j.registerImage(a)
	defer j.transform(e.Base, box)()
	j.pdf.ImageOptions(name, box.X, box.Y, box.W, box.H, false, gofpdf.ImageOptions{}, 0, "")
	return nil
}

// registerImage registers a once per document, keyed by content hash.
func (j *job) registerImage(a *assets.Asset) string {
	name := "img-" + a.Sum
	opts := gofpdf.ImageOptions{ImageType: strings.ToUpper(string(a.Type))}
	j.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(a.Data))
	return name
}

func (j *job) table(e *scene.Table, pl layout.Placement) error {
	t, frag := pl.Element.Table, pl.Fragment
	if len(t.Columns) == 0 {
		return errors.New("table without columns")
	}
	size := j.setFont(e.Style)
	family := e.Style.FontFamily
	if family == "" {
		family = scene.FontHelvetica
	}

	defs := make([]table.ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = table.ColumnDef{Width: c.Width, Align: c.Align}
	}
	border := e.Style.Stroke.Or(gridColor)
	text := e.Style.Color.Or(black)
	style := table.TableStyle{
		CellPadding: table.Padding{Left: j.metrics.CellPadding, Right: j.metrics.CellPadding},
		Border:      &table.BorderStyle{Width: 0.5, Color: rgb(border)},
		CellFont:    &table.FontSpec{Family: family, Style: e.Style.FontStyle(), Size: size},
		HeaderStyle: &table.CellStyle{
			FillColor: ptr(rgb(e.HeaderFill.Or(headerFill))),
			TextColor: ptr(rgb(text)),
			Font:      &table.FontSpec{Family: family, Style: "B", Size: size},
		},
		FooterStyle: &table.CellStyle{
			TextColor: ptr(rgb(text)),
			Font:      &table.FontSpec{Family: family, Style: "B", Size: size},
		},
	}
	if e.StripeFill.Set {
		style.AlternateRows = &table.AlternateStyle{
			Odd: table.CellStyle{FillColor: ptr(rgb(e.StripeFill))},
		}
	}

	grid := table.New(j.pdf).
		SetColumns(defs...).
		SetWidth(pl.Box.W).
		SetPosition(pl.Box.X, pl.Box.Y).
		SetRowHeight(frag.RowHeight).
		SetStyle(style)
	if frag.Header {
		h := grid.AddHeaderRow().SetHeight(frag.HeaderHeight)
		for _, c := range t.Columns {
			h.AddCell(c.Header)
		}
	}
	if frag.Empty {
		grid.AddRow().AddCell(t.EmptyText).SetColspan(len(defs)).SetAlign("C")
	}
	for _, cells := range t.Cells[frag.Start:frag.End] {
		r := grid.AddRow()
		for _, c := range cells {
			r.AddCell(c)
		}
	}
	if frag.Footer {
		for _, f := range t.Footer {
			r := grid.AddFooterRow().SetHeight(frag.FooterLineHeight)
			if len(defs) > 1 {
				r.AddCell(f.Label).SetColspan(len(defs) - 1).SetAlign("R")
				r.AddCell(f.Value).SetAlign("R")
			} else {
				r.AddCell(f.Label + " " + f.Value).SetAlign("R")
			}
		}
	}

	defer j.transform(e.Base, pl.Box)()
	return grid.Render()
}

func (j *job) barcode(e *scene.Barcode, box scene.Rect, value string) error {
	if value == "" {
		j.placeholder(e.Base, box)
		return nil
	}
	// Encoder failures would otherwise poison the whole document.
	var key string
	switch e.Format {
	case scene.BarcodeCode128:
		if _, err := code128.Encode(value); err != nil {
			return fmt.Errorf("barcode: %w", err)
		}
		key = barcode.RegisterCode128(j.pdf, value)
	case scene.BarcodeQR:
		if _, err := qr.Encode(value, qr.M, qr.Auto); err != nil {
			return fmt.Errorf("barcode: %w", err)
		}
		key = barcode.RegisterQR(j.pdf, value, qr.M, qr.Auto)
	case scene.BarcodeDataMatrix:
		if _, err := datamatrix.Encode(value); err != nil {
			return fmt.Errorf("barcode: %w", err)
		}
		key = barcode.RegisterDataMatrix(j.pdf, value)
	case scene.BarcodePDF417:
		key = barcode.RegisterPdf417(j.pdf, value, 10, 2)
	default:
		return fmt.Errorf("barcode: unsupported format %q", e.Format)
	}
	defer j.transform(e.Base, box)()
	barcode.Barcode(j.pdf, key, box.X, box.Y, box.W, box.H, false)
	return nil
}

// placeholder draws the dashed frame of a barcode without a value, as the
// editor preview shows it.
func (j *job) placeholder(b scene.Base, box scene.Rect) {
	defer j.transform(b, box)()
	pdf := j.pdf
	pdf.SetDrawColor(153, 153, 153)
	pdf.SetLineWidth(0.5)
	pdf.SetDashPattern([]float64{3, 2}, 0)
	pdf.Rect(box.X, box.Y, box.W, box.H, "D")
	pdf.SetDashPattern([]float64{}, 0)
	pdf.SetDrawColor(0, 0, 0)
}

// watermark draws text rotated about the centre of its box, or of the page
// when the box is empty.
func (j *job) watermark(e *scene.Watermark, box scene.Rect, s string) {
	if s == "" {
		return
	}
	pdf := j.pdf
	size := j.setFont(e.Style)
	pdf.SetTextColor(e.Style.Color.Or(gridColor).Channels())
	pdf.SetAlpha(e.Opacity, "Normal")

	cx, cy := j.doc.Width/2, j.doc.Height/2
	if box.W > 0 && box.H > 0 {
		cx, cy = box.X+box.W/2, box.Y+box.H/2
	}
	text := j.tr(s)
	textW := pdf.GetStringWidth(text)

	pdf.TransformBegin()
	pdf.TransformRotate(e.Angle, cx, cy)
	pdf.Text(cx-textW/2, cy+size/3, text)
	pdf.TransformEnd()

	pdf.SetAlpha(1, "Normal")
	pdf.SetTextColor(0, 0, 0)
}

func rgb(c scene.Color) table.RGBColor { return table.RGBColor{R: c.R, G: c.G, B: c.B} }

func ptr[T any](v T) *T { return &v }
