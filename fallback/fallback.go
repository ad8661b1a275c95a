// Package fallback prints a document without its template.
//
// The fallback layout is fixed: a header block, the combined item table and
// the totals. It uses core fonts only and loads no assets, so it succeeds
// whenever the data itself can be read. Legacy templates, which carry HTML
// markup instead of a scene graph, are printed here too: their markup is
// resolved and its text blocks replace the stock header block.
package fallback

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"github.com/lvillar/invoicepdf/bind"
	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/format"
)

// Input is what the fallback renderer prints.
type Input struct {
	Data datactx.Context
	// HTML is legacy template markup. Empty prints the stock header.
	HTML string
	Now  time.Time
}

// Renderer prints the fallback layout. It is safe for concurrent use.
type Renderer struct {
	binder *bind.Binder
}

// New returns a Renderer resolving rows and markup through b.
func New(b *bind.Binder) *Renderer {
	if b == nil {
		b = bind.New(nil)
	}
	return &Renderer{binder: b}
}

const (
	margin   = 40.0
	rowH     = 18.0
	fontSize = 10.0
)

var columns = []struct {
	key   string
	width float64
	align string
}{
	{"description", 275, "L"},
	{"quantity", 60, "R"},
	{"unit_price", 80, "R"},
	{"amount", 100, "R"},
}

// Render prints in to w and returns warnings about content it had to
// leave out. Legacy markup that cannot be resolved is one of them: the
// stock header is printed in its place.
func (r *Renderer) Render(ctx context.Context, in Input, w io.Writer) ([]string, error) {
	if in.Data == nil {
		return nil, fmt.Errorf("fallback: nil data context")
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	scope, err := r.binder.Scope(in.Data, expr.Env{Now: func() time.Time { return in.Now }})
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	items, _ := scope.Lookup([]string{"items"})
	rows, _ := items.([]datactx.Row)

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreator("invoicepdf", true)
	p := &printer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), data: in.Data}
	pdf.AddPage()

	var warnings []string
	if strings.TrimSpace(in.HTML) != "" {
		bs, err := legacyBlocks(in.HTML, scope)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("legacy markup skipped, printing stock header")
			warnings = append(warnings, err.Error())
			p.header(in.Now)
		} else {
			p.markup(bs)
		}
	} else {
		p.header(in.Now)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.table(rows)
	p.totals()

	if pdf.Err() {
		return nil, fmt.Errorf("fallback: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return nil, fmt.Errorf("fallback: output: %w", err)
	}
	return warnings, nil
}

// legacyBlocks resolves legacy markup against scope and splits it into text
// blocks.
func legacyBlocks(markup string, scope *expr.Scope) ([]block, error) {
	resolved, err := expr.Resolve(markup, scope)
	if err != nil {
		return nil, fmt.Errorf("fallback: legacy markup: %w", err)
	}
	bs, err := blocks(resolved)
	if err != nil {
		return nil, fmt.Errorf("fallback: legacy markup: %w", err)
	}
	return bs, nil
}

type printer struct {
	pdf  *gofpdf.Fpdf
	tr   func(string) string
	data datactx.Context
}

func (p *printer) t(key string) string {
	return format.Translate(key, p.data.Locale(), p.data)
}

func (p *printer) value(path ...string) any {
	v, _ := p.data.Value(path)
	return v
}

func (p *printer) str(path ...string) string { return format.String(p.value(path...)) }

func (p *printer) money(path ...string) string {
	v := p.value(path...)
	s, err := format.Money(v, p.data.Currency(), p.data.Locale())
	if err != nil {
		return format.String(v)
	}
	return s
}

func (p *printer) line(text string, style string, size float64) {
	if strings.TrimSpace(text) == "" {
		return
	}
	p.pdf.SetFont("Helvetica", style, size)
	p.pdf.MultiCell(0, size*1.4, p.tr(text), "", "L", false)
}

func (p *printer) markup(bs []block) {
	for _, b := range bs {
		if b.Heading {
			p.line(b.Text, "B", 13)
			continue
		}
		p.line(b.Text, "", fontSize)
	}
	p.pdf.Ln(12)
}

func (p *printer) header(now time.Time) {
	p.line(p.str("organization", "name"), "B", 14)
	p.line(p.str("organization", "address"), "", fontSize)
	if vat := p.str("organization", "vat_id"); vat != "" {
		p.line(p.t("vat_id")+": "+vat, "", fontSize)
	}
	p.pdf.Ln(14)

	title := p.t(p.str("document", "kind"))
	p.line(strings.TrimSpace(title+" "+p.str("document", "number")), "B", 16)
	locale := p.data.Locale()
	if d, err := format.Date(p.value("document", "issue_date"), "", locale); err == nil && d != "" {
		p.line(p.t("date")+": "+d, "", fontSize)
	} else if d, err := format.Date(now, "", locale); err == nil {
		p.line(d, "", fontSize)
	}
	if d, err := format.Date(p.value("document", "due_date"), "", locale); err == nil && d != "" {
		p.line(p.t("due_date")+": "+d, "", fontSize)
	}
	p.pdf.Ln(10)

	p.line(p.str("customer", "company"), "B", fontSize)
	p.line(p.str("customer", "name"), "", fontSize)
	p.line(p.str("customer", "address"), "", fontSize)
	p.pdf.Ln(14)
}

func (p *printer) tableHeader() {
	p.pdf.SetFont("Helvetica", "B", fontSize)
	p.pdf.SetFillColor(240, 240, 240)
	for _, c := range columns {
		p.pdf.CellFormat(c.width, rowH, p.tr(p.t(c.key)), "1", 0, c.align, true, 0, "")
	}
	p.pdf.Ln(-1)
	p.pdf.SetFont("Helvetica", "", fontSize)
}

func (p *printer) table(rows []datactx.Row) {
	_, pageH := p.pdf.GetPageSize()
	p.tableHeader()
	if len(rows) == 0 {
		p.pdf.CellFormat(515, rowH, p.tr(p.t("no_items")), "1", 1, "C", false, 0, "")
		return
	}
	locale, currency := p.data.Locale(), p.data.Currency()
	for _, r := range rows {
		if p.pdf.GetY()+rowH > pageH-margin {
			p.pdf.AddPage()
			p.tableHeader()
		}
		qty, _ := format.Number(r.Quantity, 2, locale)
		price, _ := format.Money(r.UnitPrice, currency, locale)
		amount, _ := format.Money(r.TotalAmount, currency, locale)
		cells := []string{r.Description, qty, price, amount}
		for i, c := range columns {
			p.pdf.CellFormat(c.width, rowH, p.fit(cells[i], c.width-4), "1", 0, c.align, false, 0, "")
		}
		p.pdf.Ln(-1)
	}
}

func (p *printer) totals() {
	p.pdf.Ln(6)
	_, pageH := p.pdf.GetPageSize()
	if p.pdf.GetY()+3*rowH > pageH-margin {
		p.pdf.AddPage()
	}
	rate := ""
	if v := p.str("document", "tax_rate"); v != "" && v != "0" {
		rate = " (" + v + "%)"
	}
	lines := [][3]string{
		{p.t("subtotal"), p.money("document", "subtotal"), ""},
		{p.t("tax") + rate, p.money("document", "tax"), ""},
		{p.t("total"), p.money("document", "total"), "B"},
	}
	for _, l := range lines {
		p.pdf.SetFont("Helvetica", l[2], fontSize)
		p.pdf.CellFormat(415, rowH, p.tr(l[0]), "", 0, "R", false, 0, "")
		p.pdf.CellFormat(100, rowH, p.tr(l[1]), "", 1, "R", false, 0, "")
	}
}

// fit shortens s with an ellipsis until it fits w.
func (p *printer) fit(s string, w float64) string {
	out := p.tr(s)
	if p.pdf.GetStringWidth(out) <= w {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out = p.tr(strings.TrimSpace(string(runes)) + "...")
		if p.pdf.GetStringWidth(out) <= w {
			return out
		}
	}
	return ""
}
