// Package bind resolves a scene graph against a data context.
//
// The same Binder, and through it the same expression evaluator and data
// source resolver, serves both the PDF export and the editor preview.
package bind

import (
	"fmt"
	"strings"
	"time"

	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/format"
	"github.com/lvillar/invoicepdf/rows"
	"github.com/lvillar/invoicepdf/scene"
)

// AssetPrefix marks a logical asset key in an image source, e.g. asset:logo.
const AssetPrefix = "asset:"

// Options are per-call bindings.
type Options struct {
	// Embed backs the asset() helper. Nil leaves references unchanged.
	Embed func(ref string) (string, error)
	// Now is the render clock. Nil means time.Now.
	Now func() time.Time
	// EmbedImages sets Element.Src and Model.BackgroundSrc to data URIs
	// through Embed, for consumers that cannot read asset references.
	EmbedImages bool
}

// Binder resolves graphs. It is safe for concurrent use.
type Binder struct {
	rows *rows.Resolver
}

// New returns a Binder using r for table data sources.
func New(r *rows.Resolver) *Binder {
	if r == nil {
		r = rows.NewResolver()
	}
	return &Binder{rows: r}
}

// Rows returns the data source resolver shared by the binder's users.
func (b *Binder) Rows() *rows.Resolver { return b.rows }

// Bind resolves g against data. Helper failures do not fail the bind; they
// are reported as warnings on the model.
func (b *Binder) Bind(g *scene.Graph, data datactx.Context, opts Options) (*Model, error) {
	if g == nil {
		return nil, fmt.Errorf("bind: nil graph")
	}
	if data == nil {
		return nil, fmt.Errorf("bind: nil data context")
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	m := &Model{
		Page:     g.Page,
		Now:      now(),
		Warnings: append([]string(nil), g.Warnings...),
	}
	warn := func(err error) { m.Warnings = append(m.Warnings, err.Error()) }

	scope, err := b.Scope(data, expr.Env{
		Embed:   opts.Embed,
		Now:     func() time.Time { return m.Now },
		OnError: warn,
	})
	if err != nil {
		return nil, err
	}
	m.scope = scope

	m.Background = b.assetRef(m.Page.Background, data, "page.background", warn)
	embed := func(ref, path string) string {
		if !opts.EmbedImages || opts.Embed == nil || ref == "" {
			return ""
		}
		uri, err := opts.Embed(ref)
		if err != nil {
			warn(fmt.Errorf("%s: %w", path, err))
			return ""
		}
		return uri
	}
	if src := embed(m.Background, "page.background"); strings.HasPrefix(src, "data:image/") {
		m.BackgroundSrc = src
	}

	for _, el := range g.Elements {
		be := &Element{Element: el}
		switch e := el.(type) {
		case *scene.Text:
			be.Text = e.Content.Render(m.scope)
		case *scene.Watermark:
			be.Text = e.Text.Render(m.scope)
		case *scene.Barcode:
			be.Text = strings.TrimSpace(e.Value.Render(m.scope))
		case *scene.Image:
			be.Text = b.assetRef(e.Src.Render(m.scope), data, elementPath(e.Base), warn)
			be.Src = embed(be.Text, elementPath(e.Base))
		case *scene.CurrentDate:
			s, err := format.Date(m.Now, e.Pattern, m.scope.Env().Locale)
			if err != nil {
				warn(fmt.Errorf("%s: %w", elementPath(e.Base), err))
			}
			be.Text = s
		case *scene.Table:
			t, err := b.table(e, m.scope, data)
			if err != nil {
				return nil, err
			}
			be.Table = t
		case *scene.Shape, *scene.PageNumber:
		}
		m.Elements = append(m.Elements, be)
	}
	return m, nil
}

// Scope returns the expression scope templates are evaluated in: data plus
// the row collections items, line_items, extra_goods and expenses.
func (b *Binder) Scope(data datactx.Context, env expr.Env) (*expr.Scope, error) {
	items, err := b.rows.Resolve(rows.SourceCombined, data)
	if err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}
	legacy, err := b.rows.Resolve(rows.SourceLegacy, data)
	if err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}
	return expr.NewScope(data, env).
		With("items", items).
		With("line_items", legacy).
		With("extra_goods", ofKind(items, datactx.KindExtraGood)).
		With("expenses", ofKind(items, datactx.KindExpense)), nil
}

// assetRef resolves asset:<key> through the data context's asset bindings.
// Other references are returned unchanged.
func (b *Binder) assetRef(ref string, data datactx.Context, path string, warn func(error)) string {
	ref = strings.TrimSpace(ref)
	key, ok := strings.CutPrefix(ref, AssetPrefix)
	if !ok {
		return ref
	}
	mapped, ok := data.Asset(key)
	if !ok || mapped == "" {
		warn(fmt.Errorf("%s: no asset bound to %q", path, key))
		return ""
	}
	return mapped
}

func (b *Binder) table(t *scene.Table, s *expr.Scope, data datactx.Context) (*Table, error) {
	records, err := b.rows.Resolve(t.Source, data)
	if err != nil {
		return nil, fmt.Errorf("bind: %s: %w", elementPath(t.Base), err)
	}
	out := &Table{
		Records:   records,
		Cells:     make([][]string, len(records)),
		EmptyText: t.EmptyText.Render(s),
	}
	widths := ColumnWidths(t.Columns, t.Box.W)
	for i, c := range t.Columns {
		out.Columns = append(out.Columns, Column{Header: c.Header.Render(s), Width: widths[i], Align: c.Align})
	}
	env := s.Env()
	for i, r := range records {
		rs := s.With("row", r).With("loop", map[string]any{"index": i + 1, "index0": i})
		cells := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = cell(c, r, rs, env)
		}
		out.Cells[i] = cells
	}
	if t.ShowFooter {
		for _, f := range t.Footer {
			out.Footer = append(out.Footer, FooterLine{Label: f.Label.Render(s), Value: f.Value.Render(s)})
		}
	}
	return out, nil
}

func cell(c scene.Column, r datactx.Row, s *expr.Scope, env expr.Env) string {
	if c.Value != nil {
		return c.Value.Render(s)
	}
	v, ok := r.Field(c.Field)
	if !ok || v == nil {
		return ""
	}
	var (
		out string
		err error
	)
	switch c.Format {
	case "money":
		out, err = format.Money(v, env.Currency, env.Locale)
	case "number":
		out, err = format.Number(v, 2, env.Locale)
	case "date":
		out, err = format.Date(v, "", env.Locale)
	default:
		return format.String(v)
	}
	if err != nil {
		if env.OnError != nil {
			env.OnError(fmt.Errorf("column %q: %w", c.Field, err))
		}
		return format.String(v)
	}
	return out
}

// ColumnWidths distributes total among columns: explicit widths are kept,
// columns without one share what is left, and everything is scaled down
// when the explicit widths exceed total.
func ColumnWidths(cols []scene.Column, total float64) []float64 {
	widths := make([]float64, len(cols))
	if len(cols) == 0 {
		return widths
	}
	var fixed float64
	auto := 0
	for i, c := range cols {
		widths[i] = c.Width
		if c.Width > 0 {
			fixed += c.Width
		} else {
			auto++
		}
	}
	if total <= 0 {
		total = fixed + float64(auto)*80
	}
	rest := total - fixed
	if auto > 0 {
		share := rest / float64(auto)
		if share < 20 {
			share = 20
		}
		for i := range widths {
			if widths[i] <= 0 {
				widths[i] = share
			}
		}
	}
	var sum float64
	for _, w := range widths {
		sum += w
	}
	if sum > total {
		k := total / sum
		for i := range widths {
			widths[i] *= k
		}
	}
	return widths
}

func ofKind(in []datactx.Row, k datactx.SourceKind) []datactx.Row {
	var out []datactx.Row
	for _, r := range in {
		if r.SourceKind == k {
			out = append(out, r)
		}
	}
	return out
}

func elementPath(b scene.Base) string {
	if b.ID != "" {
		return fmt.Sprintf("element %q", b.ID)
	}
	return fmt.Sprintf("element #%d", b.Index)
}
