// Package render draws a paginated document as PDF.
//
// Every element is drawn in isolation: an element that fails, including
// one whose asset is missing, is logged and skipped while the rest of the
// document renders. Only failures of the PDF writer itself are returned.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/rs/zerolog"

	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/bind"
	"github.com/lvillar/invoicepdf/layout"
	"github.com/lvillar/invoicepdf/scene"
)

// Backend turns a paginated document into output bytes. It returns one
// warning per element it had to leave out.
type Backend interface {
	Render(ctx context.Context, doc *layout.Document, w io.Writer) ([]string, error)
}

// PDF is the gofpdf backend. It is safe for concurrent use: all per-render
// state lives in the render call.
type PDF struct {
	loader  assets.Loader
	metrics layout.Metrics
}

// NewPDF returns a PDF backend loading images through l. A nil loader
// skips every image.
func NewPDF(l assets.Loader, m layout.Metrics) *PDF {
	return &PDF{loader: l, metrics: m}
}

// job is the state of one render call.
type job struct {
	pdf     *gofpdf.Fpdf
	doc     *layout.Document
	metrics layout.Metrics
	assets  *assets.RenderCache
	log     *zerolog.Logger
	tr      func(string) string

	bg     int // imported background template, 0 for none
	bgImg  *assets.Asset
	imp    *gofpdi.Importer
	page    *layout.Page
	skipped []string
}

// Render draws doc to w. The logger is taken from ctx, and so is the
// render's asset cache when one is attached with assets.WithRenderCache.
func (r *PDF) Render(ctx context.Context, doc *layout.Document, w io.Writer) ([]string, error) {
	if doc == nil || doc.Model == nil {
		return nil, layout.ErrNoModel
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: doc.Width, Ht: doc.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("invoicepdf", true)

	j := &job{
		pdf:     pdf,
		doc:     doc,
		metrics: r.metrics,
		log:     zerolog.Ctx(ctx),
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
	}
	j.assets = assets.RenderCacheFrom(ctx)
	if j.assets == nil && r.loader != nil {
		j.assets = assets.NewRenderCache(r.loader)
	}
	if j.assets != nil {
		if err := j.assets.Prefetch(ctx, imageRefs(doc)); err != nil {
			return nil, err
		}
		j.loadBackground(ctx)
	}

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j.page = page
		pdf.AddPage()
		j.drawBackground()
		for _, pl := range ordered(page.Placements) {
			j.safely(pl.Element, func() error { return j.draw(ctx, pl) })
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render: %w", pdf.Error())
	}
	j.log.Debug().Int("pages", len(doc.Pages)).Int("skipped", len(j.skipped)).Msg("pdf drawn")
	if err := pdf.Output(w); err != nil {
		return nil, fmt.Errorf("render: output: %w", err)
	}
	return j.skipped, nil
}

// safely runs fn for el and turns errors, panics and writer errors raised
// by fn into a logged skip.
func (j *job) safely(el *bind.Element, fn func() error) {
	base := el.Common()
	defer func() {
		if v := recover(); v != nil {
			j.skip(base, fmt.Errorf("panic: %v", v))
		}
	}()
	err := fn()
	if err == nil && j.pdf.Err() {
		err = j.pdf.Error()
		j.pdf.ClearError()
	}
	if err != nil {
		j.skip(base, err)
	}
}

func (j *job) skip(base scene.Base, err error) {
	name := base.ID
	if name == "" {
		name = fmt.Sprintf("elements[%d]", base.Index)
	}
	j.skipped = append(j.skipped, fmt.Sprintf("page %d: %s skipped: %v", j.page.Number, name, err))
	j.pdf.SetAlpha(1, "Normal")
	j.log.Warn().Err(err).
		Str("element", base.ID).
		Int("index", base.Index).
		Int("page", j.page.Number).
		Msg("element skipped")
}

func (j *job) loadBackground(ctx context.Context) {
	if j.doc.Background == "" {
		return
	}
	a, err := j.assets.Load(ctx, j.doc.Background)
	if err != nil {
		j.log.Warn().Err(err).Msg("page background skipped")
		return
	}
	if a.IsImage() {
		j.bgImg = a
		return
	}
	defer func() {
		if v := recover(); v != nil {
			j.bg = 0
			j.log.Warn().Interface("panic", v).Msg("page background skipped")
		}
	}()
	j.imp = gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(a.Data))
	j.bg = j.imp.ImportPageFromStream(j.pdf, &rs, 1, "/MediaBox")
}

func (j *job) drawBackground() {
	switch {
	case j.bg != 0:
		j.imp.UseImportedTemplate(j.pdf, j.bg, 0, 0, j.doc.Width, j.doc.Height)
	case j.bgImg != nil:
		name := j.registerImage(j.bgImg)
		j.pdf.ImageOptions(name, 0, 0, j.doc.Width, j.doc.Height, false, gofpdf.ImageOptions{}, 0, "")
	}
}

// ordered sorts placements into draw order: watermarks beneath everything,
// then ascending z, ties in declaration order.
func ordered(pls []layout.Placement) []layout.Placement {
	out := append([]layout.Placement(nil), pls...)
	rank := func(p layout.Placement) int {
		if _, ok := p.Element.Element.(*scene.Watermark); ok {
			return 0
		}
		return 1
	}
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := rank(out[a]), rank(out[b])
		if ra != rb {
			return ra < rb
		}
		return out[a].Element.Common().Z < out[b].Element.Common().Z
	})
	return out
}

// imageRefs lists the image references of doc for prefetching.
func imageRefs(doc *layout.Document) []string {
	refs := []string{doc.Background}
	for _, el := range doc.Model.Elements {
		if _, ok := el.Element.(*scene.Image); ok {
			refs = append(refs, el.Text)
		}
	}
	return refs
}
