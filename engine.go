// Package invoicepdf renders invoice and quote templates to PDF.
//
// A template is a page description plus positioned elements bound to
// business data through {{ expressions }}. The Engine validates it, binds
// it to a data context, paginates the item table and draws the result.
// When any stage of that path fails, the document is printed with a fixed
// fallback layout instead, so an export always yields a PDF unless the
// data itself is unreadable.
//
// Example:
//
//	eng := invoicepdf.New(
//	    invoicepdf.WithAssetLoader(assets.New(assets.Config{Root: "./assets"})),
//	    invoicepdf.WithLogger(logger),
//	)
//	tpl, _ := scene.Decode(raw)
//	res, err := eng.Render(ctx, tpl, snapshot, w)
package invoicepdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/bind"
	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/fallback"
	"github.com/lvillar/invoicepdf/layout"
	"github.com/lvillar/invoicepdf/preview"
	"github.com/lvillar/invoicepdf/render"
	"github.com/lvillar/invoicepdf/rows"
	"github.com/lvillar/invoicepdf/scene"
)

// PathKind names the renderer that produced a document.
type PathKind string

const (
	PathPrimary  PathKind = "primary"
	PathFallback PathKind = "fallback"
)

// Result describes a rendered document.
type Result struct {
	ID       string // render id, also attached to every log line
	Pages    int
	Path     PathKind
	Warnings []string
	Cause    error // primary failure when Path is PathFallback
}

// Engine renders templates. It holds no per-render state and is safe for
// concurrent use.
type Engine struct {
	cfg      engineConfig
	binder   *bind.Binder
	fallback *fallback.Renderer
	preview  *preview.Renderer
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	cfg := engineConfig{
		metrics:  layout.DefaultMetrics(),
		logger:   zerolog.Nop(),
		validate: true,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.backend == nil {
		cfg.backend = render.NewPDF(cfg.loader, cfg.metrics)
	}
	b := bind.New(rows.NewResolver())
	return &Engine{
		cfg:      cfg,
		binder:   b,
		fallback: fallback.New(b),
		preview:  preview.New(cfg.metrics),
	}
}

// Render prints tpl bound to data and writes the PDF to w.
//
// Templates without an element graph, and templates whose primary render
// fails, are printed by the fallback renderer; Result.Path tells which.
// Errors are *FallbackFailure or the context's error.
func (e *Engine) Render(ctx context.Context, tpl *scene.Template, data datactx.Context, w io.Writer) (*Result, error) {
	id := uuid.NewString()
	log := e.cfg.logger.With().Str("render_id", id).Logger()
	ctx = log.WithContext(ctx)
	now := e.cfg.clock()
	start := time.Now()

	var (
		res *Result
		out []byte
		err error
	)
	if !tpl.HasStructuredGraph() {
		log.Info().Msg("template has no element graph, printing legacy layout")
		res, out, err = e.runFallback(ctx, tpl, data, now, nil)
	} else {
		res, out, err = e.runPrimary(ctx, tpl, data, now)
		var bf *RenderBackendFailure
		if errors.As(err, &bf) {
			log.Error().Err(err).Str("stage", bf.Op).Msg("primary render failed, switching to fallback")
			res, out, err = e.runFallback(ctx, tpl, data, now, err)
		}
	}
	if err != nil {
		return nil, err
	}
	res.ID = id
	if _, err := w.Write(out); err != nil {
		return nil, fmt.Errorf("invoicepdf: write: %w", err)
	}
	log.Debug().
		Str("path", string(res.Path)).
		Int("pages", res.Pages).
		Int("warnings", len(res.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("document rendered")
	return res, nil
}

func (e *Engine) runPrimary(ctx context.Context, tpl *scene.Template, data datactx.Context, now time.Time) (res *Result, out []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, out, err = nil, nil, backendFailure("panic", fmt.Errorf("%v", v))
		}
	}()

	g, err := scene.Validate(tpl, scene.Lenient)
	if err != nil {
		return nil, nil, backendFailure("validate", err)
	}
	ctx = e.withAssets(ctx)
	m, err := e.binder.Bind(g, data, e.bindOptions(ctx, now))
	if err != nil {
		return nil, nil, backendFailure("bind", err)
	}
	doc, err := layout.Paginate(m, e.cfg.metrics)
	if err != nil {
		return nil, nil, backendFailure("layout", err)
	}
	var buf bytes.Buffer
	skipped, err := e.cfg.backend.Render(ctx, doc, &buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, backendFailure("draw", err)
	}
	pages, err := e.guard(buf.Bytes())
	if err != nil {
		return nil, nil, backendFailure("guard", err)
	}
	warnings := append(m.Warnings, skipped...)
	return &Result{Pages: pages, Path: PathPrimary, Warnings: warnings}, buf.Bytes(), nil
}

func (e *Engine) runFallback(ctx context.Context, tpl *scene.Template, data datactx.Context, now time.Time, cause error) (*Result, []byte, error) {
	in := fallback.Input{Data: data, Now: now}
	if tpl != nil {
		in.HTML = tpl.HTML
	}
	var buf bytes.Buffer
	warnings, err := e.fallback.Render(ctx, in, &buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, &FallbackFailure{Err: err, Cause: cause}
	}
	pages, err := e.guard(buf.Bytes())
	if err != nil {
		return nil, nil, &FallbackFailure{Err: err, Cause: cause}
	}
	res := &Result{Pages: pages, Path: PathFallback, Cause: cause}
	if cause != nil {
		res.Warnings = []string{cause.Error()}
	}
	res.Warnings = append(res.Warnings, warnings...)
	return res, buf.Bytes(), nil
}

// guard checks that data is a readable PDF and returns its page count.
func (e *Engine) guard(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyOutput
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if e.cfg.validate {
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			return 0, err
		}
	}
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrEmptyOutput
	}
	return n, nil
}

// withAssets attaches the render's asset cache to ctx. The binder and the
// backend share it, so each asset is loaded once per render.
func (e *Engine) withAssets(ctx context.Context) context.Context {
	if e.cfg.loader == nil {
		return ctx
	}
	return assets.WithRenderCache(ctx, assets.NewRenderCache(e.cfg.loader))
}

func (e *Engine) bindOptions(ctx context.Context, now time.Time) bind.Options {
	opts := bind.Options{Now: func() time.Time { return now }}
	if cache := assets.RenderCacheFrom(ctx); cache != nil {
		opts.Embed = func(ref string) (string, error) { return cache.Embed(ctx, ref) }
	}
	return opts
}

// Preview renders tpl bound to data as HTML markup. Validation is strict:
// unknown element kinds and data sources are errors here, so authors see
// them before saving.
func (e *Engine) Preview(ctx context.Context, tpl *scene.Template, data datactx.Context) (string, error) {
	m, err := e.model(ctx, tpl, data)
	if err != nil {
		return "", err
	}
	return e.preview.Render(m)
}

// PreviewPages is Preview with the export pagination applied: one section
// per output page.
func (e *Engine) PreviewPages(ctx context.Context, tpl *scene.Template, data datactx.Context) (string, error) {
	m, err := e.model(ctx, tpl, data)
	if err != nil {
		return "", err
	}
	doc, err := layout.Paginate(m, e.cfg.metrics)
	if err != nil {
		return "", err
	}
	return e.preview.RenderLayout(doc)
}

func (e *Engine) model(ctx context.Context, tpl *scene.Template, data datactx.Context) (*bind.Model, error) {
	if !tpl.HasStructuredGraph() {
		return nil, ErrNoGraph
	}
	g, err := scene.Validate(tpl, scene.Strict)
	if err != nil {
		return nil, err
	}
	opts := e.bindOptions(e.withAssets(ctx), e.cfg.clock())
	opts.EmbedImages = true
	return e.binder.Bind(g, data, opts)
}

// Validate parses and validates a raw template.
func (e *Engine) Validate(raw []byte, mode scene.Mode) (*scene.Graph, error) {
	return scene.Parse(raw, mode)
}

// Rows resolves a table data source against data, as a table bound to it
// would see it.
func (e *Engine) Rows(source rows.Source, data datactx.Context) ([]datactx.Row, error) {
	return e.binder.Rows().Resolve(source, data)
}
