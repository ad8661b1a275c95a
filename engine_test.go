package invoicepdf_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/invoicepdf"
	"github.com/lvillar/invoicepdf/assets"
	"github.com/lvillar/invoicepdf/internal/fixture"
	"github.com/lvillar/invoicepdf/layout"
	"github.com/lvillar/invoicepdf/scene"
)

func template(t *testing.T, raw []byte) *scene.Template {
	t.Helper()
	tpl, err := scene.Decode(raw)
	require.NoError(t, err)
	return tpl
}

func clock() time.Time { return fixture.Issued }

type backendFunc func(ctx context.Context, doc *layout.Document, w io.Writer) error

func (f backendFunc) Render(ctx context.Context, doc *layout.Document, w io.Writer) ([]string, error) {
	return nil, f(ctx, doc, w)
}

func TestRenderPrimary(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithClock(clock), invoicepdf.WithAssetLoader(assets.New(assets.Config{})))
	var buf bytes.Buffer
	res, err := eng.Render(context.Background(), template(t, fixture.FullTemplate("")), fixture.Context(3, 1, 1), &buf)
	require.NoError(t, err)

	assert.Equal(t, invoicepdf.PathPrimary, res.Path)
	assert.Equal(t, 1, res.Pages)
	assert.NotEmpty(t, res.ID)
	assert.Nil(t, res.Cause)
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestRenderLongTable(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithClock(clock))
	var buf bytes.Buffer
	res, err := eng.Render(context.Background(), template(t, fixture.TableTemplate("line_items", 306)), fixture.Context(58, 1, 1), &buf)
	require.NoError(t, err)

	assert.Equal(t, invoicepdf.PathPrimary, res.Path)
	pages, err := fixture.PageCount(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, pages, res.Pages)
	assert.GreaterOrEqual(t, res.Pages, 2)
}

func TestRenderLegacyTemplateUsesFallback(t *testing.T) {
	tpl := template(t, []byte(`{"html": "<h1>{{ document.number }}</h1><p>{{ customer.name }}</p>", "css": "h1{}"}`))
	require.False(t, tpl.HasStructuredGraph())

	var buf bytes.Buffer
	res, err := invoicepdf.New().Render(context.Background(), tpl, fixture.Context(2, 0, 0), &buf)
	require.NoError(t, err)
	assert.Equal(t, invoicepdf.PathFallback, res.Path)
	assert.Nil(t, res.Cause)
	assert.Equal(t, 1, res.Pages)
}

func TestUnsupportedLegacyMarkupStillRenders(t *testing.T) {
	tpl := template(t, []byte(`{"html":"<h1>{{ invoice.number|e }}</h1>"}`))
	var buf bytes.Buffer
	res, err := invoicepdf.New().Render(context.Background(), tpl, fixture.Context(2, 1, 0), &buf)
	require.NoError(t, err)

	assert.Equal(t, invoicepdf.PathFallback, res.Path)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "legacy markup")
	pages, err := fixture.PageCount(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestBackendFailureWithUnsupportedMarkup(t *testing.T) {
	raw := []byte(`{"html": "{% set x = 1 %}<p>{{ x }}</p>",
	  "elements": [{"id": "t", "type": "text", "x": 40, "y": 40, "width": 200, "height": 20, "content": "hi"}]}`)
	eng := invoicepdf.New(invoicepdf.WithBackend(backendFunc(func(context.Context, *layout.Document, io.Writer) error {
		return errors.New("boom")
	})))
	res, err := eng.Render(context.Background(), template(t, raw), fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, invoicepdf.PathFallback, res.Path)
	assert.Len(t, res.Warnings, 2)
}

func TestSkippedElementsAreWarnings(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithClock(clock), invoicepdf.WithAssetLoader(assets.New(assets.Config{Root: t.TempDir()})))
	res, err := eng.Render(context.Background(), template(t, fixture.FullTemplate("missing.png")), fixture.Context(3, 1, 1), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, invoicepdf.PathPrimary, res.Path)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "page 1: logo skipped")
}

type countingLoader struct {
	png   []byte
	calls atomic.Int32
}

func (l *countingLoader) Load(_ context.Context, ref string) (*assets.Asset, error) {
	l.calls.Add(1)
	return &assets.Asset{Ref: ref, Type: assets.PNG, Data: l.png, Sum: "logo"}, nil
}

func TestAssetsLoadOncePerRender(t *testing.T) {
	var logo bytes.Buffer
	require.NoError(t, pngEncode(&logo))
	l := &countingLoader{png: logo.Bytes()}
	raw := []byte(`{"elements": [
	  {"id": "logo", "type": "image", "x": 40, "y": 40, "width": 80, "height": 40, "src": "logo.png"},
	  {"id": "alt", "type": "text", "x": 40, "y": 100, "width": 200, "height": 20,
	   "content": "{% if asset('logo.png') %}logo{% endif %}"}
	]}`)
	res, err := invoicepdf.New(invoicepdf.WithAssetLoader(l)).Render(context.Background(), template(t, raw), fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, invoicepdf.PathPrimary, res.Path)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestRenderNilTemplateUsesFallback(t *testing.T) {
	res, err := invoicepdf.New().Render(context.Background(), nil, fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, invoicepdf.PathFallback, res.Path)
}

func TestBackendFailureFallsBack(t *testing.T) {
	boom := errors.New("boom")
	var logs bytes.Buffer
	eng := invoicepdf.New(
		invoicepdf.WithLogger(zerolog.New(&logs)),
		invoicepdf.WithBackend(backendFunc(func(context.Context, *layout.Document, io.Writer) error { return boom })),
	)
	var buf bytes.Buffer
	res, err := eng.Render(context.Background(), template(t, fixture.FullTemplate("")), fixture.Context(3, 1, 1), &buf)
	require.NoError(t, err)

	assert.Equal(t, invoicepdf.PathFallback, res.Path)
	var bf *invoicepdf.RenderBackendFailure
	require.ErrorAs(t, res.Cause, &bf)
	assert.Equal(t, "draw", bf.Op)
	assert.ErrorIs(t, res.Cause, boom)
	assert.Len(t, res.Warnings, 1)

	assert.Contains(t, logs.String(), "switching to fallback")
	assert.Contains(t, logs.String(), res.ID)

	pages, err := fixture.PageCount(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, res.Pages, pages)
}

func TestBackendPanicFallsBack(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithBackend(backendFunc(func(context.Context, *layout.Document, io.Writer) error {
		panic("nil font")
	})))
	res, err := eng.Render(context.Background(), template(t, fixture.FullTemplate("")), fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)

	var bf *invoicepdf.RenderBackendFailure
	require.ErrorAs(t, res.Cause, &bf)
	assert.Equal(t, "panic", bf.Op)
}

func TestInvalidOutputFallsBack(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithBackend(backendFunc(func(_ context.Context, _ *layout.Document, w io.Writer) error {
		_, err := io.WriteString(w, "%PDF-1.4 truncated")
		return err
	})))
	res, err := eng.Render(context.Background(), template(t, fixture.FullTemplate("")), fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)

	var bf *invoicepdf.RenderBackendFailure
	require.ErrorAs(t, res.Cause, &bf)
	assert.Equal(t, "guard", bf.Op)
}

func TestEmptyOutputFallsBack(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithBackend(backendFunc(func(context.Context, *layout.Document, io.Writer) error {
		return nil
	})))
	res, err := eng.Render(context.Background(), template(t, fixture.FullTemplate("")), fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Cause, invoicepdf.ErrEmptyOutput)
}

func TestBrokenTemplateFallsBack(t *testing.T) {
	tpl := template(t, []byte(`{"elements": [{"id": "t", "type": "text", "content": "{{ document.number "}]}`))
	res, err := invoicepdf.New().Render(context.Background(), tpl, fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)

	var ve *scene.ValidationError
	assert.ErrorAs(t, res.Cause, &ve)
}

func TestFallbackFailureIsReturned(t *testing.T) {
	_, err := invoicepdf.New().Render(context.Background(), template(t, fixture.FullTemplate("")), nil, io.Discard)
	var ff *invoicepdf.FallbackFailure
	require.ErrorAs(t, err, &ff)
	var bf *invoicepdf.RenderBackendFailure
	assert.ErrorAs(t, err, &bf, "primary failure is kept as cause")
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := invoicepdf.New().Render(ctx, template(t, fixture.FullTemplate("")), fixture.Context(1, 0, 0), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreview(t *testing.T) {
	eng := invoicepdf.New(invoicepdf.WithClock(clock))
	html, err := eng.Preview(context.Background(), template(t, fixture.TableTemplate("combined_items", 120)), fixture.Context(2, 1, 1))
	require.NoError(t, err)
	assert.Contains(t, html, "INV-2024-0042")
	assert.Contains(t, html, "expense1")

	again, err := eng.Preview(context.Background(), template(t, fixture.TableTemplate("combined_items", 120)), fixture.Context(2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, html, again)
}

func TestPreviewEmbedsImages(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "logo.png"))
	require.NoError(t, err)
	require.NoError(t, pngEncode(f))
	require.NoError(t, f.Close())

	eng := invoicepdf.New(invoicepdf.WithClock(clock), invoicepdf.WithAssetLoader(assets.New(assets.Config{Root: dir})))
	html, err := eng.Preview(context.Background(), template(t, fixture.FullTemplate("logo.png")), fixture.Context(1, 0, 0))
	require.NoError(t, err)
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.NotContains(t, html, `src="logo.png"`)
}

func TestPreviewIsStrict(t *testing.T) {
	eng := invoicepdf.New()
	tpl := template(t, []byte(`{"elements": [{"id": "x", "type": "chart"}]}`))
	_, err := eng.Preview(context.Background(), tpl, fixture.Context(1, 0, 0))
	var ve *scene.ValidationError
	require.ErrorAs(t, err, &ve)

	// Export drops the unknown element and renders the rest.
	res, err := eng.Render(context.Background(), tpl, fixture.Context(1, 0, 0), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, invoicepdf.PathPrimary, res.Path)
	assert.NotEmpty(t, res.Warnings)
}

func TestPreviewLegacyTemplate(t *testing.T) {
	_, err := invoicepdf.New().Preview(context.Background(), template(t, []byte(`{"html": "<p>x</p>"}`)), fixture.Context(1, 0, 0))
	assert.ErrorIs(t, err, invoicepdf.ErrNoGraph)
}

func TestPreviewPages(t *testing.T) {
	html, err := invoicepdf.New(invoicepdf.WithClock(clock)).PreviewPages(context.Background(),
		template(t, fixture.TableTemplate("combined_items", 306)), fixture.Context(38, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count([]byte(html), []byte("<section")))
}

func TestRows(t *testing.T) {
	rs, err := invoicepdf.New().Rows("line_items", fixture.Context(2, 1, 1))
	require.NoError(t, err)
	assert.Len(t, rs, 4)
}

func pngEncode(w io.Writer) error {
	return png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 2)))
}
