package assets_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/lvillar/invoicepdf/assets"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadDataURI(t *testing.T) {
	raw := pngBytes(t)
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	a, err := assets.New(assets.Config{}).Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, assets.PNG, a.Type)
	assert.Equal(t, raw, a.Data)
	assert.Len(t, a.Sum, 64)
	assert.Equal(t, ref, a.DataURI())
}

func TestLoadConvertsBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	ref := "data:image/bmp;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	a, err := assets.New(assets.Config{}).Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, assets.PNG, a.Type)
	typ, ok := assets.Sniff(a.Data)
	assert.True(t, ok)
	assert.Equal(t, assets.PNG, typ)
}

func TestLoadKeepsPDFBackground(t *testing.T) {
	ref := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.4\n%%EOF"))
	a, err := assets.New(assets.Config{}).Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, assets.PDF, a.Type)
	assert.False(t, a.IsImage())
}

func TestLoadFileBelowRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), pngBytes(t), 0o600))
	f := assets.New(assets.Config{Root: dir})

	a, err := f.Load(context.Background(), "logo.png")
	require.NoError(t, err)
	assert.Equal(t, assets.PNG, a.Type)

	_, err = f.Load(context.Background(), "../etc/passwd")
	var missing *assets.MissingError
	require.ErrorAs(t, err, &missing)
	assert.ErrorIs(t, err, assets.ErrOutsideRoot)

	_, err = f.Load(context.Background(), "nope.png")
	assert.ErrorAs(t, err, &missing)
}

func TestLoadHTTP(t *testing.T) {
	raw := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logo.png" {
			_, _ = w.Write(raw)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := assets.New(assets.Config{}).Load(context.Background(), srv.URL+"/logo.png")
	require.Error(t, err, "http disabled by default")

	f := assets.New(assets.Config{AllowHTTP: true})
	a, err := f.Load(context.Background(), srv.URL+"/logo.png")
	require.NoError(t, err)
	assert.Equal(t, raw, a.Data)

	_, err = f.Load(context.Background(), srv.URL+"/missing.png")
	var missing *assets.MissingError
	assert.ErrorAs(t, err, &missing)

	small := assets.New(assets.Config{AllowHTTP: true, MaxBytes: 8})
	_, err = small.Load(context.Background(), srv.URL+"/logo.png")
	assert.ErrorAs(t, err, &missing)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	ref := "data:text/plain,hello"
	_, err := assets.New(assets.Config{}).Load(context.Background(), ref)
	var missing *assets.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ref, missing.Ref)
}

func TestSharedCacheStoresNormalisedBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	ref := "data:image/bmp;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	shared := assets.NewMemoryCache()
	first, err := assets.New(assets.Config{Shared: shared}).Load(context.Background(), ref)
	require.NoError(t, err)

	cached, err := shared.Get(context.Background(), "asset:"+first.Sum)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(cached, []byte("png\n")))

	second, err := assets.New(assets.Config{Shared: shared}).Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
}

func TestMemoryCacheMiss(t *testing.T) {
	_, err := assets.NewMemoryCache().Get(context.Background(), "x")
	assert.True(t, errors.Is(err, assets.ErrCacheMiss))
}

type countingLoader struct {
	calls atomic.Int32
}

func (l *countingLoader) Load(_ context.Context, ref string) (*assets.Asset, error) {
	l.calls.Add(1)
	if ref == "missing" {
		return nil, &assets.MissingError{Ref: ref, Err: os.ErrNotExist}
	}
	return &assets.Asset{Ref: ref, Type: assets.PNG, Data: []byte(ref)}, nil
}

func TestRenderCacheMemoises(t *testing.T) {
	l := &countingLoader{}
	c := assets.NewRenderCache(l)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Load(ctx, "a")
		require.NoError(t, err)
		_, err = c.Load(ctx, "missing")
		require.Error(t, err)
	}
	assert.EqualValues(t, 2, l.calls.Load())
}

func TestPrefetch(t *testing.T) {
	l := &countingLoader{}
	c := assets.NewRenderCache(l)
	ctx := context.Background()

	require.NoError(t, c.Prefetch(ctx, []string{"a", "b", "a", "", "missing", "c"}))
	assert.EqualValues(t, 4, l.calls.Load())

	_, err := c.Load(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 4, l.calls.Load())

	uri, err := c.Embed(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("c")), uri)
}
