package fallback

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/invoicepdf/internal/fixture"
)

func render(t *testing.T, in Input) []byte {
	t.Helper()
	data, warnings := renderWarnings(t, in)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return data
}

func renderWarnings(t *testing.T, in Input) ([]byte, []string) {
	t.Helper()
	var buf bytes.Buffer
	warnings, err := New(nil).Render(context.Background(), in, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	return buf.Bytes(), warnings
}

func TestRenderStockLayout(t *testing.T) {
	data := render(t, Input{Data: fixture.Context(3, 1, 1), Now: fixture.Issued})
	pages, err := fixture.PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestRenderLongTableContinues(t *testing.T) {
	data := render(t, Input{Data: fixture.Context(100, 5, 5), Now: fixture.Issued})
	pages, err := fixture.PageCount(data)
	require.NoError(t, err)
	assert.Greater(t, pages, 2)
}

func TestRenderWithoutRows(t *testing.T) {
	render(t, Input{Data: fixture.Context(0, 0, 0), Now: fixture.Issued})
}

func TestRenderLegacyMarkup(t *testing.T) {
	html := `<div><h1>{{ document.number }}</h1>
<p>{{ customer.name }}<br>{{ customer.company }}</p>
<ul>{% for item in line_items %}<li>{{ item.description }}</li>{% endfor %}</ul></div>`
	render(t, Input{Data: fixture.Context(2, 1, 0), HTML: html, Now: fixture.Issued})
}

func TestRenderUnsupportedMarkupPrintsStockHeader(t *testing.T) {
	for _, html := range []string{
		`<h1>{{ invoice.number|e }}</h1>`,
		`{% set total = document.total %}<p>{{ total }}</p>`,
		`<p>{{ customer.name </p>`,
	} {
		data, warnings := renderWarnings(t, Input{Data: fixture.Context(2, 1, 0), HTML: html, Now: fixture.Issued})
		require.Len(t, warnings, 1, html)
		assert.Contains(t, warnings[0], "legacy markup")

		pages, err := fixture.PageCount(data)
		require.NoError(t, err)
		assert.Equal(t, 1, pages)
	}
}

func TestRenderNilData(t *testing.T) {
	_, err := New(nil).Render(context.Background(), Input{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestBlocks(t *testing.T) {
	bs, err := blocks(`<html><head><style>p{}</style></head><body>
<h2>Invoice
  INV-1</h2>
<div><p>Jane Roe<br>Roe &amp; Partners</p><span>inline</span></div>
<table><tr><td>a</td><td>b</td></tr></table>
<script>alert(1)</script>
</body></html>`)
	require.NoError(t, err)
	assert.Equal(t, []block{
		{Text: "Invoice INV-1", Heading: true},
		{Text: "Jane Roe\nRoe & Partners"},
		{Text: "inline"},
		{Text: "a  b"},
	}, bs)
}
