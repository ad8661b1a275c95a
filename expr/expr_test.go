package expr_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/internal/fixture"
	"github.com/lvillar/invoicepdf/rows"
)

func newScope(t *testing.T) *expr.Scope {
	t.Helper()
	ctx := fixture.Context(2, 1, 1)
	items, err := rows.NewResolver().Resolve(rows.SourceCombined, ctx)
	require.NoError(t, err)
	return expr.NewScope(ctx, expr.Env{
		Now: func() time.Time { return fixture.Issued },
	}).With("items", items)
}

func render(t *testing.T, src string, s *expr.Scope) string {
	t.Helper()
	out, err := expr.Resolve(src, s)
	require.NoError(t, err, src)
	return out
}

func TestOutputTags(t *testing.T) {
	s := newScope(t)

	tests := []struct {
		src  string
		want string
	}{
		{"Invoice {{ document.number }}", "Invoice INV-2024-0042"},
		{"{{customer.name}} / {{ org.name }}", "Jane Roe / Acme Consulting"},
		{"{{ document.missing }}|{{ nothing.at.all }}", "|"},
		{"{{ items.0.description }} {{ items.3.description }}", "item1 expense1"},
		{"{{ items.length }}", "4"},
		{"{{ upper(customer.company) }}", "ROE & PARTNERS"},
		{"{{ default(document.notes, 'n/a') }}", "n/a"},
		{"{{ formatMoney(document.total) }}", "€1,190.00"},
		{"{{ formatDate(document.issue_date, 'dd.MM.yyyy') }}", "05.03.2024"},
		{"{{ formatNumber(3.14159, 3) }}", "3.142"},
		{"{{ t('total') }}", "Total"},
		{"{{ 1 < 2 and not false }}", "true"},
		{"{{ document.total >= 1000 || false }}", "true"},
		{"{{ -document.tax }}", "-190"},
		{"plain { braces } stay", "plain { braces } stay"},
		{"{# hidden #}visible", "visible"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, tt.src, s))
		})
	}
}

func TestLoops(t *testing.T) {
	s := newScope(t)

	got := render(t, "{% for row in items %}{{ loop.index }}.{{ row.description }}{% if not loop.last %}, {% endif %}{% endfor %}", s)
	assert.Equal(t, "1.item1, 2.item2, 3.good1, 4.expense1", got)

	got = render(t, "{% for row in missing %}x{% endfor %}empty", s)
	assert.Equal(t, "empty", got)
}

func TestConditionals(t *testing.T) {
	s := newScope(t)

	src := `{% if document.status == "paid" %}PAID{% elif document.status == "final" %}DUE{% else %}DRAFT{% endif %}`
	assert.Equal(t, "DUE", render(t, src, s))

	assert.Equal(t, "none", render(t, "{% if document.notes %}notes{% else %}none{% endif %}", s))
	assert.Equal(t, "big", render(t, "{% if items.length > 3 %}big{% endif %}", s))
}

func TestLocalsShadowContext(t *testing.T) {
	s := newScope(t).With("document", map[string]any{"number": "LOCAL"})
	assert.Equal(t, "LOCAL", render(t, "{{ document.number }}", s))
}

func TestSyntaxErrors(t *testing.T) {
	bad := []string{
		"{{ document.number",
		"{{ }}",
		"{{ system('rm -rf /') }}",
		"{{ document. }}",
		"{{ 'unterminated }}",
		"{{ a == }}",
		"{% for in items %}{% endfor %}",
		"{% for x in items %}no end",
		"{% if x %}no end",
		"{% endif %}",
		"{% while x %}",
		"{{ formatMoney() }}",
		"{{ a ; b }}",
		"{{ a[0] }}",
	}
	for _, src := range bad {
		t.Run(src, func(t *testing.T) {
			_, err := expr.Compile(src)
			require.Error(t, err)
			var se *expr.SyntaxError
			assert.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
		})
	}
}

func TestUnknownFunctionIsRejected(t *testing.T) {
	_, err := expr.CompileExpr("exec('ls')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown function "exec"`)
}

func TestHelperFailuresAreSoft(t *testing.T) {
	var reported []error
	ctx := fixture.Context(0, 0, 0)
	s := expr.NewScope(ctx, expr.Env{OnError: func(err error) { reported = append(reported, err) }})

	got := render(t, "[{{ formatMoney('not a number') }}]", s)
	assert.Equal(t, "[]", got)
	require.Len(t, reported, 1)
	var re *expr.RuntimeError
	require.True(t, errors.As(reported[0], &re))
	assert.Equal(t, "formatMoney", re.Func)
}

func TestAssetHelper(t *testing.T) {
	ctx := fixture.Context(0, 0, 0)
	ctx.Assets = map[string]string{"logo": "file://logo.png"}
	ctx.Freeze()

	s := expr.NewScope(ctx, expr.Env{Embed: func(ref string) (string, error) {
		return "data:image/png;base64," + strings.ToUpper(ref), nil
	}})
	assert.Equal(t, "data:image/png;base64,FILE://LOGO.PNG", render(t, "{{ asset('logo') }}", s))
}

func TestEvalExpr(t *testing.T) {
	s := newScope(t)
	x, err := expr.CompileExpr("items.1.description")
	require.NoError(t, err)
	assert.Equal(t, "item2", x.Eval(s))

	x, err = expr.CompileExpr("document.total > 5000")
	require.NoError(t, err)
	assert.Equal(t, false, x.Eval(s))
}

func TestStatic(t *testing.T) {
	tpl, err := expr.Compile("Just text")
	require.NoError(t, err)
	assert.True(t, tpl.Static())

	tpl, err = expr.Compile("{{ a }}")
	require.NoError(t, err)
	assert.False(t, tpl.Static())
}

func TestFunctionsCatalog(t *testing.T) {
	names := make([]string, 0)
	for _, f := range expr.Functions() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"asset", "default", "formatDate", "formatMoney", "formatNumber", "lower", "t", "upper"}, names)
}
