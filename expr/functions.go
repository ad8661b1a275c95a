package expr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lvillar/invoicepdf/format"
)

type function struct {
	minArgs, maxArgs int
	doc              string
	call             func(s *Scope, args []any) (any, error)
}

func (f function) arity() string {
	if f.minArgs == f.maxArgs {
		return fmt.Sprintf("%d argument(s)", f.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", f.minArgs, f.maxArgs)
}

var errNoValue = errors.New("no value")

// functions is the complete helper catalog. Names not listed here are
// rejected at compile time.
var functions = map[string]function{
	"formatDate": {1, 2, "formatDate(value, pattern?) formats a date; pattern tokens yyyy MM dd HH mm", func(s *Scope, a []any) (any, error) {
		if a[0] == nil {
			return "", nil
		}
		return format.Date(a[0], optString(a, 1), s.env.Locale)
	}},
	"formatMoney": {1, 2, "formatMoney(value, currency?) formats an amount in the document currency", func(s *Scope, a []any) (any, error) {
		if a[0] == nil {
			return "", nil
		}
		code := optString(a, 1)
		if code == "" {
			code = s.env.Currency
		}
		return format.Money(a[0], code, s.env.Locale)
	}},
	"formatNumber": {1, 2, "formatNumber(value, decimals?) formats a number with locale separators", func(s *Scope, a []any) (any, error) {
		if a[0] == nil {
			return "", nil
		}
		decimals := 2
		if len(a) > 1 {
			d, ok := format.Decimal(a[1])
			if !ok || d.IsNegative() || d.GreaterThan(decimalTen) {
				return nil, fmt.Errorf("invalid decimals %v", a[1])
			}
			decimals = int(d.IntPart())
		}
		return format.Number(a[0], decimals, s.env.Locale)
	}},
	"asset": {1, 1, "asset(key) returns an embeddable data URI for a named asset or reference", func(s *Scope, a []any) (any, error) {
		key := format.String(a[0])
		if key == "" {
			return nil, errNoValue
		}
		ref := key
		if s.ctx != nil {
			if mapped, ok := s.ctx.Asset(key); ok {
				ref = mapped
			}
		}
		if s.env.Embed == nil {
			return ref, nil
		}
		return s.env.Embed(ref)
	}},
	"t": {1, 1, "t(key) translates a label into the document locale", func(s *Scope, a []any) (any, error) {
		var overrides format.Overrides
		if s.ctx != nil {
			overrides = s.ctx
		}
		return format.Translate(format.String(a[0]), s.env.Locale, overrides), nil
	}},
	"upper": {1, 1, "upper(text)", func(_ *Scope, a []any) (any, error) {
		return strings.ToUpper(format.String(a[0])), nil
	}},
	"lower": {1, 1, "lower(text)", func(_ *Scope, a []any) (any, error) {
		return strings.ToLower(format.String(a[0])), nil
	}},
	"default": {2, 2, "default(value, fallback) returns fallback when value is empty", func(_ *Scope, a []any) (any, error) {
		if Truthy(a[0]) {
			return a[0], nil
		}
		return a[1], nil
	}},
}

var decimalTen, _ = format.Decimal(10)

func optString(args []any, i int) string {
	if i < len(args) {
		return format.String(args[i])
	}
	return ""
}

// FunctionDoc describes one helper.
type FunctionDoc struct {
	Name string `json:"name"`
	Doc  string `json:"doc"`
}

// Functions lists the helper catalog, sorted by name.
func Functions() []FunctionDoc {
	out := make([]FunctionDoc, 0, len(functions))
	for name, fn := range functions {
		out = append(out, FunctionDoc{Name: name, Doc: fn.doc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
