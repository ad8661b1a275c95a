// Package format implements the value formatting behind the template helper
// functions: money, numbers, dates and translations.
//
// All functions are pure and safe for concurrent use; the only shared state
// is the read-only symbol table and translation catalog.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"AUD": "A$",
	"CAD": "C$",
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
	"PLN": "zł",
}

// Symbol returns the display symbol for an ISO 4217 code, or the code itself.
func Symbol(code string) string {
	code = strings.ToUpper(code)
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

// Decimal converts a template value into a decimal. Unsupported values
// report ok == false.
func Decimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	}
	return decimal.Zero, false
}

// Tag parses a locale such as "de", "de_DE" or "en-GB", defaulting to English.
func Tag(locale string) language.Tag {
	t, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.English
	}
	return t
}

// Number formats v with the given number of decimals using the locale's
// grouping and decimal separators.
func Number(v any, decimals int, locale string) (string, error) {
	d, ok := Decimal(v)
	if !ok {
		return "", fmt.Errorf("format: %v is not a number", v)
	}
	f, _ := d.Round(int32(decimals)).Float64()
	p := message.NewPrinter(Tag(locale))
	return p.Sprint(number.Decimal(f, number.Scale(decimals))), nil
}

// Money formats v in the given ISO currency. The amount is rounded to the
// currency's standard scale (two places for EUR, none for JPY). English
// locales put the symbol first, other locales append it.
func Money(v any, code, locale string) (string, error) {
	code = strings.ToUpper(code)
	if code == "" {
		code = "EUR"
	}
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	amount, err := Number(v, scale, locale)
	if err != nil {
		return "", err
	}
	sym := Symbol(code)
	neg := strings.HasPrefix(amount, "-")
	amount = strings.TrimPrefix(amount, "-")

	base, _ := Tag(locale).Base()
	var out string
	if base.String() == "en" {
		out = sym + amount
		if len(sym) > 1 && sym == code {
			out = sym + " " + amount
		}
	} else {
		out = amount + " " + sym
	}
	if neg {
		out = "-" + out
	}
	return out, nil
}

// Date formats a time value. pattern uses yyyy, yy, MMMM, MMM, MM, M, dd, d,
// HH, mm and ss tokens; an empty pattern selects the locale default.
func Date(v any, pattern, locale string) (string, error) {
	t, ok := Time(v)
	if !ok {
		return "", fmt.Errorf("format: %v is not a date", v)
	}
	if pattern == "" {
		pattern = defaultDatePattern(locale)
	}
	return formatDate(t, pattern), nil
}

// Time converts a template value to a time.
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case int64:
		return time.Unix(t, 0).UTC(), true
	}
	return time.Time{}, false
}

func defaultDatePattern(locale string) string {
	base, _ := Tag(locale).Base()
	switch base.String() {
	case "de":
		return "dd.MM.yyyy"
	case "fr", "es", "it":
		return "dd/MM/yyyy"
	default:
		return "yyyy-MM-dd"
	}
}

var dateTokens = []struct{ token, layout string }{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// formatDate formats t token by token. Text between single quotes, and any
// character that starts no token, is copied as is; '' is a literal quote.
func formatDate(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			i = quoted(&b, pattern, i+1)
			continue
		}
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(pattern[i:], tok.token) {
				b.WriteString(t.Format(tok.layout))
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// quoted copies the quoted text starting at i and returns the index after
// its closing quote.
func quoted(b *strings.Builder, pattern string, i int) int {
	if i < len(pattern) && pattern[i] == '\'' {
		b.WriteByte('\'')
		return i + 1
	}
	for i < len(pattern) {
		if pattern[i] != '\'' {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '\'' {
			b.WriteByte('\'')
			i += 2
			continue
		}
		return i + 1
	}
	return i
}

// String renders any template value as text, the way output tags print it.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case decimal.Decimal:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
