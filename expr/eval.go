package expr

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/format"
)

type node interface {
	eval(s *Scope) any
}

type literalNode struct{ v any }

func (n literalNode) eval(*Scope) any { return n.v }

type pathNode struct{ parts []string }

func (n pathNode) eval(s *Scope) any {
	v, _ := s.Lookup(n.parts)
	return v
}

type notNode struct{ x node }

func (n notNode) eval(s *Scope) any { return !Truthy(n.x.eval(s)) }

type negNode struct{ x node }

func (n negNode) eval(s *Scope) any {
	d, ok := format.Decimal(n.x.eval(s))
	if !ok {
		return nil
	}
	return d.Neg()
}

type logicalNode struct {
	or          bool
	left, right node
}

func (n logicalNode) eval(s *Scope) any {
	l := Truthy(n.left.eval(s))
	if n.or {
		return l || Truthy(n.right.eval(s))
	}
	return l && Truthy(n.right.eval(s))
}

type compareNode struct {
	op          string
	left, right node
}

func (n compareNode) eval(s *Scope) any {
	l, r := n.left.eval(s), n.right.eval(s)
	c, ok := compare(l, r)
	switch n.op {
	case "==":
		return ok && c == 0
	case "!=":
		return !ok || c != 0
	}
	if !ok {
		return false
	}
	switch n.op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

// compare orders two values numerically when both are numbers, by time when
// both are dates, and by their printed text otherwise. ok is false when one
// side is nil and the other is not.
func compare(l, r any) (int, bool) {
	if l == nil || r == nil {
		if l == nil && r == nil {
			return 0, true
		}
		return 0, false
	}
	if lb, ok := l.(bool); ok {
		if rb, ok := r.(bool); ok {
			if lb == rb {
				return 0, true
			}
			if !lb {
				return -1, true
			}
			return 1, true
		}
	}
	if lt, ok := l.(time.Time); ok {
		if rt, ok := format.Time(r); ok {
			return lt.Compare(rt), true
		}
	}
	ld, lok := numeric(l)
	rd, rok := numeric(r)
	if lok && rok {
		return ld.Cmp(rd), true
	}
	return strings.Compare(format.String(l), format.String(r)), true
}

// numeric accepts numbers and numeric strings.
func numeric(v any) (decimal.Decimal, bool) {
	switch v.(type) {
	case bool, time.Time:
		return decimal.Zero, false
	}
	return format.Decimal(v)
}

type callNode struct {
	name string
	fn   function
	args []node
}

func (n callNode) eval(s *Scope) any {
	args := make([]any, len(n.args))
	for i, a := range n.args {
		args[i] = a.eval(s)
	}
	v, err := n.fn.call(s, args)
	if err != nil {
		s.report(&RuntimeError{Func: n.name, Err: err})
		return nil
	}
	return v
}

// Truthy reports whether v counts as true in a condition: nil, false, empty
// strings, zero numbers, zero times and empty collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case decimal.Decimal:
		return !t.IsZero()
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case time.Time:
		return !t.IsZero()
	case []any:
		return len(t) > 0
	case []datactx.Row:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// field navigates one path segment from v. Only maps, rows and slices can be
// navigated.
func field(v any, name string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		f, ok := t[name]
		return f, ok
	case datactx.Row:
		return t.Field(name)
	case []datactx.Row:
		if name == "length" || name == "count" {
			return len(t), true
		}
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(t) {
			return nil, false
		}
		return t[i], true
	case []any:
		if name == "length" || name == "count" {
			return len(t), true
		}
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(t) {
			return nil, false
		}
		return t[i], true
	case string:
		if name == "length" {
			return len([]rune(t)), true
		}
	}
	return nil, false
}

// items converts a loop collection into a slice.
func items(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []datactx.Row:
		out := make([]any, len(t))
		for i, r := range t {
			out[i] = r
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	}
	return nil
}
