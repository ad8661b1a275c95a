package expr

import (
	"fmt"
	"time"

	"github.com/lvillar/invoicepdf/datactx"
)

// Env carries the helper bindings expressions are evaluated with.
type Env struct {
	Locale   string
	Currency string

	// Embed turns an asset reference into an embeddable string (a data
	// URI). When nil, asset() returns the reference unchanged.
	Embed func(ref string) (string, error)

	// Now is used by helpers that need the current time.
	Now func() time.Time

	// OnError observes helper failures. Evaluation itself never fails.
	OnError func(error)
}

// RuntimeError is passed to Env.OnError when a helper cannot produce a value.
type RuntimeError struct {
	Func string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("expr: %s: %v", e.Func, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Scope is the read-only view expressions evaluate against: the data
// context plus local bindings such as loop variables. A Scope is never
// modified after creation; With returns a child.
type Scope struct {
	ctx    datactx.Context
	env    *Env
	parent *Scope
	name   string
	value  any
}

// NewScope returns a root scope over ctx. Empty Env fields default to the
// context's locale and currency and to time.Now.
func NewScope(ctx datactx.Context, env Env) *Scope {
	if env.Locale == "" && ctx != nil {
		env.Locale = ctx.Locale()
	}
	if env.Currency == "" && ctx != nil {
		env.Currency = ctx.Currency()
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	return &Scope{ctx: ctx, env: &env}
}

// With returns a child scope binding name to v.
func (s *Scope) With(name string, v any) *Scope {
	return &Scope{ctx: s.ctx, env: s.env, parent: s, name: name, value: v}
}

// Context returns the data context behind the scope.
func (s *Scope) Context() datactx.Context { return s.ctx }

// Env returns the scope's helper bindings.
func (s *Scope) Env() Env { return *s.env }

// Lookup resolves a dot path: local bindings first, then the data context.
func (s *Scope) Lookup(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	for cur := s; cur != nil; cur = cur.parent {
		if cur.parent != nil && cur.name == path[0] {
			v := cur.value
			for _, part := range path[1:] {
				var ok bool
				if v, ok = field(v, part); !ok {
					return nil, false
				}
			}
			return v, true
		}
	}
	if s.ctx == nil {
		return nil, false
	}
	return s.ctx.Value(path)
}

func (s *Scope) report(err error) {
	if s.env.OnError != nil {
		s.env.OnError(err)
	}
}
