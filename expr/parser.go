package expr

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Expr is a compiled expression.
type Expr struct {
	src  string
	root node
}

// String returns the source the expression was compiled from.
func (e *Expr) String() string { return e.src }

// Eval evaluates the expression. Missing references yield nil.
func (e *Expr) Eval(s *Scope) any {
	return e.root.eval(s)
}

// CompileExpr compiles a bare expression such as `row.total_amount` or
// `formatMoney(document.total)`.
func CompileExpr(src string) (*Expr, error) {
	n, err := parseExpr(src, 0)
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: n}, nil
}

const maxDepth = 64

type parser struct {
	toks  []token
	pos   int
	depth int
}

func parseExpr(src string, base int) (node, error) {
	toks, err := lex(src, base)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, syntaxErr(base, "empty expression")
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxErr(t.pos, "unexpected %s", t)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	for _, op := range ops {
		if (t.kind == tokOp || t.kind == tokIdent) && t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) expect(op string) error {
	t := p.next()
	if t.kind != tokOp || t.text != op {
		return syntaxErr(t.pos, "expected %q, found %s", op, t)
	}
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp("or", "||") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{or: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.isOp("and", "&&") {
		p.next()
		right, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		left = logicalNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseCompare() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		switch t.text {
		case "==", "!=", "<", "<=", ">", ">=":
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return compareNode{op: t.text, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, syntaxErr(p.peek().pos, "expression nested too deeply")
	}

	switch {
	case p.isOp("not", "!"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{x: x}, nil
	case p.isOp("-"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negNode{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		d, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, syntaxErr(t.pos, "invalid number %q", t.text)
		}
		return literalNode{v: d}, nil
	case tokString:
		return literalNode{v: t.text}, nil
	case tokOp:
		if t.text == "(" {
			n, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, syntaxErr(t.pos, "unexpected %s", t)
	case tokIdent:
		switch t.text {
		case "true":
			return literalNode{v: true}, nil
		case "false":
			return literalNode{v: false}, nil
		case "null", "nil":
			return literalNode{v: nil}, nil
		case "and", "or", "not", "in":
			return nil, syntaxErr(t.pos, "unexpected keyword %q", t.text)
		}
		if p.isOp("(") {
			return p.parseCall(t)
		}
		return p.parsePath(t)
	}
	return nil, syntaxErr(t.pos, "unexpected %s", t)
}

func (p *parser) parsePath(first token) (node, error) {
	parts := []string{first.text}
	for p.isOp(".") {
		p.next()
		t := p.next()
		if t.kind != tokIdent && t.kind != tokNumber {
			return nil, syntaxErr(t.pos, "expected field name after '.', found %s", t)
		}
		parts = append(parts, t.text)
	}
	return pathNode{parts: parts}, nil
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, syntaxErr(name.pos, "unknown function %q", name.text)
	}
	p.next() // (
	var args []node
	if !p.isOp(")") {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.isOp(",") {
				break
			}
			p.next()
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		return nil, syntaxErr(name.pos, "%s expects %s, got %d", name.text, fn.arity(), len(args))
	}
	return callNode{name: name.text, fn: fn, args: args}, nil
}

// isIdent reports whether s is a valid loop variable name.
func isIdent(s string) bool {
	toks, err := lex(s, 0)
	return err == nil && len(toks) == 2 && toks[0].kind == tokIdent && !strings.Contains(" true false null nil and or not in loop ", " "+s+" ")
}
