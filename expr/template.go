package expr

import (
	"strings"

	"github.com/lvillar/invoicepdf/format"
)

// MaxIterations bounds the number of iterations a single loop renders.
const MaxIterations = 10000

// Template is a compiled text template. It is immutable and safe for
// concurrent use.
type Template struct {
	src   string
	nodes []tnode
}

// String returns the template source.
func (t *Template) String() string { return t.src }

// Static reports whether the template contains no tags.
func (t *Template) Static() bool {
	for _, n := range t.nodes {
		if _, ok := n.(textNode); !ok {
			return false
		}
	}
	return true
}

// Render evaluates the template against s.
func (t *Template) Render(s *Scope) string {
	var b strings.Builder
	renderNodes(&b, t.nodes, s)
	return b.String()
}

// Resolve compiles and renders src in one step.
func Resolve(src string, s *Scope) (string, error) {
	t, err := Compile(src)
	if err != nil {
		return "", err
	}
	return t.Render(s), nil
}

type tnode interface {
	render(b *strings.Builder, s *Scope)
}

type textNode string

func (n textNode) render(b *strings.Builder, _ *Scope) { b.WriteString(string(n)) }

type outputNode struct{ x node }

func (n outputNode) render(b *strings.Builder, s *Scope) {
	b.WriteString(format.String(n.x.eval(s)))
}

type forNode struct {
	name string
	coll node
	body []tnode
}

func (n forNode) render(b *strings.Builder, s *Scope) {
	list := items(n.coll.eval(s))
	if len(list) > MaxIterations {
		list = list[:MaxIterations]
	}
	for i, item := range list {
		loop := map[string]any{
			"index":  i + 1,
			"index0": i,
			"first":  i == 0,
			"last":   i == len(list)-1,
			"length": len(list),
		}
		renderNodes(b, n.body, s.With("loop", loop).With(n.name, item))
	}
}

type ifBranch struct {
	cond node
	body []tnode
}

type ifNode struct {
	branches []ifBranch
	els      []tnode
}

func (n ifNode) render(b *strings.Builder, s *Scope) {
	for _, br := range n.branches {
		if Truthy(br.cond.eval(s)) {
			renderNodes(b, br.body, s)
			return
		}
	}
	renderNodes(b, n.els, s)
}

func renderNodes(b *strings.Builder, nodes []tnode, s *Scope) {
	for _, n := range nodes {
		n.render(b, s)
	}
}

// Compile parses a text template.
func Compile(src string) (*Template, error) {
	c := &compiler{src: src}
	nodes, end, err := c.parseBlock(0)
	if err != nil {
		return nil, err
	}
	if end != nil {
		return nil, syntaxErr(end.pos, "unexpected {%% %s %%}", end.word)
	}
	return &Template{src: src, nodes: nodes}, nil
}

type compiler struct {
	src   string
	pos   int
	depth int
}

// blockTag is a control tag that ends the block being parsed.
type blockTag struct {
	word string // elif, else, endif, endfor
	arg  string
	pos  int
}

// parseBlock parses nodes until EOF or a closing control tag, which it
// returns to the caller.
func (c *compiler) parseBlock(depth int) ([]tnode, *blockTag, error) {
	if depth > maxDepth {
		return nil, nil, syntaxErr(c.pos, "blocks nested too deeply")
	}
	var nodes []tnode
	for c.pos < len(c.src) {
		rest := c.src[c.pos:]
		open := strings.IndexByte(rest, '{')
		for open >= 0 && (open+1 >= len(rest) || !strings.ContainsRune("{%#", rune(rest[open+1]))) {
			next := strings.IndexByte(rest[open+1:], '{')
			if next < 0 {
				open = -1
				break
			}
			open += next + 1
		}
		if open < 0 {
			nodes = append(nodes, textNode(rest))
			c.pos = len(c.src)
			break
		}
		if open > 0 {
			nodes = append(nodes, textNode(rest[:open]))
		}
		tagPos := c.pos + open
		kind := rest[open+1]
		closer := map[byte]string{'{': "}}", '%': "%}", '#': "#}"}[kind]
		bodyStart := tagPos + 2
		closeIdx := strings.Index(c.src[bodyStart:], closer)
		if closeIdx < 0 {
			return nil, nil, syntaxErr(tagPos, "unclosed tag, missing %q", closer)
		}
		body := c.src[bodyStart : bodyStart+closeIdx]
		c.pos = bodyStart + closeIdx + 2

		switch kind {
		case '#':
			continue
		case '{':
			x, err := parseExpr(body, bodyStart)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, outputNode{x: x})
		case '%':
			n, end, err := c.parseControl(strings.TrimSpace(body), bodyStart, depth)
			if err != nil {
				return nil, nil, err
			}
			if end != nil {
				return nodes, end, nil
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil, nil
}

func (c *compiler) parseControl(tag string, pos, depth int) (tnode, *blockTag, error) {
	word, arg, _ := strings.Cut(tag, " ")
	arg = strings.TrimSpace(arg)
	switch word {
	case "for":
		return c.parseFor(arg, pos, depth)
	case "if":
		return c.parseIf(arg, pos, depth)
	case "elif", "else", "endif", "endfor":
		return nil, &blockTag{word: word, arg: arg, pos: pos}, nil
	case "":
		return nil, nil, syntaxErr(pos, "empty control tag")
	}
	return nil, nil, syntaxErr(pos, "unknown control tag %q", word)
}

func (c *compiler) parseFor(arg string, pos, depth int) (tnode, *blockTag, error) {
	name, coll, ok := strings.Cut(arg, " in ")
	name = strings.TrimSpace(name)
	if !ok || !isIdent(name) {
		return nil, nil, syntaxErr(pos, "expected {%% for name in collection %%}")
	}
	collPos := pos + strings.Index(c.src[pos:], " in ") + 4
	x, err := parseExpr(coll, collPos)
	if err != nil {
		return nil, nil, err
	}
	body, end, err := c.parseBlock(depth + 1)
	if err != nil {
		return nil, nil, err
	}
	if end == nil || end.word != "endfor" {
		return nil, nil, syntaxErr(pos, "for loop is missing {%% endfor %%}")
	}
	return forNode{name: name, coll: x, body: body}, nil, nil
}

func (c *compiler) parseIf(arg string, pos, depth int) (tnode, *blockTag, error) {
	var n ifNode
	cond, err := parseExpr(arg, pos)
	if err != nil {
		return nil, nil, err
	}
	for {
		body, end, err := c.parseBlock(depth + 1)
		if err != nil {
			return nil, nil, err
		}
		if end == nil {
			return nil, nil, syntaxErr(pos, "if block is missing {%% endif %%}")
		}
		switch end.word {
		case "elif":
			n.branches = append(n.branches, ifBranch{cond: cond, body: body})
			if cond, err = parseExpr(end.arg, end.pos); err != nil {
				return nil, nil, err
			}
		case "else":
			n.branches = append(n.branches, ifBranch{cond: cond, body: body})
			els, end2, err := c.parseBlock(depth + 1)
			if err != nil {
				return nil, nil, err
			}
			if end2 == nil || end2.word != "endif" {
				return nil, nil, syntaxErr(pos, "if block is missing {%% endif %%}")
			}
			n.els = els
			return n, nil, nil
		case "endif":
			n.branches = append(n.branches, ifBranch{cond: cond, body: body})
			return n, nil, nil
		default:
			return nil, nil, syntaxErr(end.pos, "unexpected {%% %s %%} inside if", end.word)
		}
	}
}
