package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	}
	return fmt.Sprintf("%q", t.text)
}

// SyntaxError reports a malformed template or expression. Pos is a byte
// offset into the source passed to Compile or CompileExpr.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expr: syntax error at offset %d: %s", e.Pos, e.Msg)
}

func syntaxErr(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

// lex splits an expression into tokens. base is added to every position so
// errors point into the enclosing template.
func lex(src string, base int) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		r, w := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, w = utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += w
			}
			toks = append(toks, token{tokIdent, src[start:i], base + start})
		case r >= '0' && r <= '9':
			start := i
			seenDot := false
			for i < len(src) {
				c := src[i]
				if c == '.' && !seenDot && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9' {
					seenDot = true
					i++
					continue
				}
				if c < '0' || c > '9' {
					break
				}
				i++
			}
			toks = append(toks, token{tokNumber, src[start:i], base + start})
		case r == '"' || r == '\'':
			s, n, err := lexString(src[i:], base+i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, s, base + i})
			i += n
		default:
			op := ""
			for _, two := range twoCharOps {
				if strings.HasPrefix(src[i:], two) {
					op = two
					break
				}
			}
			if op == "" {
				if !strings.ContainsRune(".(),<>!-", r) {
					return nil, syntaxErr(base+i, "unexpected character %q", r)
				}
				op = string(r)
			}
			toks = append(toks, token{tokOp, op, base + i})
			i += len(op)
		}
	}
	toks = append(toks, token{tokEOF, "", base + len(src)})
	return toks, nil
}

// lexString reads a quoted literal starting at src[0] and returns its value
// and the number of bytes consumed.
func lexString(src string, pos int) (string, int, error) {
	quote := src[0]
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, syntaxErr(pos, "unterminated string")
}
