package preview

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lvillar/invoicepdf/scene"
)

// node builds an element from alternating attribute keys and values.
func node(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// appendLines appends s to n with a <br> per newline.
func appendLines(n *html.Node, s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			n.AppendChild(node("br"))
		}
		if line != "" {
			n.AppendChild(textNode(line))
		}
	}
}

// style is an ordered CSS declaration list.
type style struct {
	decls []string
}

func (s *style) set(prop, val string) {
	prefix := prop + ":"
	for i, d := range s.decls {
		if strings.HasPrefix(d, prefix) {
			s.decls[i] = prefix + val
			return
		}
	}
	s.decls = append(s.decls, prefix+val)
}

func (s *style) String() string { return strings.Join(s.decls, ";") }

func pt(v float64) string { return num(v) + "pt" }

func num(v float64) string { return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) }

func hex(c scene.Color) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func cssFont(family string) string {
	switch family {
	case scene.FontTimes:
		return `"Times New Roman",Times,serif`
	case scene.FontCourier:
		return `"Courier New",Courier,monospace`
	}
	return "Helvetica,Arial,sans-serif"
}

func hypot(w, h float64) float64 { return math.Hypot(w, h) }

func atan2deg(y, x float64) float64 { return math.Atan2(y, x) * 180 / math.Pi }
