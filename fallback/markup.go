package fallback

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// block is one printable paragraph of legacy markup.
type block struct {
	Text    string
	Heading bool
}

// blocks extracts the text blocks of an HTML fragment in document order.
// Headings, paragraphs, list items and table rows become blocks; inline
// markup is flattened into its block.
func blocks(markup string) ([]block, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}
	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	var out []block
	walk(root, &out)
	return out, nil
}

func walk(n *html.Node, out *[]block) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if text := collapse(c.Data); text != "" {
				*out = append(*out, block{Text: text})
			}
		case html.ElementNode:
			if skipElement(c.Data) {
				continue
			}
			switch c.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := textContent(c); text != "" {
					*out = append(*out, block{Text: text, Heading: true})
				}
			case "tr":
				var cells []string
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						cells = append(cells, textContent(td))
					}
				}
				if text := strings.TrimSpace(strings.Join(cells, "  ")); text != "" {
					*out = append(*out, block{Text: text})
				}
			case "p", "li", "address", "pre", "blockquote":
				if text := textContent(c); text != "" {
					*out = append(*out, block{Text: text})
				}
			default:
				if hasBlockChild(c) {
					walk(c, out)
				} else if text := textContent(c); text != "" {
					*out = append(*out, block{Text: text})
				}
			}
		}
	}
}

func skipElement(tag string) bool {
	switch tag {
	case "script", "style", "head", "noscript", "template", "img", "svg":
		return true
	}
	return false
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "div", "p", "section", "article", "header", "footer", "table", "tbody", "thead",
			"tr", "ul", "ol", "li", "h1", "h2", "h3", "h4", "h5", "h6", "address", "pre", "blockquote":
			return true
		}
	}
	return false
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textContent returns the text below n, keeping <br> as a line break.
func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteByte(lineBreak)
		case n.Type == html.ElementNode && skipElement(n.Data):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	lines := strings.Split(b.String(), string(lineBreak))
	kept := lines[:0]
	for _, l := range lines {
		if l = collapse(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// lineBreak marks a <br> while source newlines are still whitespace.
const lineBreak = '\x00'

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
