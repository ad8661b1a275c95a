// Package layout places a bound model onto pages.
//
// Elements keep their absolute positions. Tables are the only flowing
// content: rows fill the space between the table top and the bottom margin,
// continue on new pages under a repeated header, and end with the totals
// block on the last page. Elements declared after a table follow it onto
// its last page.
package layout

import (
	"errors"
	"math"

	"github.com/lvillar/invoicepdf/bind"
	"github.com/lvillar/invoicepdf/scene"
)

// ErrNoModel is returned by Paginate for a nil model.
var ErrNoModel = errors.New("layout: nil model")

// Document is a paginated model.
type Document struct {
	Width      float64
	Height     float64
	Background string
	Pages      []*Page
	Model      *bind.Model
}

// Page is one output page.
type Page struct {
	Number     int // 1-based
	Placements []Placement
}

// Placement puts an element on a page.
type Placement struct {
	Element  *bind.Element
	Box      scene.Rect
	Fragment *TableFragment // tables only
}

// TableFragment is the part of a table drawn on one page.
type TableFragment struct {
	Start, End int  // body rows [Start, End) of the table's records
	Header     bool // header row drawn at the top of the fragment
	Footer     bool // totals block drawn after the last row
	Empty      bool // the empty-state row is drawn instead of body rows
	Continued  bool // the fragment continues a table from a previous page

	RowHeight        float64
	HeaderHeight     float64
	FooterLineHeight float64
}

// Rows returns the number of body rows in the fragment.
func (f *TableFragment) Rows() int { return f.End - f.Start }

// Paginate lays m out. It never modifies m.
func Paginate(m *bind.Model, metrics Metrics) (*Document, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if err := metrics.Validate(); err != nil {
		return nil, err
	}
	p := newPaginator(m, metrics)
	var furniture []*bind.Element
	for _, el := range m.Elements {
		switch el.Element.(type) {
		case *scene.PageNumber, *scene.Watermark:
			furniture = append(furniture, el)
		case *scene.Table:
			p.table(el)
		default:
			p.place(el)
		}
	}
	p.furnish(furniture)
	return p.doc, nil
}

type paginator struct {
	doc     *Document
	metrics Metrics
	limit   float64 // lowest y content may reach
	top     float64 // where continuation pages start

	// flow state after the most recent table
	flow     int     // index of the page later elements go on
	anchor   float64 // declared y that maps to base
	base     float64 // y on the flow page
	afterTbl bool
}

func newPaginator(m *bind.Model, metrics Metrics) *paginator {
	bottom, top := metrics.BottomMargin, metrics.ContinuationTop
	if m.Page.HasMargins {
		bottom, top = m.Page.Margins.Bottom, m.Page.Margins.Top
	}
	p := &paginator{
		doc: &Document{
			Width:      m.Page.Width,
			Height:     m.Page.Height,
			Background: m.Background,
			Model:      m,
		},
		metrics: metrics,
		limit:   m.Page.Height - bottom,
		top:     top,
	}
	p.addPage()
	return p
}

func (p *paginator) addPage() int {
	p.doc.Pages = append(p.doc.Pages, &Page{Number: len(p.doc.Pages) + 1})
	return len(p.doc.Pages) - 1
}

// position maps a declared y onto the flow page. Elements declared above
// the last table's bottom keep their y.
func (p *paginator) position(y float64) float64 {
	if !p.afterTbl || y < p.anchor {
		return y
	}
	return p.base + (y - p.anchor)
}

func (p *paginator) place(el *bind.Element) {
	box := el.Common().Box
	y := p.position(box.Y)
	if p.afterTbl && y != box.Y && y+box.H > p.limit {
		// Pushed off the page by the table above: continue on a new page.
		p.flow = p.addPage()
		p.base = p.top - (box.Y - p.anchor)
		y = p.top
	}
	box.Y = y
	pg := p.doc.Pages[p.flow]
	pg.Placements = append(pg.Placements, Placement{Element: el, Box: box})
}

func (p *paginator) table(el *bind.Element) {
	t := el.Element.(*scene.Table)
	rowH := p.metrics.RowHeight(t)
	headerH := 0.0
	if t.ShowHeader {
		headerH = rowH
	}
	lineH := p.metrics.FooterLineHeight(t)
	footerH := float64(len(el.Table.Footer)) * lineH

	n := len(el.Table.Records)
	empty := n == 0
	if empty {
		n = 1
	}

	page := p.flow
	y := p.position(t.Box.Y)
	first := page
	fresh := false
	start := 0
	var last *Placement
	for {
		take := int(math.Floor((p.limit - y - headerH) / rowH))
		if take < 1 {
			if !fresh {
				page, y, fresh = p.addPage(), p.top, true
				first = page
				continue
			}
			// The page cannot hold a single row; draw one anyway.
			take = 1
		}
		if take > n-start {
			take = n - start
		}
		frag := &TableFragment{
			Start:            start,
			End:              start + take,
			Header:           t.ShowHeader,
			Empty:            empty,
			Continued:        start > 0,
			RowHeight:        rowH,
			HeaderHeight:     headerH,
			FooterLineHeight: lineH,
		}
		if empty {
			frag.End = 0
		}
		box := t.Box
		box.Y = y
		box.H = headerH + float64(take)*rowH
		last = p.put(page, Placement{Element: el, Box: box, Fragment: frag})

		start += take
		if start >= n {
			break
		}
		page, y, fresh = p.addPage(), p.top, true
	}

	if footerH > 0 {
		if last.Box.Bottom()+footerH > p.limit {
			// Totals move to a continuation page under a repeated header.
			page = p.addPage()
			box := t.Box
			box.Y = p.top
			box.H = headerH
			last = p.put(page, Placement{Element: el, Box: box, Fragment: &TableFragment{
				Start:            last.Fragment.End,
				End:              last.Fragment.End,
				Header:           t.ShowHeader,
				Continued:        true,
				RowHeight:        rowH,
				HeaderHeight:     headerH,
				FooterLineHeight: lineH,
			}})
		}
		last.Fragment.Footer = true
		last.Box.H += footerH
	}

	end := last.Box.Bottom()
	p.flow = page
	p.afterTbl = true
	p.anchor = t.Box.Bottom()
	p.base = end
	if page == first && !fresh {
		// Same page as declared: shift followers by the overflow only.
		p.base = math.Max(end, p.anchor)
	}
}

func (p *paginator) put(page int, pl Placement) *Placement {
	pg := p.doc.Pages[page]
	pg.Placements = append(pg.Placements, pl)
	return &pg.Placements[len(pg.Placements)-1]
}

// furnish places page furniture on every page: watermarks beneath all
// other content, page numbers on top.
func (p *paginator) furnish(furniture []*bind.Element) {
	for _, pg := range p.doc.Pages {
		var under, over []Placement
		for _, el := range furniture {
			pl := Placement{Element: el, Box: el.Common().Box}
			if _, ok := el.Element.(*scene.Watermark); ok {
				under = append(under, pl)
			} else {
				over = append(over, pl)
			}
		}
		pg.Placements = append(append(under, pg.Placements...), over...)
	}
}

// TotalRows returns the number of body rows placed for the table element
// el across all pages.
func (d *Document) TotalRows(el *bind.Element) int {
	total := 0
	for _, pg := range d.Pages {
		for _, pl := range pg.Placements {
			if pl.Element == el && pl.Fragment != nil {
				total += pl.Fragment.Rows()
			}
		}
	}
	return total
}
