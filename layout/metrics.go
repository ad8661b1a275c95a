package layout

import (
	"fmt"

	"github.com/lvillar/invoicepdf/scene"
)

// Metrics are the constants pagination is computed from. All lengths are
// in points.
type Metrics struct {
	// LineHeightFactor multiplies the font size to give a text line's height.
	LineHeightFactor float64 `yaml:"line_height_factor"`
	// CellPadding is added above and below the text of every table row.
	CellPadding float64 `yaml:"cell_padding"`
	// BottomMargin is the lowest point content may reach, measured from the
	// page bottom, when the template declares no margins.
	BottomMargin float64 `yaml:"bottom_margin"`
	// ContinuationTop is where content resumes on a page added by a table
	// overflow, when the template declares no margins.
	ContinuationTop float64 `yaml:"continuation_top"`
	// DefaultFontSize applies to tables without a font size.
	DefaultFontSize float64 `yaml:"default_font_size"`
	// FooterLineFactor scales the row height for totals lines.
	FooterLineFactor float64 `yaml:"footer_line_factor"`
}

// DefaultMetrics returns the stock metrics: 10pt text on 1.2 line height
// with 4pt padding gives 20pt table rows.
func DefaultMetrics() Metrics {
	return Metrics{
		LineHeightFactor: 1.2,
		CellPadding:      4,
		BottomMargin:     36,
		ContinuationTop:  36,
		DefaultFontSize:  10,
		FooterLineFactor: 1,
	}
}

// Validate reports metrics that cannot paginate.
func (m Metrics) Validate() error {
	switch {
	case m.LineHeightFactor <= 0:
		return fmt.Errorf("layout: line height factor must be positive")
	case m.CellPadding < 0:
		return fmt.Errorf("layout: cell padding must not be negative")
	case m.BottomMargin < 0 || m.ContinuationTop < 0:
		return fmt.Errorf("layout: margins must not be negative")
	case m.DefaultFontSize <= 0:
		return fmt.Errorf("layout: default font size must be positive")
	case m.FooterLineFactor <= 0:
		return fmt.Errorf("layout: footer line factor must be positive")
	}
	return nil
}

// RowHeight is the fixed height of one body row of t.
func (m Metrics) RowHeight(t *scene.Table) float64 {
	return m.FontSize(t.Style)*m.LineHeightFactor + 2*m.CellPadding
}

// FooterLineHeight is the height of one totals line of t.
func (m Metrics) FooterLineHeight(t *scene.Table) float64 {
	return m.RowHeight(t) * m.FooterLineFactor
}

// FontSize returns the style's font size or the default.
func (m Metrics) FontSize(s scene.Style) float64 {
	if s.FontSize > 0 {
		return s.FontSize
	}
	return m.DefaultFontSize
}
