package table_test

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/invoicepdf/table"
)

func newTestPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()
	return pdf
}

func widths(ws ...float64) []table.ColumnDef {
	defs := make([]table.ColumnDef, len(ws))
	for i, w := range ws {
		defs[i] = table.ColumnDef{Width: w}
	}
	return defs
}

func output(t *testing.T, pdf *gofpdf.Fpdf) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("output: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	return buf.Bytes()
}

func TestBasicTable(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf)
	tb.SetColumns(widths(120, 180, 90, 90)...).SetPosition(40, 100)

	h := tb.AddHeaderRow()
	h.AddCell("ID")
	h.AddCell("Name")
	h.AddCell("Qty")
	h.AddCell("Price")

	r := tb.AddRow()
	r.AddCell("1")
	r.AddCell("Widget")
	r.AddCell("10")
	r.AddCell("€5.00")

	r2 := tb.AddRow()
	r2.AddCell("2")
	r2.AddCell("Gadget")
	r2.AddCell("5")
	r2.AddCell("€12.50")

	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	buf := output(t, pdf)
	t.Logf("Basic table PDF: %d bytes", len(buf))
}

func TestRowsNeverBreakPages(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf).SetColumns(widths(200, 200)...).SetPosition(40, 40).SetRowHeight(20)
	tb.AddHeaderRow().AddCell("Name")
	for i := 0; i < 60; i++ {
		r := tb.AddRow()
		r.AddCellf("Item %d", i+1)
		r.AddCellf("%d", i)
	}
	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if pdf.PageNo() != 1 {
		t.Errorf("pages = %d, want 1: pagination is the caller's job", pdf.PageNo())
	}
}

func TestAutoWidthColumns(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf)
	tb.SetColumns(widths(0, 0, 0)...).SetWidth(300).SetPosition(40, 40)

	r := tb.AddRow()
	r.AddCell("Auto 1")
	r.AddCell("Auto 2")
	r.AddCell("Auto 3")

	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	output(t, pdf)
}

func TestAlternatingRowsAndFooter(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf)
	tb.SetColumns(widths(200, 100, 100)...).SetPosition(40, 40)
	tb.SetStyle(table.TableStyle{
		CellPadding: table.UniformPadding(4),
		Border:      &table.BorderStyle{Width: 0.5, Color: table.RGBColor{R: 180, G: 180, B: 180}},
		AlternateRows: &table.AlternateStyle{
			Even: table.CellStyle{FillColor: &table.RGBColor{R: 240, G: 240, B: 240}},
			Odd:  table.CellStyle{FillColor: &table.RGBColor{R: 255, G: 255, B: 255}},
		},
		FooterStyle: &table.CellStyle{Font: &table.FontSpec{Family: "Helvetica", Style: "B", Size: 10}},
		CellFont:    &table.FontSpec{Family: "Helvetica", Size: 10},
	})

	for i := 0; i < 10; i++ {
		r := tb.AddRow()
		r.AddCellf("Row %d Col 1", i)
		r.AddCellf("Row %d Col 2", i)
		r.AddCellf("Row %d Col 3", i)
	}
	f := tb.AddFooterRow().SetHeight(18)
	f.AddCell("Total").SetColspan(2).SetAlign("R")
	f.AddCell("€1,190.00").SetAlign("R")

	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	output(t, pdf)
}

func TestColspan(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf)
	tb.SetColumns(widths(100, 100, 100, 100)...).SetPosition(40, 40)

	r1 := tb.AddRow()
	r1.AddCell("Spans 2 cols").SetColspan(2)
	r1.AddCell("Normal")
	r1.AddCell("Normal")

	r2 := tb.AddRow()
	r2.AddCell("A")
	r2.AddCell("B")
	r2.AddCell("C")
	r2.AddCell("D")

	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	output(t, pdf)
}

func TestLongTextIsShortened(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf).SetColumns(widths(60)...).SetPosition(40, 40)
	tb.AddRow().AddCell("A description far too long for a sixty point column")
	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if pdf.PageNo() != 1 {
		t.Errorf("pages = %d", pdf.PageNo())
	}
	output(t, pdf)
}

func TestStyledCells(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf)
	tb.SetColumns(widths(160, 160, 160)...).SetPosition(40, 40)
	tb.SetStyle(table.TableStyle{
		HeaderStyle: &table.CellStyle{
			FillColor: &table.RGBColor{R: 0, G: 51, B: 102},
			TextColor: &table.RGBColor{R: 255, G: 255, B: 255},
			Font:      &table.FontSpec{Family: "Helvetica", Style: "B", Size: 11},
		},
		CellFont: &table.FontSpec{Family: "Helvetica", Size: 10},
	})

	h := tb.AddHeaderRow()
	h.AddCell("Product")
	h.AddCell("Category")
	h.AddCell("Price")

	r := tb.AddRow()
	r.AddCell("Widget")
	r.AddCell("Hardware")
	r.AddCell("€5.00").SetAlign("R")

	if err := tb.Render(); err != nil {
		t.Fatalf("render: %v", err)
	}
	output(t, pdf)
}

func TestEmptyTable(t *testing.T) {
	pdf := newTestPDF()

	tb := table.New(pdf)
	tb.SetColumns(widths(60, 60)...)

	// No rows added - should not panic
	if err := tb.Render(); err != nil {
		t.Fatalf("render empty table: %v", err)
	}
}
