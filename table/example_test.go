package table_test

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/invoicepdf/table"
)

// ExampleTable draws one page of an invoice table: a header, the body rows
// that fit the page, and the totals block.
func ExampleTable() {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()

	tbl := table.New(pdf)
	tbl.SetColumns(
		table.ColumnDef{Width: 275},
		table.ColumnDef{Width: 60, Align: "R"},
		table.ColumnDef{Width: 80, Align: "R"},
		table.ColumnDef{Width: 100, Align: "R"},
	)
	tbl.SetPosition(40, 120).SetRowHeight(20)
	tbl.SetStyle(table.TableStyle{
		CellPadding: table.UniformPadding(4),
		Border:      &table.BorderStyle{Width: 0.5, Color: table.RGBColor{R: 200, G: 200, B: 200}},
		HeaderStyle: &table.CellStyle{
			FillColor: &table.RGBColor{R: 41, G: 128, B: 185},
			TextColor: &table.RGBColor{R: 255, G: 255, B: 255},
			Font:      &table.FontSpec{Family: "Helvetica", Style: "B", Size: 10},
		},
		CellFont: &table.FontSpec{Family: "Helvetica", Size: 10},
		AlternateRows: &table.AlternateStyle{
			Even: table.CellStyle{FillColor: &table.RGBColor{R: 245, G: 245, B: 245}},
			Odd:  table.CellStyle{FillColor: &table.RGBColor{R: 255, G: 255, B: 255}},
		},
	})

	header := tbl.AddHeaderRow()
	header.AddCell("Description")
	header.AddCell("Qty")
	header.AddCell("Price")
	header.AddCell("Amount")

	data := [][]string{
		{"Website relaunch", "12", "€80.00", "€960.00"},
		{"Hosting (annual)", "1", "€40.00", "€40.00"},
	}
	for _, d := range data {
		row := tbl.AddRow()
		for _, v := range d {
			row.AddCell(v)
		}
	}

	total := tbl.AddFooterRow()
	total.AddCell("Total").SetColspan(3).SetAlign("R")
	total.AddCell("€1,000.00").SetAlign("R")

	if err := tbl.Render(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(pdf.PageNo(), pdf.Output(io.Discard))
	// Output:
	// 1 <nil>
}
