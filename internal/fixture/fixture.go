// Package fixture builds sample data contexts and templates for tests.
package fixture

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lvillar/invoicepdf/datactx"
)

// Issued is the fixed issue date used by sample documents.
var Issued = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

// Clock returns Issued, for engines under test.
func Clock() time.Time { return Issued }

// Context returns a snapshot with n line items, g extra goods and e expenses,
// named item1.., good1.. and expense1.. in order.
func Context(n, g, e int) *datactx.Snapshot {
	items := make([]datactx.LineItem, n)
	for i := range items {
		items[i] = datactx.LineItem{
			Description: fmt.Sprintf("item%d", i+1),
			Project:     "Website",
			Hours:       decimal.NewFromFloat(1.5),
			Rate:        decimal.NewFromInt(80),
		}
	}
	goods := make([]datactx.ExtraGood, g)
	for i := range goods {
		goods[i] = datactx.ExtraGood{
			Name:      fmt.Sprintf("good%d", i+1),
			SKU:       fmt.Sprintf("SKU-%03d", i+1),
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(15),
		}
	}
	costs := make([]datactx.Expense, e)
	for i := range costs {
		costs[i] = datactx.Expense{
			Description: fmt.Sprintf("expense%d", i+1),
			Category:    "Travel",
			Cost:        decimal.NewFromFloat(42.5),
		}
	}

	doc := datactx.Document{
		Kind:      "invoice",
		Number:    "INV-2024-0042",
		Status:    "final",
		IssueDate: datactx.NewDate(Issued),
		DueDate:   datactx.NewDate(Issued.AddDate(0, 0, 14)),
		Subtotal:  decimal.NewFromInt(1000),
		TaxRate:   decimal.NewFromInt(19),
		Tax:       decimal.NewFromInt(190),
		Total:     decimal.NewFromInt(1190),
		Currency:  "EUR",
	}
	cust := datactx.Customer{
		Number:  "C-7",
		Name:    "Jane Roe",
		Company: "Roe & Partners",
		Address: "1 Main Street\n10115 Berlin",
	}
	org := datactx.Organization{
		Name:    "Acme Consulting",
		Address: "42 Market Square",
		VATID:   "DE123456789",
		Locale:  "en",
	}
	return datactx.NewSnapshot(doc, cust, org, items, goods, costs)
}

// TableTemplate returns a template JSON with one table bound to source at
// y on an A4 page, followed by a notes text element.
func TableTemplate(source string, y float64) []byte {
	return []byte(fmt.Sprintf(`{
  "page": {"size": "A4"},
  "elements": [
    {"id": "title", "type": "text", "x": 40, "y": 40, "width": 300, "height": 24,
     "content": "Invoice {{ document.number }}", "style": {"fontSize": 18, "fontWeight": "bold"}},
    {"id": "items", "type": "table", "x": 40, "y": %g, "width": 515, "height": 200,
     "dataSource": %q, "showHeader": true, "showFooter": true,
     "columns": [
       {"header": "Description", "field": "description", "width": 275},
       {"header": "Qty", "field": "quantity", "width": 60, "align": "R"},
       {"header": "Price", "field": "unit_price", "width": 80, "align": "R", "format": "money"},
       {"header": "Amount", "field": "total_amount", "width": 100, "align": "R", "format": "money"}
     ]},
    {"id": "notes", "type": "text", "x": 40, "y": %g, "width": 515, "height": 20,
     "content": "Thank you for your business."}
  ]
}`, y, source, y+210))
}

// FullTemplate returns a template using every element kind. The image
// element refers to logo, which may be empty.
func FullTemplate(logo string) []byte {
	return []byte(fmt.Sprintf(`{
  "page": {"size": "A4", "margins": {"top": 36, "right": 40, "bottom": 36, "left": 40}},
  "elements": [
    {"id": "band", "type": "shape", "shape": "rect", "x": 0, "y": 0, "width": 595, "height": 12,
     "style": {"fill": "#2980b9"}},
    {"id": "logo", "type": "image", "x": 40, "y": 30, "width": 80, "height": 40, "src": %q},
    {"id": "title", "type": "text", "x": 300, "y": 30, "width": 255, "height": 24,
     "content": "{{ upper(t(document.kind)) }} {{ document.number }}",
     "style": {"fontSize": 16, "fontWeight": "bold", "align": "right", "color": "#333"}},
    {"id": "customer", "type": "text", "x": 40, "y": 90, "width": 250, "height": 60,
     "content": "{{ customer.name }}\n{{ customer.address }}", "rotation": 0, "opacity": 0.9},
    {"id": "dot", "type": "shape", "shape": "circle", "x": 520, "y": 90, "width": 20, "height": 20,
     "style": {"stroke": "navy", "strokeWidth": 2}},
    {"id": "rule", "type": "shape", "shape": "line", "x": 40, "y": 160, "width": 515, "height": 0},
    {"id": "items", "type": "table", "x": 40, "y": 180, "width": 515, "height": 200,
     "dataSource": "combined_items", "stripeFill": "#f5f5f5",
     "columns": [
       {"header": "{{ t('description') }}", "field": "description"},
       {"header": "{{ t('quantity') }}", "field": "quantity", "width": 60, "align": "R", "format": "number"},
       {"header": "{{ t('amount') }}", "field": "total_amount", "width": 100, "align": "R", "format": "money"}
     ]},
    {"id": "qr", "type": "barcode", "format": "qr", "x": 40, "y": 400, "width": 60, "height": 60,
     "value": "{{ document.number }}"},
    {"id": "code", "type": "barcode", "format": "code128", "x": 120, "y": 400, "width": 160, "height": 30,
     "value": "{{ document.number }}"},
    {"id": "date", "type": "currentDate", "x": 40, "y": 790, "width": 200, "height": 12, "pattern": "dd.MM.yyyy"},
    {"id": "pages", "type": "pageNumber", "x": 455, "y": 790, "width": 100, "height": 12,
     "style": {"align": "right", "fontSize": 8}},
    {"id": "draft", "type": "watermark", "text": "DRAFT", "zIndex": 5}
  ]
}`, logo))
}
