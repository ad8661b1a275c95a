// Package datactx defines the read-only business data a document template is
// rendered against.
//
// A Context is supplied by the invoice/quote domain owner. The rendering
// engine only reads from it: document, customer and organization fields are
// reached through dot paths, billable rows through the LineItems, ExtraGoods
// and Expenses accessors.
package datactx

import (
	"time"

	"github.com/shopspring/decimal"
)

// Context is the read-only data a template is evaluated against.
type Context interface {
	// Value resolves a dot path such as ["customer", "name"].
	Value(path []string) (any, bool)

	// LineItems returns the time-based entries, the only rows older
	// templates were designed for.
	LineItems() []LineItem
	ExtraGoods() []ExtraGood
	Expenses() []Expense

	Locale() string
	Currency() string

	// Translate returns a context-specific override for a translation key.
	Translate(key string) (string, bool)

	// Asset maps a logical asset key (e.g. "logo") to a loadable reference.
	Asset(key string) (string, bool)
}

// SourceKind identifies which upstream collection a Row came from.
type SourceKind string

const (
	KindLineItem  SourceKind = "line_item"
	KindExtraGood SourceKind = "extra_good"
	KindExpense   SourceKind = "expense"
)

// Row is one normalized billable row as shown in a document table.
type Row struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	SourceKind  SourceKind      `json:"source_kind"`
	SKU         string          `json:"sku,omitempty"`
	Category    string          `json:"category,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
}

// Field returns the row attribute addressed by name, as used by table
// columns and expressions (row.description, row.total_amount, ...).
func (r Row) Field(name string) (any, bool) {
	switch name {
	case "description":
		return r.Description, true
	case "quantity":
		return r.Quantity, true
	case "unit_price":
		return r.UnitPrice, true
	case "total_amount", "total", "amount":
		return r.TotalAmount, true
	case "source_kind", "kind":
		return string(r.SourceKind), true
	case "sku":
		return r.SKU, true
	case "category":
		return r.Category, true
	case "date":
		if r.Date == nil {
			return nil, false
		}
		return *r.Date, true
	}
	return nil, false
}

// LineItem is a time-based billable entry (a timesheet record).
type LineItem struct {
	Description string          `json:"description"`
	Activity    string          `json:"activity,omitempty"`
	Project     string          `json:"project,omitempty"`
	Duration    int64           `json:"duration,omitempty"` // seconds
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Total       decimal.Decimal `json:"total"`
	Begin       *Date           `json:"begin,omitempty"`
}

// ExtraGood is a non-time product or service sold on a document.
type ExtraGood struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Category  string          `json:"category,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Expense is a re-billed cost.
type Expense struct {
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Cost        decimal.Decimal `json:"cost"`
	Total       decimal.Decimal `json:"total"`
	Date        *Date           `json:"date,omitempty"`
}
