// Package rows maps a table's data-source key to the ordered sequence of
// billable rows it displays.
//
// Two keys are supported. SourceCombined yields line items, then extra goods,
// then expenses. SourceLegacy is the key older templates were saved with; it
// used to yield line items only and now yields the same sequence as
// SourceCombined, so saved templates pick up newer billable categories instead
// of silently omitting them.
package rows

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lvillar/invoicepdf/datactx"
)

// Source is a table data-source key.
type Source string

const (
	SourceCombined Source = "combined_items"
	SourceLegacy   Source = "line_items"
)

// ErrUnknownSource is returned for a key that is neither SourceCombined nor
// SourceLegacy.
var ErrUnknownSource = errors.New("rows: unknown data source")

// Known reports whether s is a supported key.
func Known(s Source) bool {
	return s == SourceCombined || s == SourceLegacy
}

// Sources lists the supported keys.
func Sources() []Source {
	return []Source{SourceCombined, SourceLegacy}
}

var secondsPerHour = decimal.NewFromInt(3600)

// Resolver resolves data-source keys. The zero value is ready to use and
// safe for concurrent use; it holds no state.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the rows for key. The result is a fresh slice on every call
// and ctx is never modified.
func (r *Resolver) Resolve(key Source, ctx datactx.Context) ([]datactx.Row, error) {
	switch key {
	case SourceCombined, SourceLegacy:
		// The legacy key used to stop after the line items.
		return combined(ctx), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
}

// LegacyOnly returns just the line-item rows, i.e. what SourceLegacy yielded
// before extra goods and expenses existed. It is kept for comparisons and
// migrations; tables never bind to it.
func (r *Resolver) LegacyOnly(ctx datactx.Context) []datactx.Row {
	items := ctx.LineItems()
	out := make([]datactx.Row, 0, len(items))
	for _, it := range items {
		out = append(out, fromLineItem(it))
	}
	return out
}

func combined(ctx datactx.Context) []datactx.Row {
	items, goods, costs := ctx.LineItems(), ctx.ExtraGoods(), ctx.Expenses()
	out := make([]datactx.Row, 0, len(items)+len(goods)+len(costs))
	for _, it := range items {
		out = append(out, fromLineItem(it))
	}
	for _, g := range goods {
		out = append(out, fromExtraGood(g))
	}
	for _, e := range costs {
		out = append(out, fromExpense(e))
	}
	return out
}

func fromLineItem(it datactx.LineItem) datactx.Row {
	desc := it.Description
	if desc == "" {
		desc = it.Activity
	}
	if desc == "" {
		desc = it.Project
	}
	qty := it.Hours
	if qty.IsZero() && it.Duration > 0 {
		qty = decimal.NewFromInt(it.Duration).DivRound(secondsPerHour, 2)
	}
	row := datactx.Row{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   it.Rate,
		TotalAmount: totalOr(it.Total, qty, it.Rate),
		SourceKind:  datactx.KindLineItem,
		Category:    it.Project,
	}
	if it.Begin != nil {
		t := it.Begin.Time
		row.Date = &t
	}
	return row
}

func fromExtraGood(g datactx.ExtraGood) datactx.Row {
	qty := g.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	return datactx.Row{
		Description: g.Name,
		Quantity:    qty,
		UnitPrice:   g.UnitPrice,
		TotalAmount: totalOr(g.Total, qty, g.UnitPrice),
		SourceKind:  datactx.KindExtraGood,
		SKU:         g.SKU,
		Category:    g.Category,
	}
}

func fromExpense(e datactx.Expense) datactx.Row {
	desc := e.Description
	if desc == "" {
		desc = e.Category
	}
	qty := e.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	row := datactx.Row{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   e.Cost,
		TotalAmount: totalOr(e.Total, qty, e.Cost),
		SourceKind:  datactx.KindExpense,
		Category:    e.Category,
	}
	if e.Date != nil {
		t := e.Date.Time
		row.Date = &t
	}
	return row
}

// totalOr returns total, or qty*price when the upstream total is unset.
func totalOr(total, qty, price decimal.Decimal) decimal.Decimal {
	if !total.IsZero() {
		return total
	}
	return qty.Mul(price).Round(2)
}
