// Package store reads invoices and quotes from a SQL database and turns
// them into data contexts for rendering.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lvillar/invoicepdf/datactx"
)

var (
	ErrNotFound    = errors.New("store: document not found")
	ErrUnknownKind = errors.New("store: unknown document kind")
)

// Kinds are the document kinds the store serves.
var Kinds = []string{"invoice", "quote"}

// Open connects to the database selected by driver ("sqlite" or
// "postgres").
func Open(driver, dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	var dial gorm.Dialector
	switch driver {
	case "sqlite":
		dial = sqlite.Open(dsn)
	case "postgres":
		dial = postgres.Open(normalizeDSN(dsn))
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return db, nil
}

// normalizeDSN accepts URL or key=value DSNs and defaults sslmode to
// disable for the latter.
func normalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	lower := strings.ToLower(s)
	if s == "" || strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	s = strings.Join(strings.Fields(s), " ")
	if !strings.Contains(lower, "sslmode=") {
		s += " sslmode=disable"
	}
	return s
}

// Migrate creates or updates the read model tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Source loads documents as data contexts.
type Source struct {
	db *gorm.DB
}

// NewSource returns a Source reading from db.
func NewSource(db *gorm.DB) *Source {
	return &Source{db: db}
}

// Load returns the document of the given kind and id with its customer,
// organization and billable rows.
func (s *Source) Load(ctx context.Context, kind string, id uint) (*datactx.Snapshot, error) {
	if !knownKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	byPosition := func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }

	var d Document
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("Customer").
		Preload("Entries", byPosition).
		Preload("Goods", byPosition).
		Preload("Expenses", byPosition).
		Where("kind = ?", kind).
		First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s %d: %w", kind, id, err)
	}
	return d.Snapshot(), nil
}

func knownKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Snapshot converts d and its loaded associations.
func (d *Document) Snapshot() *datactx.Snapshot {
	doc := datactx.Document{
		Kind:      d.Kind,
		Number:    d.Number,
		Status:    d.Status,
		Reference: d.Reference,
		IssueDate: date(d.IssueDate),
		DueDate:   date(d.DueDate),
		Subtotal:  d.Subtotal,
		TaxRate:   d.TaxRate,
		Tax:       d.Tax,
		Total:     d.Total,
		Currency:  d.Currency,
		Notes:     d.Notes,
		Terms:     d.PaymentTerms,
	}
	c := d.Customer
	cust := datactx.Customer{
		Number:  c.Number,
		Name:    c.Name,
		Company: c.Company,
		Contact: c.Contact,
		Email:   c.Email,
		Address: c.Address,
		VATID:   c.VATID,
	}
	o := d.Organization
	org := datactx.Organization{
		Name:        o.Name,
		Address:     o.Address,
		Email:       o.Email,
		Phone:       o.Phone,
		Website:     o.Website,
		VATID:       o.VATID,
		BankAccount: o.BankAccount,
		Logo:        o.Logo,
		Locale:      o.Locale,
		Currency:    o.Currency,
	}

	items := make([]datactx.LineItem, len(d.Entries))
	for i, e := range d.Entries {
		items[i] = datactx.LineItem{
			Description: e.Description,
			Activity:    e.Activity,
			Project:     e.Project,
			Duration:    e.Duration,
			Hours:       e.Hours,
			Rate:        e.Rate,
			Total:       e.Total,
			Begin:       date(e.Begin),
		}
	}
	goods := make([]datactx.ExtraGood, len(d.Goods))
	for i, g := range d.Goods {
		goods[i] = datactx.ExtraGood{
			Name:      g.Name,
			SKU:       g.SKU,
			Category:  g.Category,
			Quantity:  g.Quantity,
			UnitPrice: g.UnitPrice,
			Total:     g.Total,
		}
	}
	costs := make([]datactx.Expense, len(d.Expenses))
	for i, x := range d.Expenses {
		costs[i] = datactx.Expense{
			Description: x.Description,
			Category:    x.Category,
			Quantity:    x.Quantity,
			Cost:        x.Cost,
			Total:       x.Total,
			Date:        date(x.Date),
		}
	}
	return datactx.NewSnapshot(doc, cust, org, items, goods, costs)
}

func date(t *time.Time) *datactx.Date {
	if t == nil {
		return nil
	}
	return datactx.NewDate(*t)
}
