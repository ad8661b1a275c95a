package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Organization is the issuing company and its document settings.
type Organization struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Address     string
	Email       string
	Phone       string
	Website     string
	VATID       string
	BankAccount string
	Logo        string // asset reference
	Locale      string `gorm:"not null;default:'en'"`
	Currency    string `gorm:"not null;default:'EUR'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Customer is a billed party.
type Customer struct {
	ID             uint   `gorm:"primaryKey"`
	OrganizationID uint   `gorm:"not null;index"`
	Number         string `gorm:"index"`
	Name           string `gorm:"not null;index"`
	Company        string
	Contact        string
	Email          string
	Address        string
	VATID          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Document is an invoice or a quote with its header amounts.
type Document struct {
	ID             uint            `gorm:"primaryKey"`
	Kind           string          `gorm:"not null;index"` // invoice, quote
	Number         string          `gorm:"not null;index"`
	Status         string          `gorm:"not null;default:'draft'"`
	Reference      string
	IssueDate      *time.Time
	DueDate        *time.Time
	Subtotal       decimal.Decimal `gorm:"type:numeric"`
	TaxRate        decimal.Decimal `gorm:"type:numeric"`
	Tax            decimal.Decimal `gorm:"type:numeric"`
	Total          decimal.Decimal `gorm:"type:numeric"`
	Currency       string
	Notes          string
	PaymentTerms   string
	OrganizationID uint         `gorm:"not null;index"`
	Organization   Organization `gorm:"foreignKey:OrganizationID"`
	CustomerID     uint         `gorm:"not null;index"`
	Customer       Customer     `gorm:"foreignKey:CustomerID"`
	Entries        []TimeEntry  `gorm:"foreignKey:DocumentID"`
	Goods          []ExtraGood  `gorm:"foreignKey:DocumentID"`
	Expenses       []Expense    `gorm:"foreignKey:DocumentID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TimeEntry is a timesheet record billed on a document.
type TimeEntry struct {
	ID          uint `gorm:"primaryKey"`
	DocumentID  uint `gorm:"not null;index"`
	Position    int
	Description string
	Activity    string
	Project     string
	Duration    int64           // seconds
	Hours       decimal.Decimal `gorm:"type:numeric"`
	Rate        decimal.Decimal `gorm:"type:numeric"`
	Total       decimal.Decimal `gorm:"type:numeric"`
	Begin       *time.Time
}

// ExtraGood is a product or service line.
type ExtraGood struct {
	ID         uint `gorm:"primaryKey"`
	DocumentID uint `gorm:"not null;index"`
	Position   int
	Name       string          `gorm:"not null"`
	SKU        string          `gorm:"index"`
	Category   string
	Quantity   decimal.Decimal `gorm:"type:numeric"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric"`
	Total      decimal.Decimal `gorm:"type:numeric"`
}

// Expense is a re-billed cost.
type Expense struct {
	ID          uint `gorm:"primaryKey"`
	DocumentID  uint `gorm:"not null;index"`
	Position    int
	Description string
	Category    string
	Quantity    decimal.Decimal `gorm:"type:numeric"`
	Cost        decimal.Decimal `gorm:"type:numeric"`
	Total       decimal.Decimal `gorm:"type:numeric"`
	Date        *time.Time
}

// Models lists every read model, in migration order.
func Models() []any {
	return []any{&Organization{}, &Customer{}, &Document{}, &TimeEntry{}, &ExtraGood{}, &Expense{}}
}
