package datactx

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date is a calendar date or timestamp that accepts both "2006-01-02" and
// RFC 3339 on input.
type Date struct {
	time.Time
}

// NewDate wraps t.
func NewDate(t time.Time) *Date {
	return &Date{Time: t}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("datactx: invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Document holds invoice or quote header fields. Amounts are computed by the
// domain owner; the engine only prints them.
type Document struct {
	Kind      string          `json:"kind"` // invoice, quote
	Number    string          `json:"number"`
	Status    string          `json:"status,omitempty"`
	Reference string          `json:"reference,omitempty"`
	IssueDate *Date           `json:"issue_date,omitempty"`
	DueDate   *Date           `json:"due_date,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Terms     string          `json:"payment_terms,omitempty"`
	Extra     map[string]any  `json:"extra,omitempty"`
}

// Customer holds the billed party.
type Customer struct {
	Number  string         `json:"number,omitempty"`
	Name    string         `json:"name"`
	Company string         `json:"company,omitempty"`
	Contact string         `json:"contact,omitempty"`
	Email   string         `json:"email,omitempty"`
	Address string         `json:"address,omitempty"`
	VATID   string         `json:"vat_id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// Organization holds the issuing organization's settings.
type Organization struct {
	Name        string         `json:"name"`
	Address     string         `json:"address,omitempty"`
	Email       string         `json:"email,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Website     string         `json:"website,omitempty"`
	VATID       string         `json:"vat_id,omitempty"`
	BankAccount string         `json:"bank_account,omitempty"`
	Logo        string         `json:"logo,omitempty"`
	Locale      string         `json:"locale,omitempty"`
	Currency    string         `json:"currency,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Snapshot is an immutable Context built from plain structs. It is the
// concrete context used by the CLI, the HTTP server and tests.
type Snapshot struct {
	Document     Document          `json:"document"`
	Customer     Customer          `json:"customer"`
	Organization Organization      `json:"organization"`
	Items        []LineItem        `json:"line_items"`
	Goods        []ExtraGood       `json:"extra_goods"`
	Costs        []Expense         `json:"expenses"`
	Translations map[string]string `json:"translations,omitempty"`
	Assets       map[string]string `json:"assets,omitempty"`

	tree map[string]any
}

// Freeze builds the lookup tree. It is called by Decode and NewSnapshot;
// call it yourself when filling a Snapshot literal.
func (s *Snapshot) Freeze() *Snapshot {
	s.tree = s.buildTree()
	return s
}

func (s *Snapshot) buildTree() map[string]any {
	org := organizationFields(s.Organization)
	return map[string]any{
		"document":     documentFields(s.Document),
		"customer":     customerFields(s.Customer),
		"organization": org,
		"org":          org,
	}
}

// NewSnapshot returns a frozen Snapshot.
func NewSnapshot(doc Document, cust Customer, org Organization, items []LineItem, goods []ExtraGood, costs []Expense) *Snapshot {
	s := &Snapshot{
		Document:     doc,
		Customer:     cust,
		Organization: org,
		Items:        items,
		Goods:        goods,
		Costs:        costs,
	}
	return s.Freeze()
}

// Decode reads a JSON snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("datactx: decoding context: %w", err)
	}
	return s.Freeze(), nil
}

func (s *Snapshot) Value(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	tree := s.tree
	if tree == nil {
		// Not frozen: build a private tree rather than mutate a shared value.
		tree = s.buildTree()
	}
	var cur any = tree
	for _, part := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (s *Snapshot) LineItems() []LineItem  { return s.Items }
func (s *Snapshot) ExtraGoods() []ExtraGood { return s.Goods }
func (s *Snapshot) Expenses() []Expense     { return s.Costs }

func (s *Snapshot) Locale() string {
	if s.Organization.Locale != "" {
		return s.Organization.Locale
	}
	return "en"
}

func (s *Snapshot) Currency() string {
	if s.Document.Currency != "" {
		return s.Document.Currency
	}
	if s.Organization.Currency != "" {
		return s.Organization.Currency
	}
	return "EUR"
}

func (s *Snapshot) Translate(key string) (string, bool) {
	v, ok := s.Translations[key]
	return v, ok
}

func (s *Snapshot) Asset(key string) (string, bool) {
	if v, ok := s.Assets[key]; ok {
		return v, true
	}
	if key == "logo" && s.Organization.Logo != "" {
		return s.Organization.Logo, true
	}
	return "", false
}

func documentFields(d Document) map[string]any {
	m := map[string]any{
		"kind":          d.Kind,
		"number":        d.Number,
		"status":        d.Status,
		"reference":     d.Reference,
		"subtotal":      d.Subtotal,
		"tax_rate":      d.TaxRate,
		"tax":           d.Tax,
		"total":         d.Total,
		"currency":      d.Currency,
		"notes":         d.Notes,
		"payment_terms": d.Terms,
	}
	if d.IssueDate != nil {
		m["issue_date"] = d.IssueDate.Time
	}
	if d.DueDate != nil {
		m["due_date"] = d.DueDate.Time
	}
	mergeExtra(m, d.Extra)
	return m
}

func customerFields(c Customer) map[string]any {
	m := map[string]any{
		"number":  c.Number,
		"name":    c.Name,
		"company": c.Company,
		"contact": c.Contact,
		"email":   c.Email,
		"address": c.Address,
		"vat_id":  c.VATID,
	}
	mergeExtra(m, c.Extra)
	return m
}

func organizationFields(o Organization) map[string]any {
	m := map[string]any{
		"name":         o.Name,
		"address":      o.Address,
		"email":        o.Email,
		"phone":        o.Phone,
		"website":      o.Website,
		"vat_id":       o.VATID,
		"bank_account": o.BankAccount,
		"logo":         o.Logo,
		"locale":       o.Locale,
		"currency":     o.Currency,
	}
	mergeExtra(m, o.Extra)
	return m
}

// mergeExtra adds extra fields without overriding the typed ones.
func mergeExtra(dst, extra map[string]any) {
	for k, v := range extra {
		if _, taken := dst[k]; !taken {
			dst[k] = v
		}
	}
}
