package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// builtin holds the labels the engine itself prints (table headers, totals,
// page numbers) so that fallback documents are localized too.
var builtin = map[language.Tag]map[string]string{
	language.English: {
		"invoice":     "Invoice",
		"quote":       "Quote",
		"date":        "Date",
		"due_date":    "Due date",
		"customer":    "Customer",
		"description": "Description",
		"quantity":    "Qty",
		"unit_price":  "Unit price",
		"amount":      "Amount",
		"subtotal":    "Subtotal",
		"tax":         "Tax",
		"total":       "Total",
		"page":        "Page",
		"of":          "of",
		"no_items":    "No items",
		"vat_id":      "VAT ID",
	},
	language.German: {
		"invoice":     "Rechnung",
		"quote":       "Angebot",
		"date":        "Datum",
		"due_date":    "Fällig am",
		"customer":    "Kunde",
		"description": "Beschreibung",
		"quantity":    "Menge",
		"unit_price":  "Einzelpreis",
		"amount":      "Betrag",
		"subtotal":    "Zwischensumme",
		"tax":         "MwSt.",
		"total":       "Gesamt",
		"page":        "Seite",
		"of":          "von",
		"no_items":    "Keine Positionen",
		"vat_id":      "USt-IdNr.",
	},
	language.French: {
		"invoice":     "Facture",
		"quote":       "Devis",
		"date":        "Date",
		"due_date":    "Échéance",
		"customer":    "Client",
		"description": "Description",
		"quantity":    "Qté",
		"unit_price":  "Prix unitaire",
		"amount":      "Montant",
		"subtotal":    "Sous-total",
		"tax":         "TVA",
		"total":       "Total",
		"page":        "Page",
		"of":          "sur",
		"no_items":    "Aucune ligne",
		"vat_id":      "N° TVA",
	},
}

var (
	labels  = buildCatalog()
	matcher = language.NewMatcher(labels.Languages())
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range builtin {
		for key, msg := range msgs {
			// Messages are static labels; none contain format verbs.
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// Overrides supplies context-specific translations that take precedence over
// the built-in catalog.
type Overrides interface {
	Translate(key string) (string, bool)
}

// Translate looks key up in overrides, then in the built-in catalog for
// locale. Unknown keys return the key itself.
func Translate(key, locale string, overrides Overrides) string {
	if overrides != nil {
		if v, ok := overrides.Translate(key); ok {
			return v
		}
	}
	tag, _, _ := matcher.Match(Tag(locale))
	p := message.NewPrinter(tag, message.Catalog(labels))
	return p.Sprintf(key)
}
