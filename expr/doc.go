// Package expr implements the template expression language used in text
// content, barcode values and table columns.
//
// The language is a closed grammar evaluated by a small interpreter over a
// read-only Scope. There is no path from a template to arbitrary code: values
// are navigated only through maps, rows and slices, and the only callable
// names are the helpers listed in Functions.
//
// Text templates mix literal text with tags:
//
//	Invoice {{ document.number }} for {{ customer.name }}
//	{% if document.status == "paid" %}PAID{% else %}Due {{ formatDate(document.due_date) }}{% endif %}
//	{% for row in items %}{{ loop.index }}. {{ row.description }}: {{ formatMoney(row.total_amount) }}
//	{% endfor %}
//	{# comments are dropped #}
//
// Expressions support string and number literals, true, false, null, dot
// paths (customer.name, items.0.description), parentheses, not/!, unary
// minus, == != < <= > >=, and/&& and or/||, and helper calls.
//
// Missing references evaluate to null and print as an empty string. Syntax
// errors are reported by Compile as *SyntaxError and never occur at render
// time.
package expr

// Version is the version of the expression language surface.
const Version = "1"
