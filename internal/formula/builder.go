// Package formula builds Airtable filterByFormula expressions.
package formula

import (
	"strings"
)

// Month columns, current name first.
var MonthFields = []string{"Month", "Month (Keyword Targets)"}

// DefaultClientField is the linked-record column holding client membership.
const DefaultClientField = "Clients"

// Options selects which clauses Build emits. Zero values omit the clause.
type Options struct {
	Month       string
	ClientIDs   []string
	ClientField string
	// ContentType is the display form used in the base, e.g. "Article".
	ContentType string
	// RequireApprovalField keeps only records whose type-specific approval
	// column is non-empty.
	RequireApprovalField bool
}

// Build returns the combined formula, or "" when no clause applies.
func Build(opts Options) string {
	var clauses []string
	if clause := MonthClause(opts.Month); clause != "" {
		clauses = append(clauses, clause)
	}
	field := opts.ClientField
	if field == "" {
		field = DefaultClientField
	}
	if clause := ClientClause(field, opts.ClientIDs); clause != "" {
		clauses = append(clauses, clause)
	}
	if clause := ContentTypeClause(opts.ContentType, opts.RequireApprovalField); clause != "" {
		clauses = append(clauses, clause)
	}
	return And(clauses...)
}

// MonthClause matches either month column.
func MonthClause(month string) string {
	month = strings.TrimSpace(month)
	if month == "" {
		return ""
	}
	parts := make([]string, 0, len(MonthFields))
	for _, name := range MonthFields {
		parts = append(parts, Field(name)+" = "+Quote(month))
	}
	return Or(parts...)
}

// ClientClause matches records linked to any of ids.
func ClientClause(field string, ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		parts = append(parts, "FIND("+Quote(id)+", ARRAYJOIN("+Field(field)+", ','))")
	}
	return Or(parts...)
}

// ContentTypeClause matches rows tagged with contentType, or legacy rows that
// carry a value in the type-specific approval column.
func ContentTypeClause(contentType string, requireApproval bool) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	hasApproval := "NOT(" + Field(contentType+" Approval") + " = '')"
	if requireApproval {
		return hasApproval
	}
	return Or(Field("Content Type")+" = "+Quote(contentType), hasApproval)
}

// ByEmail matches a user row by case-insensitive email.
func ByEmail(email string) string {
	return "LOWER(" + Field("Email") + ") = " + Quote(strings.ToLower(strings.TrimSpace(email)))
}

// RecordIDIn matches any of the given record ids.
func RecordIDIn(ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			parts = append(parts, "RECORD_ID() = "+Quote(id))
		}
	}
	return Or(parts...)
}

// And joins non-empty clauses. A single clause is returned unwrapped.
func And(clauses ...string) string { return join("AND", clauses) }

// Or joins non-empty clauses. A single clause is returned unwrapped.
func Or(clauses ...string) string { return join("OR", clauses) }

func join(op string, clauses []string) string {
	kept := clauses[:0:0]
	for _, c := range clauses {
		if c != "" {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	default:
		return op + "(" + strings.Join(kept, ", ") + ")"
	}
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)

// Quote renders value as a single-quoted formula string literal.
func Quote(value string) string {
	return "'" + literalEscaper.Replace(value) + "'"
}

// Field renders a column reference. Braces inside the name cannot be
// escaped in the formula language and are dropped.
func Field(name string) string {
	name = strings.NewReplacer("{", "", "}", "").Replace(name)
	return "{" + name + "}"
}
