// Package mock holds the deterministic fixtures served when the base is
// unreachable or unconfigured.
package mock

import (
	"slices"
	"strings"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/formula"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

const (
	ClientAcme   = "recClientAcme"
	ClientGlobex = "recClientGlobex"
	StaffWriter  = "usrWriter"
	StaffEditor  = "usrEditor"
)

type User struct {
	rbac.User
	Password string
}

var users = []User{
	{User: rbac.User{ID: "usrAdmin", Name: "Portal Admin", Email: "admin@scalerrs.com", Role: rbac.RoleAdmin, Clients: []string{}}, Password: "admin123"},
	{User: rbac.User{ID: "usrClientAcme", Name: "Acme Marketing", Email: "client@acme.com", Role: rbac.RoleClient, Clients: []string{ClientAcme}}, Password: "client123"},
	{User: rbac.User{ID: StaffWriter, Name: "Riley Writer", Email: "writer@scalerrs.com", Role: rbac.RoleStaff, Clients: []string{ClientAcme, ClientGlobex}}, Password: "writer123"},
}

// Users returns a copy of the mock user table.
func Users() []User {
	return slices.Clone(users)
}

// FindUser looks up a mock user by case-insensitive email.
func FindUser(email string) (User, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range users {
		if strings.ToLower(u.Email) == email {
			return u, true
		}
	}
	return User{}, false
}

var clients = []airtable.Record{
	{ID: ClientAcme, Fields: fields.Bag{"Name": "Acme Corp", "Website": "https://acme.example"}},
	{ID: ClientGlobex, Fields: fields.Bag{"Name": "Globex", "Website": "https://globex.example"}},
}

// Clients returns the mock Clients table.
func Clients() []airtable.Record {
	return clone(clients)
}

var records = map[viewmodel.Kind][]airtable.Record{
	viewmodel.KindKeywords: {
		{ID: "recMockKw1", Fields: fields.Bag{
			"Main Keyword": "technical seo audit", "Search Volume": 1900, "Keyword Difficulty": 42,
			"Current Rank": 14, "SEO Strategist": "Sam Strategist", "Status": "Awaiting Client Approval",
			"Month": "May 2025", "Clients": []any{ClientAcme}, "Content Type": "Keyword",
			"AssignedTo": StaffWriter,
		}},
		{ID: "recMockKw2", Fields: fields.Bag{
			"Main Keyword": "b2b link building", "Search Volume": 720, "Keyword Difficulty": 55,
			"Status": "Approved", "Keyword Approval": "Approved",
			"Month": "May 2025", "Clients": []any{ClientGlobex}, "Content Type": "Keyword",
		}},
	},
	viewmodel.KindBriefs: {
		{ID: "recMockBr1", Fields: fields.Bag{
			"Meta Title": "The complete technical SEO audit checklist", "Content Writer": StaffWriter,
			"SEO Strategist": "Sam Strategist", "Keyword/Content Status": "Brief Ready for Review",
			"Content Brief Link (G Doc)": "https://docs.example/brief-1", "Due Date (Brief)": "2025-05-12",
			"Month": "May 2025", "Clients": []any{ClientAcme}, "Content Type": "Brief",
		}},
		{ID: "recMockBr2", Fields: fields.Bag{
			"Meta Title": "Link building for SaaS", "Content Writer": "usrOther",
			"Keyword/Content Status": "In Progress", "Month": "June 2025",
			"Clients": []any{ClientGlobex}, "Content Type": "Brief",
		}},
	},
	viewmodel.KindArticles: {
		{ID: "recMockAr1", Fields: fields.Bag{
			"Article Title": "How to run a technical SEO audit", "Content Writer": StaffWriter,
			"Content Editor": StaffEditor, "Final Word Count": 2150, "Status": "Writing",
			"Content Link (G Doc)": "https://docs.example/article-1", "Due Date (Publication)": "2025-05-28",
			"Month": "May 2025", "Clients": []any{ClientAcme}, "Content Type": "Article",
		}},
		{ID: "recMockAr2", Fields: fields.Bag{
			"Article Title": "Ten link building myths", "Content Editor": StaffEditor,
			"Final Word Count": 1600, "Status": "Published", "Article URL": "https://globex.example/blog/myths",
			"Month": "May 2025", "Clients": []any{ClientGlobex}, "Content Type": "Article",
		}},
	},
	viewmodel.KindBacklinks: {
		{ID: "recMockBl1", Fields: fields.Bag{
			"Domain URL": "searchweekly.example", "DR ( API )": 68, "Link Type": "Guest Post",
			"Source URL": "https://searchweekly.example/audits", "Target URL": "https://acme.example/audit",
			"Went Live On": "2025-05-03", "Status": "Live", "Month": "May 2025", "Clients": []any{ClientAcme},
		}},
		{ID: "recMockBl2", Fields: fields.Bag{
			"Domain URL": "saasdigest.example", "DR ( API )": 54, "Link Type": "Niche Edit",
			"Status": "Pending Approval", "Month": "May 2025", "Clients": []any{ClientGlobex},
		}},
	},
}

// Records returns the raw mock rows for kind.
func Records(kind viewmodel.Kind) []airtable.Record {
	return clone(records[kind])
}

// Items returns the mapped mock rows for kind, narrowed to month when one
// is given.
func Items(kind viewmodel.Kind, month string) []viewmodel.Item {
	rows := Records(kind)
	if month != "" {
		kept := rows[:0]
		for _, r := range rows {
			if fields.String(r.Fields, formula.MonthFields) == month {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	return viewmodel.FromRecords(kind, rows)
}

func clone(in []airtable.Record) []airtable.Record {
	out := make([]airtable.Record, 0, len(in))
	for _, r := range in {
		bag := make(fields.Bag, len(r.Fields))
		for k, v := range r.Fields {
			bag[k] = v
		}
		out = append(out, airtable.Record{ID: r.ID, CreatedTime: r.CreatedTime, Fields: bag})
	}
	return out
}
