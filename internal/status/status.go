// Package status maps the free-text workflow statuses found in the base onto
// the fixed set the portal displays, and back.
package status

import (
	"slices"
	"strings"
	"unicode"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
)

type Canonical string

const (
	NotStarted       Canonical = "not_started"
	InProgress       Canonical = "in_progress"
	ReadyForReview   Canonical = "ready_for_review"
	AwaitingApproval Canonical = "awaiting_approval"
	RevisionsNeeded  Canonical = "revisions_needed"
	Approved         Canonical = "approved"
	Published        Canonical = "published"

	// Legacy values still accepted from older clients.
	NeedsRevision Canonical = "needs_revision"
	Resubmitted   Canonical = "resubmitted"
	Rejected      Canonical = "rejected"
)

// Current lists the statuses the UI renders, in workflow order.
var Current = []Canonical{
	NotStarted, InProgress, ReadyForReview, AwaitingApproval, RevisionsNeeded, Approved, Published,
}

// ApprovalFields are the per-content-type approval columns, checked in this
// order before the general status.
var ApprovalFields = []string{"Keyword Approval", "Brief Approval", "Article Approval", "Backlinks Approval"}

type trigger struct {
	status   Canonical
	contains []string
	// words match only as whole words, so "live" does not fire on
	// "delivered".
	words []string
}

// triggers is ordered; the first hit wins. Negated approvals come before
// "approve", and "revision" before "review" and the bare "needs".
var triggers = []trigger{
	{status: RevisionsNeeded, contains: []string{"not approved", "not approve", "unapproved", "disapprove"}},
	{status: Published, contains: []string{"published", "publish"}, words: []string{"live"}},
	{status: RevisionsNeeded, contains: []string{"revision", "changes requested", "needs changes", "reject"}},
	{status: AwaitingApproval, contains: []string{"awaiting", "pending approval", "pending client", "sent to client", "client review", "resubmit"}},
	{status: ReadyForReview, contains: []string{"ready for review", "needs review", "in review", "review"}},
	{status: Approved, contains: []string{"approved", "approve", "complete"}, words: []string{"done"}},
	{status: NotStarted, contains: []string{"not started", "to do", "todo", "backlog", "planned"}},
	{status: InProgress, contains: []string{"in progress", "progress", "writing", "drafting", "editing", "started", "working"}},
	{status: RevisionsNeeded, contains: []string{"needs"}},
}

func (t trigger) matches(text string, words []string) bool {
	for _, needle := range t.contains {
		if strings.Contains(text, needle) {
			return true
		}
	}
	for _, w := range t.words {
		if slices.Contains(words, w) {
			return true
		}
	}
	return false
}

// Map returns the canonical status for raw. When bag is non-nil, the first
// non-empty approval column overrides raw.
func Map(raw string, bag fields.Bag) Canonical {
	if bag != nil {
		for _, name := range ApprovalFields {
			if value := strings.TrimSpace(fields.String(bag, []string{name})); value != "" {
				raw = value
				break
			}
		}
	}
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return NotStarted
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, t := range triggers {
		if t.matches(text, words) {
			return t.status
		}
	}
	return NotStarted
}

var display = map[Canonical]string{
	NotStarted:       "Not Started",
	InProgress:       "In Progress",
	ReadyForReview:   "Ready for Review",
	AwaitingApproval: "Awaiting Approval",
	RevisionsNeeded:  "Revisions Needed",
	Approved:         "Approved",
	Published:        "Published",
	NeedsRevision:    "Needs Revision",
	Resubmitted:      "Resubmitted",
	Rejected:         "Rejected",
}

// ToDisplay returns the string written to the base for c. Unknown values
// pass through unchanged.
func ToDisplay(c Canonical) string {
	if s, ok := display[c]; ok {
		return s
	}
	return string(c)
}

// Parse accepts any known canonical value, current or legacy.
func Parse(value string) (Canonical, bool) {
	c := Canonical(strings.ToLower(strings.TrimSpace(value)))
	_, ok := display[c]
	return c, ok
}

// NeedsRevisionNotes reports whether a write of c carries a revision reason.
func NeedsRevisionNotes(c Canonical) bool {
	return c == RevisionsNeeded || c == Rejected || c == NeedsRevision
}
