package search

import (
	"strings"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    viewmodel.Kind `json:"type"`
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Snippet string         `json:"snippet"`
	Status  string         `json:"status"`
	Month   string         `json:"month"`
	Clients []string       `json:"clients"`
	Owners  []string       `json:"-"`
}

func (r Result) ClientIDs() []string { return r.Clients }
func (r Result) OwnerIDs() []string  { return r.Owners }

// Query describes a search request.
type Query struct {
	Text       string
	FilterType viewmodel.Kind // empty = all kinds
	ClientID   string         // pushed down as a filter when set
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push items into a search index.
type Indexer interface {
	IndexItems(kind viewmodel.Kind, items []ItemRecord) error
}

// ItemRecord is the data we index for one content item.
type ItemRecord struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Status  string   `json:"status"`
	Month   string   `json:"month"`
	Clients []string `json:"clients"`
	Owners  []string `json:"owners"`
}

// RecordFor flattens a view model into its indexed form. Body collects the
// secondary text a user might search by.
func RecordFor(item viewmodel.Item) (ItemRecord, bool) {
	var (
		base viewmodel.Base
		kind viewmodel.Kind
		body []string
	)
	switch v := item.(type) {
	case viewmodel.Keyword:
		base, kind = v.Base, viewmodel.KindKeywords
		body = []string{v.PrimaryKeyword, v.SEOStrategist}
	case viewmodel.Brief:
		base, kind = v.Base, viewmodel.KindBriefs
		body = []string{v.Writer, v.SEOStrategist}
	case viewmodel.Article:
		base, kind = v.Base, viewmodel.KindArticles
		body = []string{v.Writer, v.Editor, v.ArticleURL}
	case viewmodel.Backlink:
		base, kind = v.Base, viewmodel.KindBacklinks
		body = []string{v.Domain, v.LinkType, v.SourceURL, v.TargetURL}
	default:
		return ItemRecord{}, false
	}
	body = append(body, base.RevisionNotes)
	return ItemRecord{
		ID:      base.ID,
		Kind:    string(kind),
		Title:   base.Title,
		Body:    joinNonBlank(body),
		Status:  string(base.Status),
		Month:   base.Month,
		Clients: base.Client,
		Owners:  base.Owners,
	}, true
}

func joinNonBlank(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " · ")
}
