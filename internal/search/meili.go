package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

const indexPrefix = "portal_"

func indexUID(kind viewmodel.Kind) string {
	return indexPrefix + string(kind)
}

func kindForIndex(uid string) viewmodel.Kind {
	kind, _ := viewmodel.ParseKind(strings.TrimPrefix(uid, indexPrefix))
	return kind
}

// Meili implements Searcher and Indexer via Meilisearch, one index per
// content kind.
type Meili struct {
	client  meili.ServiceManager
	log     *zap.SugaredLogger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. An
// unreachable server is not an error; the health loop keeps probing.
func NewMeili(url, apiKey string, log *zap.SugaredLogger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		log:    log,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		log.Warnw("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	filterable := []interface{}{"clients", "status", "month", "owners"}
	searchable := []string{"title", "body"}

	for _, kind := range viewmodel.Kinds {
		uid := indexUID(kind)
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: uid, PrimaryKey: "id"}); err != nil {
			m.log.Debugw("create index (may already exist)", "index", uid, "error", err)
		}

		index := m.client.Index(uid)
		attrs := filterable
		if _, err := index.UpdateFilterableAttributes(&attrs); err != nil {
			m.log.Warnw("update filterable attributes", "index", uid, "error", err)
		}
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			m.log.Warnw("update searchable attributes", "index", uid, "error", err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Infow("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries every kind's index (or just q.FilterType) in one request.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	queries := buildRequests(q)
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		kind := kindForIndex(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, kind))
		}
	}
	return results, total, nil
}

func buildRequests(q Query) []*meili.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	for _, kind := range viewmodel.Kinds {
		if q.FilterType != "" && q.FilterType != kind {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              indexUID(kind),
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"title", "body"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}
		if q.ClientID != "" {
			sr.Filter = []string{fmt.Sprintf("clients = %q", q.ClientID)}
		}
		queries = append(queries, sr)
	}
	return queries
}

func hitToResult(hit meili.Hit, kind viewmodel.Kind) Result {
	return Result{
		Type:    kind,
		ID:      decodeString(hit, "id"),
		Title:   firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Snippet: firstNonBlank(decodeFormattedString(hit, "body"), decodeString(hit, "body")),
		Status:  decodeString(hit, "status"),
		Month:   decodeString(hit, "month"),
		Clients: decodeStrings(hit, "clients"),
		Owners:  decodeStrings(hit, "owners"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeStrings(hit meili.Hit, key string) []string {
	out := []string{}
	if raw, ok := hit[key]; ok {
		_ = json.Unmarshal(raw, &out)
	}
	if out == nil {
		return []string{}
	}
	return out
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexItems adds or updates items of one kind.
func (m *Meili) IndexItems(kind viewmodel.Kind, items []ItemRecord) error {
	if len(items) == 0 {
		return nil
	}
	_, err := m.client.Index(indexUID(kind)).AddDocuments(items, nil)
	return err
}
