package search

import (
	"go.uber.org/zap"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

// Service is the facade that tries Meilisearch first and falls back to the
// in-process index. Every response is partitioned for the caller.
type Service struct {
	meili  *Meili
	memory *Memory
	log    *zap.SugaredLogger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, memory *Memory, log *zap.SugaredLogger) *Service {
	if memory == nil {
		memory = NewMemory()
	}
	return &Service{meili: meili, memory: memory, log: log}
}

// Search runs q and keeps only results user may see for the selected
// client.
func (s *Service) Search(user rbac.User, selected string, q Query) Response {
	q.ClientID = rbac.DefaultClient(user, selected)

	var (
		results []Result
		total   int
		err     error
		served  bool
	)
	if s.meili != nil && s.meili.Healthy() {
		results, total, err = s.meili.Search(q)
		if err == nil {
			served = true
		} else {
			s.log.Warnw("meilisearch error, falling back to memory index", "error", err)
		}
	}
	if !served {
		results, total, err = s.memory.Search(q)
		if err != nil {
			s.log.Errorw("memory search failed", "error", err)
			return Response{Results: []Result{}, Total: 0, Query: q.Text}
		}
	}

	visible := rbac.FilterByClient(user, selected, nonNil(results))
	if len(visible) < len(results) {
		total -= len(results) - len(visible)
		total = max(total, len(visible))
	}
	return Response{Results: visible, Total: total, Query: q.Text}
}

// IndexItems records items in the memory index and, fire-and-forget, in
// Meilisearch.
func (s *Service) IndexItems(kind viewmodel.Kind, items []viewmodel.Item) {
	records := make([]ItemRecord, 0, len(items))
	for _, item := range items {
		if rec, ok := RecordFor(item); ok {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return
	}
	_ = s.memory.IndexItems(kind, records)

	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexItems(kind, records); err != nil {
			s.log.Warnw("index items", "kind", kind, "count", len(records), "error", err)
		}
	}()
}

// Close stops background work.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
