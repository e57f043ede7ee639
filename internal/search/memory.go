package search

import (
	"slices"
	"strings"
	"sync"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

// Memory is a substring-matching index held in process. It backs search
// when Meilisearch is not configured or unhealthy, and only knows items the
// process has seen.
type Memory struct {
	mu    sync.RWMutex
	items map[viewmodel.Kind]map[string]ItemRecord
}

func NewMemory() *Memory {
	return &Memory{items: map[viewmodel.Kind]map[string]ItemRecord{}}
}

func (m *Memory) Healthy() bool { return true }

func (m *Memory) IndexItems(kind viewmodel.Kind, items []ItemRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.items[kind]
	if bucket == nil {
		bucket = map[string]ItemRecord{}
		m.items[kind] = bucket
	}
	for _, item := range items {
		bucket[item.ID] = item
	}
	return nil
}

func (m *Memory) Search(q Query) ([]Result, int, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(q.Offset, 0)

	m.mu.RLock()
	var matches []Result
	for _, kind := range viewmodel.Kinds {
		if q.FilterType != "" && q.FilterType != kind {
			continue
		}
		for _, item := range m.items[kind] {
			if q.ClientID != "" && !slices.Contains(item.Clients, q.ClientID) {
				continue
			}
			if !strings.Contains(strings.ToLower(item.Title), text) && !strings.Contains(strings.ToLower(item.Body), text) {
				continue
			}
			matches = append(matches, Result{
				Type:    kind,
				ID:      item.ID,
				Title:   item.Title,
				Snippet: item.Body,
				Status:  item.Status,
				Month:   item.Month,
				Clients: item.Clients,
				Owners:  item.Owners,
			})
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matches, func(a, b Result) int {
		if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	total := len(matches)
	if offset >= total {
		return []Result{}, total, nil
	}
	end := min(offset+limit, total)
	return matches[offset:end], total, nil
}
