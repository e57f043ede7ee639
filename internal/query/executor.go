// Package query runs filtered selects against the record store with the
// portal's paging caps.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
)

const (
	DefaultPageSize   = 100
	DefaultMaxRecords = 100
)

// Selector is the read side of a record-store connection.
type Selector interface {
	Select(ctx context.Context, table string, q airtable.SelectQuery) (airtable.Page, error)
}

type Params struct {
	Filter     string
	Fields     []string
	PageSize   int
	MaxRecords int
	View       string
	Sort       []airtable.Sort
}

// ProviderError carries the upstream status code of a failed select.
type ProviderError struct {
	Table   string
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query %s: status %d: %s", e.Table, e.Status, e.Message)
	}
	return fmt.Sprintf("query %s: %s", e.Table, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (p Params) normalized() Params {
	if p.PageSize <= 0 || p.PageSize > airtable.MaxPageSize {
		p.PageSize = DefaultPageSize
	}
	if p.MaxRecords <= 0 {
		p.MaxRecords = DefaultMaxRecords
	}
	return p
}

func (p Params) selectQuery(offset string) airtable.SelectQuery {
	return airtable.SelectQuery{
		Filter:     p.Filter,
		Fields:     p.Fields,
		PageSize:   p.PageSize,
		MaxRecords: p.MaxRecords,
		View:       p.View,
		Sort:       p.Sort,
		Offset:     offset,
	}
}

// Execute fetches the first page only. Callers accept under-return in
// exchange for a bounded request time.
func Execute(ctx context.Context, conn Selector, table string, params Params) ([]airtable.Record, error) {
	params = params.normalized()
	page, err := conn.Select(ctx, table, params.selectQuery(""))
	if err != nil {
		return nil, wrap(table, err)
	}
	if page.Records == nil {
		return []airtable.Record{}, nil
	}
	return page.Records, nil
}

// ExecuteAll follows offsets until the table is exhausted or MaxRecords
// rows have been read. Not for use inside request handlers.
func ExecuteAll(ctx context.Context, conn Selector, table string, params Params) ([]airtable.Record, error) {
	params = params.normalized()
	records := []airtable.Record{}
	offset := ""
	for {
		page, err := conn.Select(ctx, table, params.selectQuery(offset))
		if err != nil {
			return records, wrap(table, err)
		}
		records = append(records, page.Records...)
		if page.Offset == "" || len(records) >= params.MaxRecords {
			break
		}
		offset = page.Offset
	}
	if len(records) > params.MaxRecords {
		records = records[:params.MaxRecords]
	}
	return records, nil
}

func wrap(table string, err error) error {
	var apiErr *airtable.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Table: table, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	return &ProviderError{Table: table, Message: err.Error(), Err: err}
}

// StatusOf returns the upstream status attached to err, or 0.
func StatusOf(err error) int {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Status
	}
	var apiErr *airtable.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
