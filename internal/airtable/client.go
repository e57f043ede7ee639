// Package airtable wraps the Airtable record store behind the small
// select/find/update surface the portal needs.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	at "github.com/mehanizm/airtable"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
)

const DefaultBaseURL = "https://api.airtable.com/v0"

// MaxPageSize is the largest page the API will return.
const MaxPageSize = 100

var ErrMissingCredentials = errors.New("Missing Airtable credentials")

// Record is one row of a table.
type Record struct {
	ID          string     `json:"id"`
	CreatedTime string     `json:"createdTime,omitempty"`
	Fields      fields.Bag `json:"fields"`
}

// Sort orders a select by one column.
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// SelectQuery mirrors the list-records query parameters.
type SelectQuery struct {
	Filter     string
	Fields     []string
	PageSize   int
	MaxRecords int
	View       string
	Sort       []Sort
	Offset     string
}

// Page is one page of a select.
type Page struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Type    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Type != "" {
		return fmt.Sprintf("airtable %d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string
	// RateLimit is requests per second across the process. Zero keeps the
	// library default of 5.
	RateLimit int
}

// Client talks to a single base. It is safe for concurrent use and is meant
// to be created once by the hosting process and shared, so that every
// request goes through the same rate limiter.
type Client struct {
	baseID string
	api    *at.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.BaseID) == "" {
		return nil, ErrMissingCredentials
	}
	api := at.NewClient(cfg.APIKey)
	if baseURL := strings.TrimRight(cfg.BaseURL, "/"); baseURL != "" && baseURL != DefaultBaseURL {
		if err := api.SetBaseURL(baseURL); err != nil {
			return nil, fmt.Errorf("airtable base url: %w", err)
		}
	}
	if cfg.RateLimit > 0 {
		api.SetRateLimit(cfg.RateLimit)
	}
	return &Client{baseID: cfg.BaseID, api: api}, nil
}

// Select fetches one page of table matching q.
func (c *Client) Select(ctx context.Context, table string, q SelectQuery) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, fmt.Errorf("airtable select %s: %w", table, err)
	}
	call := c.api.GetTable(c.baseID, table).GetRecords()
	if q.Filter != "" {
		call = call.WithFilterFormula(q.Filter)
	}
	if len(q.Fields) > 0 {
		call = call.ReturnFields(q.Fields...)
	}
	if q.PageSize > 0 {
		call = call.PageSize(q.PageSize)
	}
	if q.MaxRecords > 0 {
		call = call.MaxRecords(q.MaxRecords)
	}
	if q.View != "" {
		call = call.FromView(q.View)
	}
	if len(q.Sort) > 0 {
		call = call.WithSort(sortQueries(q.Sort)...)
	}
	if q.Offset != "" {
		call = call.WithOffset(q.Offset)
	}

	res, err := call.DoContext(ctx)
	if err != nil {
		return Page{}, wrapError(ctx, "select "+table, err)
	}
	page := Page{Records: make([]Record, 0, len(res.Records)), Offset: res.Offset}
	for _, r := range res.Records {
		page.Records = append(page.Records, fromAPI(r))
	}
	return page, nil
}

// Find fetches a single record by id.
func (c *Client) Find(ctx context.Context, table, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, fmt.Errorf("airtable find %s: %w", table, err)
	}
	r, err := c.api.GetTable(c.baseID, table).GetRecordContext(ctx, id)
	if err != nil {
		return Record{}, wrapError(ctx, "find "+table, err)
	}
	return fromAPI(r), nil
}

// Update patches the given fields of one record and returns the stored row.
// Values are typecast so select options are matched by name.
func (c *Client) Update(ctx context.Context, table, id string, values map[string]any) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, fmt.Errorf("airtable update %s: %w", table, err)
	}
	res, err := c.api.GetTable(c.baseID, table).UpdateRecordsPartialContext(ctx, &at.Records{
		Records:  []*at.Record{{ID: id, Fields: values}},
		Typecast: true,
	})
	if err != nil {
		return Record{}, wrapError(ctx, "update "+table, err)
	}
	if res == nil || len(res.Records) == 0 {
		return Record{ID: id, Fields: fields.Bag{}}, nil
	}
	return fromAPI(res.Records[0]), nil
}

// Ping performs the cheapest possible authenticated read.
func (c *Client) Ping(ctx context.Context, table string) error {
	_, err := c.Select(ctx, table, SelectQuery{MaxRecords: 1, PageSize: 1})
	return err
}

func sortQueries(sorts []Sort) []struct {
	FieldName string
	Direction string
} {
	out := make([]struct {
		FieldName string
		Direction string
	}, 0, len(sorts))
	for _, s := range sorts {
		dir := s.Direction
		if dir == "" {
			dir = "asc"
		}
		out = append(out, struct {
			FieldName string
			Direction string
		}{FieldName: s.Field, Direction: dir})
	}
	return out
}

func fromAPI(r *at.Record) Record {
	if r == nil {
		return Record{Fields: fields.Bag{}}
	}
	bag := fields.Bag(r.Fields)
	if bag == nil {
		bag = fields.Bag{}
	}
	return Record{ID: r.ID, CreatedTime: r.CreatedTime, Fields: bag}
}

// wrapError keeps the caller's cancellation visible and turns HTTP failures
// into an APIError carrying the status code.
func wrapError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("airtable %s: %w", op, errors.Join(ctxErr, err))
	}
	var httpErr *at.HTTPClientError
	if errors.As(err, &httpErr) {
		return parseAPIError(httpErr.StatusCode, err)
	}
	return fmt.Errorf("airtable %s: %w", op, err)
}

// parseAPIError recovers the JSON error body the library folds into its
// message. Both {"error":{"type","message"}} and {"error":"NOT_FOUND"}
// bodies are understood.
func parseAPIError(status int, cause error) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status), Err: cause}
	text := cause.Error()
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return apiErr
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &envelope); err != nil || len(envelope.Error) == 0 {
		return apiErr
	}
	var detailed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detailed); err == nil {
		apiErr.Type = detailed.Type
		if detailed.Message != "" {
			apiErr.Message = detailed.Message
		}
		return apiErr
	}
	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		apiErr.Type = code
	}
	return apiErr
}
