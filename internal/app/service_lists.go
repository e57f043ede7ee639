package app

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/cache"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/degrade"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/formula"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/mock"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/query"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/search"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

const (
	SourceLive  = "live"
	SourceCache = "cache"
	SourceMock  = "mock"

	clientsTable  = "Clients"
	commentsTable = "Comments"

	commentFanOut = 5
	cacheBudget   = 2 * time.Second
)

type ListParams struct {
	Month    string
	ClientID string
}

type ListResult struct {
	Items    []viewmodel.Item
	Source   string
	Degraded bool
	Reason   degrade.Reason
	Message  string
}

// IsMockData reports whether the items are fixtures rather than base rows.
func (r ListResult) IsMockData() bool { return r.Source == SourceMock }

// ListFormula is the filter sent to the base for a list request. clientID
// is the already-resolved pushdown client, or "" for none.
func ListFormula(kind viewmodel.Kind, month, clientID string) string {
	opts := formula.Options{Month: month}
	if clientID != "" {
		opts.ClientIDs = []string{clientID}
	}
	if kind != viewmodel.KindBacklinks {
		opts.ContentType = kind.Label()
	}
	return formula.Build(opts)
}

// List returns the items of kind visible to user. It never fails: upstream
// trouble degrades to the last-good cache and then to mock data.
func (s *Service) List(ctx context.Context, kind viewmodel.Kind, user rbac.User, params ListParams) ListResult {
	pushdown := rbac.DefaultClient(user, params.ClientID)
	key := cache.Key{Kind: string(kind), Month: params.Month, Client: pushdown}

	if s.base == nil {
		res := degrade.Fallback([]airtable.Record(nil), degrade.ReasonUnconfigured, airtable.ErrMissingCredentials)
		return s.degraded(ctx, kind, user, params, key, res)
	}

	filter := ListFormula(kind, params.Month, pushdown)
	res := degrade.WithTimeout(ctx, s.timeout(), func(ctx context.Context) ([]airtable.Record, error) {
		return query.Execute(ctx, s.base, kind.Table(), query.Params{
			Filter:   filter,
			PageSize: s.cfg.AirtablePageSize,
		})
	}, func() []airtable.Record { return nil })
	res = degrade.Recover(res, func() []airtable.Record { return nil })
	if res.Degraded {
		return s.degraded(ctx, kind, user, params, key, res)
	}

	records := res.Value
	if s.cache != nil {
		if err := s.cache.SaveRecords(ctx, key, records); err != nil {
			s.log.Warnw("cache write failed", "key", key.String(), "error", err)
		}
	}
	all := viewmodel.FromRecords(kind, records)
	if s.search != nil {
		s.search.IndexItems(kind, all)
	}
	return ListResult{
		Items:  rbac.FilterByClient(user, params.ClientID, all),
		Source: SourceLive,
	}
}

func (s *Service) degraded(ctx context.Context, kind viewmodel.Kind, user rbac.User, params ListParams, key cache.Key, res degrade.Result[[]airtable.Record]) ListResult {
	out := ListResult{
		Degraded: true,
		Reason:   res.Reason,
		Message:  res.Message(),
	}

	if records, ok := s.loadCached(ctx, key); ok {
		out.Source = SourceCache
		out.Items = rbac.FilterByClient(user, params.ClientID, viewmodel.FromRecords(kind, records))
	} else {
		out.Source = SourceMock
		out.Items = rbac.FilterByClient(user, params.ClientID, mock.Items(kind, params.Month))
	}

	s.log.Warnw("list degraded",
		"kind", kind,
		"reason", res.Reason,
		"provider_status", query.StatusOf(res.Err),
		"source", out.Source,
		"error", res.Err,
	)
	return out
}

// loadCached reads the last-good entry on a context of its own so a
// cancelled request context does not also cancel the fallback.
func (s *Service) loadCached(ctx context.Context, key cache.Key) ([]airtable.Record, bool) {
	if s.cache == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheBudget)
	defer cancel()
	records, ok, err := s.cache.LoadRecords(cctx, key)
	if err != nil {
		s.log.Warnw("cache read failed", "key", key.String(), "error", err)
		return nil, false
	}
	return records, ok
}

// Client is a row of the Clients table as returned to the portal.
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

type ClientsResult struct {
	Clients    []Client
	IsMockData bool
	Message    string
}

func (s *Service) Clients(ctx context.Context, user rbac.User) ClientsResult {
	var res degrade.Result[[]airtable.Record]
	if s.base == nil {
		res = degrade.Fallback(mock.Clients(), degrade.ReasonUnconfigured, airtable.ErrMissingCredentials)
	} else {
		res = degrade.WithTimeout(ctx, s.timeout(), func(ctx context.Context) ([]airtable.Record, error) {
			return query.ExecuteAll(ctx, s.base, clientsTable, query.Params{MaxRecords: 500})
		}, mock.Clients)
		res = degrade.Recover(res, mock.Clients)
	}
	if res.Degraded && res.Reason != degrade.ReasonUnconfigured {
		s.log.Warnw("clients degraded", "reason", res.Reason, "provider_status", query.StatusOf(res.Err), "error", res.Err)
	}

	out := ClientsResult{Clients: []Client{}, IsMockData: res.Degraded, Message: res.Message()}
	for _, r := range res.Value {
		if user.Role != rbac.RoleAdmin && !slices.Contains(user.Clients, r.ID) {
			continue
		}
		out.Clients = append(out.Clients, Client{
			ID:      r.ID,
			Name:    fields.String(r.Fields, []string{"Name", "Client Name", "Client"}),
			Website: fields.String(r.Fields, []string{"Website", "URL"}),
		})
	}
	return out
}

type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	CreatedAt string `json:"createdAt"`
}

// Comments returns the comments linked to one item. Comments that fail to
// load are dropped rather than failing the request.
func (s *Service) Comments(ctx context.Context, user rbac.User, kind viewmodel.Kind, itemID string) ([]Comment, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, errValidation("item id is required", nil)
	}
	if s.base == nil {
		return []Comment{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	record, err := s.base.Find(ctx, kind.Table(), itemID)
	if err != nil {
		var apiErr *airtable.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, errNotFound("Item")
		}
		return nil, domainError(http.StatusBadGateway, "UPSTREAM_ERROR", "Could not load item", map[string]any{"itemId": itemID})
	}
	item, err := viewmodel.FromRecord(kind, record)
	if err != nil {
		return nil, err
	}
	if len(rbac.FilterByClient(user, "", []viewmodel.Item{item})) == 0 && !s.memberOfItem(user, item) {
		return nil, errNotFound("Item")
	}

	ids := fields.Strings(record.Fields, kind.Fields().Candidates(fields.Comments))
	return s.loadComments(ctx, ids), nil
}

// memberOfItem lets users with several clients reach items of any of them,
// not only the default one.
func (s *Service) memberOfItem(user rbac.User, item viewmodel.Item) bool {
	for _, c := range item.ClientIDs() {
		if slices.Contains(user.Clients, c) {
			return true
		}
	}
	return false
}

func (s *Service) loadComments(ctx context.Context, ids []string) []Comment {
	found := make([]*Comment, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentFanOut)
	for i, id := range ids {
		g.Go(func() error {
			record, err := s.base.Find(gctx, commentsTable, id)
			if err != nil {
				s.log.Debugw("comment dropped", "comment_id", id, "error", err)
				return nil
			}
			c := toComment(record)
			found[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Comment, 0, len(ids))
	for _, c := range found {
		if c != nil {
			out = append(out, *c)
		}
	}
	if len(out) == 0 && len(ids) > 0 {
		// one batched select when every single lookup failed
		records, err := query.Execute(ctx, s.base, commentsTable, query.Params{Filter: formula.RecordIDIn(ids)})
		if err != nil {
			s.log.Warnw("comments unavailable", "count", len(ids), "error", err)
		}
		for _, r := range records {
			out = append(out, toComment(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func toComment(record airtable.Record) Comment {
	created := fields.String(record.Fields, []string{"Created At", "Created", "Date"})
	if created == "" {
		created = record.CreatedTime
	}
	return Comment{
		ID:        record.ID,
		Text:      fields.String(record.Fields, []string{"Comment", "Text", "Body", "Message"}),
		Author:    fields.String(record.Fields, []string{"Author", "User", "Created By", "Name"}),
		CreatedAt: created,
	}
}

func (s *Service) Search(user rbac.User, selected string, q search.Query) (search.Response, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return search.Response{}, errValidation("q is required", nil)
	}
	if q.FilterType != "" {
		kind, ok := viewmodel.ParseKind(string(q.FilterType))
		if !ok {
			return search.Response{}, errValidation("unknown type", map[string]any{"type": q.FilterType})
		}
		q.FilterType = kind
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(user, selected, q), nil
}
