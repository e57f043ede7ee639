package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/logging"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/search"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/store"
)

func adminUser() rbac.User {
	return rbac.User{ID: "usrAdmin", Role: rbac.RoleAdmin, Clients: []string{}}
}

func clientUser() rbac.User {
	return rbac.User{ID: "usrClientAcme", Role: rbac.RoleClient, Clients: []string{"recClientAcme"}}
}

func otherClientUser() rbac.User {
	return rbac.User{ID: "usrClientGlobex", Role: rbac.RoleClient, Clients: []string{"recClientGlobex"}}
}

func staffUser() rbac.User {
	return rbac.User{ID: "usrWriter", Role: rbac.RoleStaff, Clients: []string{}}
}

var clientHeaders = map[string]string{
	"x-user-id":     "usrClientAcme",
	"x-user-role":   "client",
	"x-user-client": `["recClientAcme"]`,
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("invalid JSON response %q: %v", body, err)
	}
	return payload
}

func listIDs(t *testing.T, payload map[string]any, key string) []string {
	t.Helper()
	raw, ok := payload[key].([]any)
	if !ok {
		t.Fatalf("missing %s array in %v", key, payload)
	}
	ids := []string{}
	for _, item := range raw {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	return ids
}

func liveKeywordBase(calls *[]airtable.SelectQuery) *fakeBase {
	return &fakeBase{selectFn: func(_ context.Context, table string, q airtable.SelectQuery) (airtable.Page, error) {
		*calls = append(*calls, q)
		return airtable.Page{Records: []airtable.Record{
			{ID: "recK1", Fields: fields.Bag{"Main Keyword": "seo audit", "Clients": []any{"recClientAcme"}, "Status": "Approved"}},
			{ID: "recK2", Fields: fields.Bag{"Main Keyword": "link audit", "Clients": []any{"recClientGlobex"}}},
		}}, nil
	}}
}

func TestHealthEndpoint(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})
	rr := serve(server, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK || decode(t, rr.Body.Bytes())["ok"] != true {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestPreflightAllowsIdentityHeaders(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})
	rr := serve(server, http.MethodOptions, "/api/keywords", "", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	allowed := rr.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{"x-user-id", "x-user-role", "x-user-client", "Authorization"} {
		if !strings.Contains(allowed, h) {
			t.Fatalf("allowed headers %q missing %s", allowed, h)
		}
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected origin %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestReadyReportsFailingBackends(t *testing.T) {
	c := newFakeCache()
	c.pingErr = errors.New("connection refused")
	_, server := newTestServer(testConfig(), Deps{Base: &fakeBase{}, Cache: c})

	rr := serve(server, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	checks := decode(t, rr.Body.Bytes())["checks"].(map[string]any)
	if checks["airtable"].(map[string]any)["status"] != "ok" || checks["redis"].(map[string]any)["status"] != "error" {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestListLivePartitionsAndCaches(t *testing.T) {
	var calls []airtable.SelectQuery
	c := newFakeCache()
	_, server := newTestServer(testConfig(), Deps{Base: liveKeywordBase(&calls), Cache: c})

	rr := serve(server, http.MethodGet, "/api/keywords?month=May%202025", "", clientHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decode(t, rr.Body.Bytes())
	if ids := listIDs(t, payload, "keywords"); len(ids) != 1 || ids[0] != "recK1" {
		t.Fatalf("client saw %v", ids)
	}
	if payload["isMockData"] != false {
		t.Fatalf("expected live data, got %v", payload)
	}
	if _, ok := payload["degradedReason"]; ok {
		t.Fatalf("live response carries degradedReason: %v", payload)
	}
	if len(calls) != 1 || !strings.Contains(calls[0].Filter, "'recClientAcme'") || !strings.Contains(calls[0].Filter, "'Keyword'") {
		t.Fatalf("client filter not pushed down: %+v", calls)
	}
	if len(c.lists) != 1 {
		t.Fatalf("expected one cache entry, got %d", len(c.lists))
	}
}

func TestListFallsBackToCacheOnUpstreamError(t *testing.T) {
	var calls []airtable.SelectQuery
	c := newFakeCache()
	base := liveKeywordBase(&calls)
	_, server := newTestServer(testConfig(), Deps{Base: base, Cache: c})

	admin := map[string]string{"x-user-id": "usrAdmin", "x-user-role": "admin"}
	if rr := serve(server, http.MethodGet, "/api/keywords", "", admin); rr.Code != http.StatusOK {
		t.Fatalf("warm-up failed: %d", rr.Code)
	}

	base.selectFn = func(context.Context, string, airtable.SelectQuery) (airtable.Page, error) {
		return airtable.Page{}, &airtable.APIError{Status: http.StatusServiceUnavailable, Message: "unavailable"}
	}
	rr := serve(server, http.MethodGet, "/api/keywords", "", admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("degraded list must still be 200, got %d", rr.Code)
	}
	payload := decode(t, rr.Body.Bytes())
	if payload["source"] != SourceCache || payload["degradedReason"] != "upstream_error" || payload["isMockData"] != false {
		t.Fatalf("unexpected degraded payload %v", payload)
	}
	if ids := listIDs(t, payload, "keywords"); len(ids) != 2 {
		t.Fatalf("expected cached rows, got %v", ids)
	}
}

func TestListServesPartitionedMockDataWhenUnconfigured(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})

	rr := serve(server, http.MethodGet, "/api/articles", "", clientHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decode(t, rr.Body.Bytes())
	if payload["isMockData"] != true || payload["degradedReason"] != "unconfigured" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if ids := listIDs(t, payload, "articles"); len(ids) != 1 || ids[0] != "recMockAr1" {
		t.Fatalf("client saw %v", ids)
	}
}

func TestListTimesOutToMockData(t *testing.T) {
	cfg := testConfig()
	cfg.AirtableTimeout = 20 * time.Millisecond
	base := &fakeBase{selectFn: func(ctx context.Context, _ string, _ airtable.SelectQuery) (airtable.Page, error) {
		<-ctx.Done()
		return airtable.Page{}, ctx.Err()
	}}
	_, server := newTestServer(cfg, Deps{Base: base})

	rr := serve(server, http.MethodGet, "/api/backlinks", "", map[string]string{"x-user-role": "admin"})
	payload := decode(t, rr.Body.Bytes())
	if rr.Code != http.StatusOK || payload["degradedReason"] != "timeout" || payload["isMockData"] != true {
		t.Fatalf("unexpected timeout response %d %v", rr.Code, payload)
	}
	if ids := listIDs(t, payload, "backlinks"); len(ids) != 2 {
		t.Fatalf("admin should see every mock backlink, got %v", ids)
	}
}

func TestStaffSeesOnlyOwnedItemsWithoutSelection(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})
	rr := serve(server, http.MethodGet, "/api/articles", "", map[string]string{"x-user-id": "usrWriter", "x-user-role": "staff"})
	if ids := listIDs(t, decode(t, rr.Body.Bytes()), "articles"); len(ids) != 1 || ids[0] != "recMockAr1" {
		t.Fatalf("staff saw %v", ids)
	}
}

func TestApprovalValidation(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{Base: &fakeBase{}})

	rr := serve(server, http.MethodPost, "/api/approvals", `{"type":"articles","status":"approved"}`, clientHeaders)
	if rr.Code != http.StatusBadRequest || decode(t, rr.Body.Bytes())["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(server, http.MethodPost, "/api/approvals", `{"type":"articles","itemId":"rec1","status":"maybe"}`, clientHeaders)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}

	rr = serve(server, http.MethodPost, "/api/approvals", `{not json`, clientHeaders)
	if rr.Code != http.StatusBadRequest || decode(t, rr.Body.Bytes())["code"] != "INVALID_BODY" {
		t.Fatalf("expected INVALID_BODY, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestApprovalFailureMarksItemStale(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})

	rr := serve(server, http.MethodPost, "/api/approvals", `{"type":"briefs","itemId":"recB1","status":"approved"}`,
		map[string]string{"x-user-role": "staff", "x-user-id": "usrWriter"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	payload := decode(t, rr.Body.Bytes())
	details := payload["details"].(map[string]any)
	if payload["code"] != "UPDATE_FAILED" || details["itemId"] != "recB1" || details["stale"] != true {
		t.Fatalf("unexpected failure payload %v", payload)
	}
	if payload["error"] != "Missing Airtable credentials" {
		t.Fatalf("unexpected message %v", payload["error"])
	}
}

func TestClientCannotApproveAnotherClientsItem(t *testing.T) {
	updated := false
	base := &fakeBase{
		findFn: func(_ context.Context, _, id string) (airtable.Record, error) {
			return airtable.Record{ID: id, Fields: fields.Bag{"Clients": []any{"recClientGlobex"}}}, nil
		},
		updateFn: func(context.Context, string, string, map[string]any) (airtable.Record, error) {
			updated = true
			return airtable.Record{}, nil
		},
	}
	_, server := newTestServer(testConfig(), Deps{Base: base})

	rr := serve(server, http.MethodPost, "/api/approvals", `{"type":"articles","itemId":"recX","status":"approved"}`, clientHeaders)
	if rr.Code != http.StatusForbidden || updated {
		t.Fatalf("expected 403 without a write, got %d (updated=%v)", rr.Code, updated)
	}
}

func TestApprovalSuccessReturnsUpdatedItem(t *testing.T) {
	base := &fakeBase{
		findFn: func(_ context.Context, _, id string) (airtable.Record, error) {
			return airtable.Record{ID: id, Fields: fields.Bag{"Clients": []any{"recClientAcme"}}}, nil
		},
	}
	_, server := newTestServer(testConfig(), Deps{Base: base})

	rr := serve(server, http.MethodPost, "/api/approvals", `{"type":"articles","itemId":"recA1","status":"approved"}`, clientHeaders)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	item := decode(t, rr.Body.Bytes())["updatedItem"].(map[string]any)
	if item["id"] != "recA1" || item["status"] != "approved" {
		t.Fatalf("unexpected updated item %v", item)
	}
}

func TestLoginAndBearerTokenPrecedence(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})

	rr := serve(server, http.MethodPost, "/api/auth/login", `{"email":"client@acme.com","password":"client123"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	payload := decode(t, rr.Body.Bytes())
	token, _ := payload["token"].(string)
	if payload["success"] != true || token == "" {
		t.Fatalf("unexpected login payload %v", payload)
	}

	// headers claim admin but the token says client
	headers := map[string]string{"Authorization": "Bearer " + token, "x-user-role": "admin"}
	rr = serve(server, http.MethodGet, "/api/keywords", "", headers)
	ids := listIDs(t, decode(t, rr.Body.Bytes()), "keywords")
	if len(ids) != 1 || ids[0] != "recMockKw1" {
		t.Fatalf("token identity not applied, saw %v", ids)
	}

	rr = serve(server, http.MethodGet, "/api/keywords", "", map[string]string{"Authorization": "Bearer not-a-token"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rr.Code)
	}

	rr = serve(server, http.MethodPost, "/api/auth/login", `{"email":"client@acme.com","password":"nope"}`, nil)
	if rr.Code != http.StatusUnauthorized || decode(t, rr.Body.Bytes())["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestChangePasswordIsAdminOnly(t *testing.T) {
	var stored map[string]any
	base := &fakeBase{
		selectFn: func(_ context.Context, table string, _ airtable.SelectQuery) (airtable.Page, error) {
			return airtable.Page{Records: []airtable.Record{{ID: "usrAdmin", Fields: fields.Bag{
				"Name": "Admin", "Email": "admin@scalerrs.com", "Role": "Admin", "Password": "admin123",
			}}}}, nil
		},
		updateFn: func(_ context.Context, table, id string, values map[string]any) (airtable.Record, error) {
			if table == "Users" && id == "usrClient" {
				stored = values
			}
			return airtable.Record{ID: id}, nil
		},
	}
	service, server := newTestServer(testConfig(), Deps{Base: base})

	login, err := service.Login(context.Background(), "admin@scalerrs.com", "admin123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + login.Session.Token}

	rr := serve(server, http.MethodPost, "/api/auth/password", `{"userId":"usrClient","newPassword":"short"}`, auth)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected weak password rejection, got %d", rr.Code)
	}

	rr = serve(server, http.MethodPost, "/api/auth/password", `{"userId":"usrClient","newPassword":"a-much-longer-one"}`, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if hash, _ := stored["Password"].(string); !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash to be stored, got %v", stored)
	}

	client, err := service.issueSession(clientUser())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	rr = serve(server, http.MethodPost, "/api/auth/password", `{"userId":"usrClient","newPassword":"a-much-longer-one"}`,
		map[string]string{"Authorization": "Bearer " + client.Token})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a client, got %d", rr.Code)
	}

	rr = serve(server, http.MethodPost, "/api/auth/password", `{"userId":"usrClient","newPassword":"a-much-longer-one"}`, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rr.Code)
	}
}

func TestSearchUsesIndexedItemsAndPartitions(t *testing.T) {
	var calls []airtable.SelectQuery
	searcher := search.NewService(nil, nil, logging.Nop())
	_, server := newTestServer(testConfig(), Deps{Base: liveKeywordBase(&calls), Search: searcher})

	admin := map[string]string{"x-user-role": "admin", "x-user-id": "usrAdmin"}
	serve(server, http.MethodGet, "/api/keywords", "", admin)

	rr := serve(server, http.MethodGet, "/api/search?q=audit", "", admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp search.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("admin expected two hits, got %+v", resp.Results)
	}

	rr = serve(server, http.MethodGet, "/api/search?q=audit", "", clientHeaders)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "recK1" {
		t.Fatalf("client expected only its own hit, got %+v", resp.Results)
	}

	rr = serve(server, http.MethodGet, "/api/search", "", admin)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", rr.Code)
	}
}

func TestApprovalHistory(t *testing.T) {
	audit := &fakeAudit{listFn: func(_ context.Context, itemID string, _ int) ([]store.ApprovalEvent, error) {
		return []store.ApprovalEvent{
			{ID: "evt_2", ItemID: itemID, UserID: "usrWriter", Outcome: store.OutcomeFailed},
			{ID: "evt_1", ItemID: itemID, UserID: "usrClientAcme", Outcome: store.OutcomeOK},
		}, nil
	}}
	_, server := newTestServer(testConfig(), Deps{Audit: audit})

	rr := serve(server, http.MethodGet, "/api/approvals/history?itemId=recA1", "", map[string]string{"x-user-role": "admin"})
	events := decode(t, rr.Body.Bytes())["events"].([]any)
	if rr.Code != http.StatusOK || len(events) != 2 {
		t.Fatalf("unexpected history %d %v", rr.Code, events)
	}

	rr = serve(server, http.MethodGet, "/api/approvals/history?itemId=recA1", "", clientHeaders)
	events = decode(t, rr.Body.Bytes())["events"].([]any)
	if len(events) != 1 || events[0].(map[string]any)["id"] != "evt_1" {
		t.Fatalf("client should only see its own decisions, got %v", events)
	}

	_, noAudit := newTestServer(testConfig(), Deps{})
	rr = serve(noAudit, http.MethodGet, "/api/approvals/history?itemId=recA1", "", clientHeaders)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without an audit store, got %d", rr.Code)
	}
}

func TestParseClientHeader(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "recA", want: []string{"recA"}},
		{in: `["recA","recB"]`, want: []string{"recA", "recB"}},
		{in: `[" recA ",""]`, want: []string{"recA"}},
		{in: `"recA"`, want: []string{"recA"}},
		{in: `[broken`, want: []string{"[broken"}},
	}
	for _, tc := range cases {
		got := parseClientHeader(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("parseClientHeader(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("parseClientHeader(%q) = %v, want %v", tc.in, got, tc.want)
			}
		}
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	_, server := newTestServer(testConfig(), Deps{})
	rr := serve(server, http.MethodGet, "/api/reports", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
