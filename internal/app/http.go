package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/auth"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/logging"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/query"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/search"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/util"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

const (
	headerUserID     = "x-user-id"
	headerUserRole   = "x-user-role"
	headerUserClient = "x-user-client"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	log        *zap.SugaredLogger
}

func NewHTTPServer(service *Service, corsOrigin string, log *zap.SugaredLogger) *HTTPServer {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, log: log}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if err := s.service.Logout(r.Context(), session); err != nil {
			s.log.Warnw("logout revoke failed", "user_id", session.User.ID, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/password" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			UserID      string `json:"userId"`
			NewPassword string `json:"newPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ChangePassword(r.Context(), session, body.UserID, body.NewPassword); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/auth/me" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": session.User, "expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339)})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	session, ok := s.identity(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && len(parts) == 2 {
		if kind, ok := viewmodel.ParseKind(parts[1]); ok && parts[1] == string(kind) {
			s.handleList(w, r, session, kind)
			return
		}
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/approvals" {
		var body ApprovalInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.UpdateApproval(r.Context(), session, body)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updatedItem": item})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/approvals/history" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := s.service.ApprovalHistory(r.Context(), session.User, r.URL.Query().Get("itemId"), limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/clients" {
		res := s.service.Clients(r.Context(), session.User)
		payload := map[string]any{"clients": res.Clients, "isMockData": res.IsMockData}
		if res.Message != "" {
			payload["error"] = res.Message
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && len(parts) == 4 && parts[1] == "items" && parts[3] == "comments" {
		kind := viewmodel.KindArticles
		if raw := r.URL.Query().Get("type"); raw != "" {
			parsed, ok := viewmodel.ParseKind(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown type", map[string]any{"type": raw})
				return
			}
			kind = parsed
		}
		comments, err := s.service.Comments(r.Context(), session.User, kind, parts[2])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		resp, err := s.service.Search(session.User, q.Get("clientId"), search.Query{
			Text:       q.Get("q"),
			FilterType: viewmodel.Kind(q.Get("type")),
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request, session Session, kind viewmodel.Kind) {
	q := r.URL.Query()
	res := s.service.List(r.Context(), kind, session.User, ListParams{
		Month:    strings.TrimSpace(q.Get("month")),
		ClientID: strings.TrimSpace(q.Get("clientId")),
	})
	payload := map[string]any{
		kind.ResponseKey(): res.Items,
		"isMockData":       res.IsMockData(),
	}
	if res.Degraded {
		payload["degradedReason"] = res.Reason
		payload["source"] = res.Source
		if res.Message != "" {
			payload["error"] = res.Message
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	res, err := s.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"user":       res.Session.User,
		"token":      res.Session.Token,
		"expiresAt":  res.Session.ExpiresAt.UTC().Format(time.RFC3339),
		"isMockUser": res.MockUser,
	})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{}
	if !s.service.Configured() {
		checks["airtable"] = map[string]any{"status": "mock"}
	}
	for name, err := range s.service.Ping(ctx) {
		if err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			continue
		}
		checks[name] = map[string]any{"status": "ok"}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// identity resolves the caller. A bearer token wins over the x-user-*
// headers; a token that does not verify is rejected outright.
func (s *HTTPServer) identity(w http.ResponseWriter, r *http.Request) (Session, bool) {
	if bearerToken(r) != "" {
		return s.requireSession(w, r)
	}
	return headerSession(r), true
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func headerSession(r *http.Request) Session {
	return Session{User: rbac.User{
		ID:      strings.TrimSpace(r.Header.Get(headerUserID)),
		Role:    rbac.Normalize(r.Header.Get(headerUserRole)),
		Clients: parseClientHeader(r.Header.Get(headerUserClient)),
	}}
}

// parseClientHeader accepts a JSON array of ids or one bare id.
func parseClientHeader(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	if strings.HasPrefix(value, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(value), &ids); err == nil {
			out := make([]string, 0, len(ids))
			for _, id := range ids {
				if id = strings.TrimSpace(id); id != "" {
					out = append(out, id)
				}
			}
			return out
		}
	}
	return []string{strings.Trim(value, `"`)}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "code", code, "error", err)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Infow("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

// RequestID returns the id the middleware attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, x-user-id, x-user-role, x-user-client")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	var providerErr *query.ProviderError
	var apiErr *airtable.APIError
	if errors.As(err, &providerErr) || errors.As(err, &apiErr) {
		return http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream request failed", map[string]any{"providerStatus": query.StatusOf(err)}
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
