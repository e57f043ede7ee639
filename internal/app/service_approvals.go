package app

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/approval"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/email"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/status"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/store"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

const auditBudget = 3 * time.Second

type ApprovalInput struct {
	Type           string `json:"type"`
	ItemID         string `json:"itemId"`
	Status         string `json:"status"`
	RevisionReason string `json:"revisionReason"`
}

// UpdateApproval writes one decision to the base and records the attempt.
// A failed write is never retried here; the caller re-fetches the item.
func (s *Service) UpdateApproval(ctx context.Context, session Session, in ApprovalInput) (viewmodel.Item, error) {
	user := session.User
	if !rbac.Can(user.Role, rbac.ActionApprove) {
		return nil, errForbidden(nil)
	}
	if strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.ItemID) == "" || strings.TrimSpace(in.Status) == "" {
		return nil, errValidation("Missing required fields", map[string]any{
			"required": []string{"type", "itemId", "status"},
		})
	}
	kind, ok := viewmodel.ParseKind(in.Type)
	if !ok {
		return nil, errValidation("Unknown content type", map[string]any{"type": in.Type})
	}
	canonical, ok := status.Parse(in.Status)
	if !ok {
		return nil, errValidation("Invalid status", map[string]any{"status": in.Status})
	}

	req := approval.Request{
		ContentType:    string(kind),
		RecordID:       in.ItemID,
		Status:         canonical,
		RevisionReason: in.RevisionReason,
	}
	evt := store.ApprovalEvent{
		ItemID:         in.ItemID,
		ContentType:    string(kind),
		Status:         string(canonical),
		RevisionReason: strings.TrimSpace(in.RevisionReason),
		UserID:         user.ID,
		UserRole:       string(user.Role),
	}

	if s.base == nil {
		return nil, s.updateFailed(ctx, evt, airtable.ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	if user.Role == rbac.RoleClient {
		if err := s.checkClientOwnsItem(ctx, user, kind, in.ItemID); err != nil {
			var domainErr *DomainError
			if errors.As(err, &domainErr) {
				return nil, err
			}
			return nil, s.updateFailed(ctx, evt, err)
		}
	}

	record, err := s.approvals.Update(ctx, req)
	if err != nil {
		return nil, s.updateFailed(ctx, evt, err)
	}

	evt.Outcome = store.OutcomeOK
	s.recordAudit(ctx, evt)

	item, err := viewmodel.FromRecord(kind, record)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexItems(kind, []viewmodel.Item{item})
	}
	if status.NeedsRevisionNotes(canonical) {
		s.notifyRevision(kind, record, canonical, evt.RevisionReason, user)
	}

	s.log.Infow("approval updated", "item_id", in.ItemID, "type", kind, "status", canonical, "user_id", user.ID)
	return item, nil
}

func (s *Service) updateFailed(ctx context.Context, evt store.ApprovalEvent, cause error) error {
	evt.Outcome = store.OutcomeFailed
	evt.Error = cause.Error()
	s.recordAudit(ctx, evt)
	s.log.Errorw("approval update failed", "item_id", evt.ItemID, "type", evt.ContentType, "status", evt.Status, "error", cause)

	message := "Failed to update approval status"
	if errors.Is(cause, airtable.ErrMissingCredentials) {
		message = cause.Error()
	}
	return domainError(http.StatusInternalServerError, "UPDATE_FAILED", message, map[string]any{
		"itemId": evt.ItemID,
		"stale":  true,
	})
}

func (s *Service) checkClientOwnsItem(ctx context.Context, user rbac.User, kind viewmodel.Kind, itemID string) error {
	record, err := s.base.Find(ctx, kind.Table(), itemID)
	if err != nil {
		return err
	}
	for _, c := range rbac.BagScope(record.Fields).ClientIDs() {
		if slices.Contains(user.Clients, c) {
			return nil
		}
	}
	return errForbidden(map[string]any{"itemId": itemID})
}

func (s *Service) recordAudit(ctx context.Context, evt store.ApprovalEvent) {
	if s.audit == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditBudget)
	defer cancel()
	if _, err := s.audit.RecordApproval(actx, evt); err != nil {
		s.log.Warnw("approval audit write failed", "item_id", evt.ItemID, "outcome", evt.Outcome, "error", err)
	}
}

func (s *Service) notifyRevision(kind viewmodel.Kind, record airtable.Record, canonical status.Canonical, reason string, user rbac.User) {
	to := email.ParseRecipients(s.cfg.RevisionNotifyTo)
	if s.mailer == nil || !s.mailer.IsConfigured() || len(to) == 0 {
		return
	}
	notice := email.RevisionNotice{
		ContentType: kind.Label(),
		ItemID:      record.ID,
		ItemTitle:   fields.String(record.Fields, kind.Fields().Candidates(fields.Title)),
		Status:      status.ToDisplay(canonical),
		Reason:      reason,
		RequestedBy: firstNonBlank(user.Name, user.Email, user.ID),
		PortalURL:   s.cfg.PortalURL,
	}
	go func() {
		if err := s.mailer.SendRevisionNotice(to, notice); err != nil {
			s.log.Warnw("revision notice not sent", "item_id", notice.ItemID, "error", err)
		}
	}()
}

// ApprovalHistory lists the recorded write attempts for one item.
func (s *Service) ApprovalHistory(ctx context.Context, user rbac.User, itemID string, limit int) ([]store.ApprovalEvent, error) {
	if !rbac.Can(user.Role, rbac.ActionRead) {
		return nil, errForbidden(nil)
	}
	if strings.TrimSpace(itemID) == "" {
		return nil, errValidation("itemId is required", nil)
	}
	if s.audit == nil {
		return nil, domainError(http.StatusServiceUnavailable, "AUDIT_UNAVAILABLE", "Approval history is not enabled", nil)
	}
	events, err := s.audit.ListApprovals(ctx, itemID, limit)
	if err != nil {
		return nil, err
	}
	if user.Role == rbac.RoleClient {
		kept := events[:0]
		for _, e := range events {
			if e.UserID == user.ID {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	return events, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
