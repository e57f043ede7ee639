// Package approval writes client approval decisions back to the base.
package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/status"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

var (
	ErrUnknownContentType = errors.New("unknown content type")
	ErrMissingRecordID    = errors.New("record id is required")
	ErrInvalidStatus      = errors.New("invalid status")
)

const (
	StatusField         = "Status"
	BriefStatusField    = "Keyword/Content Status"
	SummaryField        = "Approval Status"
	RevisionNotesField  = "Revision Notes"
	approvalFieldSuffix = " Approval"
)

// Writer is the subset of the Airtable client the updater needs.
type Writer interface {
	Update(ctx context.Context, table, id string, values map[string]any) (airtable.Record, error)
}

type Request struct {
	ContentType    string
	RecordID       string
	Status         status.Canonical
	RevisionReason string
}

type Updater struct {
	writer Writer
}

func NewUpdater(writer Writer) *Updater {
	return &Updater{writer: writer}
}

// ApprovalField is the per-type approval column, e.g. "Article Approval".
func ApprovalField(kind viewmodel.Kind) string {
	return kind.Label() + approvalFieldSuffix
}

// Patch builds the field values written for req. It is exported for the
// CLI dry-run and tests.
func Patch(req Request) (viewmodel.Kind, map[string]any, error) {
	kind, ok := viewmodel.ParseKind(req.ContentType)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownContentType, req.ContentType)
	}
	if strings.TrimSpace(req.RecordID) == "" {
		return "", nil, ErrMissingRecordID
	}
	canonical, ok := status.Parse(string(req.Status))
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	display := status.ToDisplay(canonical)
	statusField := StatusField
	if kind == viewmodel.KindBriefs {
		statusField = BriefStatusField
	}
	values := map[string]any{
		ApprovalField(kind): display,
		statusField:         display,
		SummaryField:        kind.Label() + " " + display,
	}
	if reason := strings.TrimSpace(req.RevisionReason); reason != "" && status.NeedsRevisionNotes(canonical) {
		values[RevisionNotesField] = reason
	}
	return kind, values, nil
}

// Update writes one approval decision. Write failures are returned as-is.
func (u *Updater) Update(ctx context.Context, req Request) (airtable.Record, error) {
	kind, values, err := Patch(req)
	if err != nil {
		return airtable.Record{}, err
	}
	record, err := u.writer.Update(ctx, kind.Table(), req.RecordID, values)
	if err != nil {
		return airtable.Record{}, fmt.Errorf("update %s %s: %w", kind.Table(), req.RecordID, err)
	}
	return record, nil
}
