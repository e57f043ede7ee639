package store

import "time"

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// ApprovalEvent is one attempted approval write.
type ApprovalEvent struct {
	ID             string    `db:"id" json:"id"`
	ItemID         string    `db:"item_id" json:"itemId"`
	ContentType    string    `db:"content_type" json:"contentType"`
	Status         string    `db:"status" json:"status"`
	RevisionReason string    `db:"revision_reason" json:"revisionReason,omitempty"`
	UserID         string    `db:"user_id" json:"userId,omitempty"`
	UserRole       string    `db:"user_role" json:"userRole,omitempty"`
	Outcome        string    `db:"outcome" json:"outcome"`
	Error          string    `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
