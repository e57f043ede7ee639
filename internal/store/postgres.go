package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/util"
)

const DefaultHistoryLimit = 50

// ErrAppendOnly is returned when the database rejects a mutation of the
// audit trail.
var ErrAppendOnly = errors.New("approval events are append-only")

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// RecordApproval appends evt, assigning an id and timestamp when missing.
func (s *PostgresStore) RecordApproval(ctx context.Context, evt ApprovalEvent) (ApprovalEvent, error) {
	if evt.ID == "" {
		evt.ID = util.NewID("evt")
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	if evt.Outcome == "" {
		evt.Outcome = OutcomeOK
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO approval_events (id, item_id, content_type, status, revision_reason, user_id, user_role, outcome, error, created_at)
		VALUES (:id, :item_id, :content_type, :status, :revision_reason, :user_id, :user_role, :outcome, :error, :created_at)
	`, evt)
	if err != nil {
		return ApprovalEvent{}, fmt.Errorf("insert approval event: %w", classify(err))
	}
	return evt, nil
}

// ListApprovals returns the newest events for itemID first.
func (s *PostgresStore) ListApprovals(ctx context.Context, itemID string, limit int) ([]ApprovalEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultHistoryLimit
	}
	events := []ApprovalEvent{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT id, item_id, content_type, status, revision_reason, user_id, user_role, outcome, error, created_at
		FROM approval_events
		WHERE item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("list approval events: %w", err)
	}
	return events, nil
}

// FailedSince lists failed writes newer than since, oldest first, for
// reconciliation.
func (s *PostgresStore) FailedSince(ctx context.Context, since time.Time) ([]ApprovalEvent, error) {
	events := []ApprovalEvent{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT e.id, e.item_id, e.content_type, e.status, e.revision_reason, e.user_id, e.user_role, e.outcome, e.error, e.created_at
		FROM approval_events e
		WHERE e.outcome = 'failed' AND e.created_at >= $1
		  AND NOT EXISTS (
			SELECT 1 FROM approval_events ok
			WHERE ok.item_id = e.item_id AND ok.outcome = 'ok' AND ok.created_at > e.created_at
		  )
		ORDER BY e.created_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list failed approval events: %w", err)
	}
	return events, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.SQLState() == "55000" {
		return fmt.Errorf("%w: %s", ErrAppendOnly, pgErr.Message)
	}
	return err
}
