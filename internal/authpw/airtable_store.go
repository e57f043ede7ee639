package authpw

import (
	"context"
	"errors"
	"fmt"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/fields"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/formula"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/query"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
)

const UsersTable = "Users"

var (
	nameCandidates     = []string{"Name", "Full Name", "User"}
	emailCandidates    = []string{"Email", "email"}
	roleCandidates     = []string{"Role", "role"}
	passwordCandidates = []string{"Password", "PasswordHash", "Password Hash"}
	PasswordField      = "Password"
)

type tableConn interface {
	query.Selector
	Update(ctx context.Context, table, id string, values map[string]any) (airtable.Record, error)
}

// AirtableStore reads users from the Users table.
type AirtableStore struct {
	conn tableConn
}

func NewAirtableStore(conn tableConn) *AirtableStore {
	return &AirtableStore{conn: conn}
}

func (s *AirtableStore) GetUserByEmail(ctx context.Context, email string) (StoredUser, error) {
	records, err := query.Execute(ctx, s.conn, UsersTable, query.Params{
		Filter:     formula.ByEmail(email),
		MaxRecords: 1,
	})
	if err != nil {
		return StoredUser{}, unavailable(err)
	}
	if len(records) == 0 {
		return StoredUser{}, ErrUserNotFound
	}
	return UserFromRecord(records[0]), nil
}

func (s *AirtableStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	if _, err := s.conn.Update(ctx, UsersTable, userID, map[string]any{PasswordField: passwordHash}); err != nil {
		return unavailable(err)
	}
	return nil
}

// UserFromRecord maps a Users row.
func UserFromRecord(record airtable.Record) StoredUser {
	bag := record.Fields
	return StoredUser{
		User: rbac.User{
			ID:      record.ID,
			Name:    fields.String(bag, nameCandidates),
			Email:   fields.String(bag, emailCandidates),
			Role:    rbac.Normalize(fields.String(bag, roleCandidates)),
			Clients: fields.Strings(bag, fields.ClientCandidates),
		},
		Password: fields.String(bag, passwordCandidates),
	}
}

// unavailable tags connectivity and configuration failures so SignIn can
// fall back. Airtable 4xx other than auth and rate limits stay hard errors.
func unavailable(err error) error {
	if errors.Is(err, airtable.ErrMissingCredentials) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	switch status := query.StatusOf(err); {
	case status == 0, status == 401, status == 403, status == 429, status >= 500:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
