// Package authpw authenticates portal users against the Users table and
// manages their passwords.
package authpw

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrUserNotFound   = errors.New("user not found")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
	// ErrUnavailable wraps store failures that should trigger the fallback
	// user table instead of a 500.
	ErrUnavailable = errors.New("user store unavailable")
)

const MinPasswordLength = 8

// StoredUser is a Users row with its credential.
type StoredUser struct {
	rbac.User
	// Password holds a bcrypt hash, or a legacy plaintext value for rows
	// that were never migrated.
	Password string
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (StoredUser, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
}

// FallbackFunc resolves a user when the store is unavailable.
type FallbackFunc func(email string) (StoredUser, bool)

// Service provides email/password authentication
type Service struct {
	store    UserStore
	fallback FallbackFunc
}

func NewService(store UserStore, fallback FallbackFunc) *Service {
	return &Service{store: store, fallback: fallback}
}

// SignInResult reports who signed in and whether the fallback table was
// used.
type SignInResult struct {
	User     rbac.User
	Fallback bool
}

// SignIn authenticates a user
func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return SignInResult{}, errors.New("email and password are required")
	}

	var (
		user StoredUser
		err  error
	)
	if s.store == nil {
		err = ErrUnavailable
	} else {
		user, err = s.store.GetUserByEmail(ctx, email)
	}
	switch {
	case err == nil:
		if !CheckPassword(user.Password, password) {
			return SignInResult{}, ErrBadCredentials
		}
		return SignInResult{User: normalize(user.User)}, nil
	case errors.Is(err, ErrUserNotFound):
		return SignInResult{}, ErrBadCredentials
	case errors.Is(err, ErrUnavailable) && s.fallback != nil:
		fallbackUser, ok := s.fallback(email)
		if !ok || !CheckPassword(fallbackUser.Password, password) {
			return SignInResult{}, ErrBadCredentials
		}
		return SignInResult{User: normalize(fallbackUser.User), Fallback: true}, nil
	default:
		return SignInResult{}, fmt.Errorf("look up user: %w", err)
	}
}

// ChangePassword stores a bcrypt hash of newPassword for userID.
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	if s.store == nil {
		return ErrUnavailable
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CheckPassword compares a candidate against a stored bcrypt hash or legacy
// plaintext value.
func CheckPassword(stored, candidate string) bool {
	if stored == "" {
		return false
	}
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

func isBcrypt(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

func normalize(user rbac.User) rbac.User {
	user.Role = rbac.Normalize(string(user.Role))
	if user.Clients == nil {
		user.Clients = []string{}
	}
	return user
}
