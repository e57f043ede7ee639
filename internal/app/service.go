package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jstnrme77/scalerrs-portal-sub001/internal/airtable"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/approval"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/auth"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/authpw"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/cache"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/config"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/email"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/logging"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/mock"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/rbac"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/search"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/store"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/util"
	"github.com/jstnrme77/scalerrs-portal-sub001/internal/viewmodel"
)

// Session is the caller's resolved identity.
type Session struct {
	User      rbac.User
	Token     string
	JTI       string
	ExpiresAt time.Time
	FromToken bool
}

// baseConn is the Airtable surface the service uses.
type baseConn interface {
	Select(ctx context.Context, table string, q airtable.SelectQuery) (airtable.Page, error)
	Find(ctx context.Context, table, id string) (airtable.Record, error)
	Update(ctx context.Context, table, id string, values map[string]any) (airtable.Record, error)
	Ping(ctx context.Context, table string) error
}

type listCache interface {
	SaveRecords(ctx context.Context, key cache.Key, records []airtable.Record) error
	LoadRecords(ctx context.Context, key cache.Key) ([]airtable.Record, bool, error)
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Ping(ctx context.Context) error
}

type auditStore interface {
	RecordApproval(ctx context.Context, evt store.ApprovalEvent) (store.ApprovalEvent, error)
	ListApprovals(ctx context.Context, itemID string, limit int) ([]store.ApprovalEvent, error)
	Ping(ctx context.Context) error
}

type notifier interface {
	IsConfigured() bool
	SendRevisionNotice(to []string, notice email.RevisionNotice) error
}

type searchService interface {
	Search(user rbac.User, selected string, q search.Query) search.Response
	IndexItems(kind viewmodel.Kind, items []viewmodel.Item)
}

// Deps are the optional backends. Any nil field disables that feature.
type Deps struct {
	Base   baseConn
	Cache  listCache
	Audit  auditStore
	Search searchService
	Mailer notifier
	Logger *zap.SugaredLogger
}

type Service struct {
	cfg       config.Config
	log       *zap.SugaredLogger
	base      baseConn
	approvals *approval.Updater
	users     *authpw.Service
	cache     listCache
	audit     auditStore
	search    searchService
	mailer    notifier
}

func New(cfg config.Config, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	s := &Service{
		cfg:    cfg,
		log:    log,
		base:   deps.Base,
		cache:  deps.Cache,
		audit:  deps.Audit,
		search: deps.Search,
		mailer: deps.Mailer,
	}
	if cfg.MockData {
		s.base = nil
	}

	var userStore authpw.UserStore
	if s.base != nil {
		s.approvals = approval.NewUpdater(s.base)
		userStore = authpw.NewAirtableStore(s.base)
	}
	s.users = authpw.NewService(userStore, mockUser)
	return s
}

func mockUser(email string) (authpw.StoredUser, bool) {
	u, ok := mock.FindUser(email)
	if !ok {
		return authpw.StoredUser{}, false
	}
	return authpw.StoredUser{User: u.User, Password: u.Password}, true
}

// Configured reports whether live Airtable reads are possible.
func (s *Service) Configured() bool {
	return s.base != nil
}

// LoginResult is returned by Login.
type LoginResult struct {
	Session  Session
	MockUser bool
}

func (s *Service) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	if strings.TrimSpace(emailAddr) == "" || password == "" {
		return LoginResult{}, errValidation("Email and password are required", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	res, err := s.users.SignIn(ctx, emailAddr, password)
	if err != nil {
		if errors.Is(err, authpw.ErrBadCredentials) {
			return LoginResult{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return LoginResult{}, err
	}
	if res.Fallback {
		s.log.Warnw("login served from mock user table", "email", res.User.Email)
	}

	session, err := s.issueSession(res.User)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: session, MockUser: res.Fallback}, nil
}

func (s *Service) issueSession(user rbac.User) (Session, error) {
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	jti := util.NewID("jti")
	registered := auth.NewClaims(user.ID, jti, ttl)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Name:             user.Name,
		Email:            user.Email,
		Role:             string(user.Role),
		Clients:          user.Clients,
		RegisteredClaims: registered,
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		User:      user,
		Token:     token,
		JTI:       jti,
		ExpiresAt: registered.ExpiresAt.Time,
		FromToken: true,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.cache != nil {
		revoked, err := s.cache.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.log.Warnw("revocation check failed", "error", err)
		} else if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}
	clients := claims.Clients
	if clients == nil {
		clients = []string{}
	}
	return Session{
		User: rbac.User{
			ID:      claims.Subject,
			Name:    claims.Name,
			Email:   claims.Email,
			Role:    rbac.Normalize(claims.Role),
			Clients: clients,
		},
		Token:     token,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		FromToken: true,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	if session.JTI == "" || s.cache == nil {
		return nil
	}
	return s.cache.Revoke(ctx, session.JTI, session.ExpiresAt)
}

func (s *Service) ChangePassword(ctx context.Context, session Session, userID, newPassword string) error {
	if !rbac.Can(session.User.Role, rbac.ActionManageUsers) {
		return errForbidden(nil)
	}
	if strings.TrimSpace(userID) == "" || newPassword == "" {
		return errValidation("userId and newPassword are required", nil)
	}
	err := s.users.ChangePassword(ctx, userID, newPassword)
	switch {
	case err == nil:
		s.log.Infow("password changed", "user_id", userID, "by", session.User.ID)
		return nil
	case errors.Is(err, authpw.ErrWeakPassword):
		return errValidation(err.Error(), nil)
	case errors.Is(err, authpw.ErrUnavailable):
		return domainError(http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "User store unavailable", nil)
	default:
		return err
	}
}

// Ping reports the health of every configured backend. A nil entry means
// the backend is disabled.
func (s *Service) Ping(ctx context.Context) map[string]error {
	checks := map[string]error{}
	if s.base != nil {
		checks["airtable"] = s.base.Ping(ctx, "Keywords")
	}
	if s.cache != nil {
		checks["redis"] = s.cache.Ping(ctx)
	}
	if s.audit != nil {
		checks["postgres"] = s.audit.Ping(ctx)
	}
	return checks
}

func (s *Service) timeout() time.Duration {
	if s.cfg.AirtableTimeout <= 0 {
		return 8 * time.Second
	}
	return s.cfg.AirtableTimeout
}
