package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/RanitManik/lucide-note/internal/auth"
	"github.com/RanitManik/lucide-note/internal/authpw"
	"github.com/RanitManik/lucide-note/internal/config"
	"github.com/RanitManik/lucide-note/internal/email"
	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/RanitManik/lucide-note/internal/metrics"
	"github.com/RanitManik/lucide-note/internal/rbac"
	"github.com/RanitManik/lucide-note/internal/search"
	sessionstore "github.com/RanitManik/lucide-note/internal/session"
	"github.com/RanitManik/lucide-note/internal/store"
	"github.com/RanitManik/lucide-note/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Email        string
	UserName     string
	Role         string
	TenantID     string
	JTI          string
	ExpiresAt    time.Time
}

// SessionStore keeps refresh sessions and access token revocations. Both
// the Postgres store and the Redis store implement it.
type SessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	ConsumeRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

type dataStore interface {
	SessionStore

	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) (store.User, error)
	GetTenantByID(context.Context, string) (store.Tenant, error)
	SetupOrganization(context.Context, string, string, string) (store.Tenant, store.User, error)
	UpdateTenantPlan(context.Context, string, string) (store.Tenant, error)

	ListNotes(context.Context, string) ([]store.Note, error)
	GetNote(context.Context, string, string) (store.Note, error)
	CountNotes(context.Context, string) (int, error)
	InsertNote(context.Context, store.Note, int) (store.Note, error)
	UpdateNote(context.Context, string, string, store.NotePatch) (store.Note, error)
	DeleteNote(context.Context, string, string) error

	GetShareByNote(context.Context, string, string) (store.SharedNote, error)
	CreateShare(context.Context, store.SharedNote) (store.SharedNote, error)
	UpdateShare(context.Context, store.SharedNote) (store.SharedNote, error)
	DeleteShare(context.Context, string) error
	GetSharedNoteByToken(context.Context, string) (store.SharedNoteView, error)
	IncrementShareViews(context.Context, string) error

	Ping(ctx context.Context) error
}

// Deps are the optional collaborators of the service. Zero values fall back
// to Postgres sessions, substring search, headless Chrome PDFs without a
// cache, no invite mail and no metrics.
type Deps struct {
	Sessions SessionStore
	Search   *search.Service
	PDF      export.PDFRenderer
	Cache    export.ArtifactCache
	Mailer   *email.Service
	Metrics  *metrics.Metrics
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  SessionStore
	passwords *authpw.Service
	search    *search.Service
	exporter  *export.Service
	mailer    *email.Service
	metrics   *metrics.Metrics
	validator *RequestValidator
	now       func() time.Time
	// async runs fire-and-forget work such as view counting.
	async func(func())
}

func New(cfg config.Config, dataStore dataStore, deps Deps) *Service {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = dataStore
	}
	searcher := deps.Search
	if searcher == nil {
		searcher = search.NewService(nil, dataStore, deps.Metrics)
	}
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
		search:    searcher,
		exporter:  export.NewService(exportSource{store: dataStore}, deps.PDF, deps.Cache),
		mailer:    deps.Mailer,
		metrics:   deps.Metrics,
		validator: NewRequestValidator(),
		now:       time.Now,
		async:     func(fn func()) { go fn() },
	}
}

func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// Register creates an account and signs it in. The account has no tenant
// until the user sets up an organization.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Session, error) {
	if err := s.validator.Validate(input); err != nil {
		return Session{}, err
	}
	user, err := s.passwords.SignUp(ctx, authpw.SignUpRequest{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		return Session{}, passwordError(err)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, input LoginInput) (Session, error) {
	if err := s.validator.Validate(input); err != nil {
		return Session{}, err
	}
	user, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: input.Email, Password: input.Password})
	if err != nil {
		return Session{}, passwordError(err)
	}
	return s.issueSession(ctx, user)
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, authpw.ErrEmailExists):
		return domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	case errors.Is(err, authpw.ErrMissingFields), errors.Is(err, authpw.ErrInvalidEmail), errors.Is(err, authpw.ErrWeakPassword):
		return validationError(err.Error(), nil)
	default:
		return err
	}
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	// Consuming is atomic, so a token replayed concurrently mints at most one
	// new session.
	ref, err := s.sessions.ConsumeRefreshSession(ctx, auth.HashToken(refreshToken))
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, sessionstore.ErrSessionNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	// The session store may only know the user id; roles and tenancy come
	// from the database.
	user, err := s.store.GetUserByID(ctx, ref.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      user.ID,
		Name:     user.DisplayName(),
		TenantID: user.TenantID,
		Role:     user.Role,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh, err := auth.RandomToken(32)
	if err != nil {
		return Session{}, err
	}
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		UserName:     user.DisplayName(),
		Role:         user.Role,
		TenantID:     user.TenantID,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken validates an access token. Role and tenant are read from
// the user row, so a token minted before organization setup sees the new
// tenant immediately.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		UserName:  user.DisplayName(),
		Role:      user.Role,
		TenantID:  user.TenantID,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func requireTenant(session Session) error {
	if session.TenantID == "" {
		return errNoOrganization
	}
	return nil
}

func userPayload(session Session) map[string]any {
	return map[string]any{
		"id":       session.UserID,
		"email":    session.Email,
		"name":     session.UserName,
		"role":     session.Role,
		"tenantId": nilIfEmpty(session.TenantID),
	}
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"expiresAt":    session.ExpiresAt.UTC().Format(time.RFC3339),
		"user":         userPayload(session),
	}
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
