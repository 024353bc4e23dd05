// Package authpw provides email/password accounts: registration, sign-in and
// admin invitations into a tenant.
package authpw

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/RanitManik/lucide-note/internal/rbac"
	"github.com/RanitManik/lucide-note/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service provides email/password authentication
type Service struct {
	store UserStore
	cost  int
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (store.User, error)
}

// NewService creates a new auth service
func NewService(store UserStore) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUp creates an account without a tenant. The user becomes a tenant
// admin once they set up an organization.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return store.User{}, err
	}
	if err := checkPassword(req.Password); err != nil {
		return store.User{}, err
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailExists
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return store.User{}, err
	}
	return s.create(ctx, store.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         string(rbac.RoleMember),
	})
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn authenticates a user. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return store.User{}, ErrMissingFields
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// InviteRequest contains invitation parameters. An empty Password asks the
// service to generate one.
type InviteRequest struct {
	TenantID  string
	Email     string
	Role      rbac.Role
	Password  string
	FirstName string
	LastName  string
}

// InviteResult carries the created user. TemporaryPassword is set only when
// the password was generated.
type InviteResult struct {
	User              store.User
	TemporaryPassword string
}

// Invite creates a user directly inside a tenant.
func (s *Service) Invite(ctx context.Context, req InviteRequest) (*InviteResult, error) {
	if req.TenantID == "" {
		return nil, errors.New("tenant is required")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	result := &InviteResult{}
	password := req.Password
	if password == "" {
		password, err = generatePassword()
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		result.TemporaryPassword = password
	} else if err := checkPassword(password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	result.User, err = s.create(ctx, store.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         string(rbac.Normalize(string(req.Role))),
		TenantID:     req.TenantID,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HashPassword hashes a password with the default bcrypt cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) create(ctx context.Context, user store.User) (store.User, error) {
	created, err := s.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrConflict) {
		return store.User{}, ErrEmailExists
	}
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func normalizeEmail(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrMissingFields
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(value), nil
}

func checkPassword(password string) error {
	if password == "" {
		return ErrMissingFields
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// generatePassword creates a random 16 character password
func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
