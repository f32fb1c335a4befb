// Package auth manages API accounts and issues the bearer tokens the HTTP
// layer checks. Accounts live in the shared remote store so every cooperating
// instance sees the same users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"certhub/internal/domain"
	"certhub/internal/store/remote"
	domainerrors "certhub/pkg/domain-errors"
)

const minPasswordLength = 8

// Claims is the token payload.
type Claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service authenticates users and manages accounts.
type Service struct {
	store      remote.Store
	signingKey []byte
	tokenTTL   time.Duration
	log        *slog.Logger
	clock      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides time for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService builds the auth service.
func NewService(store remote.Store, signingKey string, tokenTTL time.Duration, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	s := &Service{
		store:      store,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		log:        slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SeedAdmin creates the first admin account when the user store is empty.
// A no-op on populated stores, so rotating the configured password later
// changes nothing.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		s.log.Debug("no admin password configured, skipping seed")
		return nil
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	err = s.store.SaveUser(ctx, domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    s.clock(),
		CreatedBy:    "seed",
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info("seeded initial admin account", "username", username)
	return nil
}

// Login checks credentials and returns a signed token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	user, err := s.store.GetUser(ctx, username)
	if errors.Is(err, remote.ErrNotFound) {
		return "", domain.User{}, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return "", domain.User{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, domainerrors.New(domainerrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.clock()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", domain.User{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "sign token")
	}
	return token, user, nil
}

// VerifyToken parses and validates a bearer token.
func (s *Service) VerifyToken(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil || !token.Valid {
		return Claims{}, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// CreateUser adds an account. Only admins create users.
func (s *Service) CreateUser(ctx context.Context, actor Claims, username, password string, role domain.Role) (domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return domain.User{}, domainerrors.New(domainerrors.CodeForbidden, "only admins manage users")
	}
	if username == "" {
		return domain.User{}, domainerrors.New(domainerrors.CodeInvalidInput, "username is required")
	}
	if len(password) < minPasswordLength {
		return domain.User{}, domainerrors.New(domainerrors.CodeInvalidInput,
			fmt.Sprintf("password must have at least %d characters", minPasswordLength))
	}
	if role != domain.RoleAdmin && role != domain.RoleOperator {
		return domain.User{}, domainerrors.New(domainerrors.CodeInvalidInput, "role must be admin or operator")
	}

	if _, err := s.store.GetUser(ctx, username); err == nil {
		return domain.User{}, domainerrors.New(domainerrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, remote.ErrNotFound) {
		return domain.User{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "hash password")
	}
	user := domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock(),
		CreatedBy:    actor.Username,
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return domain.User{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "save user")
	}
	s.log.Info("user created", "username", username, "role", role, "by", actor.Username)
	return user, nil
}

// DeleteUser removes an account. Admins only, and never their own.
func (s *Service) DeleteUser(ctx context.Context, actor Claims, username string) error {
	if actor.Role != domain.RoleAdmin {
		return domainerrors.New(domainerrors.CodeForbidden, "only admins manage users")
	}
	if username == actor.Username {
		return domainerrors.New(domainerrors.CodeInvalidInput, "cannot delete your own account")
	}
	if _, err := s.store.GetUser(ctx, username); errors.Is(err, remote.ErrNotFound) {
		return domainerrors.New(domainerrors.CodeNotFound, "no such user")
	} else if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "check username")
	}
	if err := s.store.DeleteUser(ctx, username); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "delete user")
	}
	s.log.Info("user deleted", "username", username, "by", actor.Username)
	return nil
}

// ListUsers returns every account, password hashes blanked.
func (s *Service) ListUsers(ctx context.Context, actor Claims) ([]domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domainerrors.New(domainerrors.CodeForbidden, "only admins manage users")
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "list users")
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}
