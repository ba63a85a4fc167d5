// Package auth holds the administrative credential and checks logins against it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/justestif/go-movie-watchlist/internal/db"
)

// MaxUsernameLength is the longest accepted username, in runes.
const MaxUsernameLength = 64

var (
	// ErrNoAccount is returned when no account has been provisioned yet.
	ErrNoAccount = errors.New("no account provisioned")

	// ErrInvalidCredentials is returned for every failed login, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidInput is returned when provisioning with a blank or oversized field.
	ErrInvalidInput = errors.New("invalid account input")
)

// Store is the credential store for the single administrative account.
type Store struct {
	db   *db.DB
	cost int
}

// Option configures a Store.
type Option func(*Store)

// WithCost sets the bcrypt cost used when hashing new passwords.
func WithCost(cost int) Option {
	return func(s *Store) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// NewStore creates a credential store backed by database.
func NewStore(database *db.DB, opts ...Option) *Store {
	s := &Store{
		db:   database,
		cost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the provisioned account, or ErrNoAccount.
func (s *Store) Find(ctx context.Context) (*db.Account, error) {
	account, err := s.db.Accounts().Get(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}
	return account, nil
}

// Provision creates the account, or overwrites the username and password of
// the existing one. Only the bcrypt hash of password is stored.
func (s *Store) Provision(ctx context.Context, username, password string) (*db.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, fmt.Errorf("%w: username longer than %d characters", ErrInvalidInput, MaxUsernameLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %w", ErrInvalidInput, err)
	}

	account, err := s.db.Accounts().Upsert(ctx, username, string(hash))
	if err != nil {
		return nil, fmt.Errorf("provisioning account: %w", err)
	}
	return account, nil
}

// Verify reports whether password matches the account's hash.
// A nil account never verifies.
func (s *Store) Verify(account *db.Account, password string) bool {
	if account == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil
}

// Authenticate checks a login attempt. Any failure, including a missing
// account, yields ErrInvalidCredentials; store errors are returned wrapped.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*db.Account, error) {
	account, err := s.Find(ctx)
	if errors.Is(err, ErrNoAccount) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if account.Username != strings.TrimSpace(username) || !s.Verify(account, password) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}
