// Package web provides the HTTP server and web UI for the movie watchlist.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/justestif/go-movie-watchlist/internal/db"
)

const (
	sessionCookieName = "session"

	// DefaultSessionTTL is used when SessionOptions leaves TTL unset.
	DefaultSessionTTL = 24 * time.Hour
)

// Session represents an authenticated login.
type Session struct {
	ID        string
	AccountID uuid.UUID
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager defines the interface for session management.
type SessionManager interface {
	Create(ctx context.Context, account *db.Account) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string) error
	GetFromRequest(r *http.Request) *Session
	SetCookie(w http.ResponseWriter, session *Session) error
	ClearCookie(w http.ResponseWriter)
}

// SessionOptions configures session lifetime and the session cookie.
type SessionOptions struct {
	// Secret signs session and flash cookies.
	Secret []byte
	TTL    time.Duration
	// Secure marks cookies as HTTPS only.
	Secure bool
}

func (o SessionOptions) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultSessionTTL
	}
	return o.TTL
}

// ============================================================================
// In-Memory Session Store (for development/testing)
// ============================================================================

// SessionStore manages sessions in memory. Sessions do not survive a restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cookies  *cookieCodec
	ttl      time.Duration
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore(opts SessionOptions) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		cookies:  newCookieCodec(opts),
		ttl:      opts.ttl(),
	}
}

// Create starts a session for account.
func (s *SessionStore) Create(_ context.Context, account *db.Account) (*Session, error) {
	session, err := newSession(account, s.ttl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.deleteExpiredLocked(session.CreatedAt)
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a live session by ID.
func (s *SessionStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	if !time.Now().Before(session.ExpiresAt) {
		_ = s.Delete(context.Background(), id)
		return nil
	}

	return session
}

// Delete removes a session by ID. It never fails.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// deleteExpiredLocked drops every session expired at now.
func (s *SessionStore) deleteExpiredLocked(now time.Time) {
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

// count returns the number of stored sessions, expired ones included.
func (s *SessionStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetFromRequest resolves the session named by the request cookie.
func (s *SessionStore) GetFromRequest(r *http.Request) *Session {
	claims, ok := s.cookies.read(r)
	if !ok {
		return nil
	}
	return matchClaims(s.Get(r.Context(), claims.ID), claims)
}

// SetCookie sets the signed session cookie on the response.
func (s *SessionStore) SetCookie(w http.ResponseWriter, session *Session) error {
	return s.cookies.write(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *SessionStore) ClearCookie(w http.ResponseWriter) {
	s.cookies.clear(w)
}

// ============================================================================
// Database-Backed Session Store
// ============================================================================

// DBSessionStore manages sessions in the relational store.
type DBSessionStore struct {
	database *db.DB
	cookies  *cookieCodec
	ttl      time.Duration
}

// NewDBSessionStore creates a new database-backed session store.
func NewDBSessionStore(database *db.DB, opts SessionOptions) *DBSessionStore {
	return &DBSessionStore{
		database: database,
		cookies:  newCookieCodec(opts),
		ttl:      opts.ttl(),
	}
}

// Create starts a session for account and stores it in the database.
func (s *DBSessionStore) Create(ctx context.Context, account *db.Account) (*Session, error) {
	session, err := newSession(account, s.ttl)
	if err != nil {
		return nil, err
	}

	dbSession := &db.Session{
		ID:        session.ID,
		AccountID: session.AccountID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.database.Sessions().Create(ctx, dbSession); err != nil {
		return nil, err
	}

	return session, nil
}

// Get retrieves a live session by ID from the database.
func (s *DBSessionStore) Get(ctx context.Context, id string) *Session {
	dbSession, err := s.database.Sessions().Get(ctx, id)
	if err != nil {
		return nil
	}

	// The account may have been reprovisioned under a new ID.
	account, err := s.database.Accounts().GetByID(ctx, dbSession.AccountID)
	if err != nil {
		return nil
	}

	return &Session{
		ID:        dbSession.ID,
		AccountID: account.ID,
		Username:  account.Username,
		CreatedAt: dbSession.CreatedAt,
		ExpiresAt: dbSession.ExpiresAt,
	}
}

// Delete removes a session from the database. Deleting an unknown session
// is not an error.
func (s *DBSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.database.Sessions().Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// GetFromRequest resolves the session named by the request cookie.
func (s *DBSessionStore) GetFromRequest(r *http.Request) *Session {
	claims, ok := s.cookies.read(r)
	if !ok {
		return nil
	}
	return matchClaims(s.Get(r.Context(), claims.ID), claims)
}

// SetCookie sets the signed session cookie on the response.
func (s *DBSessionStore) SetCookie(w http.ResponseWriter, session *Session) error {
	return s.cookies.write(w, session)
}

// ClearCookie removes the session cookie from the response.
func (s *DBSessionStore) ClearCookie(w http.ResponseWriter) {
	s.cookies.clear(w)
}

// ============================================================================
// Signed Cookies
// ============================================================================

var errUnsignedToken = errors.New("token signing method is not HMAC")

// signer issues and verifies HS256 tokens for cookie values.
type signer struct {
	key []byte
}

func (s signer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s signer) parse(value string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(value, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errUnsignedToken
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	return err
}

// cookieCodec reads and writes the session cookie. The value is a token
// whose jti is the session ID and whose sub is the account ID.
type cookieCodec struct {
	signer signer
	ttl    time.Duration
	secure bool
}

func newCookieCodec(opts SessionOptions) *cookieCodec {
	return &cookieCodec{
		signer: signer{key: opts.Secret},
		ttl:    opts.ttl(),
		secure: opts.Secure,
	}
}

func (c *cookieCodec) read(r *http.Request) (*jwt.RegisteredClaims, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	var claims jwt.RegisteredClaims
	if err := c.signer.parse(cookie.Value, &claims); err != nil {
		return nil, false
	}
	if claims.ID == "" {
		return nil, false
	}
	return &claims, true
}

func (c *cookieCodec) write(w http.ResponseWriter, session *Session) error {
	value, err := c.signer.sign(jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   session.AccountID.String(),
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl.Seconds()),
	})
	return nil
}

func (c *cookieCodec) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newSession(account *db.Account, ttl time.Duration) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		AccountID: account.ID,
		Username:  account.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// matchClaims returns session only when it belongs to the token subject.
func matchClaims(session *Session, claims *jwt.RegisteredClaims) *Session {
	if session == nil || session.AccountID.String() != claims.Subject {
		return nil
	}
	return session
}

// Ensure both stores implement SessionManager.
var (
	_ SessionManager = (*SessionStore)(nil)
	_ SessionManager = (*DBSessionStore)(nil)
)
