package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-movie-watchlist/internal/db"
	"github.com/justestif/go-movie-watchlist/internal/dbtest"
)

// requestWith returns a request carrying the cookies set on rec.
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func provisionAccount(t *testing.T, database *db.DB) *db.Account {
	t.Helper()
	account, err := database.Accounts().Upsert(context.Background(), "admin", "hash")
	require.NoError(t, err)
	return account
}

func TestSessionManagers(t *testing.T) {
	ctx := context.Background()
	opts := SessionOptions{Secret: testSecret, TTL: time.Hour}

	stores := map[string]func(database *db.DB) SessionManager{
		"memory":   func(*db.DB) SessionManager { return NewSessionStore(opts) },
		"database": func(database *db.DB) SessionManager { return NewDBSessionStore(database, opts) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			database := dbtest.Open(t)
			account := provisionAccount(t, database)
			store := newStore(database)

			session, err := store.Create(ctx, account)
			require.NoError(t, err)
			assert.Len(t, session.ID, 64)
			assert.Equal(t, account.ID, session.AccountID)
			assert.Equal(t, "admin", session.Username)
			assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

			got := store.Get(ctx, session.ID)
			require.NotNil(t, got)
			assert.Equal(t, session.ID, got.ID)

			rec := httptest.NewRecorder()
			require.NoError(t, store.SetCookie(rec, session))
			cookie := rec.Result().Cookies()[0]
			assert.Equal(t, sessionCookieName, cookie.Name)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, 3600, cookie.MaxAge)

			fromRequest := store.GetFromRequest(requestWith(rec))
			require.NotNil(t, fromRequest)
			assert.Equal(t, session.ID, fromRequest.ID)

			require.NoError(t, store.Delete(ctx, session.ID))
			assert.Nil(t, store.Get(ctx, session.ID))
			assert.Nil(t, store.GetFromRequest(requestWith(rec)), "deleted session is anonymous")
			require.NoError(t, store.Delete(ctx, session.ID), "deleting twice is a no-op")

			rec = httptest.NewRecorder()
			store.ClearCookie(rec)
			assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)

			assert.Nil(t, store.Get(ctx, "unknown"))
			assert.Nil(t, store.GetFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
		})
	}
}

func TestSessionManagers_Expired(t *testing.T) {
	ctx := context.Background()
	opts := SessionOptions{Secret: testSecret, TTL: time.Nanosecond}

	database := dbtest.Open(t)
	account := provisionAccount(t, database)

	for _, store := range []SessionManager{NewSessionStore(opts), NewDBSessionStore(database, opts)} {
		session, err := store.Create(ctx, account)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		assert.Nil(t, store.Get(ctx, session.ID))
	}
}

func TestSessionStore_SweepsExpiredOnCreate(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	account := provisionAccount(t, database)

	short := NewSessionStore(SessionOptions{Secret: testSecret, TTL: time.Nanosecond})
	for i := 0; i < 5; i++ {
		_, err := short.Create(ctx, account)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 1, short.count(), "only the newest session survives")

	long := NewSessionStore(SessionOptions{Secret: testSecret, TTL: time.Hour})
	for i := 0; i < 3; i++ {
		_, err := long.Create(ctx, account)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, long.count(), "live sessions are kept")
}

func TestDBSessionStore_DeleteError(t *testing.T) {
	database := dbtest.Open(t)
	store := NewDBSessionStore(database, SessionOptions{Secret: testSecret})
	require.NoError(t, database.Close())

	assert.Error(t, store.Delete(context.Background(), "any"))
}

func TestSessionCookie_Rejected(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	account := provisionAccount(t, database)
	store := NewDBSessionStore(database, SessionOptions{Secret: testSecret})

	session, err := store.Create(ctx, account)
	require.NoError(t, err)

	sign := func(key []byte, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
		t.Helper()
		var value string
		var err error
		if method == jwt.SigningMethodNone {
			value, err = jwt.NewWithClaims(method, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		} else {
			value, err = jwt.NewWithClaims(method, claims).SignedString(key)
		}
		require.NoError(t, err)
		return value
	}

	valid := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   account.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "valid", value: sign(testSecret, jwt.SigningMethodHS256, valid), want: true},
		{name: "wrong secret", value: sign([]byte("another-secret-value"), jwt.SigningMethodHS256, valid)},
		{name: "unsigned", value: sign(nil, jwt.SigningMethodNone, valid)},
		{name: "other hmac", value: sign(testSecret, jwt.SigningMethodHS512, valid)},
		{name: "garbage", value: "not-a-token"},
		{
			name: "expired token",
			value: sign(testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
				ID:        session.ID,
				Subject:   account.ID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}),
		},
		{
			name: "no expiry",
			value: sign(testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
				ID:      session.ID,
				Subject: account.ID.String(),
			}),
		},
		{
			name: "subject mismatch",
			value: sign(testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
				ID:        session.ID,
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.value})

			got := store.GetFromRequest(req)
			if tt.want {
				require.NotNil(t, got)
				assert.Equal(t, session.ID, got.ID)
				return
			}
			assert.Nil(t, got)
		})
	}
}

func TestDBSessionStore_Reprovisioned(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	account := provisionAccount(t, database)
	store := NewDBSessionStore(database, SessionOptions{Secret: testSecret})

	session, err := store.Create(ctx, account)
	require.NoError(t, err)

	_, err = database.Accounts().Upsert(ctx, "root", "hash-2")
	require.NoError(t, err)

	got := store.Get(ctx, session.ID)
	require.NotNil(t, got)
	assert.Equal(t, "root", got.Username, "username is read fresh from the account")
}

func TestFlashes(t *testing.T) {
	f := newFlashes(testSecret, false)

	rec := httptest.NewRecorder()
	require.NoError(t, f.Set(rec, FlashSuccess, "Item created."))

	popRec := httptest.NewRecorder()
	msg := f.Pop(popRec, requestWith(rec))
	require.NotNil(t, msg)
	assert.Equal(t, FlashMessage{Type: FlashSuccess, Message: "Item created."}, *msg)

	cleared := popRec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, flashCookieName, cleared[0].Name)
	assert.Equal(t, -1, cleared[0].MaxAge)

	assert.Nil(t, f.Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))

	other := newFlashes([]byte("a-different-secret"), false)
	assert.Nil(t, other.Pop(httptest.NewRecorder(), requestWith(rec)), "foreign signature is dropped")
}
