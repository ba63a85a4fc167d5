package web

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	flashCookieName = "flash"
	flashTTL        = 60 * time.Second
)

// Flash message types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

type flashClaims struct {
	Type    string `json:"typ"`
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

// flashes stores one-time notices in a short-lived signed cookie so they
// survive the redirect that follows a form post.
type flashes struct {
	signer signer
	secure bool
}

func newFlashes(secret []byte, secure bool) *flashes {
	return &flashes{signer: signer{key: secret}, secure: secure}
}

// Set queues a message for the next rendered page.
func (f *flashes) Set(w http.ResponseWriter, typ, message string) error {
	value, err := f.signer.sign(flashClaims{
		Type:    typ,
		Message: message,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)),
		},
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(flashTTL.Seconds()),
	})
	return nil
}

// Pop returns the pending message, if any, and clears the cookie.
// Tampered or expired cookies are dropped silently.
func (f *flashes) Pop(w http.ResponseWriter, r *http.Request) *FlashMessage {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   f.secure,
		MaxAge:   -1,
	})

	var claims flashClaims
	if err := f.signer.parse(cookie.Value, &claims); err != nil {
		return nil
	}
	return &FlashMessage{Type: claims.Type, Message: claims.Message}
}
