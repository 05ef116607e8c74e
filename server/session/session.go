// Package session implements the browser login session: a cookie holding a
// base64-encoded JSON token with the username and an expiry timestamp.
package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CookieName is the session cookie the HTML surface reads and writes.
const CookieName = "auth_token"

// Token is the decoded session payload. Expiration is epoch milliseconds.
type Token struct {
	Username   string `json:"username"`
	Expiration int64  `json:"expiration"`
}

// Issue encodes a token for username valid for the given number of days.
func Issue(username string, days int) string {
	tok := Token{
		Username:   username,
		Expiration: time.Now().Add(time.Duration(days) * 24 * time.Hour).UnixMilli(),
	}

	raw, _ := json.Marshal(tok)
	return base64.StdEncoding.EncodeToString(raw)
}

// Parse decodes a raw cookie value. Garbage in either layer is an error.
func Parse(raw string) (*Token, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode session token: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(decoded, &tok); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	return &tok, nil
}

// Valid reports whether the token belongs to username and has not expired.
func (t *Token) Valid(username string, now time.Time) bool {
	return t.Username == username && now.UnixMilli() < t.Expiration
}

// SetCookie writes the session cookie for username.
func SetCookie(w http.ResponseWriter, username string, days int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    Issue(username, days),
		Path:     "/",
		MaxAge:   days * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest extracts and validates the session cookie against the
// expected username. False on any missing, malformed or expired token.
func FromRequest(r *http.Request, username string) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	tok, err := Parse(cookie.Value)
	if err != nil {
		return false
	}

	return tok.Valid(username, time.Now())
}
