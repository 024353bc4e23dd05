// Package share holds the rules for public note links: token minting,
// expiry presets and the checks applied when a link is opened.
package share

import (
	"errors"
	"time"

	"github.com/RanitManik/lucide-note/internal/auth"
)

// TokenBytes is the amount of randomness in a share token.
const TokenBytes = 32

var (
	ErrNotFound  = errors.New("shared note not found")
	ErrNotPublic = errors.New("this note is no longer shared")
	ErrExpired   = errors.New("this share link has expired")
)

// Never clears the expiry of a share.
const Never = "never"

var presets = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// NewToken returns an unguessable URL-safe token.
func NewToken() (string, error) {
	return auth.RandomToken(TokenBytes)
}

// ValidExpiry reports whether value is one of the accepted expiry values.
func ValidExpiry(value string) bool {
	if value == Never {
		return true
	}
	_, ok := presets[value]
	return ok
}

// ExpiryFor computes the expiry of a new share. Unknown values, "never" and
// nil all mean the link does not expire.
func ExpiryFor(value *string, now time.Time) *time.Time {
	if value == nil {
		return nil
	}
	d, ok := presets[*value]
	if !ok {
		return nil
	}
	at := now.Add(d)
	return &at
}

// UpdateExpiry applies value to an existing expiry. nil and "never" clear
// it; unknown values keep current.
func UpdateExpiry(current *time.Time, value *string, now time.Time) *time.Time {
	if value == nil || *value == Never {
		return nil
	}
	if _, ok := presets[*value]; !ok {
		return current
	}
	return ExpiryFor(value, now)
}

// Check decides whether a share may be viewed at now.
func Check(isPublic bool, expiresAt *time.Time, now time.Time) error {
	if !isPublic {
		return ErrNotPublic
	}
	if expiresAt != nil && expiresAt.Before(now) {
		return ErrExpired
	}
	return nil
}

// URL builds the public link for token.
func URL(baseURL, token string) string {
	return baseURL + "/s/" + token
}
