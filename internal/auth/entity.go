// AuraPrep | 2026
// entity.go

package auth

import (
	"time"
)

// RefreshToken is one link in a rotation chain. TokenID is the only value
// ever embedded in a client-held envelope and the sole lookup key; it is
// immutable once created. RevokedAt only moves from NULL to a timestamp,
// and ReplacedByTokenID is set exactly once, during rotation.
type RefreshToken struct {
	ID                string     `db:"id"`
	TokenID           string     `db:"token_id"`
	UserID            string     `db:"user_id"`
	ExpiresAt         time.Time  `db:"expires_at"`
	CreatedAt         time.Time  `db:"created_at"`
	RevokedAt         *time.Time `db:"revoked_at"`
	ReplacedByTokenID *string    `db:"replaced_by_token_id"`
	UserAgent         string     `db:"user_agent"`
	IPAddress         string     `db:"ip_address"`
}

// ClientContext is informational metadata captured when a token is issued.
type ClientContext struct {
	UserAgent string
	IPAddress string
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsUsable reports whether the record may still be rotated.
func (t *RefreshToken) IsUsable() bool {
	return !t.IsRevoked() && !t.IsExpired()
}
