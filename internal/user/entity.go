// AuraPrep | 2026
// entity.go

package user

import (
	"time"
)

// User is a directory record. PasswordHash is empty for accounts created
// through Google sign-in that never set a local password; GoogleID is nil
// until an account is linked.
type User struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	Name          string    `db:"name"`
	GoogleID      *string   `db:"google_id"`
	AvatarURL     string    `db:"avatar_url"`
	EmailVerified bool      `db:"email_verified"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (u *User) HasLocalPassword() bool {
	return u.PasswordHash != ""
}

func (u *User) IsLinkedToGoogle() bool {
	return u.GoogleID != nil && *u.GoogleID != ""
}
