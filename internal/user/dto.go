// AuraPrep | 2026
// dto.go

package user

import (
	"time"
)

type UpdateProfileRequest struct {
	Name      *string `json:"name"       validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=512"`
}

type ProfileResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	HasPassword   bool      `json:"has_password"`
	GoogleLinked  bool      `json:"google_linked"`
	CreatedAt     time.Time `json:"created_at"`
}

func toProfileResponse(u *User) ProfileResponse {
	return ProfileResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
		HasPassword:   u.HasLocalPassword(),
		GoogleLinked:  u.IsLinkedToGoogle(),
		CreatedAt:     u.CreatedAt,
	}
}
