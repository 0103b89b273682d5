// AuraPrep | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/auth"
	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

// Service is the user directory. It implements auth.UserProvider, which is
// the only surface the token core sees.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

// FindOrCreateByIdentity resolves a verified federated identity to a
// directory record: match on the federated subject first, then link an
// existing account by email, then create a fresh password-less account.
func (s *Service) FindOrCreateByIdentity(
	ctx context.Context,
	identity auth.Identity,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByGoogleID(ctx, identity.Subject)
	if err == nil {
		return toUserInfo(user), nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(identity.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		linkErr := s.repo.LinkGoogle(
			ctx,
			existing.ID,
			identity.Subject,
			identity.AvatarURL,
			identity.EmailVerified,
		)
		if linkErr != nil {
			return nil, fmt.Errorf("link existing account: %w", linkErr)
		}
		return s.GetByID(ctx, existing.ID)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	googleID := identity.Subject
	created := &User{
		ID:            uuid.New().String(),
		Email:         email,
		Name:          identity.Name,
		GoogleID:      &googleID,
		AvatarURL:     identity.AvatarURL,
		EmailVerified: identity.EmailVerified,
	}

	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}

	return toUserInfo(created), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) DeactivateMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("deactivate me: %w", core.ErrUnauthorized)
	}

	return s.repo.Deactivate(ctx, userID)
}

func toUserInfo(u *User) *auth.UserInfo {
	info := &auth.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
		IsActive:      u.IsActive,
	}
	if u.GoogleID != nil {
		info.GoogleID = *u.GoogleID
	}
	return info
}

var _ auth.UserProvider = (*Service)(nil)
