// AuraPrep | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrAccountInactive    = errors.New("account inactive")
)

// UserInfo is the core's view of the user directory. The directory itself
// lives in internal/user; the core only depends on this shape.
type UserInfo struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	GoogleID      string
	AvatarURL     string
	EmailVerified bool
	IsActive      bool
}

// UserProvider is the capability surface the core needs from the user
// directory.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
	) (*UserInfo, error)
	// FindOrCreateByIdentity resolves a federated identity to a user: match
	// on federated subject first, then link by email, then create.
	FindOrCreateByIdentity(
		ctx context.Context,
		identity Identity,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// Identity is a verified federated identity as returned by the external
// verifier.
type Identity struct {
	Subject       string
	Email         string
	Name          string
	AvatarURL     string
	EmailVerified bool
}

// IdentityVerifier validates an opaque federated credential. A nil error
// with a non-nil Identity is the only success shape; any failure means the
// credential is worthless and carries no further detail.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Service is the session facade: the only component exposed to the HTTP
// layer. It orchestrates the refresh manager, the token issuer and the user
// directory, and owns nothing durable itself.
type Service struct {
	refresh *RefreshManager
	jwt     *JWTManager
	users   UserProvider
	google  IdentityVerifier
	logger  *slog.Logger
}

func NewService(
	refresh *RefreshManager,
	jwtManager *JWTManager,
	users UserProvider,
	google IdentityVerifier,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		refresh: refresh,
		jwt:     jwtManager,
		users:   users,
		google:  google,
		logger:  logger,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	client ClientContext,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.createAuthResponse(ctx, user, client)
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	client ClientContext,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.createAuthResponse(ctx, user, client)
}

// GoogleLogin exchanges a Google ID token for a session. A previously
// registered local account with the same email gets linked rather than
// duplicated.
func (s *Service) GoogleLogin(
	ctx context.Context,
	credential string,
	client ClientContext,
) (*AuthResponse, error) {
	identity, err := s.google.Verify(ctx, credential)
	if err != nil || identity == nil {
		s.logger.DebugContext(ctx, "google credential rejected")
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindOrCreateByIdentity(ctx, *identity)
	if err != nil {
		return nil, fmt.Errorf("resolve google identity: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	return s.createAuthResponse(ctx, user, client)
}

// Refresh delegates to the rotation protocol. Every rejection, whatever its
// internal reason, surfaces as the same opaque outcome; the distinctions
// live only in the manager's logs.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
	client ClientContext,
) (*AuthResponse, error) {
	creds, err := s.refresh.Rotate(ctx, refreshToken, client)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenInvalid),
			errors.Is(err, ErrRefreshReuse),
			errors.Is(err, ErrRefreshExpired),
			errors.Is(err, ErrOwnerInactive):
			return nil, core.RefreshRejectedError()
		default:
			return nil, err
		}
	}

	return &AuthResponse{
		User: toUserResponse(creds.User),
		Tokens: TokenResponse{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    creds.ExpiresIn,
			ExpiresAt:    creds.ExpiresAt,
		},
	}, nil
}

// Logout revokes every refresh token for the user. Outstanding access
// tokens stay valid until they expire on their own.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.refresh.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	return nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.refresh.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	if err := s.refresh.RevokeSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordTimingSafe(
		currentPassword,
		&user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// A password change invalidates every standing session.
	if err := s.refresh.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	client ClientContext,
) (*AuthResponse, error) {
	refreshToken, record, err := s.refresh.Issue(ctx, user.ID, client)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	accessToken, err := s.jwt.CreateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    s.jwt.AccessExpiresIn(),
			ExpiresAt:    record.ExpiresAt,
		},
	}, nil
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		EmailVerified: u.EmailVerified,
	}
}
