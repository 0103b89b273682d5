// AuraPrep | 2026
// refresh.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

// Internal rejection reasons. They exist for server-side logging and tests
// only; the facade collapses all of them into one caller-visible outcome.
var (
	ErrRefreshReuse   = errors.New("refresh token reuse detected")
	ErrRefreshExpired = errors.New("refresh token expired")
	ErrOwnerInactive  = errors.New("token owner missing or inactive")
)

// RotatedCredentials is the result of a successful issue or rotation.
type RotatedCredentials struct {
	User         *UserInfo
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	ExpiresAt    time.Time
}

// RefreshManager owns the rotation protocol. A chain link is Active until it
// is Rotated (spawning a successor), Revoked, or found Expired; there is no
// way back out of any of those states.
type RefreshManager struct {
	repo   Repository
	jwt    *JWTManager
	users  UserProvider
	logger *slog.Logger
}

func NewRefreshManager(
	repo Repository,
	jwtManager *JWTManager,
	users UserProvider,
	logger *slog.Logger,
) *RefreshManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshManager{
		repo:   repo,
		jwt:    jwtManager,
		users:  users,
		logger: logger,
	}
}

// Issue persists a fresh refresh-token record and returns its signed
// envelope. The envelope's signature expiry matches the record's expiry.
func (m *RefreshManager) Issue(
	ctx context.Context,
	userID string,
	client ClientContext,
) (string, *RefreshToken, error) {
	tokenID, err := core.GenerateTokenID()
	if err != nil {
		return "", nil, fmt.Errorf("generate token id: %w", err)
	}

	record := &RefreshToken{
		ID:        uuid.New().String(),
		TokenID:   tokenID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.jwt.RefreshTTL()),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}

	if err := m.repo.Create(ctx, record); err != nil {
		return "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	envelope, err := m.jwt.CreateRefreshEnvelope(
		userID,
		tokenID,
		record.ExpiresAt,
	)
	if err != nil {
		return "", nil, err
	}

	return envelope, record, nil
}

// Rotate exchanges a presented refresh token for a new token pair.
//
// A validly signed envelope whose token id has no unrevoked record is
// treated as replay of a stale token: every record belonging to the
// envelope's user is revoked before rejecting, so one suspicious replay
// forces a full re-login. Signature failures reject without touching the
// store and without that side effect.
//
// The successor record is created before the predecessor is claimed; the
// claim itself is a single conditional update. Losing that race means
// someone else rotated the same token concurrently, which is handled
// exactly like replay to stay conservative.
func (m *RefreshManager) Rotate(
	ctx context.Context,
	presented string,
	client ClientContext,
) (*RotatedCredentials, error) {
	envUserID, tokenID, err := m.jwt.VerifyRefreshEnvelope(presented)
	if err != nil {
		m.logger.DebugContext(ctx, "refresh envelope rejected",
			"reason", "signature",
		)
		return nil, err
	}

	record, err := m.repo.FindActiveByTokenID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, m.containReuse(ctx, envUserID, tokenID, "lookup")
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	if record.IsExpired() {
		if revokeErr := m.repo.Revoke(ctx, tokenID); revokeErr != nil &&
			!errors.Is(revokeErr, core.ErrNotFound) {
			return nil, fmt.Errorf("revoke expired token: %w", revokeErr)
		}
		m.logger.InfoContext(ctx, "expired refresh token presented",
			"user_id", record.UserID,
		)
		return nil, fmt.Errorf("rotate: %w", ErrRefreshExpired)
	}

	user, err := m.users.GetByID(ctx, record.UserID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("get token owner: %w", err)
	}

	if user == nil || !user.IsActive {
		if revokeErr := m.repo.Revoke(ctx, tokenID); revokeErr != nil &&
			!errors.Is(revokeErr, core.ErrNotFound) {
			return nil, fmt.Errorf("revoke orphaned token: %w", revokeErr)
		}
		m.logger.WarnContext(ctx, "refresh rejected for inactive owner",
			"user_id", record.UserID,
		)
		return nil, fmt.Errorf("rotate: %w", ErrOwnerInactive)
	}

	newEnvelope, newRecord, err := m.Issue(ctx, record.UserID, client)
	if err != nil {
		return nil, err
	}

	if err := m.repo.MarkRotated(ctx, tokenID, newRecord.TokenID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Lost the claim race; the family revocation below also covers
			// the successor record created above.
			return nil, m.containReuse(ctx, record.UserID, tokenID, "race")
		}
		return nil, err
	}

	accessToken, err := m.jwt.CreateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &RotatedCredentials{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: newEnvelope,
		ExpiresIn:    m.jwt.AccessExpiresIn(),
		ExpiresAt:    newRecord.ExpiresAt,
	}, nil
}

func (m *RefreshManager) containReuse(
	ctx context.Context,
	userID, tokenID, trigger string,
) error {
	m.logger.WarnContext(ctx, "refresh token reuse detected",
		"user_id", userID,
		"token_id", tokenID,
		"trigger", trigger,
	)

	if err := m.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}

	return fmt.Errorf("rotate: %w", ErrRefreshReuse)
}

// RevokeAll invalidates every refresh token belonging to a user. Issued
// access tokens are untouched; they self-expire.
func (m *RefreshManager) RevokeAll(ctx context.Context, userID string) error {
	return m.repo.RevokeAllForUser(ctx, userID)
}

func (m *RefreshManager) RevokeOne(ctx context.Context, tokenID string) error {
	return m.repo.Revoke(ctx, tokenID)
}

func (m *RefreshManager) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	return m.repo.RevokeSession(ctx, userID, sessionID)
}

func (m *RefreshManager) ActiveSessions(
	ctx context.Context,
	userID string,
) ([]RefreshToken, error) {
	return m.repo.ActiveForUser(ctx, userID)
}
