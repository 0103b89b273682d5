// AuraPrep | 2026
// fakes_test.go

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/config"
	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:     "test-access-secret-0123456789abcdef",
		RefreshSecret:    "test-refresh-secret-0123456789abcdef",
		AccessTokenTTL:   "15m",
		RefreshTokenDays: 7,
		Issuer:           "auraprep-auth",
		Audience:         "auraprep-api",
	}
}

// memoryRepo is an in-memory Repository. All mutations run under one lock,
// matching the per-statement atomicity of the SQL implementation.
type memoryRepo struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *memoryRepo) Create(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.TokenID]; exists {
		return fmt.Errorf("create refresh token: %w", core.ErrDuplicateKey)
	}

	token.CreatedAt = time.Now()
	stored := *token
	r.tokens[token.TokenID] = &stored
	return nil
}

func (r *memoryRepo) FindActiveByTokenID(
	_ context.Context,
	tokenID string,
) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok || token.RevokedAt != nil {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}

	out := *token
	return &out, nil
}

func (r *memoryRepo) MarkRotated(
	_ context.Context,
	tokenID, replacedByTokenID string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok || token.RevokedAt != nil {
		return fmt.Errorf("mark refresh token rotated: %w", core.ErrNotFound)
	}

	now := time.Now()
	token.RevokedAt = &now
	token.ReplacedByTokenID = &replacedByTokenID
	return nil
}

func (r *memoryRepo) Revoke(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok || token.RevokedAt != nil {
		return fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
	}

	now := time.Now()
	token.RevokedAt = &now
	return nil
}

func (r *memoryRepo) RevokeSession(
	_ context.Context,
	userID, sessionID string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.ID == sessionID &&
			token.UserID == userID &&
			token.RevokedAt == nil {
			now := time.Now()
			token.RevokedAt = &now
			return nil
		}
	}

	return fmt.Errorf("revoke session: %w", core.ErrNotFound)
}

func (r *memoryRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}

	return nil
}

func (r *memoryRepo) ActiveForUser(
	_ context.Context,
	userID string,
) ([]RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []RefreshToken
	for _, token := range r.tokens {
		if token.UserID == userID &&
			token.RevokedAt == nil &&
			token.ExpiresAt.After(time.Now()) {
			out = append(out, *token)
		}
	}

	return out, nil
}

func (r *memoryRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)
	var deleted int64
	for id, token := range r.tokens {
		if token.ExpiresAt.Before(cutoff) {
			delete(r.tokens, id)
			deleted++
		}
	}

	return deleted, nil
}

// expire backdates a record so expiry paths can be exercised without waiting.
func (r *memoryRepo) expire(tokenID string, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token, ok := r.tokens[tokenID]; ok {
		token.ExpiresAt = time.Now().Add(-by)
	}
}

func (r *memoryRepo) get(tokenID string) *RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok {
		return nil
	}
	out := *token
	return &out
}

// memoryUsers is an in-memory UserProvider.
type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]*UserInfo
	byEmail map[string]string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:    make(map[string]*UserInfo),
		byEmail: make(map[string]string),
	}
}

func (u *memoryUsers) add(user UserInfo) *UserInfo {
	u.mu.Lock()
	defer u.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stored := user
	u.byID[stored.ID] = &stored
	u.byEmail[stored.Email] = stored.ID
	return &stored
}

func (u *memoryUsers) setActive(userID string, active bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if user, ok := u.byID[userID]; ok {
		user.IsActive = active
	}
}

func (u *memoryUsers) GetByEmail(
	_ context.Context,
	email string,
) (*UserInfo, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	id, ok := u.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}

	out := *u.byID[id]
	return &out, nil
}

func (u *memoryUsers) GetByID(
	_ context.Context,
	id string,
) (*UserInfo, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user by id: %w", core.ErrNotFound)
	}

	out := *user
	return &out, nil
}

func (u *memoryUsers) Create(
	_ context.Context,
	email, passwordHash, name string,
) (*UserInfo, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.byEmail[email]; exists {
		return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	user := &UserInfo{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	u.byID[user.ID] = user
	u.byEmail[email] = user.ID

	out := *user
	return &out, nil
}

func (u *memoryUsers) FindOrCreateByIdentity(
	_ context.Context,
	identity Identity,
) (*UserInfo, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, user := range u.byID {
		if user.GoogleID == identity.Subject {
			out := *user
			return &out, nil
		}
	}

	if id, ok := u.byEmail[identity.Email]; ok {
		user := u.byID[id]
		user.GoogleID = identity.Subject
		if user.AvatarURL == "" {
			user.AvatarURL = identity.AvatarURL
		}
		user.EmailVerified = user.EmailVerified || identity.EmailVerified
		out := *user
		return &out, nil
	}

	user := &UserInfo{
		ID:            uuid.New().String(),
		Email:         identity.Email,
		Name:          identity.Name,
		GoogleID:      identity.Subject,
		AvatarURL:     identity.AvatarURL,
		EmailVerified: identity.EmailVerified,
		IsActive:      true,
	}
	u.byID[user.ID] = user
	u.byEmail[user.Email] = user.ID

	out := *user
	return &out, nil
}

func (u *memoryUsers) UpdatePassword(
	_ context.Context,
	userID, passwordHash string,
) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.byID[userID]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	user.PasswordHash = passwordHash
	return nil
}

// stubVerifier maps credentials to identities.
type stubVerifier struct {
	identities map[string]*Identity
}

func (v *stubVerifier) Verify(
	_ context.Context,
	credential string,
) (*Identity, error) {
	identity, ok := v.identities[credential]
	if !ok {
		return nil, fmt.Errorf("verify credential: %w", core.ErrTokenInvalid)
	}
	out := *identity
	return &out, nil
}
