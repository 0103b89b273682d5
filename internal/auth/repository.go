// AuraPrep | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

// Repository is the credential store: the durable mapping from token_id to
// its record. MarkRotated and Revoke are conditional single-statement
// updates, so claiming a token is atomic at the store and never a
// read-then-write pair.
type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindActiveByTokenID(
		ctx context.Context,
		tokenID string,
	) (*RefreshToken, error)
	// MarkRotated revokes the record and sets its successor in one
	// conditional update. It returns core.ErrNotFound when the record was
	// already claimed, which callers must treat as a lost rotation race.
	MarkRotated(ctx context.Context, tokenID, replacedByTokenID string) error
	Revoke(ctx context.Context, tokenID string) error
	// RevokeSession revokes a single record by its row id, but only when it
	// belongs to userID; ownership is enforced in the same statement.
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ActiveForUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, token_id, user_id, expires_at, user_agent, ip_address
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.TokenID,
		token.UserID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *repository) FindActiveByTokenID(
	ctx context.Context,
	tokenID string,
) (*RefreshToken, error) {
	query := `
		SELECT
			id, token_id, user_id, expires_at, created_at,
			revoked_at, replaced_by_token_id, user_agent, ip_address
		FROM refresh_tokens
		WHERE token_id = $1 AND revoked_at IS NULL`

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

func (r *repository) MarkRotated(
	ctx context.Context,
	tokenID, replacedByTokenID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by_token_id = $2
		WHERE token_id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, tokenID, replacedByTokenID)
	if err != nil {
		return fmt.Errorf("mark refresh token rotated: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark refresh token rotated: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark refresh token rotated: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Revoke(ctx context.Context, tokenID string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE token_id = $1 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("revoke session: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}

	return nil
}

func (r *repository) ActiveForUser(
	ctx context.Context,
	userID string,
) ([]RefreshToken, error) {
	query := `
		SELECT
			id, token_id, user_id, expires_at, created_at,
			revoked_at, replaced_by_token_id, user_agent, ip_address
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var tokens []RefreshToken
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active tokens: %w", err)
	}

	return tokens, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1`

	// Keep expired rows around for a day so the audit chain of a recent
	// incident is still inspectable.
	cutoff := time.Now().Add(-24 * time.Hour)

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
