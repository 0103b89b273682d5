// AuraPrep | 2026
// jwt.go

package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/config"
	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/middleware"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"

	tokenIDClaim = "tid"
	emailClaim   = "email"
	kindClaim    = "type"

	// defaultAccessLifetime backs both the fallback for unparseable
	// lifetime strings and the documented 15-minute default.
	defaultAccessLifetime = 15 * time.Minute
)

// JWTManager signs and verifies both token kinds. Access tokens are
// stateless bearer credentials; refresh tokens are signed envelopes around a
// persisted token id. The two kinds use separate HMAC secrets so one leaked
// key never compromises the other class of credential.
type JWTManager struct {
	accessKey  jwk.Key
	refreshKey jwk.Key
	accessTTL  time.Duration
	refreshTTL time.Duration
	config     config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	accessKey, err := jwk.Import([]byte(cfg.AccessSecret))
	if err != nil {
		return nil, fmt.Errorf("import access secret: %w", err)
	}

	refreshKey, err := jwk.Import([]byte(cfg.RefreshSecret))
	if err != nil {
		return nil, fmt.Errorf("import refresh secret: %w", err)
	}

	return &JWTManager{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  ParseLifetime(cfg.AccessTokenTTL),
		refreshTTL: time.Duration(cfg.RefreshTokenDays) * 24 * time.Hour,
		config:     cfg,
	}, nil
}

func (m *JWTManager) CreateAccessToken(userID, email string) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(m.accessTTL)).
		NotBefore(now).
		Claim(emailClaim, email).
		Claim(kindClaim, tokenKindAccess).
		Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.accessKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return string(signed), nil
}

// VerifyAccessToken validates signature, issuer, audience, expiry and token
// kind. Every failure collapses into core.ErrTokenInvalid; callers are never
// told why a token was rejected.
func (m *JWTManager) VerifyAccessToken(
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.accessKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", core.ErrTokenInvalid)
	}

	var kind string
	if err := token.Get(kindClaim, &kind); err != nil ||
		kind != tokenKindAccess {
		return nil, fmt.Errorf(
			"verify access token: wrong kind: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify access token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	if err := token.Get(emailClaim, &email); err != nil {
		return nil, fmt.Errorf(
			"verify access token: missing email: %w",
			core.ErrTokenInvalid,
		)
	}

	return &middleware.AccessTokenClaims{
		UserID: subject,
		Email:  email,
	}, nil
}

// CreateRefreshEnvelope wraps a persisted token id into a signed envelope
// whose signature expiry matches the record's expires_at.
func (m *JWTManager) CreateRefreshEnvelope(
	userID, tokenID string,
	expiresAt time.Time,
) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(expiresAt).
		NotBefore(now).
		Claim(tokenIDClaim, tokenID).
		Claim(kindClaim, tokenKindRefresh).
		Build()
	if err != nil {
		return "", fmt.Errorf("build refresh envelope: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.refreshKey))
	if err != nil {
		return "", fmt.Errorf("sign refresh envelope: %w", err)
	}

	return string(signed), nil
}

// VerifyRefreshEnvelope checks the envelope before any store access. A
// failure here is a malformed or forged token, never a reuse signal.
func (m *JWTManager) VerifyRefreshEnvelope(
	tokenString string,
) (userID, tokenID string, err error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.refreshKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		return "", "", fmt.Errorf(
			"verify refresh envelope: %w",
			core.ErrTokenInvalid,
		)
	}

	var kind string
	if err := token.Get(kindClaim, &kind); err != nil ||
		kind != tokenKindRefresh {
		return "", "", fmt.Errorf(
			"verify refresh envelope: wrong kind: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", "", fmt.Errorf(
			"verify refresh envelope: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var tid string
	if err := token.Get(tokenIDClaim, &tid); err != nil || tid == "" {
		return "", "", fmt.Errorf(
			"verify refresh envelope: missing token id: %w",
			core.ErrTokenInvalid,
		)
	}

	return subject, tid, nil
}

func (m *JWTManager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *JWTManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// AccessExpiresIn is the integer seconds value reported in token responses.
func (m *JWTManager) AccessExpiresIn() int {
	return LifetimeSeconds(m.config.AccessTokenTTL)
}

// ParseLifetime converts a value+unit lifetime string ("90s", "15m", "2h",
// "7d") into a duration. Anything unrecognized falls back to 15 minutes.
func ParseLifetime(s string) time.Duration {
	return time.Duration(LifetimeSeconds(s)) * time.Second
}

// LifetimeSeconds is the seconds form of ParseLifetime: minutes scale by 60,
// hours by 3600, days by 86400; an unrecognized unit yields 900.
func LifetimeSeconds(s string) int {
	if len(s) < 2 {
		return int(defaultAccessLifetime.Seconds())
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value < 0 {
		return int(defaultAccessLifetime.Seconds())
	}

	switch s[len(s)-1] {
	case 's':
		return value
	case 'm':
		return value * 60
	case 'h':
		return value * 3600
	case 'd':
		return value * 86400
	default:
		return int(defaultAccessLifetime.Seconds())
	}
}
