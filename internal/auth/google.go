// AuraPrep | 2026
// google.go

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/config"
	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

const googleKeyRefreshInterval = time.Hour

// GoogleVerifier validates Google ID tokens against Google's published JWKS.
// The key set is fetched lazily and cached; Google rotates keys rarely
// enough that an hourly refresh is plenty.
type GoogleVerifier struct {
	cfg config.GoogleConfig

	mu        sync.RWMutex
	keys      jwk.Set
	fetchedAt time.Time
}

func NewGoogleVerifier(cfg config.GoogleConfig) *GoogleVerifier {
	return &GoogleVerifier{cfg: cfg}
}

var _ IdentityVerifier = (*GoogleVerifier)(nil)

func (g *GoogleVerifier) Verify(
	ctx context.Context,
	credential string,
) (*Identity, error) {
	keys, err := g.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch google keys: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(credential),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(g.cfg.Issuer),
		jwt.WithAudience(g.cfg.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("verify google credential: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify google credential: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	if err := token.Get("email", &email); err != nil || email == "" {
		return nil, fmt.Errorf(
			"verify google credential: missing email: %w",
			core.ErrTokenInvalid,
		)
	}

	identity := &Identity{
		Subject: subject,
		Email:   email,
	}

	// Optional profile claims.
	//nolint:errcheck // absent claims simply stay zero-valued
	_ = token.Get("name", &identity.Name)
	//nolint:errcheck // absent claims simply stay zero-valued
	_ = token.Get("picture", &identity.AvatarURL)
	//nolint:errcheck // absent claims simply stay zero-valued
	_ = token.Get("email_verified", &identity.EmailVerified)

	return identity, nil
}

func (g *GoogleVerifier) keySet(ctx context.Context) (jwk.Set, error) {
	g.mu.RLock()
	keys := g.keys
	fresh := time.Since(g.fetchedAt) < googleKeyRefreshInterval
	g.mu.RUnlock()

	if keys != nil && fresh {
		return keys, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keys != nil && time.Since(g.fetchedAt) < googleKeyRefreshInterval {
		return g.keys, nil
	}

	fetched, err := jwk.Fetch(ctx, g.cfg.JWKSURL)
	if err != nil {
		// Serve stale keys over failing outright when we have any.
		if g.keys != nil {
			return g.keys, nil
		}
		return nil, err
	}

	g.keys = fetched
	g.fetchedAt = time.Now()

	return g.keys, nil
}
