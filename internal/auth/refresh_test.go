// AuraPrep | 2026
// refresh_test.go

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxNguyenMinhLuan/AuraPrep-sub001/internal/core"
)

type refreshFixture struct {
	repo    *memoryRepo
	users   *memoryUsers
	jwt     *JWTManager
	manager *RefreshManager
	user    *UserInfo
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()

	repo := newMemoryRepo()
	users := newMemoryUsers()
	jwtManager := newTestJWTManager(t)

	user := users.add(UserInfo{
		Email:    "alice@example.com",
		Name:     "Alice",
		IsActive: true,
	})

	return &refreshFixture{
		repo:    repo,
		users:   users,
		jwt:     jwtManager,
		manager: NewRefreshManager(repo, jwtManager, users, nil),
		user:    user,
	}
}

func testClient() ClientContext {
	return ClientContext{UserAgent: "test-agent", IPAddress: "203.0.113.7"}
}

func TestIssueCreatesActiveRecord(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelope, record, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)
	require.NotEmpty(t, envelope)
	require.NotNil(t, record)

	assert.Equal(t, f.user.ID, record.UserID)
	assert.True(t, record.IsUsable())
	assert.Nil(t, record.ReplacedByTokenID)
	assert.Equal(t, "test-agent", record.UserAgent)
	assert.Equal(t, "203.0.113.7", record.IPAddress)

	userID, tokenID, err := f.jwt.VerifyRefreshEnvelope(envelope)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, userID)
	assert.Equal(t, record.TokenID, tokenID)
}

func TestRotateProducesNewPairAndConsumesOld(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelope, record, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	creds, err := f.manager.Rotate(ctx, envelope, testClient())
	require.NoError(t, err)
	require.NotNil(t, creds)

	assert.NotEmpty(t, creds.AccessToken)
	assert.NotEmpty(t, creds.RefreshToken)
	assert.NotEqual(t, envelope, creds.RefreshToken)
	assert.Equal(t, f.user.ID, creds.User.ID)

	// The predecessor is revoked and points at its successor.
	old := f.repo.get(record.TokenID)
	require.NotNil(t, old)
	assert.True(t, old.IsRevoked())
	require.NotNil(t, old.ReplacedByTokenID)

	_, newTokenID, err := f.jwt.VerifyRefreshEnvelope(creds.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, newTokenID, *old.ReplacedByTokenID)

	// The successor rotates cleanly.
	_, err = f.manager.Rotate(ctx, creds.RefreshToken, testClient())
	require.NoError(t, err)
}

func TestRotateRejectsSecondUseAndRevokesFamily(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelope, _, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	creds, err := f.manager.Rotate(ctx, envelope, testClient())
	require.NoError(t, err)

	// Presenting the consumed token again is replay: rejected, and the
	// freshly issued successor dies with it.
	_, err = f.manager.Rotate(ctx, envelope, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshReuse))

	_, err = f.manager.Rotate(ctx, creds.RefreshToken, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshReuse))

	active, err := f.repo.ActiveForUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRotateReuseMidChainKillsWholeChain(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelopeA, _, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	credsB, err := f.manager.Rotate(ctx, envelopeA, testClient())
	require.NoError(t, err)

	credsC, err := f.manager.Rotate(ctx, credsB.RefreshToken, testClient())
	require.NoError(t, err)

	// Replaying B revokes everything, including the still-unused C.
	_, err = f.manager.Rotate(ctx, credsB.RefreshToken, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshReuse))

	_, err = f.manager.Rotate(ctx, credsC.RefreshToken, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshReuse))
}

func TestRotateBadSignatureHasNoSideEffects(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	_, record, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	// An envelope signed with a foreign key carries no proof of anything;
	// it must not trigger containment.
	foreignCfg := testJWTConfig()
	foreignCfg.RefreshSecret = "attacker-refresh-secret-0123456789ab"
	foreign, err := NewJWTManager(foreignCfg)
	require.NoError(t, err)

	forged, err := foreign.CreateRefreshEnvelope(
		f.user.ID,
		record.TokenID,
		time.Now().Add(time.Hour),
	)
	require.NoError(t, err)

	_, err = f.manager.Rotate(ctx, forged, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTokenInvalid))
	assert.False(t, errors.Is(err, ErrRefreshReuse))

	active, err := f.repo.ActiveForUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRotateValidSignatureUnknownTokenTriggersContainment(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	_, _, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	// Validly signed but never persisted: indistinguishable from replay of
	// a swept token, so the whole family goes.
	phantom, err := f.jwt.CreateRefreshEnvelope(
		f.user.ID,
		"never-persisted-token-id",
		time.Now().Add(time.Hour),
	)
	require.NoError(t, err)

	_, err = f.manager.Rotate(ctx, phantom, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshReuse))

	active, err := f.repo.ActiveForUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRotateExpiredRecordRevokesOnlyThatRecord(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	expiredEnv, expiredRecord, err := f.manager.Issue(
		ctx,
		f.user.ID,
		testClient(),
	)
	require.NoError(t, err)

	_, _, err = f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	f.repo.expire(expiredRecord.TokenID, time.Minute)

	// Expiry is not evidence of theft: the stale record is retired but the
	// user's other session survives. The envelope signature is still within
	// its own window here because the record was backdated underneath it.
	_, err = f.manager.Rotate(ctx, expiredEnv, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefreshExpired))

	assert.True(t, f.repo.get(expiredRecord.TokenID).IsRevoked())

	active, err := f.repo.ActiveForUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRotateRejectsInactiveOwner(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelope, record, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	f.users.setActive(f.user.ID, false)

	_, err = f.manager.Rotate(ctx, envelope, testClient())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOwnerInactive))
	assert.True(t, f.repo.get(record.TokenID).IsRevoked())
}

func TestRotateAccessTokensSurviveRevocation(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelope, _, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	creds, err := f.manager.Rotate(ctx, envelope, testClient())
	require.NoError(t, err)

	require.NoError(t, f.manager.RevokeAll(ctx, f.user.ID))

	// Revocation is a refresh-side concept; the issued access token remains
	// valid until it expires on its own.
	claims, err := f.jwt.VerifyAccessToken(creds.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
}

func TestConcurrentRotationHasSingleWinner(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	envelope, _, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	const attempts = 16

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = f.manager.Rotate(ctx, envelope, testClient())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, ErrRefreshReuse), "unexpected error: %v", err)
	}

	assert.Equal(t, 1, wins)
}

func TestRevokeSessionEnforcesOwnership(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	_, record, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	stranger := f.users.add(UserInfo{
		Email:    "mallory@example.com",
		IsActive: true,
	})

	err = f.manager.RevokeSession(ctx, stranger.ID, record.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	require.NoError(t, f.manager.RevokeSession(ctx, f.user.ID, record.ID))
	assert.True(t, f.repo.get(record.TokenID).IsRevoked())
}

func TestActiveSessionsExcludesRevokedAndExpired(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	_, keep, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)

	_, revoked, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)
	require.NoError(t, f.manager.RevokeOne(ctx, revoked.TokenID))

	_, expired, err := f.manager.Issue(ctx, f.user.ID, testClient())
	require.NoError(t, err)
	f.repo.expire(expired.TokenID, time.Minute)

	sessions, err := f.manager.ActiveSessions(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, keep.ID, sessions[0].ID)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	f := newRefreshFixture(t)

	sweeper := NewSweeper(f.repo, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
