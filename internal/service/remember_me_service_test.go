package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVault() (*RememberMeService, *repository.MemoryRememberMeRepository) {
	repo := repository.NewMemoryRememberMeRepository()
	svc := NewRememberMeService(repo)
	svc.NowFunc = fixedClock(testNow)
	return svc, repo
}

func TestRememberMe_IssueAndResolve(t *testing.T) {
	vault, _ := newVault()
	ctx := context.Background()

	raw, err := vault.Issue(ctx, "alice", "device-1", "s3cret!")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	user, pass, err := vault.Resolve(ctx, raw, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret!", pass)
}

func TestRememberMe_ResolveFailuresAreIndistinguishable(t *testing.T) {
	vault, _ := newVault()
	ctx := context.Background()

	raw, err := vault.Issue(ctx, "alice", "device-1", "s3cret!")
	require.NoError(t, err)

	cases := map[string]struct {
		raw, fingerprint string
	}{
		"unknown token":     {"not-a-token", "device-1"},
		"other device":      {raw, "device-2"},
		"empty token":       {"", "device-1"},
		"empty fingerprint": {raw, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := vault.Resolve(ctx, tc.raw, tc.fingerprint)
			assert.ErrorIs(t, err, apperr.ErrInvalidToken)
		})
	}
}

func TestRememberMe_ReissueReplacesDeviceToken(t *testing.T) {
	vault, repo := newVault()
	ctx := context.Background()

	first, err := vault.Issue(ctx, "alice", "device-1", "old-pass")
	require.NoError(t, err)
	second, err := vault.Issue(ctx, "alice", "device-1", "new-pass")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, repo.Count())

	_, _, err = vault.Resolve(ctx, first, "device-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, pass, err := vault.Resolve(ctx, second, "device-1")
	require.NoError(t, err)
	assert.Equal(t, "new-pass", pass)
}

func TestRememberMe_CheckAndRevoke(t *testing.T) {
	vault, repo := newVault()
	ctx := context.Background()

	_, err := vault.Issue(ctx, "alice", "device-1", "p")
	require.NoError(t, err)
	_, err = vault.Issue(ctx, "alice", "device-2", "p")
	require.NoError(t, err)
	_, err = vault.Issue(ctx, "bob", "device-3", "p")
	require.NoError(t, err)

	ok, err := vault.Check(ctx, "device-1")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := vault.Revoke(ctx, "alice", "device-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err = vault.Check(ctx, "device-1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = vault.Revoke(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, repo.Count())

	n, err = vault.Revoke(ctx, "alice", "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRememberMe_SweepIdle(t *testing.T) {
	vault, repo := newVault()
	ctx := context.Background()

	vault.NowFunc = fixedClock(testNow.Add(-40 * 24 * time.Hour))
	stale, err := vault.Issue(ctx, "alice", "device-1", "p")
	require.NoError(t, err)
	used, err := vault.Issue(ctx, "bob", "device-2", "p")
	require.NoError(t, err)

	// bob used his token recently
	vault.NowFunc = fixedClock(testNow.Add(-24 * time.Hour))
	_, _, err = vault.Resolve(ctx, used, "device-2")
	require.NoError(t, err)

	vault.NowFunc = fixedClock(testNow)
	n, err := vault.SweepIdle(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, repo.Count())

	_, _, err = vault.Resolve(ctx, stale, "device-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	n, err = vault.SweepIdle(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
