package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

func TestSessionService_CreateIssuesOpaqueHexKey(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	session, err := env.sessionSvc.Create(context.Background(), user, testMeta())
	require.NoError(t, err)
	require.Len(t, session.Key, domain.SessionKeyLength)
	for _, c := range session.Key {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "desktop", session.DeviceType)
	assert.Equal(t, 1, env.auditDB.countEvents(domain.EventSessionCreated))
}

func TestSessionService_CreateEvictsLeastRecentlyActive(t *testing.T) {
	policy := domain.DefaultSecurityPolicy()
	policy.MaxConcurrentSessions = 2
	env := newTestEnv(t, policy)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	first, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	env.clk.Advance(time.Minute)
	second, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	env.clk.Advance(time.Minute)
	third, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	// The oldest session made room for the third.
	gone, err := env.sessionSvc.Resolve(ctx, first.Key)
	require.NoError(t, err)
	assert.Nil(t, gone)
	for _, key := range []string{second.Key, third.Key} {
		live, err := env.sessionSvc.Resolve(ctx, key)
		require.NoError(t, err)
		assert.NotNil(t, live)
	}
}

func TestSessionService_CreateSingleSessionTerminatesPrior(t *testing.T) {
	policy := domain.DefaultSecurityPolicy()
	policy.SingleSession = true
	env := newTestEnv(t, policy)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	first, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	second, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	gone, err := env.sessionSvc.Resolve(ctx, first.Key)
	require.NoError(t, err)
	assert.Nil(t, gone)
	live, err := env.sessionSvc.Resolve(ctx, second.Key)
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestSessionService_ResolveTouchesActivity(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	session, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	env.clk.Advance(30 * time.Minute)
	resolved, err := env.sessionSvc.Resolve(ctx, session.Key)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, env.clk.Now(), resolved.LastActivity)
}

func TestSessionService_ResolveDeletesHardExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	session, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	env.clk.Advance(15 * 24 * time.Hour)
	resolved, err := env.sessionSvc.Resolve(ctx, session.Key)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// Deleted on sight, not just hidden.
	stored, err := env.sessions.FindByKey(ctx, session.Key)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSessionService_ResolveDeletesIdleTimedOut(t *testing.T) {
	policy := domain.DefaultSecurityPolicy()
	policy.SessionTimeoutMinutes = 60
	env := newTestEnv(t, policy)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	session, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	env.clk.Advance(61 * time.Minute)
	resolved, err := env.sessionSvc.Resolve(ctx, session.Key)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestSessionService_ResolveUnknownKey(t *testing.T) {
	env := newTestEnv(t, nil)

	resolved, err := env.sessionSvc.Resolve(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestSessionService_TerminateUnknownKeyIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.sessionSvc.Terminate(context.Background(), "deadbeef", 1, testMeta())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestSessionService_TerminateOthersKeepsCurrent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	current, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		env.clk.Advance(time.Minute)
		_, err := env.sessionSvc.Create(ctx, user, testMeta())
		require.NoError(t, err)
	}

	removed, err := env.sessionSvc.TerminateOthers(ctx, user.ID, current.Key, testMeta())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Equal(t, 1, env.auditDB.countEvents(domain.EventSessionsTerminatedAll))

	live, err := env.sessionSvc.Resolve(ctx, current.Key)
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestSessionService_TerminateOthersNoopSkipsAudit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	current, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	removed, err := env.sessionSvc.TerminateOthers(ctx, user.ID, current.Key, testMeta())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, env.auditDB.countEvents(domain.EventSessionsTerminatedAll))
}

func TestSessionService_ListMarksCurrentAndHumanizesActivity(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	older, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	env.clk.Advance(3 * time.Hour)
	current, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	views, err := env.sessionSvc.List(ctx, user.ID, current.Key)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Most recently active first.
	assert.Equal(t, current.Key, views[0].Key)
	assert.True(t, views[0].IsCurrent)
	assert.Equal(t, "just now", views[0].LastSeen)

	assert.Equal(t, older.Key, views[1].Key)
	assert.False(t, views[1].IsCurrent)
	assert.Equal(t, "3 hours ago", views[1].LastSeen)
}

func TestSessionService_ListSkipsDeadSessions(t *testing.T) {
	policy := domain.DefaultSecurityPolicy()
	policy.SessionTimeoutMinutes = 60
	env := newTestEnv(t, policy)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	_, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	env.clk.Advance(2 * time.Hour)
	current, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	views, err := env.sessionSvc.List(ctx, user.ID, current.Key)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, current.Key, views[0].Key)
}

func TestSessionService_CleanupStaleRemovesIdleAndExpired(t *testing.T) {
	policy := domain.DefaultSecurityPolicy()
	policy.SessionTimeoutMinutes = 60
	env := newTestEnv(t, policy)
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	_, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	env.clk.Advance(2 * time.Hour)
	fresh, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)

	removed, err := env.sessionSvc.CleanupStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	live, err := env.sessions.FindByKey(ctx, fresh.Key)
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestSessionService_CleanupStaleWithoutIdleTimeout(t *testing.T) {
	env := newTestEnv(t, nil) // no idle timeout in the default policy
	ctx := context.Background()
	user := env.seedUser(t, "alice", "alice@example.com", "Correct-Horse-9")

	_, err := env.sessionSvc.Create(ctx, user, testMeta())
	require.NoError(t, err)
	env.clk.Advance(13 * 24 * time.Hour)

	// Two weeks of inactivity is fine until the hard TTL passes.
	removed, err := env.sessionSvc.CleanupStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	env.clk.Advance(2 * 24 * time.Hour)
	removed, err = env.sessionSvc.CleanupStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
