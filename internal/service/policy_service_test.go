package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

func TestPolicyService_DefaultsWhenRowMissing(t *testing.T) {
	env := newTestEnv(t, nil)

	snap, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, snap.PasswordMinLength)
	assert.Equal(t, 5, snap.MaxFailedAttempts)
	assert.True(t, snap.IPDenylistEnforced)
}

func TestPolicyService_SnapshotIsACopy(t *testing.T) {
	env := newTestEnv(t, nil)

	first, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	first.PasswordMinLength = 99

	second, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, second.PasswordMinLength, "mutating a snapshot must not affect the published policy")
}

func TestPolicyService_UpdateBumpsVersionAndPersists(t *testing.T) {
	env := newTestEnv(t, nil)

	snap, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	startVersion := snap.Version

	snap.MaxFailedAttempts = 3
	updated, err := env.policy.Update(context.Background(), snap, 42, testMeta())
	require.NoError(t, err)
	assert.Equal(t, startVersion+1, updated.Version)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, int64(42), *updated.UpdatedBy)

	// The new snapshot is published immediately.
	fresh, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.MaxFailedAttempts)

	// And the row survives a reload.
	require.NoError(t, env.policy.Reload(context.Background()))
	reloaded, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.MaxFailedAttempts)
	assert.Equal(t, startVersion+1, reloaded.Version)
}

func TestPolicyService_UpdateAuditsSettingsChanged(t *testing.T) {
	env := newTestEnv(t, nil)

	snap, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	snap.SessionTimeoutMinutes = 30

	_, err = env.policy.Update(context.Background(), snap, 7, testMeta())
	require.NoError(t, err)
	assert.Equal(t, 1, env.auditDB.countEvents(domain.EventSettingsChanged))
}

func TestPolicyService_UpdateRejectsBrickingValues(t *testing.T) {
	env := newTestEnv(t, nil)

	snap, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	snap.PasswordMinLength = 0
	snap.MaxFailedAttempts = 0

	_, err = env.policy.Update(context.Background(), snap, 7, testMeta())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	// The published snapshot is untouched.
	fresh, err := env.policy.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, fresh.PasswordMinLength)
}
