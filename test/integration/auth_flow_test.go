package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/andrewhigh08/account-core/internal/adapter/cache/redis"
	"github.com/andrewhigh08/account-core/internal/adapter/notify"
	"github.com/andrewhigh08/account-core/internal/adapter/repository/postgres"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/service"
)

// testStack wires the full service graph against real containers.
type testStack struct {
	tc          *TestContainers
	clk         *clock.Fixed
	auth        *service.AuthService
	sessions    *service.SessionService
	credentials *service.CredentialService
	risk        *service.RiskService
	policy      *service.PolicyService
	audit       *service.AuditService
}

func setupStack(ctx context.Context, t *testing.T, tc *TestContainers) *testStack {
	t.Helper()

	log := logger.NewDefault()
	clk := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	userRepo := postgres.NewUserRepository(tc.DB)
	historyRepo := postgres.NewPasswordHistoryRepository(tc.DB)
	twoFactorRepo := postgres.NewTwoFactorRepository(tc.DB)
	sessionRepo := postgres.NewSessionRepository(tc.DB)
	attemptRepo := postgres.NewLoginAttemptRepository(tc.DB)
	ipRuleRepo := postgres.NewIPRuleRepository(tc.DB)
	auditRepo := postgres.NewAuditRepository(tc.DB)
	policyRepo := postgres.NewPolicyRepository(tc.DB)
	txManager := postgres.NewTransactionManager(tc.DB)

	ticketCache := redisadapter.NewTicketCache(tc.Redis)
	otpCache := redisadapter.NewOTPCache(tc.Redis)

	audit := service.NewAuditService(auditRepo, clk, log)
	policy, err := service.NewPolicyService(ctx, policyRepo, audit, clk, log)
	require.NoError(t, err)
	audit.BindPolicy(policy)

	notifier := notify.NewWebhookNotifier("", log)
	credentials := service.NewCredentialService(userRepo, historyRepo, policy, txManager, clk, log)
	twoFactor := service.NewTwoFactorService(twoFactorRepo, userRepo, otpCache, policy, audit, notifier, txManager, clk, log)
	risk := service.NewRiskService(attemptRepo, ipRuleRepo, sessionRepo, policy, audit, txManager, clk, log)
	sessions := service.NewSessionService(sessionRepo, policy, audit, txManager, clk, log)

	keyDir := t.TempDir()
	auth, err := service.NewAuthService(
		userRepo, credentials, twoFactor, risk, sessions, audit, policy,
		ticketCache, notifier, clk,
		service.AuthServiceConfig{
			PrivateKeyPath: filepath.Join(keyDir, "private.pem"),
			PublicKeyPath:  filepath.Join(keyDir, "public.pem"),
			DevMode:        true,
		},
		log,
	)
	require.NoError(t, err)

	return &testStack{
		tc:          tc,
		clk:         clk,
		auth:        auth,
		sessions:    sessions,
		credentials: credentials,
		risk:        risk,
		policy:      policy,
		audit:       audit,
	}
}

func (s *testStack) createUser(ctx context.Context, t *testing.T, username, password string) *domain.User {
	t.Helper()
	user, err := s.auth.Signup(ctx, &domain.SignupRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        password,
		PasswordConfirm: password,
	}, domain.RequestMeta{IP: "10.0.0.1", UserAgent: "setup"})
	require.NoError(t, err)
	return user
}

func TestIntegration_LoginAndLockout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tc, err := SetupTestContainers(ctx)
	require.NoError(t, err)
	defer tc.Teardown(ctx)
	require.NoError(t, tc.RunMigrations())

	meta := domain.RequestMeta{IP: "203.0.113.7", UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120"}

	t.Run("successful login establishes a session", func(t *testing.T) {
		require.NoError(t, tc.CleanupData())
		stack := setupStack(ctx, t, tc)
		stack.createUser(ctx, t, "alice", "Str0ng!Passw0rd")

		result, err := stack.auth.Login(ctx, "alice", "Str0ng!Passw0rd", meta)
		require.NoError(t, err)
		assert.Equal(t, domain.LoginStatusSuccess, result.Status)
		assert.Len(t, result.SessionKey, domain.SessionKeyLength)

		user, session, err := stack.auth.Authenticate(ctx, result.SessionKey)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, meta.IP, session.IP)
	})

	t.Run("repeated failures lock the account", func(t *testing.T) {
		require.NoError(t, tc.CleanupData())
		stack := setupStack(ctx, t, tc)
		stack.createUser(ctx, t, "bob", "Str0ng!Passw0rd")

		maxAttempts := domain.DefaultSecurityPolicy().MaxFailedAttempts
		for i := 0; i < maxAttempts-1; i++ {
			_, err := stack.auth.Login(ctx, "bob", "wrong-password", meta)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
		}

		// The final counted failure forms the lock.
		_, err := stack.auth.Login(ctx, "bob", "wrong-password", meta)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeAccountLocked, appErr.Code)

		// Even the correct password is rejected while locked.
		_, err = stack.auth.Login(ctx, "bob", "Str0ng!Passw0rd", meta)
		require.Error(t, err)
		appErr, ok = apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeAccountLocked, appErr.Code)

		// The lock does not extend itself: advance past the window and retry.
		stack.clk.Advance(domain.DefaultSecurityPolicy().LockoutWindow() + time.Minute)
		result, err := stack.auth.Login(ctx, "bob", "Str0ng!Passw0rd", meta)
		require.NoError(t, err)
		assert.Equal(t, domain.LoginStatusSuccess, result.Status)
	})

	t.Run("lockout is recorded in the audit stream", func(t *testing.T) {
		var events []domain.AuditEvent
		err := tc.DB.Where("event_type = ?", domain.EventAccountLocked).Find(&events).Error
		require.NoError(t, err)
		assert.NotEmpty(t, events)
	})
}

func TestIntegration_SessionConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tc, err := SetupTestContainers(ctx)
	require.NoError(t, err)
	defer tc.Teardown(ctx)
	require.NoError(t, tc.RunMigrations())

	t.Run("concurrent session cap evicts the least recently active", func(t *testing.T) {
		require.NoError(t, tc.CleanupData())
		stack := setupStack(ctx, t, tc)
		user := stack.createUser(ctx, t, "carol", "Str0ng!Passw0rd")

		policy, err := stack.policy.Snapshot(ctx)
		require.NoError(t, err)
		policy.MaxConcurrentSessions = 2
		policy.SingleSession = false
		_, err = stack.policy.Update(ctx, policy, user.ID, domain.RequestMeta{IP: "10.0.0.1"})
		require.NoError(t, err)

		var keys []string
		for i := 0; i < 3; i++ {
			stack.clk.Advance(time.Minute)
			session, err := stack.sessions.Create(ctx, user, domain.RequestMeta{
				IP:        "203.0.113.7",
				UserAgent: "client-" + string(rune('a'+i)),
			})
			require.NoError(t, err)
			keys = append(keys, session.Key)
		}

		// Oldest session is gone, the two newest survive.
		evicted, err := stack.sessions.Resolve(ctx, keys[0])
		require.NoError(t, err)
		assert.Nil(t, evicted)
		for _, key := range keys[1:] {
			session, err := stack.sessions.Resolve(ctx, key)
			require.NoError(t, err)
			assert.NotNil(t, session)
		}
	})

	t.Run("single session mode keeps exactly one session", func(t *testing.T) {
		require.NoError(t, tc.CleanupData())
		stack := setupStack(ctx, t, tc)
		user := stack.createUser(ctx, t, "dave", "Str0ng!Passw0rd")

		policy, err := stack.policy.Snapshot(ctx)
		require.NoError(t, err)
		policy.SingleSession = true
		_, err = stack.policy.Update(ctx, policy, user.ID, domain.RequestMeta{IP: "10.0.0.1"})
		require.NoError(t, err)

		first, err := stack.sessions.Create(ctx, user, domain.RequestMeta{IP: "203.0.113.7", UserAgent: "first"})
		require.NoError(t, err)
		second, err := stack.sessions.Create(ctx, user, domain.RequestMeta{IP: "203.0.113.8", UserAgent: "second"})
		require.NoError(t, err)

		gone, err := stack.sessions.Resolve(ctx, first.Key)
		require.NoError(t, err)
		assert.Nil(t, gone)
		alive, err := stack.sessions.Resolve(ctx, second.Key)
		require.NoError(t, err)
		assert.NotNil(t, alive)
	})
}

func TestIntegration_PasswordLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tc, err := SetupTestContainers(ctx)
	require.NoError(t, err)
	defer tc.Teardown(ctx)
	require.NoError(t, tc.RunMigrations())

	t.Run("password history rejects reuse", func(t *testing.T) {
		require.NoError(t, tc.CleanupData())
		stack := setupStack(ctx, t, tc)
		user := stack.createUser(ctx, t, "erin", "Str0ng!Passw0rd1")

		policy, err := stack.policy.Snapshot(ctx)
		require.NoError(t, err)
		policy.PasswordHistoryCount = 3
		_, err = stack.policy.Update(ctx, policy, user.ID, domain.RequestMeta{IP: "10.0.0.1"})
		require.NoError(t, err)

		require.NoError(t, stack.credentials.SetPassword(ctx, user.ID, "Str0ng!Passw0rd2"))
		require.NoError(t, stack.credentials.SetPassword(ctx, user.ID, "Str0ng!Passw0rd3"))

		// Both the current and a recent password are rejected.
		err = stack.credentials.SetPassword(ctx, user.ID, "Str0ng!Passw0rd3")
		require.Error(t, err)
		err = stack.credentials.SetPassword(ctx, user.ID, "Str0ng!Passw0rd2")
		require.Error(t, err)

		// A fresh password passes.
		require.NoError(t, stack.credentials.SetPassword(ctx, user.ID, "Str0ng!Passw0rd4"))
	})

	t.Run("reset token survives round trip and dies with a password change", func(t *testing.T) {
		require.NoError(t, tc.CleanupData())
		stack := setupStack(ctx, t, tc)
		user := stack.createUser(ctx, t, "frank", "Str0ng!Passw0rd1")
		meta := domain.RequestMeta{IP: "203.0.113.9", UserAgent: "reset-client"}

		// Request always succeeds, even for unknown addresses.
		require.NoError(t, stack.auth.RequestPasswordReset(ctx, "nobody@example.com", meta))
		require.NoError(t, stack.auth.RequestPasswordReset(ctx, user.Email, meta))

		// A token for a stale password generation is rejected.
		err := stack.auth.ResetPassword(ctx, user.ID, "not-a-token", "Str0ng!Passw0rd2", meta)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBadRequest, appErr.Code)
	})
}
