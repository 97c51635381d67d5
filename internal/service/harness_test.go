package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
)

// testStart is the frozen wall clock every service test begins at.
var testStart = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// testEnv wires the full service graph over in-memory fakes. Individual
// tests reach into the fakes to seed state and into the services to act.
type testEnv struct {
	clk      *clock.Fixed
	users    *fakeUserRepo
	history  *fakeHistoryRepo
	twoFA    *fakeTwoFactorRepo
	sessions *fakeSessionRepo
	attempts *fakeAttemptRepo
	ipRules  *fakeIPRuleRepo
	auditDB  *fakeAuditRepo
	policyDB *fakePolicyRepo
	tickets  *fakeTicketCache
	otp      *fakeOTPCache
	notifier *fakeNotifier

	audit       *AuditService
	policy      *PolicyService
	credentials *CredentialService
	twoFactor   *TwoFactorService
	risk        *RiskService
	sessionSvc  *SessionService
}

// newTestEnv builds the service graph with the given policy row. A nil
// policy falls back to defaults, matching startup behavior.
func newTestEnv(t *testing.T, policy *domain.SecurityPolicy) *testEnv {
	t.Helper()

	env := &testEnv{
		clk:      clock.NewFixed(testStart),
		users:    newFakeUserRepo(),
		history:  newFakeHistoryRepo(),
		twoFA:    newFakeTwoFactorRepo(),
		sessions: newFakeSessionRepo(),
		attempts: newFakeAttemptRepo(),
		ipRules:  newFakeIPRuleRepo(),
		auditDB:  newFakeAuditRepo(),
		policyDB: newFakePolicyRepo(),
		tickets:  newFakeTicketCache(),
		otp:      newFakeOTPCache(),
		notifier: newFakeNotifier(),
	}

	if policy != nil {
		require.NoError(t, env.policyDB.Save(context.Background(), policy))
	}

	log := logger.New(logger.Config{Level: "error", Format: "text"})

	env.audit = NewAuditService(env.auditDB, env.clk, log)
	policySvc, err := NewPolicyService(context.Background(), env.policyDB, env.audit, env.clk, log)
	require.NoError(t, err)
	env.policy = policySvc
	env.audit.BindPolicy(policySvc)

	env.credentials = NewCredentialService(env.users, env.history, env.policy, fakeTx{}, env.clk, log)
	env.twoFactor = NewTwoFactorService(env.twoFA, env.users, env.otp, env.policy, env.audit, env.notifier, fakeTx{}, env.clk, log)
	env.risk = NewRiskService(env.attempts, env.ipRules, env.sessions, env.policy, env.audit, fakeTx{}, env.clk, log)
	env.sessionSvc = NewSessionService(env.sessions, env.policy, env.audit, fakeTx{}, env.clk, log)
	return env
}

// newAuthService builds an AuthService on top of the env with a throwaway
// RSA key pair generated under the test's temp directory.
func (env *testEnv) newAuthService(t *testing.T) *AuthService {
	t.Helper()

	dir := t.TempDir()
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	auth, err := NewAuthService(
		env.users, env.credentials, env.twoFactor, env.risk,
		env.sessionSvc, env.audit, env.policy,
		env.tickets, env.notifier, env.clk,
		AuthServiceConfig{
			PrivateKeyPath: dir + "/private.pem",
			PublicKeyPath:  dir + "/public.pem",
			DevMode:        true,
		}, log)
	require.NoError(t, err)
	return auth
}

// seedUser creates an active user with the given password already hashed
// and password_changed_at stamped at the current test clock.
func (env *testEnv) seedUser(t *testing.T, username, email, password string) *domain.User {
	t.Helper()

	user := &domain.User{
		Username: username,
		Email:    email,
		Role:     domain.RoleClient,
		IsActive: true,
	}
	require.NoError(t, env.users.Create(context.Background(), user))
	require.NoError(t, env.credentials.SetPassword(context.Background(), user.ID, password))

	stored, err := env.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	return stored
}

// testMeta is the request context used across the service tests.
func testMeta() domain.RequestMeta {
	return domain.RequestMeta{
		IP:        "198.51.100.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/126.0",
	}
}
