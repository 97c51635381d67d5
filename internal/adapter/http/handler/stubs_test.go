package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// Handwritten stubs: each service method delegates to an optional function
// field, so tests wire only the calls they expect.

type stubAuthService struct {
	loginFn                  func(ctx context.Context, username, password string, meta domain.RequestMeta) (*domain.LoginResult, error)
	sendLoginOTPFn           func(ctx context.Context, ticketID string, meta domain.RequestMeta) error
	completeTwoFactorFn      func(ctx context.Context, ticketID, code, method string, meta domain.RequestMeta) (*domain.LoginResult, error)
	completeExpiredChangeFn  func(ctx context.Context, ticketID, newPassword string, meta domain.RequestMeta) (*domain.LoginResult, error)
	startTwoFactorSetupFn    func(ctx context.Context, ticketID string, meta domain.RequestMeta) (*domain.TwoFactorEnrollment, error)
	completeTwoFactorSetupFn func(ctx context.Context, ticketID, code string, meta domain.RequestMeta) (*domain.LoginResult, error)
	logoutFn                 func(ctx context.Context, sessionKey string, meta domain.RequestMeta) error
	signupFn                 func(ctx context.Context, req *domain.SignupRequest, meta domain.RequestMeta) (*domain.User, error)
	authenticateFn           func(ctx context.Context, sessionKey string) (*domain.User, *domain.Session, error)
	changePasswordFn         func(ctx context.Context, user *domain.User, currentPassword, newPassword, currentSessionKey string, meta domain.RequestMeta) error
	requestResetFn           func(ctx context.Context, email string, meta domain.RequestMeta) error
	resetPasswordFn          func(ctx context.Context, userID int64, token, newPassword string, meta domain.RequestMeta) error
}

func (s *stubAuthService) Login(ctx context.Context, username, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	return s.loginFn(ctx, username, password, meta)
}

func (s *stubAuthService) SendLoginOTP(ctx context.Context, ticketID string, meta domain.RequestMeta) error {
	return s.sendLoginOTPFn(ctx, ticketID, meta)
}

func (s *stubAuthService) CompleteTwoFactor(ctx context.Context, ticketID, code, method string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	return s.completeTwoFactorFn(ctx, ticketID, code, method, meta)
}

func (s *stubAuthService) CompleteExpiredPasswordChange(ctx context.Context, ticketID, newPassword string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	return s.completeExpiredChangeFn(ctx, ticketID, newPassword, meta)
}

func (s *stubAuthService) StartTwoFactorSetup(ctx context.Context, ticketID string, meta domain.RequestMeta) (*domain.TwoFactorEnrollment, error) {
	return s.startTwoFactorSetupFn(ctx, ticketID, meta)
}

func (s *stubAuthService) CompleteTwoFactorSetup(ctx context.Context, ticketID, code string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	return s.completeTwoFactorSetupFn(ctx, ticketID, code, meta)
}

func (s *stubAuthService) Logout(ctx context.Context, sessionKey string, meta domain.RequestMeta) error {
	return s.logoutFn(ctx, sessionKey, meta)
}

func (s *stubAuthService) Signup(ctx context.Context, req *domain.SignupRequest, meta domain.RequestMeta) (*domain.User, error) {
	return s.signupFn(ctx, req, meta)
}

func (s *stubAuthService) Authenticate(ctx context.Context, sessionKey string) (*domain.User, *domain.Session, error) {
	return s.authenticateFn(ctx, sessionKey)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword, currentSessionKey string, meta domain.RequestMeta) error {
	return s.changePasswordFn(ctx, user, currentPassword, newPassword, currentSessionKey, meta)
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, email string, meta domain.RequestMeta) error {
	return s.requestResetFn(ctx, email, meta)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, userID int64, token, newPassword string, meta domain.RequestMeta) error {
	return s.resetPasswordFn(ctx, userID, token, newPassword, meta)
}

type stubCredentialService struct {
	validateFn func(ctx context.Context, candidate string) (bool, []string, error)
}

func (s *stubCredentialService) Verify(ctx context.Context, user *domain.User, plaintext string) (bool, error) {
	panic("not wired")
}

func (s *stubCredentialService) SetPassword(ctx context.Context, userID int64, plaintext string) error {
	panic("not wired")
}

func (s *stubCredentialService) IsExpired(ctx context.Context, user *domain.User) (bool, error) {
	panic("not wired")
}

func (s *stubCredentialService) DaysUntilExpiry(ctx context.Context, user *domain.User) (int, bool, error) {
	panic("not wired")
}

func (s *stubCredentialService) Validate(ctx context.Context, candidate string) (bool, []string, error) {
	return s.validateFn(ctx, candidate)
}

type stubPolicyService struct {
	snapshotFn func(ctx context.Context) (*domain.SecurityPolicy, error)
	updateFn   func(ctx context.Context, updated *domain.SecurityPolicy, actorID int64, meta domain.RequestMeta) (*domain.SecurityPolicy, error)
}

func (s *stubPolicyService) Snapshot(ctx context.Context) (*domain.SecurityPolicy, error) {
	return s.snapshotFn(ctx)
}

func (s *stubPolicyService) Update(ctx context.Context, updated *domain.SecurityPolicy, actorID int64, meta domain.RequestMeta) (*domain.SecurityPolicy, error) {
	return s.updateFn(ctx, updated, actorID, meta)
}

func (s *stubPolicyService) Reload(ctx context.Context) error { return nil }

type stubSessionService struct {
	listFn            func(ctx context.Context, userID int64, currentKey string) ([]port.SessionView, error)
	terminateFn       func(ctx context.Context, key string, actorID int64, meta domain.RequestMeta) error
	terminateOthersFn func(ctx context.Context, userID int64, currentKey string, meta domain.RequestMeta) (int64, error)
}

func (s *stubSessionService) Create(ctx context.Context, user *domain.User, meta domain.RequestMeta) (*domain.Session, error) {
	panic("not wired")
}

func (s *stubSessionService) Resolve(ctx context.Context, key string) (*domain.Session, error) {
	panic("not wired")
}

func (s *stubSessionService) Terminate(ctx context.Context, key string, actorID int64, meta domain.RequestMeta) error {
	return s.terminateFn(ctx, key, actorID, meta)
}

func (s *stubSessionService) TerminateOthers(ctx context.Context, userID int64, currentKey string, meta domain.RequestMeta) (int64, error) {
	return s.terminateOthersFn(ctx, userID, currentKey, meta)
}

func (s *stubSessionService) List(ctx context.Context, userID int64, currentKey string) ([]port.SessionView, error) {
	return s.listFn(ctx, userID, currentKey)
}

func (s *stubSessionService) CleanupStale(ctx context.Context) (int64, error) { return 0, nil }

type stubAuditService struct {
	recordFn       func(ctx context.Context, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error
	listFn         func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error)
	loginHistoryFn func(ctx context.Context, userID int64, limit int) ([]domain.AuditEvent, error)
}

func (s *stubAuditService) Record(ctx context.Context, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error {
	if s.recordFn == nil {
		return nil
	}
	return s.recordFn(ctx, eventType, severity, actorID, targetID, meta, details)
}

func (s *stubAuditService) RecordTx(ctx context.Context, tx *gorm.DB, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error {
	return nil
}

func (s *stubAuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	return s.listFn(ctx, filter)
}

func (s *stubAuditService) LoginHistory(ctx context.Context, userID int64, limit int) ([]domain.AuditEvent, error) {
	if s.loginHistoryFn == nil {
		return nil, nil
	}
	return s.loginHistoryFn(ctx, userID, limit)
}

func (s *stubAuditService) CleanupExpired(ctx context.Context) (int64, error) { return 0, nil }

type stubTwoFactorService struct {
	startEnrollFn   func(ctx context.Context, user *domain.User) (*domain.TwoFactorEnrollment, error)
	verifySetupFn   func(ctx context.Context, user *domain.User, code string, meta domain.RequestMeta) error
	disableFn       func(ctx context.Context, user *domain.User, proofCode string, meta domain.RequestMeta) error
	regenerateFn    func(ctx context.Context, user *domain.User, meta domain.RequestMeta) ([]string, error)
}

func (s *stubTwoFactorService) IssueEmailOTP(ctx context.Context, userID int64) (string, error) {
	panic("not wired")
}

func (s *stubTwoFactorService) VerifyEmailOTP(ctx context.Context, userID int64, code string) (bool, error) {
	panic("not wired")
}

func (s *stubTwoFactorService) StartEnroll(ctx context.Context, user *domain.User) (*domain.TwoFactorEnrollment, error) {
	return s.startEnrollFn(ctx, user)
}

func (s *stubTwoFactorService) VerifySetup(ctx context.Context, user *domain.User, code string, meta domain.RequestMeta) error {
	return s.verifySetupFn(ctx, user, code, meta)
}

func (s *stubTwoFactorService) VerifyTOTP(ctx context.Context, userID int64, code string) (bool, error) {
	panic("not wired")
}

func (s *stubTwoFactorService) VerifyBackupCode(ctx context.Context, userID int64, code string) (bool, error) {
	panic("not wired")
}

func (s *stubTwoFactorService) Disable(ctx context.Context, user *domain.User, proofCode string, meta domain.RequestMeta) error {
	return s.disableFn(ctx, user, proofCode, meta)
}

func (s *stubTwoFactorService) RegenerateBackupCodes(ctx context.Context, user *domain.User, meta domain.RequestMeta) ([]string, error) {
	return s.regenerateFn(ctx, user, meta)
}

type stubRiskService struct {
	clearFailuresFn func(ctx context.Context, username string, actorID int64, meta domain.RequestMeta) (int64, error)
}

func (s *stubRiskService) CheckIP(ctx context.Context, ip string) error { return nil }

func (s *stubRiskService) CheckLock(ctx context.Context, username, ip string) (*port.LockState, error) {
	panic("not wired")
}

func (s *stubRiskService) RecordFailure(ctx context.Context, username, reason string, meta domain.RequestMeta) (*port.FailureOutcome, error) {
	panic("not wired")
}

func (s *stubRiskService) IsKnownDevice(ctx context.Context, userID int64, fingerprint string) (bool, error) {
	panic("not wired")
}

func (s *stubRiskService) ClearFailures(ctx context.Context, username string, actorID int64, meta domain.RequestMeta) (int64, error) {
	return s.clearFailuresFn(ctx, username, actorID, meta)
}

type stubIPRuleRepo struct {
	createFn     func(ctx context.Context, rule *domain.IPRule) error
	listByKindFn func(ctx context.Context, kind string) ([]domain.IPRule, error)
	deleteFn     func(ctx context.Context, id int64) (bool, error)
}

func (s *stubIPRuleRepo) Create(ctx context.Context, rule *domain.IPRule) error {
	return s.createFn(ctx, rule)
}

func (s *stubIPRuleRepo) FindActiveByKind(ctx context.Context, kind string) ([]domain.IPRule, error) {
	panic("not wired")
}

func (s *stubIPRuleRepo) ListByKind(ctx context.Context, kind string) ([]domain.IPRule, error) {
	return s.listByKindFn(ctx, kind)
}

func (s *stubIPRuleRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return s.deleteFn(ctx, id)
}

type stubUserService struct {
	createFn     func(ctx context.Context, req *domain.CreateUserRequest, actorID int64, meta domain.RequestMeta) (*domain.User, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.User, error)
	listFn       func(ctx context.Context, filter port.UserFilter) ([]domain.User, int64, error)
	setActiveFn  func(ctx context.Context, id int64, active bool, actorID int64, meta domain.RequestMeta) error
	changeRoleFn func(ctx context.Context, id int64, role string, actorID int64, meta domain.RequestMeta) error
}

func (s *stubUserService) Create(ctx context.Context, req *domain.CreateUserRequest, actorID int64, meta domain.RequestMeta) (*domain.User, error) {
	return s.createFn(ctx, req, actorID, meta)
}

func (s *stubUserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubUserService) List(ctx context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
	return s.listFn(ctx, filter)
}

func (s *stubUserService) SetActive(ctx context.Context, id int64, active bool, actorID int64, meta domain.RequestMeta) error {
	return s.setActiveFn(ctx, id, active, actorID, meta)
}

func (s *stubUserService) ChangeRole(ctx context.Context, id int64, role string, actorID int64, meta domain.RequestMeta) error {
	return s.changeRoleFn(ctx, id, role, actorID, meta)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "debug", Format: "text"})
}

// asUser installs a fake authenticated identity the way RequireAuth would.
func asUser(user *domain.User, session *domain.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserKey, user)
		if session != nil {
			c.Set(middleware.SessionKey, session)
		}
		c.Next()
	}
}
