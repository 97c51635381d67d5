package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/random"
	"github.com/andrewhigh08/account-core/internal/port"
)

// Two-factor completion methods accepted by CompleteTwoFactor.
// Методы завершения второго фактора, принимаемые CompleteTwoFactor.
const (
	// TwoFactorMethodCode tries TOTP first, then the email one-time code.
	// TwoFactorMethodCode сначала пробует TOTP, затем одноразовый код по email.
	TwoFactorMethodCode = "code"

	// TwoFactorMethodBackup consumes a backup code.
	// TwoFactorMethodBackup потребляет резервный код.
	TwoFactorMethodBackup = "backup"
)

// resetClaims are the password-reset token claims. PasswordStamp binds the
// token to the password generation it was issued for: any password change
// invalidates every outstanding token.
// resetClaims — утверждения токена сброса пароля. PasswordStamp привязывает
// токен к поколению пароля, для которого он выдан: любая смена пароля
// аннулирует все действующие токены.
type resetClaims struct {
	PasswordStamp int64 `json:"pwd_stamp"` // Unix time of the bound change / Unix-время привязанной смены
	jwt.RegisteredClaims
}

// AuthService implements port.AuthService.
// AuthService реализует интерфейс port.AuthService.
//
// The orchestrating state machine: every login walks IP rules, account
// state, the lockout window, the password, expiry and the second factor
// in that order, and only then receives a session.
// Оркеструющий конечный автомат: каждый вход проходит правила IP,
// состояние аккаунта, окно блокировки, пароль, истечение и второй фактор
// именно в этом порядке, и только затем получает сессию.
type AuthService struct {
	userRepo    port.UserRepository    // User storage / Хранилище пользователей
	credentials port.CredentialService // Password boundary / Граница паролей
	twoFactor   port.TwoFactorService  // Second factor engine / Движок второго фактора
	risk        port.RiskService       // Lockout and IP rules / Блокировки и правила IP
	sessions    port.SessionService    // Session ledger / Реестр сессий
	audit       port.AuditService      // Audit stream / Поток аудита
	policy      port.PolicyService     // Policy snapshots / Снимки политики
	tickets     port.TicketCache       // Pre-auth tickets / Pre-auth тикеты
	notifier    port.Notifier          // Notification dispatcher / Диспетчер уведомлений
	clk         clock.Clock            // Time source / Источник времени
	privateKey  *rsa.PrivateKey        // Reset token signing key / Ключ подписи токенов сброса
	publicKey   *rsa.PublicKey         // Reset token verification key / Ключ проверки токенов сброса
	logger      *logger.Logger         // Logger instance / Экземпляр логгера
}

// AuthServiceConfig holds configuration for AuthService.
// AuthServiceConfig содержит конфигурацию для AuthService.
type AuthServiceConfig struct {
	PrivateKeyPath string // Path to RSA private key PEM file / Путь к файлу приватного RSA ключа
	PublicKeyPath  string // Path to RSA public key PEM file / Путь к файлу публичного RSA ключа
	DevMode        bool   // If true, generate keys if files don't exist / Генерировать ключи, если файлы не существуют
}

// DefaultAuthServiceConfig returns default configuration.
// DefaultAuthServiceConfig возвращает конфигурацию по умолчанию.
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		PrivateKeyPath: "configs/keys/private.pem",
		PublicKeyPath:  "configs/keys/public.pem",
		DevMode:        true,
	}
}

// NewAuthService creates a new AuthService instance.
// NewAuthService создаёт новый экземпляр AuthService.
// Loads the RSA key pair from PEM files, or generates them in dev mode.
// Загружает пару RSA ключей из PEM файлов или генерирует их в режиме разработки.
func NewAuthService(
	userRepo port.UserRepository,
	credentials port.CredentialService,
	twoFactor port.TwoFactorService,
	risk port.RiskService,
	sessions port.SessionService,
	audit port.AuditService,
	policy port.PolicyService,
	tickets port.TicketCache,
	notifier port.Notifier,
	clk clock.Clock,
	config AuthServiceConfig,
	log *logger.Logger,
) (*AuthService, error) {
	componentLog := log.WithComponent("auth_service")

	var privateKey *rsa.PrivateKey
	var publicKey *rsa.PublicKey

	// Try to load keys from files / Пытаемся загрузить ключи из файлов
	privateKey, err := loadRSAPrivateKey(config.PrivateKeyPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, apperror.Internal("failed to load RSA private key", err)
		}

		// Key file doesn't exist / Файл ключа не существует
		if !config.DevMode {
			return nil, apperror.Internal("RSA key files not found and DevMode is disabled", err)
		}

		// Generate and save keys in dev mode / Генерируем и сохраняем ключи в режиме разработки
		componentLog.Info("RSA key files not found, generating new keys (dev mode)")
		privateKey, err = generateAndSaveKeys(config.PrivateKeyPath, config.PublicKeyPath)
		if err != nil {
			return nil, apperror.Internal("failed to generate and save RSA keys", err)
		}
		publicKey = &privateKey.PublicKey
	} else {
		// Load public key / Загружаем публичный ключ
		publicKey, err = loadRSAPublicKey(config.PublicKeyPath)
		if err != nil {
			return nil, apperror.Internal("failed to load RSA public key", err)
		}
		componentLog.Info("RSA keys loaded from files")
	}

	return &AuthService{
		userRepo:    userRepo,
		credentials: credentials,
		twoFactor:   twoFactor,
		risk:        risk,
		sessions:    sessions,
		audit:       audit,
		policy:      policy,
		tickets:     tickets,
		notifier:    notifier,
		clk:         clk,
		privateKey:  privateKey,
		publicKey:   publicKey,
		logger:      componentLog,
	}, nil
}

// loadRSAPrivateKey loads an RSA private key from a PEM file.
// loadRSAPrivateKey загружает приватный RSA ключ из PEM файла.
func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, apperror.Internal(fmt.Sprintf("failed to decode PEM block from %s", path), nil)
	}

	// Try PKCS#8 first, then PKCS#1 / Сначала пробуем PKCS#8, потом PKCS#1
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Fallback to PKCS#1 / Запасной вариант - PKCS#1
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return nil, apperror.Internal("failed to parse private key", pkcs1Err)
		}
		return pkcs1Key, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, apperror.Internal("key is not RSA private key", nil)
	}
	return rsaKey, nil
}

// loadRSAPublicKey loads an RSA public key from a PEM file.
// loadRSAPublicKey загружает публичный RSA ключ из PEM файла.
func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, apperror.Internal(fmt.Sprintf("failed to decode PEM block from %s", path), nil)
	}

	// Try PKIX first, then PKCS#1 / Сначала пробуем PKIX, потом PKCS#1
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Fallback to PKCS#1 / Запасной вариант - PKCS#1
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PublicKey(block.Bytes)
		if pkcs1Err != nil {
			return nil, apperror.Internal("failed to parse public key", pkcs1Err)
		}
		return pkcs1Key, nil
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, apperror.Internal("key is not RSA public key", nil)
	}
	return rsaKey, nil
}

// generateAndSaveKeys generates RSA key pair and saves to PEM files.
// generateAndSaveKeys генерирует пару RSA ключей и сохраняет в PEM файлы.
func generateAndSaveKeys(privatePath, publicPath string) (*rsa.PrivateKey, error) {
	// Generate key pair / Генерируем пару ключей
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	// Ensure directory exists / Убеждаемся, что директория существует
	err = os.MkdirAll(filepath.Dir(privatePath), 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	// Save private key / Сохраняем приватный ключ
	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privateKeyBytes,
	})
	err = os.WriteFile(privatePath, privateKeyPEM, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	// Save public key / Сохраняем публичный ключ
	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	})
	// #nosec G306 -- public key is intended to be readable
	err = os.WriteFile(publicPath, publicKeyPEM, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return privateKey, nil
}

// Login runs the full login protocol. The rejection for a wrong username
// and a wrong password is the same generic message; only the attempt
// ledger records which it was.
// Login выполняет полный протокол входа. Отказ при неверном имени и
// неверном пароле — одно и то же общее сообщение; какой из них был,
// фиксирует только журнал попыток.
func (s *AuthService) Login(ctx context.Context, username, password string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	log := s.logger.WithContext(ctx)

	if err := s.risk.CheckIP(ctx, meta.IP); err != nil {
		s.recordLoginFailure(ctx, username, nil, domain.FailReasonIPBlocked, meta)
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.recordLoginFailure(ctx, username, nil, domain.FailReasonInvalidUsername, meta)
		return nil, apperror.Unauthorized("invalid username or password")
	}

	if !user.IsActive {
		s.recordLoginFailure(ctx, username, user, domain.FailReasonAccountDisabled, meta)
		return nil, apperror.Unauthorized("invalid username or password")
	}

	lock, err := s.risk.CheckLock(ctx, user.Username, meta.IP)
	if err != nil {
		return nil, err
	}
	if lock.Locked {
		s.recordLoginFailure(ctx, username, user, domain.FailReasonAccountLocked, meta)
		return nil, apperror.AccountLocked(lock.UnlockAt)
	}

	match, err := s.credentials.Verify(ctx, user, password)
	if err != nil {
		return nil, err
	}
	if !match {
		outcome := s.recordLoginFailure(ctx, username, user, domain.FailReasonInvalidPassword, meta)
		if outcome != nil && outcome.NewlyLocked {
			return nil, apperror.AccountLocked(outcome.UnlockAt)
		}
		return nil, apperror.Unauthorized("invalid username or password")
	}

	expired, err := s.credentials.IsExpired(ctx, user)
	if err != nil {
		return nil, err
	}
	if expired {
		ticketID, err := s.issueTicket(ctx, user.ID, domain.TicketKindPasswordChange, meta.IP)
		if err != nil {
			return nil, err
		}
		log.Info("login parked on expired password", "user_id", user.ID)
		return &domain.LoginResult{
			Status: domain.LoginStatusPasswordExpired,
			User:   user,
			Ticket: ticketID,
		}, nil
	}

	if user.TwoFactorSetupRequired && !user.TwoFactorEnabled {
		ticketID, err := s.issueTicket(ctx, user.ID, domain.TicketKindTwoFactorSetup, meta.IP)
		if err != nil {
			return nil, err
		}
		log.Info("login parked on 2fa enrollment", "user_id", user.ID)
		return &domain.LoginResult{
			Status: domain.LoginStatusTwoFactorSetupRequired,
			User:   user,
			Ticket: ticketID,
		}, nil
	}

	if user.TwoFactorEnabled {
		ticketID, err := s.issueTicket(ctx, user.ID, domain.TicketKindTwoFactor, meta.IP)
		if err != nil {
			return nil, err
		}
		log.Info("login awaiting second factor", "user_id", user.ID)
		return &domain.LoginResult{
			Status: domain.LoginStatusTwoFactorRequired,
			User:   user,
			Ticket: ticketID,
		}, nil
	}

	return s.establishSession(ctx, user, meta)
}

// SendLoginOTP issues an email one-time code for a pending 2FA ticket and
// emits it to the notification dispatcher. Unlike other notifications the
// delivery failure surfaces: a code the user cannot receive is useless.
// SendLoginOTP выдаёт одноразовый код по email для ожидающего 2FA тикета и
// отправляет его диспетчеру уведомлений. В отличие от других уведомлений,
// сбой доставки возвращается: код, который пользователь не получит, бесполезен.
func (s *AuthService) SendLoginOTP(ctx context.Context, ticketID string, meta domain.RequestMeta) error {
	ticket, user, err := s.resolveTicket(ctx, ticketID, domain.TicketKindTwoFactor, meta)
	if err != nil {
		return err
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !policy.Email2FAEnabled {
		return apperror.BadRequest("email verification codes are disabled")
	}

	code, err := s.twoFactor.IssueEmailOTP(ctx, user.ID)
	if err != nil {
		return err
	}

	if err := s.notifier.Emit(ctx, s.buildNotification(domain.NotifyEmailOTP, user, meta, map[string]interface{}{
		"code":      code,
		"ticket_id": ticket.ID,
	})); err != nil {
		return apperror.ServiceUnavailable("failed to deliver verification code")
	}
	return nil
}

// CompleteTwoFactor finishes a pending login with a second-factor code.
// Three failures on the same ticket invalidate it.
// CompleteTwoFactor завершает ожидающий вход кодом второго фактора.
// Три неудачи на одном тикете аннулируют его.
func (s *AuthService) CompleteTwoFactor(ctx context.Context, ticketID, code, method string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	log := s.logger.WithContext(ctx)

	_, user, err := s.resolveTicket(ctx, ticketID, domain.TicketKindTwoFactor, meta)
	if err != nil {
		return nil, err
	}

	verified := false
	usedBackupCode := false

	switch method {
	case TwoFactorMethodBackup:
		verified, err = s.twoFactor.VerifyBackupCode(ctx, user.ID, code)
		usedBackupCode = verified
	case TwoFactorMethodCode:
		verified, err = s.twoFactor.VerifyTOTP(ctx, user.ID, code)
		if err == nil && !verified {
			verified, err = s.twoFactor.VerifyEmailOTP(ctx, user.ID, code)
		}
	default:
		return nil, apperror.BadRequest("unknown verification method")
	}
	if err != nil {
		return nil, err
	}

	if !verified {
		if auditErr := s.audit.Record(ctx, domain.Event2FAFailed, domain.SeverityCritical, &user.ID, nil, meta, map[string]interface{}{
			"method": method,
		}); auditErr != nil {
			log.Warn("failed to audit 2fa failure", "error", auditErr)
		}

		failures, recErr := s.tickets.RecordFailure(ctx, ticketID)
		if recErr != nil {
			return nil, recErr
		}
		if failures >= domain.TicketMaxFailures {
			if delErr := s.tickets.Delete(ctx, ticketID); delErr != nil {
				log.Warn("failed to invalidate ticket", "error", delErr)
			}
			return nil, apperror.Expired("login ticket")
		}
		return nil, apperror.Unauthorized("verification code is invalid")
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, domain.Event2FAVerified, domain.SeverityInfo, &user.ID, nil, meta, map[string]interface{}{
		"method": method,
	}); err != nil {
		log.Warn("failed to audit 2fa verification", "error", err)
	}
	if usedBackupCode {
		if err := s.audit.Record(ctx, domain.EventBackupCodeUsed, domain.SeverityWarning, &user.ID, nil, meta, nil); err != nil {
			log.Warn("failed to audit backup code use", "error", err)
		}
	}

	return s.establishSession(ctx, user, meta)
}

// CompleteExpiredPasswordChange finishes a login parked on an expired
// password. The ticket survives a rejected candidate so the user can try
// again; it is consumed only by a successful change.
// CompleteExpiredPasswordChange завершает вход, остановленный на истёкшем
// пароле. Тикет переживает отклонённого кандидата, чтобы пользователь мог
// попробовать снова; потребляет его только успешная смена.
func (s *AuthService) CompleteExpiredPasswordChange(ctx context.Context, ticketID, newPassword string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	log := s.logger.WithContext(ctx)

	_, user, err := s.resolveTicket(ctx, ticketID, domain.TicketKindPasswordChange, meta)
	if err != nil {
		return nil, err
	}

	if err := s.credentials.SetPassword(ctx, user.ID, newPassword); err != nil {
		return nil, err
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, domain.EventPasswordChange, domain.SeverityInfo, &user.ID, nil, meta, map[string]interface{}{
		"forced": true,
	}); err != nil {
		log.Warn("failed to audit password change", "error", err)
	}
	s.emit(ctx, domain.NotifyPasswordChanged, user, meta, nil)

	// Re-read: password_changed_at moved under us.
	// Перечитываем: password_changed_at изменился под нами.
	user, err = s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.establishSession(ctx, user, meta)
}

// StartTwoFactorSetup begins TOTP enrollment for a login parked on forced
// 2FA setup. The secret and backup codes are returned exactly once; the
// ticket stays alive until the first code verifies.
// StartTwoFactorSetup начинает регистрацию TOTP для входа, остановленного
// на принудительной настройке 2FA. Секрет и резервные коды возвращаются
// ровно один раз; тикет живёт до проверки первого кода.
func (s *AuthService) StartTwoFactorSetup(ctx context.Context, ticketID string, meta domain.RequestMeta) (*domain.TwoFactorEnrollment, error) {
	_, user, err := s.resolveTicket(ctx, ticketID, domain.TicketKindTwoFactorSetup, meta)
	if err != nil {
		return nil, err
	}
	return s.twoFactor.StartEnroll(ctx, user)
}

// CompleteTwoFactorSetup verifies the first code against the provisional
// secret, activates 2FA for the account and establishes the session.
// Three rejected codes on the same ticket invalidate it.
// CompleteTwoFactorSetup проверяет первый код по предварительному секрету,
// включает 2FA для аккаунта и создаёт сессию. Три отклонённых кода на
// одном тикете аннулируют его.
func (s *AuthService) CompleteTwoFactorSetup(ctx context.Context, ticketID, code string, meta domain.RequestMeta) (*domain.LoginResult, error) {
	log := s.logger.WithContext(ctx)

	_, user, err := s.resolveTicket(ctx, ticketID, domain.TicketKindTwoFactorSetup, meta)
	if err != nil {
		return nil, err
	}

	if err := s.twoFactor.VerifySetup(ctx, user, code, meta); err != nil {
		if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeBadRequest {
			failures, recErr := s.tickets.RecordFailure(ctx, ticketID)
			if recErr != nil {
				return nil, recErr
			}
			if failures >= domain.TicketMaxFailures {
				if delErr := s.tickets.Delete(ctx, ticketID); delErr != nil {
					log.Warn("failed to invalidate ticket", "error", delErr)
				}
				return nil, apperror.Expired("login ticket")
			}
		}
		return nil, err
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return nil, err
	}

	// Re-read: the 2FA flags moved under us.
	// Перечитываем: флаги 2FA изменились под нами.
	user, err = s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.establishSession(ctx, user, meta)
}

// Logout terminates the session behind the key. Unknown keys succeed:
// logout is idempotent.
// Logout завершает сессию за ключом. Неизвестные ключи успешны: выход
// идемпотентен.
func (s *AuthService) Logout(ctx context.Context, sessionKey string, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	session, err := s.sessions.Resolve(ctx, sessionKey)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if err := s.sessions.Terminate(ctx, sessionKey, session.UserID, meta); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, domain.EventLogout, domain.SeverityInfo, &session.UserID, nil, meta, nil); err != nil {
		log.Warn("failed to audit logout", "error", err)
	}
	return nil
}

// Signup self-registers a Guest account and emits a welcome event.
// Signup саморегистрирует аккаунт Guest и отправляет событие welcome.
func (s *AuthService) Signup(ctx context.Context, req *domain.SignupRequest, meta domain.RequestMeta) (*domain.User, error) {
	log := s.logger.WithContext(ctx)

	valid, errs, err := s.credentials.Validate(ctx, req.Password)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, apperror.ValidationError("password does not meet the security requirements", map[string]interface{}{
			"errors": errs,
		})
	}

	if exists, err := s.userRepo.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("user", "username", req.Username)
	}
	if exists, err := s.userRepo.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("user", "email", req.Email)
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:               req.Username,
		Email:                  req.Email,
		FirstName:              req.FirstName,
		LastName:               req.LastName,
		Role:                   domain.RoleGuest,
		IsActive:               true,
		TwoFactorSetupRequired: policy.Enforce2FAFirstLogin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.credentials.SetPassword(ctx, user.ID, req.Password); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, domain.EventUserCreated, domain.SeverityInfo, &user.ID, &user.ID, meta, map[string]interface{}{
		"self_signup": true,
		"role":        user.Role,
	}); err != nil {
		log.Warn("failed to audit signup", "error", err)
	}
	s.emit(ctx, domain.NotifyWelcome, user, meta, nil)

	log.Info("account created via signup", "user_id", user.ID)
	return user, nil
}

// Authenticate resolves a session key into its user for middleware. A
// session whose owner has been deactivated is terminated on sight.
// Authenticate разрешает ключ сессии в его пользователя для middleware.
// Сессия, владелец которой деактивирован, завершается при обнаружении.
func (s *AuthService) Authenticate(ctx context.Context, sessionKey string) (*domain.User, *domain.Session, error) {
	session, err := s.sessions.Resolve(ctx, sessionKey)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, apperror.Unauthorized("authentication required")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		if err := s.sessions.Terminate(ctx, sessionKey, session.UserID, domain.RequestMeta{}); err != nil {
			s.logger.Warn("failed to terminate orphaned session", "error", err)
		}
		return nil, nil, apperror.Unauthorized("authentication required")
	}
	return user, session, nil
}

// ChangePassword verifies the current password, sets the new one and
// terminates every other session of the user.
// ChangePassword проверяет текущий пароль, устанавливает новый и
// завершает все остальные сессии пользователя.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword, currentSessionKey string, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	match, err := s.credentials.Verify(ctx, user, currentPassword)
	if err != nil {
		return err
	}
	if !match {
		return apperror.Unauthorized("current password is incorrect")
	}

	if err := s.credentials.SetPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	if _, err := s.sessions.TerminateOthers(ctx, user.ID, currentSessionKey, meta); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, domain.EventPasswordChange, domain.SeverityInfo, &user.ID, nil, meta, nil); err != nil {
		log.Warn("failed to audit password change", "error", err)
	}
	s.emit(ctx, domain.NotifyPasswordChanged, user, meta, nil)

	log.Info("password changed", "user_id", user.ID)
	return nil
}

// RequestPasswordReset always succeeds from the caller's viewpoint. When
// the account exists, a signed, time-limited token bound to the current
// password generation is emitted to the dispatcher.
// RequestPasswordReset всегда успешен с точки зрения вызывающего. Если
// аккаунт существует, диспетчеру отправляется подписанный ограниченный
// токен, привязанный к текущему поколению пароля.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up account for reset", "error", err)
		return nil
	}
	if user == nil || !user.IsActive {
		return nil
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		log.Error("failed to read policy for reset", "error", err)
		return nil
	}

	token, err := s.signResetToken(user, policy.ResetTokenTTL())
	if err != nil {
		log.Error("failed to sign reset token", "user_id", user.ID, "error", err)
		return nil
	}

	if err := s.audit.Record(ctx, domain.EventPasswordResetRequest, domain.SeverityInfo, &user.ID, nil, meta, nil); err != nil {
		log.Warn("failed to audit reset request", "error", err)
	}
	s.emit(ctx, domain.NotifyPasswordResetRequested, user, meta, map[string]interface{}{
		"token":     token,
		"ttl_hours": policy.ResetTokenTTLHours,
	})
	return nil
}

// ResetPassword validates the token binding and sets the new password.
// All sessions of the user are terminated: a reset proves the old
// credential is compromised or lost.
// ResetPassword проверяет привязку токена и устанавливает новый пароль.
// Все сессии пользователя завершаются: сброс доказывает, что старый
// пароль скомпрометирован или утерян.
func (s *AuthService) ResetPassword(ctx context.Context, userID int64, token, newPassword string, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.BadRequest("reset token is invalid")
	}

	if err := s.verifyResetToken(user, token); err != nil {
		return err
	}

	if err := s.credentials.SetPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	if _, err := s.sessions.TerminateOthers(ctx, user.ID, "", meta); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, domain.EventPasswordReset, domain.SeverityInfo, &user.ID, nil, meta, nil); err != nil {
		log.Warn("failed to audit password reset", "error", err)
	}
	s.emit(ctx, domain.NotifyPasswordResetSuccess, user, meta, nil)

	log.Info("password reset completed", "user_id", user.ID)
	return nil
}

// recordLoginFailure appends to the attempt ledger, audits login_failed
// and emits the suspicious/lock notifications the outcome calls for.
// Returns nil when recording itself failed; the login rejection stands
// either way.
// recordLoginFailure добавляет запись в журнал попыток, записывает
// login_failed в аудит и отправляет уведомления о подозрительности или
// блокировке согласно итогу. Возвращает nil, если сама запись не удалась;
// отказ во входе остаётся в силе в любом случае.
func (s *AuthService) recordLoginFailure(ctx context.Context, username string, user *domain.User, reason string, meta domain.RequestMeta) *port.FailureOutcome {
	log := s.logger.WithContext(ctx)
	log.LogAuthAttempt(username, false, reason)

	outcome, err := s.risk.RecordFailure(ctx, username, reason, meta)
	if err != nil {
		log.Error("failed to record login failure", "error", err)
		return nil
	}

	var actorID *int64
	if user != nil {
		actorID = &user.ID
	}
	if err := s.audit.Record(ctx, domain.EventLoginFailed, domain.SeverityWarning, actorID, nil, meta, map[string]interface{}{
		"username": username,
		"reason":   reason,
	}); err != nil {
		log.Warn("failed to audit login failure", "error", err)
	}

	if outcome.Suspicious {
		if err := s.audit.Record(ctx, domain.EventSuspiciousActivity, domain.SeverityCritical, actorID, nil, meta, map[string]interface{}{
			"username": username,
			"failures": outcome.Failures,
		}); err != nil {
			log.Warn("failed to audit suspicious activity", "error", err)
		}
		if user != nil {
			s.emit(ctx, domain.NotifySuspiciousLogin, user, meta, map[string]interface{}{
				"failures": outcome.Failures,
			})
		}
	}

	if outcome.NewlyLocked {
		if err := s.audit.Record(ctx, domain.EventAccountLocked, domain.SeverityWarning, actorID, nil, meta, map[string]interface{}{
			"username":  username,
			"unlock_at": outcome.UnlockAt.UTC().Format(time.RFC3339),
		}); err != nil {
			log.Warn("failed to audit account lock", "error", err)
		}
		if user != nil {
			s.emit(ctx, domain.NotifyAccountLocked, user, meta, map[string]interface{}{
				"unlock_at": outcome.UnlockAt.UTC().Format(time.RFC3339),
			})
		}
	}
	return outcome
}

// establishSession is the terminal login state: session, counters, audit,
// new-device notification.
// establishSession — конечное состояние входа: сессия, счётчики, аудит,
// уведомление о новом устройстве.
func (s *AuthService) establishSession(ctx context.Context, user *domain.User, meta domain.RequestMeta) (*domain.LoginResult, error) {
	log := s.logger.WithContext(ctx)

	fingerprint := meta.Device().Fingerprint()
	known, err := s.risk.IsKnownDevice(ctx, user.ID, fingerprint)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.RecordLogin(ctx, user.ID, meta.IP); err != nil {
		log.Error("failed to record login counters", "user_id", user.ID, "error", err)
	}

	if err := s.audit.Record(ctx, domain.EventLoginSuccess, domain.SeverityInfo, &user.ID, nil, meta, nil); err != nil {
		log.Warn("failed to audit login", "error", err)
	}

	if !known {
		if err := s.audit.Record(ctx, domain.EventNewDeviceLogin, domain.SeverityWarning, &user.ID, nil, meta, map[string]interface{}{
			"fingerprint": fingerprint,
		}); err != nil {
			log.Warn("failed to audit new device login", "error", err)
		}
		s.emit(ctx, domain.NotifyNewDeviceLogin, user, meta, nil)
	}

	log.LogAuthAttempt(user.Username, true, "")

	return &domain.LoginResult{
		Status:     domain.LoginStatusSuccess,
		User:       user,
		SessionKey: session.Key,
		NewDevice:  !known,
	}, nil
}

// issueTicket creates a pre-auth ticket bound to the user and IP.
// issueTicket создаёт pre-auth тикет, привязанный к пользователю и IP.
func (s *AuthService) issueTicket(ctx context.Context, userID int64, kind, ip string) (string, error) {
	id, err := random.Hex(16)
	if err != nil {
		return "", apperror.Internal("failed to generate ticket id", err)
	}

	ticket := &domain.PreAuthTicket{
		ID:       id,
		UserID:   userID,
		IP:       ip,
		Kind:     kind,
		IssuedAt: s.clk.Now(),
	}
	if err := s.tickets.Store(ctx, ticket, domain.TicketTTL); err != nil {
		return "", err
	}
	return id, nil
}

// resolveTicket loads and checks a pre-auth ticket: kind, IP binding and
// the account behind it. A mismatching or missing ticket reads as expired
// so callers cannot probe for live ticket ids.
// resolveTicket загружает и проверяет pre-auth тикет: вид, привязку к IP и
// аккаунт за ним. Несовпадающий или отсутствующий тикет выглядит как
// истёкший, чтобы вызывающие не могли прощупывать живые id тикетов.
func (s *AuthService) resolveTicket(ctx context.Context, ticketID, kind string, meta domain.RequestMeta) (*domain.PreAuthTicket, *domain.User, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket == nil || ticket.Kind != kind || ticket.IP != meta.IP {
		return nil, nil, apperror.Expired("login ticket")
	}

	user, err := s.userRepo.FindByID(ctx, ticket.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil, apperror.Expired("login ticket")
	}
	return ticket, user, nil
}

// signResetToken issues an RS256 token binding the user to the current
// password generation.
// signResetToken выдаёт RS256 токен, привязывающий пользователя к
// текущему поколению пароля.
func (s *AuthService) signResetToken(user *domain.User, ttl time.Duration) (string, error) {
	now := s.clk.Now()
	claims := &resetClaims{
		PasswordStamp: passwordStamp(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", apperror.Internal("failed to sign reset token", err)
	}
	return signed, nil
}

// verifyResetToken checks signature, expiry, subject and the password
// generation binding.
// verifyResetToken проверяет подпись, срок, субъект и привязку к
// поколению пароля.
func (s *AuthService) verifyResetToken(user *domain.User, tokenString string) error {
	claims := &resetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.clk.Now))
	if err != nil || !token.Valid {
		return apperror.BadRequest("reset token is invalid")
	}

	if claims.Subject != fmt.Sprintf("%d", user.ID) {
		return apperror.BadRequest("reset token is invalid")
	}
	if claims.PasswordStamp != passwordStamp(user) {
		// The password changed after the token was issued.
		// Пароль изменился после выдачи токена.
		return apperror.BadRequest("reset token is invalid")
	}
	return nil
}

// passwordStamp reduces the user's password generation to a comparable
// number; zero means no change was ever recorded.
// passwordStamp сводит поколение пароля пользователя к сравнимому числу;
// ноль означает, что смена никогда не фиксировалась.
func passwordStamp(user *domain.User) int64 {
	if user.PasswordChangedAt == nil {
		return 0
	}
	return user.PasswordChangedAt.Unix()
}

// emit builds and dispatches a notification, swallowing delivery errors:
// the adapter already logs them and the auth transition must stand.
// emit формирует и отправляет уведомление, поглощая ошибки доставки:
// адаптер уже логирует их, а переход аутентификации должен остаться в силе.
func (s *AuthService) emit(ctx context.Context, notifyType string, user *domain.User, meta domain.RequestMeta, payload map[string]interface{}) {
	//nolint:errcheck // fire-and-forget dispatch
	_ = s.notifier.Emit(ctx, s.buildNotification(notifyType, user, meta, payload))
}

// buildNotification assembles the dispatcher payload for a user event.
// buildNotification собирает данные диспетчера для события пользователя.
func (s *AuthService) buildNotification(notifyType string, user *domain.User, meta domain.RequestMeta, payload map[string]interface{}) *domain.Notification {
	device := meta.Device()
	return &domain.Notification{
		Type:      notifyType,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IP:        meta.IP,
		Device:    device.Name,
		Timestamp: s.clk.Now(),
		Payload:   payload,
	}
}
