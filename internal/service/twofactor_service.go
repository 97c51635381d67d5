package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/passhash"
	"github.com/andrewhigh08/account-core/internal/pkg/random"
	"github.com/andrewhigh08/account-core/internal/port"
)

const (
	// emailOTPTTL is the lifetime of an email one-time code.
	// emailOTPTTL — время жизни одноразового кода по email.
	emailOTPTTL = 10 * time.Minute

	// emailOTPDigits is the length of an email one-time code.
	// emailOTPDigits — длина одноразового кода по email.
	emailOTPDigits = 6

	// backupCodeLength is the length of a single backup code.
	// backupCodeLength — длина одного резервного кода.
	backupCodeLength = 8

	// totpIssuer names this service in authenticator apps.
	// totpIssuer — имя сервиса в приложениях-аутентификаторах.
	totpIssuer = "account-core"

	// totpSecretSize is the shared secret size in bytes (160 bits).
	// totpSecretSize — размер общего секрета в байтах (160 бит).
	totpSecretSize = 20
)

// TwoFactorService implements port.TwoFactorService.
// TwoFactorService реализует интерфейс port.TwoFactorService.
//
// Owns every second-factor mechanism: email one-time codes, TOTP devices
// and backup codes. TOTP secrets are stored as issued; backup codes are
// stored only as argon2id hashes.
// Владеет всеми механизмами второго фактора: одноразовыми кодами по email,
// TOTP-устройствами и резервными кодами. TOTP-секреты хранятся как выданы;
// резервные коды хранятся только как хэши argon2id.
type TwoFactorService struct {
	twoFactorRepo port.TwoFactorRepository // Device and code storage / Хранилище устройств и кодов
	userRepo      port.UserRepository      // User storage / Хранилище пользователей
	otpCache      port.OTPCache            // Outstanding email codes / Действующие email-коды
	policy        port.PolicyService       // Policy snapshots / Снимки политики
	audit         port.AuditService        // Audit stream / Поток аудита
	notifier      port.Notifier            // Security notifications / Уведомления безопасности
	txManager     port.Transaction         // Transaction manager / Менеджер транзакций
	clk           clock.Clock              // Time source / Источник времени
	logger        *logger.Logger           // Logger instance / Экземпляр логгера
}

// NewTwoFactorService creates a new TwoFactorService instance.
// NewTwoFactorService создаёт новый экземпляр TwoFactorService.
func NewTwoFactorService(
	twoFactorRepo port.TwoFactorRepository,
	userRepo port.UserRepository,
	otpCache port.OTPCache,
	policy port.PolicyService,
	audit port.AuditService,
	notifier port.Notifier,
	txManager port.Transaction,
	clk clock.Clock,
	log *logger.Logger,
) *TwoFactorService {
	return &TwoFactorService{
		twoFactorRepo: twoFactorRepo,
		userRepo:      userRepo,
		otpCache:      otpCache,
		policy:        policy,
		audit:         audit,
		notifier:      notifier,
		txManager:     txManager,
		clk:           clk,
		logger:        log.WithComponent("twofactor_service"),
	}
}

// IssueEmailOTP generates a fresh 6-digit code, replacing any outstanding
// one, and returns it for the notification dispatcher. The code itself is
// never logged.
// IssueEmailOTP генерирует свежий 6-значный код, заменяя любой
// действующий, и возвращает его диспетчеру уведомлений. Сам код никогда
// не логируется.
func (s *TwoFactorService) IssueEmailOTP(ctx context.Context, userID int64) (string, error) {
	code, err := random.Digits(emailOTPDigits)
	if err != nil {
		return "", apperror.Internal("failed to generate one-time code", err)
	}

	if err := s.otpCache.StoreCode(ctx, userID, code, emailOTPTTL); err != nil {
		return "", err
	}

	s.logger.WithContext(ctx).Debug("email otp issued", "user_id", userID)
	return code, nil
}

// VerifyEmailOTP compares the submitted code against the outstanding one
// and consumes it on success.
// VerifyEmailOTP сравнивает предъявленный код с действующим и потребляет
// его при успехе.
func (s *TwoFactorService) VerifyEmailOTP(ctx context.Context, userID int64, code string) (bool, error) {
	stored, err := s.otpCache.GetCode(ctx, userID)
	if err != nil {
		return false, err
	}
	if stored == "" {
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}

	if err := s.otpCache.DeleteCode(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// StartEnroll creates a provisional TOTP device with a fresh secret and a
// new backup code set. The secret, the provisioning URI and the plaintext
// codes are returned exactly once; only hashes persist.
// StartEnroll создаёт предварительное TOTP-устройство со свежим секретом и
// новым набором резервных кодов. Секрет, URI подготовки и коды открытым
// текстом возвращаются ровно один раз; сохраняются только хэши.
func (s *TwoFactorService) StartEnroll(ctx context.Context, user *domain.User) (*domain.TwoFactorEnrollment, error) {
	log := s.logger.WithContext(ctx)

	device, err := s.twoFactorRepo.FindDevice(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if device != nil && device.Verified {
		return nil, apperror.Conflict("totp device", "user_id", user.ID)
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		SecretSize:  totpSecretSize,
	})
	if err != nil {
		return nil, apperror.Internal("failed to generate totp secret", err)
	}

	plaintextCodes, hashedCodes, err := s.generateBackupCodes(user.ID, policy.BackupCodesCount)
	if err != nil {
		return nil, err
	}

	newDevice := &domain.TOTPDevice{
		UserID:    user.ID,
		Secret:    key.Secret(),
		Verified:  false,
		CreatedAt: s.clk.Now(),
	}

	// The provisional device and the fresh code set commit together: a
	// failed device write must not leave orphaned backup codes behind.
	// Предварительное устройство и свежий набор кодов фиксируются вместе:
	// неудачная запись устройства не должна оставлять осиротевшие
	// резервные коды.
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.twoFactorRepo.ReplaceBackupCodesTx(ctx, tx, user.ID, hashedCodes); err != nil {
			return err
		}
		return s.twoFactorRepo.SaveDeviceTx(ctx, tx, newDevice)
	})
	if err != nil {
		return nil, err
	}

	log.Info("totp enrollment started", "user_id", user.ID)

	return &domain.TwoFactorEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		BackupCodes:     plaintextCodes,
	}, nil
}

// VerifySetup validates a code against the provisional secret; on success
// the device becomes active and 2FA turns on for the account.
// VerifySetup проверяет код по предварительному секрету; при успехе
// устройство становится активным и 2FA включается для аккаунта.
func (s *TwoFactorService) VerifySetup(ctx context.Context, user *domain.User, code string, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	device, err := s.twoFactorRepo.FindDevice(ctx, user.ID)
	if err != nil {
		return err
	}
	if device == nil {
		return apperror.NotFound("totp device", user.ID)
	}
	if device.Verified {
		return apperror.Conflict("totp device", "user_id", user.ID)
	}

	if !s.validateTOTP(code, device.Secret) {
		if auditErr := s.audit.Record(ctx, domain.Event2FAFailed, domain.SeverityCritical, &user.ID, nil, meta, map[string]interface{}{
			"stage": "setup",
		}); auditErr != nil {
			log.Warn("failed to audit 2fa failure", "error", auditErr)
		}
		return apperror.BadRequest("verification code is invalid")
	}

	now := s.clk.Now()
	device.Verified = true
	device.LastUsedAt = &now
	if err := s.twoFactorRepo.UpdateDevice(ctx, device); err != nil {
		return err
	}

	user.TwoFactorEnabled = true
	user.TwoFactorSetupRequired = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, domain.Event2FAEnabled, domain.SeverityInfo, &user.ID, nil, meta, nil); err != nil {
		log.Warn("failed to audit 2fa enable", "error", err)
	}
	s.notify(ctx, domain.Notify2FAEnabled, user, meta)

	log.Info("totp device verified", "user_id", user.ID)
	return nil
}

// VerifyTOTP validates a code against the active secret within one period
// of clock skew either way and records last_used_at on success.
// VerifyTOTP проверяет код по активному секрету в пределах одного периода
// допуска часов в обе стороны и записывает last_used_at при успехе.
func (s *TwoFactorService) VerifyTOTP(ctx context.Context, userID int64, code string) (bool, error) {
	device, err := s.twoFactorRepo.FindDevice(ctx, userID)
	if err != nil {
		return false, err
	}
	if device == nil || !device.Verified {
		return false, nil
	}

	if !s.validateTOTP(code, device.Secret) {
		return false, nil
	}

	now := s.clk.Now()
	device.LastUsedAt = &now
	if err := s.twoFactorRepo.UpdateDevice(ctx, device); err != nil {
		return false, err
	}
	return true, nil
}

// VerifyBackupCode consumes the matching unused backup code. Each stored
// hash is compared in turn; consumption is race-safe at the repository.
// VerifyBackupCode потребляет совпавший неиспользованный резервный код.
// Каждый хэш сравнивается по очереди; потребление защищено от гонок на
// уровне репозитория.
func (s *TwoFactorService) VerifyBackupCode(ctx context.Context, userID int64, code string) (bool, error) {
	codes, err := s.twoFactorRepo.FindUnusedBackupCodes(ctx, userID)
	if err != nil {
		return false, err
	}

	for i := range codes {
		match, err := passhash.Verify(code, codes[i].CodeHash)
		if err != nil {
			return false, apperror.Internal("failed to compare backup code", err)
		}
		if !match {
			continue
		}
		if err := s.twoFactorRepo.MarkBackupCodeUsed(ctx, codes[i].ID, s.clk.Now()); err != nil {
			// Another request won the race for this code.
			// Другой запрос выиграл гонку за этот код.
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNotFound {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Disable removes the TOTP device and backup codes after the user proves
// possession of a current factor with a TOTP or backup code.
// Disable удаляет TOTP-устройство и резервные коды после того, как
// пользователь докажет владение текущим фактором кодом TOTP или резервным.
func (s *TwoFactorService) Disable(ctx context.Context, user *domain.User, proofCode string, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	if !user.TwoFactorEnabled {
		return apperror.BadRequest("two-factor authentication is not enabled")
	}

	ok, err := s.VerifyTOTP(ctx, user.ID, proofCode)
	if err != nil {
		return err
	}
	if !ok {
		ok, err = s.VerifyBackupCode(ctx, user.ID, proofCode)
		if err != nil {
			return err
		}
	}
	if !ok {
		if auditErr := s.audit.Record(ctx, domain.Event2FAFailed, domain.SeverityCritical, &user.ID, nil, meta, map[string]interface{}{
			"stage": "disable",
		}); auditErr != nil {
			log.Warn("failed to audit 2fa failure", "error", auditErr)
		}
		return apperror.BadRequest("verification code is invalid")
	}

	if err := s.twoFactorRepo.DeleteDevice(ctx, user.ID); err != nil {
		return err
	}
	if err := s.twoFactorRepo.DeleteBackupCodes(ctx, user.ID); err != nil {
		return err
	}

	user.TwoFactorEnabled = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, domain.Event2FADisabled, domain.SeverityInfo, &user.ID, nil, meta, nil); err != nil {
		log.Warn("failed to audit 2fa disable", "error", err)
	}
	s.notify(ctx, domain.Notify2FADisabled, user, meta)

	log.Info("two-factor authentication disabled", "user_id", user.ID)
	return nil
}

// RegenerateBackupCodes invalidates the previous set and returns the new
// plaintext codes once.
// RegenerateBackupCodes аннулирует предыдущий набор и один раз возвращает
// новые коды открытым текстом.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, user *domain.User, meta domain.RequestMeta) ([]string, error) {
	log := s.logger.WithContext(ctx)

	if !user.TwoFactorEnabled {
		return nil, apperror.BadRequest("two-factor authentication is not enabled")
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	plaintextCodes, hashedCodes, err := s.generateBackupCodes(user.ID, policy.BackupCodesCount)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.twoFactorRepo.ReplaceBackupCodesTx(ctx, tx, user.ID, hashedCodes)
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, domain.EventBackupCodesRegenerated, domain.SeverityInfo, &user.ID, nil, meta, map[string]interface{}{
		"count": len(plaintextCodes),
	}); err != nil {
		log.Warn("failed to audit backup code regeneration", "error", err)
	}

	log.Info("backup codes regenerated", "user_id", user.ID, "count", len(plaintextCodes))
	return plaintextCodes, nil
}

// notify dispatches a second-factor state change to the user. Delivery is
// best-effort; the state change itself has already been committed.
// notify отправляет пользователю изменение состояния второго фактора.
// Доставка по мере возможности; само изменение состояния уже зафиксировано.
func (s *TwoFactorService) notify(ctx context.Context, notifyType string, user *domain.User, meta domain.RequestMeta) {
	device := meta.Device()
	//nolint:errcheck // fire-and-forget dispatch
	_ = s.notifier.Emit(ctx, &domain.Notification{
		Type:      notifyType,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IP:        meta.IP,
		Device:    device.Name,
		Timestamp: s.clk.Now(),
	})
}

// validateTOTP checks the code against the secret at the service clock
// with one period of skew in either direction.
// validateTOTP проверяет код по секрету по часам сервиса с допуском в
// один период в обе стороны.
func (s *TwoFactorService) validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.clk.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// generateBackupCodes produces count plaintext codes and their hashed
// storage representations.
// generateBackupCodes создаёт count кодов открытым текстом и их хэши для
// хранения.
func (s *TwoFactorService) generateBackupCodes(userID int64, count int) ([]string, []domain.BackupCode, error) {
	now := s.clk.Now()
	plaintext := make([]string, 0, count)
	hashed := make([]domain.BackupCode, 0, count)

	for i := 0; i < count; i++ {
		code, err := random.AlphanumericUpper(backupCodeLength)
		if err != nil {
			return nil, nil, apperror.Internal("failed to generate backup code", err)
		}
		hash, err := passhash.Hash(code)
		if err != nil {
			return nil, nil, apperror.Internal("failed to hash backup code", err)
		}
		plaintext = append(plaintext, code)
		hashed = append(hashed, domain.BackupCode{
			UserID:    userID,
			CodeHash:  hash,
			CreatedAt: now,
		})
	}
	return plaintext, hashed, nil
}
