package service

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/passhash"
	"github.com/andrewhigh08/account-core/internal/pkg/validator"
	"github.com/andrewhigh08/account-core/internal/port"
)

// maxPasswordLength bounds candidate passwords before hashing.
// maxPasswordLength ограничивает пароли-кандидаты перед хэшированием.
const maxPasswordLength = 128

// CredentialService implements port.CredentialService.
// CredentialService реализует интерфейс port.CredentialService.
//
// Plaintext passwords cross this boundary and nothing else: every caller
// above it sees only verification verdicts and policy errors.
// Пароли открытым текстом пересекают эту границу и ничего больше: все
// вызывающие выше видят только вердикты проверки и ошибки политики.
type CredentialService struct {
	userRepo    port.UserRepository            // User storage / Хранилище пользователей
	historyRepo port.PasswordHistoryRepository // Retired hashes / Устаревшие хэши
	policy      port.PolicyService             // Policy snapshots / Снимки политики
	txManager   port.Transaction               // Transaction manager / Менеджер транзакций
	clk         clock.Clock                    // Time source / Источник времени
	logger      *logger.Logger                 // Logger instance / Экземпляр логгера
}

// NewCredentialService creates a new CredentialService instance.
// NewCredentialService создаёт новый экземпляр CredentialService.
func NewCredentialService(
	userRepo port.UserRepository,
	historyRepo port.PasswordHistoryRepository,
	policy port.PolicyService,
	txManager port.Transaction,
	clk clock.Clock,
	log *logger.Logger,
) *CredentialService {
	return &CredentialService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
		policy:      policy,
		txManager:   txManager,
		clk:         clk,
		logger:      log.WithComponent("credential_service"),
	}
}

// Verify reports whether plaintext matches the user's current hash.
// Verify сообщает, соответствует ли plaintext текущему хэшу пользователя.
func (s *CredentialService) Verify(_ context.Context, user *domain.User, plaintext string) (bool, error) {
	if user.PasswordHash == "" {
		return false, nil
	}
	return passhash.Verify(plaintext, user.PasswordHash)
}

// SetPassword validates the candidate against the policy rules and the
// reuse history, then atomically records the new hash in history, trims
// history to the policy depth, replaces the hash and stamps
// password_changed_at. History therefore holds exactly the policy depth of
// records once enough changes have happened, the newest being the current
// password.
// SetPassword проверяет кандидата по правилам политики и истории повторов,
// затем атомарно записывает новый хэш в историю, обрезает историю до
// глубины политики, заменяет хэш и проставляет password_changed_at.
// История поэтому хранит ровно глубину политики записей после достаточного
// числа смен, где новейшая — текущий пароль.
func (s *CredentialService) SetPassword(ctx context.Context, userID int64, plaintext string) error {
	log := s.logger.WithContext(ctx)

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return err
	}

	if result := validator.ValidatePassword(plaintext, requirementsFromPolicy(policy)); !result.Valid {
		return apperror.ValidationError("password does not meet the security requirements", map[string]interface{}{
			"errors": result.Errors,
		})
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NotFound("user", userID)
	}

	if policy.PasswordHistoryCount > 0 {
		if err := s.checkReuse(ctx, user, plaintext, policy.PasswordHistoryCount); err != nil {
			return err
		}
	}

	newHash, err := passhash.Hash(plaintext)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}

	now := s.clk.Now()
	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		if policy.PasswordHistoryCount > 0 {
			record := &domain.PasswordRecord{
				UserID:    user.ID,
				Hash:      newHash,
				CreatedAt: now,
			}
			if err := s.historyRepo.CreateTx(ctx, tx, record); err != nil {
				return err
			}
			if err := s.historyRepo.TrimTx(ctx, tx, user.ID, policy.PasswordHistoryCount); err != nil {
				return err
			}
		}

		user.PasswordHash = newHash
		user.PasswordChangedAt = &now
		return s.userRepo.UpdateTx(ctx, tx, user)
	})
	if err != nil {
		log.Error("failed to set password", "user_id", userID, "error", err)
		return err
	}

	log.Info("password updated", "user_id", userID)
	return nil
}

// IsExpired reports whether the user's password is past the policy expiry.
// An account that never recorded a change counts as expired once expiry is
// enforced, which forces legacy accounts through a rotation.
// IsExpired сообщает, истёк ли пароль пользователя по сроку политики.
// Аккаунт, никогда не фиксировавший смену, считается истёкшим при
// включённом сроке, что заставляет старые аккаунты пройти ротацию.
func (s *CredentialService) IsExpired(ctx context.Context, user *domain.User) (bool, error) {
	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	if policy.PasswordExpiryDays <= 0 {
		return false, nil
	}
	if user.PasswordChangedAt == nil {
		return true, nil
	}

	expiry := user.PasswordChangedAt.Add(time.Duration(policy.PasswordExpiryDays) * 24 * time.Hour)
	return s.clk.Now().After(expiry), nil
}

// DaysUntilExpiry returns the whole days left before the password expires.
// The second result is false when the password never expires.
// DaysUntilExpiry возвращает целые дни до истечения пароля. Второй
// результат равен false, когда пароль не истекает.
func (s *CredentialService) DaysUntilExpiry(ctx context.Context, user *domain.User) (int, bool, error) {
	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return 0, false, err
	}
	if policy.PasswordExpiryDays <= 0 {
		return 0, false, nil
	}
	if user.PasswordChangedAt == nil {
		return 0, true, nil
	}

	expiry := user.PasswordChangedAt.Add(time.Duration(policy.PasswordExpiryDays) * 24 * time.Hour)
	remaining := expiry.Sub(s.clk.Now())
	if remaining <= 0 {
		return 0, true, nil
	}
	return int(remaining / (24 * time.Hour)), true, nil
}

// Validate checks a candidate against the current policy rules without
// touching stored state. Used by the public rules endpoint and signup.
// Validate проверяет кандидата по текущим правилам политики, не затрагивая
// хранимое состояние. Используется публичным эндпоинтом правил и регистрацией.
func (s *CredentialService) Validate(ctx context.Context, candidate string) (bool, []string, error) {
	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return false, nil, err
	}
	result := validator.ValidatePassword(candidate, requirementsFromPolicy(policy))
	return result.Valid, result.Errors, nil
}

// checkReuse rejects the candidate when it matches any of the newest
// historyCount hashes. The newest history record duplicates the current
// hash and is skipped; the explicit current-hash entry also covers legacy
// accounts whose password predates history keeping.
// checkReuse отклоняет кандидата, когда тот совпадает с любым из новейших
// historyCount хэшей. Новейшая запись истории дублирует текущий хэш и
// пропускается; явная запись текущего хэша также покрывает старые аккаунты,
// чей пароль старше ведения истории.
func (s *CredentialService) checkReuse(ctx context.Context, user *domain.User, candidate string, historyCount int) error {
	hashes := make([]string, 0, historyCount)
	if user.PasswordHash != "" {
		hashes = append(hashes, user.PasswordHash)
	}

	records, err := s.historyRepo.FindRecent(ctx, user.ID, historyCount)
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.Hash == user.PasswordHash {
			continue
		}
		hashes = append(hashes, record.Hash)
	}

	for _, hash := range hashes {
		match, err := passhash.Verify(candidate, hash)
		if err != nil {
			return apperror.Internal("failed to compare password history", err)
		}
		if match {
			return apperror.ValidationError(
				"password must be different from your previous "+strconv.Itoa(historyCount)+" passwords", nil)
		}
	}
	return nil
}

// requirementsFromPolicy maps the policy snapshot onto validator rules.
// requirementsFromPolicy отображает снимок политики на правила валидатора.
func requirementsFromPolicy(policy *domain.SecurityPolicy) validator.PasswordRequirements {
	return validator.PasswordRequirements{
		MinLength:        policy.PasswordMinLength,
		MaxLength:        maxPasswordLength,
		RequireUppercase: policy.PasswordRequireUpper,
		RequireLowercase: policy.PasswordRequireLower,
		RequireDigit:     policy.PasswordRequireDigit,
		RequireSpecial:   policy.PasswordRequireSpecial,
		DisallowCommon:   true,
		DisallowSequence: false,
	}
}
