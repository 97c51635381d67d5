package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// suspiciousThreshold is the number of counted failures in one window that
// flags the activity as suspicious. The flag fires once, when the count
// reaches the threshold exactly.
// suspiciousThreshold — количество учтённых неудач в одном окне, помечающее
// активность как подозрительную. Флаг срабатывает один раз, когда счётчик
// достигает порога ровно.
const suspiciousThreshold = 3

// RiskService implements port.RiskService.
// RiskService реализует интерфейс port.RiskService.
//
// Lockout state is never stored. Every check derives it from the sliding
// window over the attempt ledger, so unlock needs no scheduled job and the
// lock expiry never drifts.
// Состояние блокировки никогда не сохраняется. Каждая проверка выводит его
// из скользящего окна по журналу попыток, поэтому разблокировка не требует
// планового задания, а срок блокировки никогда не смещается.
type RiskService struct {
	attemptRepo port.LoginAttemptRepository // Failure ledger / Журнал неудач
	ipRuleRepo  port.IPRuleRepository       // Allow/deny rules / Правила allow/deny
	sessionRepo port.SessionRepository      // Fingerprint source / Источник отпечатков
	policy      port.PolicyService          // Policy snapshots / Снимки политики
	audit       port.AuditService           // Audit stream / Поток аудита
	txManager   port.Transaction            // Transaction manager / Менеджер транзакций
	clk         clock.Clock                 // Time source / Источник времени
	logger      *logger.Logger              // Logger instance / Экземпляр логгера
}

// NewRiskService creates a new RiskService instance.
// NewRiskService создаёт новый экземпляр RiskService.
func NewRiskService(
	attemptRepo port.LoginAttemptRepository,
	ipRuleRepo port.IPRuleRepository,
	sessionRepo port.SessionRepository,
	policy port.PolicyService,
	audit port.AuditService,
	txManager port.Transaction,
	clk clock.Clock,
	log *logger.Logger,
) *RiskService {
	return &RiskService{
		attemptRepo: attemptRepo,
		ipRuleRepo:  ipRuleRepo,
		sessionRepo: sessionRepo,
		policy:      policy,
		audit:       audit,
		txManager:   txManager,
		clk:         clk,
		logger:      log.WithComponent("risk_service"),
	}
}

// CheckIP rejects the address per policy. The denylist is checked first;
// an expired deny entry is ignored. When the allowlist is enforced, an
// address absent from it is rejected even if no deny rule names it.
// CheckIP отклоняет адрес согласно политике. Сначала проверяется список
// запретов; истёкшая запись запрета игнорируется. При включённом списке
// разрешений адрес, отсутствующий в нём, отклоняется, даже если ни одно
// правило запрета его не называет.
func (s *RiskService) CheckIP(ctx context.Context, ip string) error {
	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return err
	}
	now := s.clk.Now()

	if policy.IPDenylistEnforced {
		rules, err := s.ipRuleRepo.FindActiveByKind(ctx, domain.IPRuleDeny)
		if err != nil {
			return err
		}
		for i := range rules {
			if rules[i].Matches(ip, now) {
				return apperror.IPBlocked()
			}
		}
	}

	if policy.IPAllowlistEnforced {
		rules, err := s.ipRuleRepo.FindActiveByKind(ctx, domain.IPRuleAllow)
		if err != nil {
			return err
		}
		allowed := false
		for i := range rules {
			if rules[i].Matches(ip, now) {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperror.IPBlocked()
		}
	}
	return nil
}

// CheckLock computes the lock state for the username and IP. A lock exists
// when counted failures in the sliding window reach the policy threshold;
// it lifts when the oldest counted failure ages out of the window.
// CheckLock вычисляет состояние блокировки для имени и IP. Блокировка
// существует, когда учтённые неудачи в скользящем окне достигают порога
// политики; она снимается, когда старейшая учтённая неудача выходит из окна.
func (s *RiskService) CheckLock(ctx context.Context, username, ip string) (*port.LockState, error) {
	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	window := policy.LockoutWindow()
	since := s.clk.Now().Add(-window)
	threshold := int64(policy.MaxFailedAttempts)

	byUser, err := s.attemptRepo.CountByUsername(ctx, username, since)
	if err != nil {
		return nil, err
	}
	if byUser >= threshold {
		oldest, err := s.attemptRepo.OldestCountedByUsername(ctx, username, since)
		if err != nil {
			return nil, err
		}
		state := &port.LockState{Locked: true, Failures: byUser}
		if oldest != nil {
			state.UnlockAt = oldest.Add(window)
		}
		return state, nil
	}

	byIP, err := s.attemptRepo.CountByIP(ctx, ip, since)
	if err != nil {
		return nil, err
	}
	if byIP >= threshold {
		oldest, err := s.attemptRepo.OldestCountedByIP(ctx, ip, since)
		if err != nil {
			return nil, err
		}
		state := &port.LockState{Locked: true, Failures: byIP}
		if oldest != nil {
			state.UnlockAt = oldest.Add(window)
		}
		return state, nil
	}

	return &port.LockState{Locked: false, Failures: byUser}, nil
}

// RecordFailure appends the attempt and re-evaluates the lock in one
// transaction, so two concurrent failures cannot both miss the threshold.
// Only counted reasons move the counter; rejections during an active lock
// are recorded for audit but never extend the lock.
// RecordFailure добавляет попытку и переоценивает блокировку в одной
// транзакции, чтобы две параллельные неудачи не могли обе пропустить
// порог. Счётчик двигают только учитываемые причины; отказы во время
// активной блокировки записываются для аудита, но блокировку не продлевают.
func (s *RiskService) RecordFailure(ctx context.Context, username, reason string, meta domain.RequestMeta) (*port.FailureOutcome, error) {
	log := s.logger.WithContext(ctx)

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	window := policy.LockoutWindow()
	now := s.clk.Now()
	since := now.Add(-window)
	threshold := int64(policy.MaxFailedAttempts)

	outcome := &port.FailureOutcome{}
	counted := reason == domain.FailReasonInvalidPassword || reason == domain.FailReasonInvalidUsername

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		attempt := &domain.FailedLoginAttempt{
			Username:  username,
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			Reason:    reason,
			CreatedAt: now,
		}
		if err := s.attemptRepo.CreateTx(ctx, tx, attempt); err != nil {
			return err
		}
		if !counted {
			return nil
		}

		byUser, err := s.attemptRepo.CountByUsernameTx(ctx, tx, username, since)
		if err != nil {
			return err
		}
		byIP, err := s.attemptRepo.CountByIPTx(ctx, tx, meta.IP, since)
		if err != nil {
			return err
		}

		outcome.Failures = byUser
		outcome.NewlyLocked = byUser == threshold || byIP == threshold
		outcome.Suspicious = byUser == suspiciousThreshold
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.NewlyLocked {
		oldest, err := s.attemptRepo.OldestCountedByUsername(ctx, username, since)
		if err != nil {
			return nil, err
		}
		if oldest == nil {
			oldest, err = s.attemptRepo.OldestCountedByIP(ctx, meta.IP, since)
			if err != nil {
				return nil, err
			}
		}
		if oldest != nil {
			outcome.UnlockAt = oldest.Add(window)
		} else {
			outcome.UnlockAt = now.Add(window)
		}
		log.LogLockout(username, int(outcome.Failures), outcome.UnlockAt)
	}

	return outcome, nil
}

// IsKnownDevice reports whether the fingerprint was ever seen in a session
// of the user. Expired sessions count: the device itself is still known.
// IsKnownDevice сообщает, встречался ли отпечаток в какой-либо сессии
// пользователя. Истёкшие сессии учитываются: само устройство всё ещё известно.
func (s *RiskService) IsKnownDevice(ctx context.Context, userID int64, fingerprint string) (bool, error) {
	return s.sessionRepo.HasFingerprint(ctx, userID, fingerprint)
}

// ClearFailures wipes the ledger for a username, lifting any lock
// immediately, and audits account_unlocked under the acting admin.
// ClearFailures очищает журнал для имени, немедленно снимая блокировку, и
// записывает account_unlocked в аудит от имени действующего администратора.
func (s *RiskService) ClearFailures(ctx context.Context, username string, actorID int64, meta domain.RequestMeta) (int64, error) {
	log := s.logger.WithContext(ctx)

	removed, err := s.attemptRepo.DeleteByUsername(ctx, username)
	if err != nil {
		return 0, err
	}

	if err := s.audit.Record(ctx, domain.EventAccountUnlocked, domain.SeverityInfo, &actorID, nil, meta, map[string]interface{}{
		"username":         username,
		"attempts_cleared": removed,
	}); err != nil {
		log.Warn("failed to audit account unlock", "error", err)
	}

	log.Info("login failures cleared", "username", username, "removed", removed, "actor_id", actorID)
	return removed, nil
}
