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
	"github.com/andrewhigh08/account-core/internal/pkg/random"
	"github.com/andrewhigh08/account-core/internal/port"
)

// sessionHardTTL is the absolute session lifetime, matching the cookie
// max-age. Idle timeout from the policy applies on top of it.
// sessionHardTTL — абсолютное время жизни сессии, совпадающее с max-age
// cookie. Таймаут простоя из политики применяется поверх него.
const sessionHardTTL = 14 * 24 * time.Hour

// SessionService implements port.SessionService.
// SessionService реализует интерфейс port.SessionService.
//
// Session keys are opaque 40-character hex strings from the CSPRNG. The
// concurrency cap and single-session mode are enforced inside a
// row-locked transaction, so racing logins cannot exceed the cap.
// Ключи сессий — непрозрачные 40-символьные hex-строки из CSPRNG. Лимит
// одновременности и режим одной сессии применяются внутри транзакции с
// блокировкой строк, поэтому гонка входов не может превысить лимит.
type SessionService struct {
	sessionRepo port.SessionRepository // Session storage / Хранилище сессий
	policy      port.PolicyService     // Policy snapshots / Снимки политики
	audit       port.AuditService      // Audit stream / Поток аудита
	txManager   port.Transaction       // Transaction manager / Менеджер транзакций
	clk         clock.Clock            // Time source / Источник времени
	logger      *logger.Logger         // Logger instance / Экземпляр логгера
}

// NewSessionService creates a new SessionService instance.
// NewSessionService создаёт новый экземпляр SessionService.
func NewSessionService(
	sessionRepo port.SessionRepository,
	policy port.PolicyService,
	audit port.AuditService,
	txManager port.Transaction,
	clk clock.Clock,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		policy:      policy,
		audit:       audit,
		txManager:   txManager,
		clk:         clk,
		logger:      log.WithComponent("session_service"),
	}
}

// Create opens a session for the user. Single-session mode terminates all
// prior sessions; otherwise the concurrency cap evicts the least recently
// active sessions until the new one fits.
// Create открывает сессию для пользователя. Режим одной сессии завершает
// все предыдущие сессии; иначе лимит одновременности вытесняет наименее
// активные сессии, пока новая не поместится.
func (s *SessionService) Create(ctx context.Context, user *domain.User, meta domain.RequestMeta) (*domain.Session, error) {
	log := s.logger.WithContext(ctx)

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key, err := random.Hex(domain.SessionKeyLength / 2)
	if err != nil {
		return nil, apperror.Internal("failed to generate session key", err)
	}

	now := s.clk.Now()
	expiresAt := now.Add(sessionHardTTL)
	device := meta.Device()

	session := &domain.Session{
		Key:          key,
		UserID:       user.ID,
		DeviceName:   device.Name,
		DeviceType:   device.Type,
		Browser:      device.Browser,
		OS:           device.OS,
		Fingerprint:  device.Fingerprint(),
		IP:           meta.IP,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    &expiresAt,
	}

	err = s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.sessionRepo.FindActiveByUserTx(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if policy.SingleSession {
			for i := range existing {
				if _, err := s.sessionRepo.DeleteByKeyTx(ctx, tx, existing[i].Key); err != nil {
					return err
				}
			}
		} else if policy.MaxConcurrentSessions > 0 {
			// existing is ordered by last activity descending; evict from
			// the tail until the new session fits under the cap.
			// existing упорядочен по убыванию активности; вытесняем с
			// хвоста, пока новая сессия не поместится под лимит.
			for len(existing) >= policy.MaxConcurrentSessions {
				victim := existing[len(existing)-1]
				if _, err := s.sessionRepo.DeleteByKeyTx(ctx, tx, victim.Key); err != nil {
					return err
				}
				existing = existing[:len(existing)-1]
			}
		}

		return s.sessionRepo.CreateTx(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, domain.EventSessionCreated, domain.SeverityInfo, &user.ID, nil, meta, map[string]interface{}{
		"device_type": device.Type,
		"browser":     device.Browser,
		"os":          device.OS,
	}); err != nil {
		log.Warn("failed to audit session creation", "error", err)
	}

	log.Info("session created", "user_id", user.ID, "device_type", device.Type)
	return session, nil
}

// Resolve returns the live session for the key, nil when unknown,
// terminated or expired. Hard-expired and idle-timed-out sessions are
// deleted on sight; a live session has its activity touched.
// Resolve возвращает живую сессию по ключу, nil если ключ неизвестен,
// завершён или истёк. Жёстко истёкшие и простоявшие сессии удаляются при
// обнаружении; у живой сессии обновляется активность.
func (s *SessionService) Resolve(ctx context.Context, key string) (*domain.Session, error) {
	session, err := s.sessionRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	if s.isDead(session, policy, now) {
		if _, err := s.sessionRepo.DeleteByKey(ctx, key); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.sessionRepo.Touch(ctx, key, now); err != nil {
		return nil, err
	}
	session.LastActivity = now
	return session, nil
}

// Terminate removes the session and audits session_terminated. Missing
// keys are reported as not found.
// Terminate удаляет сессию и записывает session_terminated в аудит.
// Отсутствующие ключи возвращаются как не найденные.
func (s *SessionService) Terminate(ctx context.Context, key string, actorID int64, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	existed, err := s.sessionRepo.DeleteByKey(ctx, key)
	if err != nil {
		return err
	}
	if !existed {
		return apperror.NotFound("session", key)
	}

	if err := s.audit.Record(ctx, domain.EventSessionTerminated, domain.SeverityInfo, &actorID, nil, meta, nil); err != nil {
		log.Warn("failed to audit session termination", "error", err)
	}

	log.Info("session terminated", "actor_id", actorID)
	return nil
}

// TerminateOthers removes every session of the user except currentKey and
// audits the bulk termination with the removed count.
// TerminateOthers удаляет все сессии пользователя, кроме currentKey, и
// записывает массовое завершение с количеством удалённых в аудит.
func (s *SessionService) TerminateOthers(ctx context.Context, userID int64, currentKey string, meta domain.RequestMeta) (int64, error) {
	log := s.logger.WithContext(ctx)

	removed, err := s.sessionRepo.DeleteOthers(ctx, userID, currentKey)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		if err := s.audit.Record(ctx, domain.EventSessionsTerminatedAll, domain.SeverityInfo, &userID, nil, meta, map[string]interface{}{
			"terminated": removed,
		}); err != nil {
			log.Warn("failed to audit bulk session termination", "error", err)
		}
	}

	log.Info("other sessions terminated", "user_id", userID, "removed", removed)
	return removed, nil
}

// List returns the user's live sessions decorated for display, most
// recently active first. Dead sessions are skipped, not deleted: the
// cleanup pass owns removal.
// List возвращает живые сессии пользователя для отображения, сначала
// недавно активные. Мёртвые сессии пропускаются, а не удаляются: за
// удаление отвечает проход очистки.
func (s *SessionService) List(ctx context.Context, userID int64, currentKey string) ([]port.SessionView, error) {
	sessions, err := s.sessionRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	views := make([]port.SessionView, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		if s.isDead(session, policy, now) {
			continue
		}
		views = append(views, port.SessionView{
			Key:          session.Key,
			DeviceName:   session.DeviceName,
			DeviceType:   session.DeviceType,
			IP:           session.IP,
			Location:     session.Location,
			CreatedAt:    session.CreatedAt,
			LastActivity: session.LastActivity,
			LastSeen:     humanizeSince(now.Sub(session.LastActivity)),
			IsCurrent:    session.Key == currentKey,
		})
	}
	return views, nil
}

// CleanupStale removes idle and hard-expired sessions in one pass.
// CleanupStale удаляет простаивающие и жёстко истёкшие сессии за один проход.
func (s *SessionService) CleanupStale(ctx context.Context) (int64, error) {
	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clk.Now()
	// With no idle timeout the inactivity cutoff matches nothing and only
	// hard expiry applies.
	// Без таймаута простоя порог неактивности ничему не соответствует и
	// действует только жёсткое истечение.
	var inactiveSince time.Time
	if policy.SessionTimeoutMinutes > 0 {
		inactiveSince = now.Add(-policy.SessionTimeout())
	}

	removed, err := s.sessionRepo.DeleteStale(ctx, inactiveSince, now)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("stale sessions removed", "count", removed)
	}
	return removed, nil
}

// isDead reports whether the session passed its hard expiry or the policy
// idle timeout.
// isDead сообщает, прошла ли сессия жёсткое истечение или таймаут простоя
// политики.
func (s *SessionService) isDead(session *domain.Session, policy *domain.SecurityPolicy, now time.Time) bool {
	if session.IsExpired(now) {
		return true
	}
	if policy.SessionTimeoutMinutes > 0 && now.Sub(session.LastActivity) > policy.SessionTimeout() {
		return true
	}
	return false
}

// humanizeSince renders an inactivity duration for the session list.
// humanizeSince форматирует длительность неактивности для списка сессий.
func humanizeSince(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + " minutes ago"
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + " hours ago"
	case d < 48*time.Hour:
		return "1 day ago"
	default:
		return strconv.Itoa(int(d.Hours()/24)) + " days ago"
	}
}
