package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// AuditService implements port.AuditService.
// AuditService реализует интерфейс port.AuditService.
//
// Ingestion is conditional: the policy log flags decide whether routine
// logins, failed logins and admin actions are persisted. Critical events
// bypass the flags and are always recorded.
// Приём условный: флаги журнала политики решают, сохраняются ли обычные
// входы, неудачные входы и действия администраторов. Критические события
// обходят флаги и записываются всегда.
type AuditService struct {
	auditRepo port.AuditRepository // Event storage / Хранилище событий
	clk       clock.Clock          // Time source / Источник времени
	logger    *logger.Logger       // Logger instance / Экземпляр логгера

	// policy is bound after construction: the policy service audits its
	// own updates, so the two reference each other.
	// policy привязывается после создания: сервис политики записывает свои
	// обновления в аудит, поэтому они ссылаются друг на друга.
	policy port.PolicyService
}

// NewAuditService creates a new AuditService instance. Call BindPolicy
// once the policy service exists; until then every event is recorded.
// NewAuditService создаёт новый экземпляр AuditService. Вызовите
// BindPolicy, когда сервис политики создан; до этого записываются все
// события.
func NewAuditService(auditRepo port.AuditRepository, clk clock.Clock, log *logger.Logger) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		clk:       clk,
		logger:    log.WithComponent("audit_service"),
	}
}

// BindPolicy attaches the policy service that drives conditional ingestion.
// BindPolicy подключает сервис политики, управляющий условным приёмом.
func (s *AuditService) BindPolicy(policy port.PolicyService) {
	s.policy = policy
}

// Record applies the ingestion rules and persists the event.
// Record применяет правила приёма и сохраняет событие.
func (s *AuditService) Record(ctx context.Context, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error {
	event, skip, err := s.prepare(ctx, eventType, severity, actorID, targetID, meta, details)
	if err != nil || skip {
		return err
	}
	return s.auditRepo.Create(ctx, event)
}

// RecordTx records an event within an existing transaction, for events
// that must commit atomically with the state change they describe.
// RecordTx записывает событие в рамках существующей транзакции, для
// событий, которые должны фиксироваться атомарно с описываемым изменением.
func (s *AuditService) RecordTx(ctx context.Context, tx *gorm.DB, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error {
	event, skip, err := s.prepare(ctx, eventType, severity, actorID, targetID, meta, details)
	if err != nil || skip {
		return err
	}
	return s.auditRepo.CreateTx(ctx, tx, event)
}

// List reads events matching the filter with a total count.
// List читает события по фильтру с общим количеством.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	return s.auditRepo.List(ctx, filter)
}

// LoginHistory returns the user's recent successful logins, newest first.
// LoginHistory возвращает последние успешные входы пользователя, сначала новейшие.
func (s *AuditService) LoginHistory(ctx context.Context, userID int64, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 20 // Default limit / Лимит по умолчанию
	}
	return s.auditRepo.FindByActor(ctx, userID, domain.EventLoginSuccess, limit)
}

// CleanupExpired deletes events older than the policy retention and
// records a summary event so the removal itself leaves a trace.
// CleanupExpired удаляет события старше срока хранения политики и
// записывает итоговое событие, чтобы само удаление оставило след.
func (s *AuditService) CleanupExpired(ctx context.Context) (int64, error) {
	log := s.logger.WithContext(ctx)

	retentionDays := domain.DefaultSecurityPolicy().AuditRetentionDays
	if s.policy != nil {
		policy, err := s.policy.Snapshot(ctx)
		if err != nil {
			return 0, err
		}
		retentionDays = policy.AuditRetentionDays
	}

	cutoff := s.clk.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	removed, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		if err := s.Record(ctx, domain.EventSettingsChanged, domain.SeverityInfo, nil, nil, domain.RequestMeta{}, map[string]interface{}{
			"action":         "audit_retention_cleanup",
			"events_removed": removed,
			"retention_days": retentionDays,
		}); err != nil {
			log.Warn("failed to record retention cleanup", "error", err)
		}
		log.Info("expired audit events removed", "count", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// prepare evaluates the ingestion rules and builds the storage row. The
// second result is true when the event is filtered out by policy.
// prepare оценивает правила приёма и формирует строку для хранения.
// Второй результат равен true, когда событие отфильтровано политикой.
func (s *AuditService) prepare(ctx context.Context, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) (*domain.AuditEvent, bool, error) {
	log := s.logger.WithContext(ctx)

	record, err := s.shouldRecord(ctx, eventType, severity)
	if err != nil {
		return nil, false, err
	}
	if !record {
		return nil, true, nil
	}

	var detailsJSON json.RawMessage
	if details != nil {
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			log.Error("failed to marshal audit details", "error", err)
			return nil, false, apperror.Internal("failed to marshal audit details", err)
		}
	}

	var ipPtr, uaPtr *string
	if meta.IP != "" {
		ip := meta.IP
		ipPtr = &ip
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		uaPtr = &ua
	}

	return &domain.AuditEvent{
		EventType: eventType,
		Severity:  severity,
		ActorID:   actorID,
		TargetID:  targetID,
		IP:        ipPtr,
		UserAgent: uaPtr,
		Details:   detailsJSON,
		CreatedAt: s.clk.Now(),
	}, false, nil
}

// shouldRecord applies the policy log flags. Events of a critical type or
// recorded at critical severity always pass; everything the flags do not
// name is recorded too.
// shouldRecord применяет флаги журнала политики. События критического типа
// или записанные с критической серьёзностью проходят всегда; всё, что
// флаги не называют, тоже записывается.
func (s *AuditService) shouldRecord(ctx context.Context, eventType, severity string) (bool, error) {
	if domain.IsCriticalEvent(eventType) || severity == domain.SeverityCritical {
		return true, nil
	}
	if s.policy == nil {
		return true, nil
	}

	policy, err := s.policy.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	switch {
	case eventType == domain.EventLoginSuccess:
		return policy.LogAllLogins, nil
	case eventType == domain.EventLoginFailed:
		return policy.LogFailedLogins, nil
	case domain.IsAdminEvent(eventType):
		return policy.LogAdminActions, nil
	default:
		return true, nil
	}
}
