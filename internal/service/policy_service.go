// Package service contains the business logic layer of the application.
// Пакет service содержит слой бизнес-логики приложения.
package service

import (
	"context"
	"sync"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// PolicyService implements port.PolicyService.
// PolicyService реализует интерфейс port.PolicyService.
//
// The policy row is read once at startup and kept in memory behind a
// read-write mutex. Readers receive a copy, so a concurrent update can
// never mutate a snapshot that a login flow is already using.
// Строка политики читается один раз при запуске и хранится в памяти за
// мьютексом чтения-записи. Читатели получают копию, поэтому параллельное
// обновление никогда не изменит снимок, который уже использует поток входа.
type PolicyService struct {
	policyRepo port.PolicyRepository // Policy storage / Хранилище политики
	audit      port.AuditService     // Audit stream / Поток аудита
	clk        clock.Clock           // Time source / Источник времени
	logger     *logger.Logger        // Logger instance / Экземпляр логгера

	mu      sync.RWMutex
	current *domain.SecurityPolicy // Published snapshot / Опубликованный снимок
}

// NewPolicyService creates a PolicyService and loads the initial snapshot.
// A missing row falls back to defaults without persisting them; the row
// appears on the first admin update.
// NewPolicyService создаёт PolicyService и загружает начальный снимок.
// Отсутствующая строка заменяется значениями по умолчанию без их
// сохранения; строка появляется при первом обновлении администратором.
func NewPolicyService(ctx context.Context, policyRepo port.PolicyRepository, audit port.AuditService, clk clock.Clock, log *logger.Logger) (*PolicyService, error) {
	s := &PolicyService{
		policyRepo: policyRepo,
		audit:      audit,
		clk:        clk,
		logger:     log.WithComponent("policy_service"),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns a copy of the current policy. Every security decision
// within one operation must use a single snapshot; a failure here fails
// closed and the caller rejects the operation.
// Snapshot возвращает копию текущей политики. Каждое решение безопасности
// в рамках одной операции должно использовать один снимок; ошибка здесь
// закрывает доступ, и вызывающий отклоняет операцию.
func (s *PolicyService) Snapshot(_ context.Context) (*domain.SecurityPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, apperror.Internal("security policy is not loaded", nil)
	}
	snap := *s.current
	return &snap, nil
}

// Update persists the new policy, bumps its version and publishes the
// fresh snapshot. In-flight operations keep their old snapshot; only
// operations starting after the publish see the new values.
// Update сохраняет новую политику, увеличивает её версию и публикует
// свежий снимок. Операции в полёте сохраняют свой старый снимок; новые
// значения видят только операции, начатые после публикации.
func (s *PolicyService) Update(ctx context.Context, updated *domain.SecurityPolicy, actorID int64, meta domain.RequestMeta) (*domain.SecurityPolicy, error) {
	log := s.logger.WithContext(ctx)

	if err := validatePolicy(updated); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevVersion := 0
	if s.current != nil {
		prevVersion = s.current.Version
	}

	updated.ID = 1
	updated.Version = prevVersion + 1
	updated.UpdatedAt = s.clk.Now()
	updated.UpdatedBy = &actorID

	if err := s.policyRepo.Save(ctx, updated); err != nil {
		log.Error("failed to save security policy", "error", err)
		return nil, err
	}

	snap := *updated
	s.current = &snap

	if err := s.audit.Record(ctx, domain.EventSettingsChanged, domain.SeverityInfo, &actorID, nil, meta, map[string]interface{}{
		"version": updated.Version,
	}); err != nil {
		log.Warn("failed to audit settings change", "error", err)
	}

	log.Info("security policy updated", "version", updated.Version, "actor_id", actorID)

	result := snap
	return &result, nil
}

// Reload re-reads the policy row and republishes the snapshot.
// Reload перечитывает строку политики и публикует снимок заново.
func (s *PolicyService) Reload(ctx context.Context) error {
	policy, err := s.policyRepo.Load(ctx)
	if err != nil {
		return err
	}
	if policy == nil {
		policy = domain.DefaultSecurityPolicy()
		s.logger.Info("no security policy row found, using defaults")
	}

	s.mu.Lock()
	s.current = policy
	s.mu.Unlock()
	return nil
}

// validatePolicy rejects values that would brick authentication.
// validatePolicy отклоняет значения, которые сломали бы аутентификацию.
func validatePolicy(p *domain.SecurityPolicy) error {
	details := map[string]interface{}{}

	if p.PasswordMinLength < 1 {
		details["password_min_length"] = "must be at least 1"
	}
	if p.MaxFailedAttempts < 1 {
		details["max_failed_attempts"] = "must be at least 1"
	}
	if p.LockoutWindowMinutes < 1 {
		details["lockout_window_minutes"] = "must be at least 1"
	}
	if p.SessionTimeoutMinutes < 0 {
		details["session_timeout_minutes"] = "must not be negative"
	}
	if p.MaxConcurrentSessions < 0 {
		details["max_concurrent_sessions"] = "must not be negative"
	}
	if p.BackupCodesCount < 1 {
		details["backup_codes_count"] = "must be at least 1"
	}
	if p.AuditRetentionDays < 1 {
		details["audit_retention_days"] = "must be at least 1"
	}
	if p.ResetTokenTTLHours < 1 {
		details["reset_token_ttl_hours"] = "must be at least 1"
	}

	if len(details) > 0 {
		return apperror.ValidationError("invalid security policy", details)
	}
	return nil
}
