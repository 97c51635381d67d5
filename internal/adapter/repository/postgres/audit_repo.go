// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// AuditRepository implements port.AuditRepository using PostgreSQL.
// AuditRepository реализует интерфейс port.AuditRepository с использованием PostgreSQL.
//
// Events are append-only: no update path exists. Retention deletion is the
// single sanctioned removal.
// События только добавляются: пути обновления нет. Удаление по сроку
// хранения — единственное разрешённое удаление.
type AuditRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewAuditRepository creates a new AuditRepository instance.
// NewAuditRepository создаёт новый экземпляр AuditRepository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create persists an audit event.
// Create сохраняет событие аудита.
func (r *AuditRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	return r.CreateTx(ctx, r.db, event)
}

// CreateTx persists an audit event within an existing transaction.
// CreateTx сохраняет событие аудита в рамках существующей транзакции.
// Use this when logging must be part of a larger atomic operation.
// Используйте, когда логирование должно быть частью большой атомарной операции.
func (r *AuditRepository) CreateTx(ctx context.Context, tx *gorm.DB, event *domain.AuditEvent) error {
	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		return apperror.Internal("failed to create audit event", err)
	}
	return nil
}

// List reads events matching the filter, newest first, with a total count.
// List читает события по фильтру, сначала новейшие, с общим количеством.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	var events []domain.AuditEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.AuditEvent{})

	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.TargetID != nil {
		query = query.Where("target_id = ?", *filter.TargetID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count audit events", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error

	if err != nil {
		return nil, 0, apperror.Internal("failed to list audit events", err)
	}
	return events, total, nil
}

// FindByActor retrieves recent events where the user acted, optionally
// narrowed to one event type.
// FindByActor получает последние события, где пользователь действовал,
// опционально суженные до одного типа события.
func (r *AuditRepository) FindByActor(ctx context.Context, actorID int64, eventType string, limit int) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent

	query := r.db.WithContext(ctx).Where("actor_id = ?", actorID)
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, apperror.Internal("failed to find audit events by actor", err)
	}
	return events, nil
}

// DeleteOlderThan removes events created before the cutoff.
// DeleteOlderThan удаляет события, созданные до cutoff.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.AuditEvent{})

	if result.Error != nil {
		return 0, apperror.Internal("failed to delete expired audit events", result.Error)
	}
	return result.RowsAffected, nil
}
