// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// IPRuleRepository implements port.IPRuleRepository using PostgreSQL.
// IPRuleRepository реализует интерфейс port.IPRuleRepository с
// использованием PostgreSQL.
type IPRuleRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewIPRuleRepository creates a new IPRuleRepository instance.
// NewIPRuleRepository создаёт новый экземпляр IPRuleRepository.
func NewIPRuleRepository(db *gorm.DB) *IPRuleRepository {
	return &IPRuleRepository{db: db}
}

// Create inserts a rule.
// Create вставляет правило.
func (r *IPRuleRepository) Create(ctx context.Context, rule *domain.IPRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return apperror.Internal("failed to create ip rule", err)
	}
	return nil
}

// FindActiveByKind returns active rules of the given kind. Expiry of deny
// rules is evaluated by the caller against the injected clock.
// FindActiveByKind возвращает активные правила заданного вида. Истечение
// правил запрета оценивается вызывающим по внедрённым часам.
func (r *IPRuleRepository) FindActiveByKind(ctx context.Context, kind string) ([]domain.IPRule, error) {
	var rules []domain.IPRule

	err := r.db.WithContext(ctx).
		Where("kind = ? AND is_active = ?", kind, true).
		Find(&rules).Error

	if err != nil {
		return nil, apperror.Internal("failed to find ip rules", err)
	}
	return rules, nil
}

// ListByKind returns every rule of the kind, newest first.
// ListByKind возвращает все правила вида, сначала новейшие.
func (r *IPRuleRepository) ListByKind(ctx context.Context, kind string) ([]domain.IPRule, error) {
	var rules []domain.IPRule

	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at DESC").
		Find(&rules).Error

	if err != nil {
		return nil, apperror.Internal("failed to list ip rules", err)
	}
	return rules, nil
}

// Delete removes a rule by id, returning whether it existed.
// Delete удаляет правило по id, сообщая, существовало ли оно.
func (r *IPRuleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.IPRule{}, id)
	if result.Error != nil {
		return false, apperror.Internal("failed to delete ip rule", result.Error)
	}
	return result.RowsAffected > 0, nil
}
