// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// PasswordHistoryRepository implements port.PasswordHistoryRepository
// using PostgreSQL.
// PasswordHistoryRepository реализует интерфейс port.PasswordHistoryRepository
// с использованием PostgreSQL.
type PasswordHistoryRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewPasswordHistoryRepository creates a new PasswordHistoryRepository instance.
// NewPasswordHistoryRepository создаёт новый экземпляр PasswordHistoryRepository.
func NewPasswordHistoryRepository(db *gorm.DB) *PasswordHistoryRepository {
	return &PasswordHistoryRepository{db: db}
}

// CreateTx appends a retired hash within an existing transaction.
// CreateTx добавляет устаревший хэш в рамках существующей транзакции.
func (r *PasswordHistoryRepository) CreateTx(ctx context.Context, tx *gorm.DB, record *domain.PasswordRecord) error {
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		return apperror.Internal("failed to create password record", err)
	}
	return nil
}

// FindRecent returns the newest count records for a user, newest first.
// FindRecent возвращает новейшие count записей пользователя, начиная с новейшей.
func (r *PasswordHistoryRepository) FindRecent(ctx context.Context, userID int64, count int) ([]domain.PasswordRecord, error) {
	var records []domain.PasswordRecord

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(count).
		Find(&records).Error

	if err != nil {
		return nil, apperror.Internal("failed to find password records", err)
	}
	return records, nil
}

// TrimTx deletes all but the newest keep records within a transaction.
// TrimTx удаляет все записи, кроме новейших keep, в рамках транзакции.
func (r *PasswordHistoryRepository) TrimTx(ctx context.Context, tx *gorm.DB, userID int64, keep int) error {
	if keep < 0 {
		keep = 0
	}

	// Delete by anti-join on the newest keep ids; a subquery keeps this one
	// round trip.
	// Удаление анти-соединением по новейшим keep id; подзапрос сохраняет
	// одну поездку к базе.
	sub := tx.WithContext(ctx).
		Model(&domain.PasswordRecord{}).
		Select("id").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(keep)

	err := tx.WithContext(ctx).
		Where("user_id = ? AND id NOT IN (?)", userID, sub).
		Delete(&domain.PasswordRecord{}).Error

	if err != nil {
		return apperror.Internal("failed to trim password history", err)
	}
	return nil
}
