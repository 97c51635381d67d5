// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// TwoFactorRepository implements port.TwoFactorRepository using PostgreSQL.
// TwoFactorRepository реализует интерфейс port.TwoFactorRepository с
// использованием PostgreSQL.
type TwoFactorRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewTwoFactorRepository creates a new TwoFactorRepository instance.
// NewTwoFactorRepository создаёт новый экземпляр TwoFactorRepository.
func NewTwoFactorRepository(db *gorm.DB) *TwoFactorRepository {
	return &TwoFactorRepository{db: db}
}

// FindDevice returns the user's TOTP device, nil if none exists.
// FindDevice возвращает TOTP-устройство пользователя, nil если его нет.
func (r *TwoFactorRepository) FindDevice(ctx context.Context, userID int64) (*domain.TOTPDevice, error) {
	var device domain.TOTPDevice
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&device).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal("failed to find totp device", err)
	}
	return &device, nil
}

// SaveDevice creates or replaces the user's TOTP device. The unique index
// on user_id turns re-enrollment into an upsert of the fresh secret.
// SaveDevice создаёт или заменяет TOTP-устройство пользователя. Уникальный
// индекс по user_id превращает повторную регистрацию в upsert свежего
// секрета.
func (r *TwoFactorRepository) SaveDevice(ctx context.Context, device *domain.TOTPDevice) error {
	return r.saveDevice(ctx, r.db, device)
}

// SaveDeviceTx creates or replaces the device within a transaction, so the
// provisional device and its backup code set commit together.
// SaveDeviceTx создаёт или заменяет устройство в рамках транзакции, чтобы
// предварительное устройство и его набор резервных кодов фиксировались
// вместе.
func (r *TwoFactorRepository) SaveDeviceTx(ctx context.Context, tx *gorm.DB, device *domain.TOTPDevice) error {
	return r.saveDevice(ctx, tx, device)
}

func (r *TwoFactorRepository) saveDevice(ctx context.Context, db *gorm.DB, device *domain.TOTPDevice) error {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"secret", "verified", "last_used_at", "created_at"}),
		}).
		Create(device).Error

	if err != nil {
		return apperror.Internal("failed to save totp device", err)
	}
	return nil
}

// UpdateDevice persists changes to an existing device.
// UpdateDevice сохраняет изменения существующего устройства.
func (r *TwoFactorRepository) UpdateDevice(ctx context.Context, device *domain.TOTPDevice) error {
	result := r.db.WithContext(ctx).Save(device)
	if result.Error != nil {
		return apperror.Internal("failed to update totp device", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("totp device", device.ID)
	}
	return nil
}

// DeleteDevice removes the user's TOTP device.
// DeleteDevice удаляет TOTP-устройство пользователя.
func (r *TwoFactorRepository) DeleteDevice(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.TOTPDevice{}).Error

	if err != nil {
		return apperror.Internal("failed to delete totp device", err)
	}
	return nil
}

// ReplaceBackupCodesTx atomically replaces the user's backup code set
// within a transaction: the previous set is invalidated in full before the
// new hashes are inserted.
// ReplaceBackupCodesTx атомарно заменяет набор резервных кодов пользователя
// в рамках транзакции: предыдущий набор полностью аннулируется до вставки
// новых хэшей.
func (r *TwoFactorRepository) ReplaceBackupCodesTx(ctx context.Context, tx *gorm.DB, userID int64, codes []domain.BackupCode) error {
	if err := tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.BackupCode{}).Error; err != nil {
		return apperror.Internal("failed to invalidate backup codes", err)
	}

	if len(codes) == 0 {
		return nil
	}

	if err := tx.WithContext(ctx).Create(&codes).Error; err != nil {
		return apperror.Internal("failed to create backup codes", err)
	}
	return nil
}

// FindUnusedBackupCodes returns the user's unconsumed backup codes.
// FindUnusedBackupCodes возвращает неиспользованные резервные коды пользователя.
func (r *TwoFactorRepository) FindUnusedBackupCodes(ctx context.Context, userID int64) ([]domain.BackupCode, error) {
	var codes []domain.BackupCode

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND used = ?", userID, false).
		Find(&codes).Error

	if err != nil {
		return nil, apperror.Internal("failed to find backup codes", err)
	}
	return codes, nil
}

// MarkBackupCodeUsed marks a code consumed. The used = false guard makes
// consumption race-safe: only one concurrent verify can win the row.
// MarkBackupCodeUsed помечает код использованным. Условие used = false
// делает потребление безопасным при гонках: только одна параллельная
// проверка может выиграть строку.
func (r *TwoFactorRepository) MarkBackupCodeUsed(ctx context.Context, codeID int64, usedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.BackupCode{}).
		Where("id = ? AND used = ?", codeID, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": usedAt,
		})

	if result.Error != nil {
		return apperror.Internal("failed to mark backup code used", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("backup code", codeID)
	}
	return nil
}

// DeleteBackupCodes removes every backup code of the user.
// DeleteBackupCodes удаляет все резервные коды пользователя.
func (r *TwoFactorRepository) DeleteBackupCodes(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.BackupCode{}).Error

	if err != nil {
		return apperror.Internal("failed to delete backup codes", err)
	}
	return nil
}
