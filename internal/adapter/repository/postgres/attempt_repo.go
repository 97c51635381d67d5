// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// countedReasons are the failure reasons that feed the lockout window.
// Rejections issued while a lock is already active (account_locked and the
// rest) are still recorded but never counted, so a lock cannot extend
// itself.
// countedReasons — причины неудач, питающие окно блокировки. Отказы,
// выданные при уже активной блокировке (account_locked и остальные),
// по-прежнему записываются, но никогда не учитываются, поэтому блокировка
// не может продлить саму себя.
var countedReasons = []string{
	domain.FailReasonInvalidPassword,
	domain.FailReasonInvalidUsername,
}

// LoginAttemptRepository implements port.LoginAttemptRepository using
// PostgreSQL.
// LoginAttemptRepository реализует интерфейс port.LoginAttemptRepository с
// использованием PostgreSQL.
type LoginAttemptRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository instance.
// NewLoginAttemptRepository создаёт новый экземпляр LoginAttemptRepository.
func NewLoginAttemptRepository(db *gorm.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// CreateTx appends an attempt within an existing transaction.
// CreateTx добавляет попытку в рамках существующей транзакции.
func (r *LoginAttemptRepository) CreateTx(ctx context.Context, tx *gorm.DB, attempt *domain.FailedLoginAttempt) error {
	attempt.Username = strings.ToLower(attempt.Username)
	if err := tx.WithContext(ctx).Create(attempt).Error; err != nil {
		return apperror.Internal("failed to record login attempt", err)
	}
	return nil
}

// CountByUsernameTx counts credential failures for a username after since
// inside the given transaction.
// CountByUsernameTx считает неудачи по учётным данным для имени после
// since внутри данной транзакции.
func (r *LoginAttemptRepository) CountByUsernameTx(ctx context.Context, tx *gorm.DB, username string, since time.Time) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&domain.FailedLoginAttempt{}).
		Where("username = ? AND reason IN ? AND created_at >= ?", strings.ToLower(username), countedReasons, since).
		Count(&count).Error

	if err != nil {
		return 0, apperror.Internal("failed to count attempts by username", err)
	}
	return count, nil
}

// CountByIPTx counts credential failures from an IP after since inside the
// given transaction.
// CountByIPTx считает неудачи по учётным данным с IP после since внутри
// данной транзакции.
func (r *LoginAttemptRepository) CountByIPTx(ctx context.Context, tx *gorm.DB, ip string, since time.Time) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&domain.FailedLoginAttempt{}).
		Where("ip = ? AND reason IN ? AND created_at >= ?", ip, countedReasons, since).
		Count(&count).Error

	if err != nil {
		return 0, apperror.Internal("failed to count attempts by ip", err)
	}
	return count, nil
}

// CountByUsername counts credential failures outside a transaction.
// CountByUsername считает неудачи по учётным данным вне транзакции.
func (r *LoginAttemptRepository) CountByUsername(ctx context.Context, username string, since time.Time) (int64, error) {
	return r.CountByUsernameTx(ctx, r.db, username, since)
}

// CountByIP counts credential failures from an IP outside a transaction.
// CountByIP считает неудачи с IP вне транзакции.
func (r *LoginAttemptRepository) CountByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	return r.CountByIPTx(ctx, r.db, ip, since)
}

// OldestCountedByUsername returns the creation time of the oldest counted
// failure for the username after since, nil if none. The lock window is
// anchored to this moment.
// OldestCountedByUsername возвращает время создания старейшей учитываемой
// неудачи для имени после since, nil если таких нет. Окно блокировки
// привязано к этому моменту.
func (r *LoginAttemptRepository) OldestCountedByUsername(ctx context.Context, username string, since time.Time) (*time.Time, error) {
	var attempt domain.FailedLoginAttempt
	err := r.db.WithContext(ctx).
		Where("username = ? AND reason IN ? AND created_at >= ?", strings.ToLower(username), countedReasons, since).
		Order("created_at ASC").
		First(&attempt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal("failed to find oldest attempt", err)
	}
	return &attempt.CreatedAt, nil
}

// OldestCountedByIP returns the creation time of the oldest counted
// failure from the IP after since, nil if none.
// OldestCountedByIP возвращает время создания старейшей учитываемой
// неудачи с IP после since, nil если таких нет.
func (r *LoginAttemptRepository) OldestCountedByIP(ctx context.Context, ip string, since time.Time) (*time.Time, error) {
	var attempt domain.FailedLoginAttempt
	err := r.db.WithContext(ctx).
		Where("ip = ? AND reason IN ? AND created_at >= ?", ip, countedReasons, since).
		Order("created_at ASC").
		First(&attempt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal("failed to find oldest attempt", err)
	}
	return &attempt.CreatedAt, nil
}

// DeleteByUsername clears the ledger for a username (admin unlock).
// DeleteByUsername очищает журнал для имени (разблокировка админом).
func (r *LoginAttemptRepository) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(username)).
		Delete(&domain.FailedLoginAttempt{})

	if result.Error != nil {
		return 0, apperror.Internal("failed to clear login attempts", result.Error)
	}
	return result.RowsAffected, nil
}
