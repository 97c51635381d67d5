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

// SessionRepository implements port.SessionRepository using PostgreSQL.
// SessionRepository реализует интерфейс port.SessionRepository с
// использованием PostgreSQL.
type SessionRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewSessionRepository creates a new SessionRepository instance.
// NewSessionRepository создаёт новый экземпляр SessionRepository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateTx inserts a session within an existing transaction.
// CreateTx вставляет сессию в рамках существующей транзакции.
func (r *SessionRepository) CreateTx(ctx context.Context, tx *gorm.DB, session *domain.Session) error {
	if err := tx.WithContext(ctx).Create(session).Error; err != nil {
		if isDuplicateKeyError(err) {
			// Key collision on a 40-char random key is practically a bug.
			// Коллизия 40-символьного случайного ключа практически баг.
			return apperror.Conflict("session", "key", session.Key)
		}
		return apperror.Internal("failed to create session", err)
	}
	return nil
}

// FindByKey returns the session with the given key, nil if absent.
// FindByKey возвращает сессию с данным ключом, nil если отсутствует.
func (r *SessionRepository) FindByKey(ctx context.Context, key string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal("failed to find session", err)
	}
	return &session, nil
}

// FindActiveByUserTx lists the user's sessions inside a transaction with
// FOR UPDATE row locks, ordered by last activity descending. The lock
// serializes concurrent session creation so the concurrency cap holds.
// FindActiveByUserTx перечисляет сессии пользователя внутри транзакции с
// блокировками строк FOR UPDATE, упорядоченные по убыванию активности.
// Блокировка сериализует параллельное создание сессий, поэтому лимит
// одновременности сохраняется.
func (r *SessionRepository) FindActiveByUserTx(ctx context.Context, tx *gorm.DB, userID int64) ([]domain.Session, error) {
	var sessions []domain.Session

	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("last_activity DESC").
		Find(&sessions).Error

	if err != nil {
		return nil, apperror.Internal("failed to find sessions for update", err)
	}
	return sessions, nil
}

// FindActiveByUser lists the user's sessions, newest activity first.
// FindActiveByUser перечисляет сессии пользователя, сначала самые активные.
func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID int64) ([]domain.Session, error) {
	var sessions []domain.Session

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity DESC").
		Find(&sessions).Error

	if err != nil {
		return nil, apperror.Internal("failed to find sessions", err)
	}
	return sessions, nil
}

// HasFingerprint reports whether any session of the user ever carried the
// fingerprint. Terminated sessions are gone, but an expired one still in
// the table counts: the device is known.
// HasFingerprint сообщает, имела ли какая-либо сессия пользователя этот
// отпечаток. Завершённые сессии удалены, но истёкшая, всё ещё находящаяся
// в таблице, учитывается: устройство известно.
func (r *SessionRepository) HasFingerprint(ctx context.Context, userID int64, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND fingerprint = ?", userID, fingerprint).
		Count(&count).Error

	if err != nil {
		return false, apperror.Internal("failed to check fingerprint", err)
	}
	return count > 0, nil
}

// Touch updates last_activity for the session key.
// Touch обновляет last_activity для ключа сессии.
func (r *SessionRepository) Touch(ctx context.Context, key string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("key = ?", key).
		Update("last_activity", at)

	if result.Error != nil {
		return apperror.Internal("failed to touch session", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("session", key)
	}
	return nil
}

// DeleteByKey removes a session, returning whether it existed.
// DeleteByKey удаляет сессию, сообщая, существовала ли она.
func (r *SessionRepository) DeleteByKey(ctx context.Context, key string) (bool, error) {
	return r.DeleteByKeyTx(ctx, r.db, key)
}

// DeleteByKeyTx removes a session within a transaction.
// DeleteByKeyTx удаляет сессию в рамках транзакции.
func (r *SessionRepository) DeleteByKeyTx(ctx context.Context, tx *gorm.DB, key string) (bool, error) {
	result := tx.WithContext(ctx).
		Where("key = ?", key).
		Delete(&domain.Session{})

	if result.Error != nil {
		return false, apperror.Internal("failed to delete session", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteOthers removes all sessions of the user except keepKey.
// DeleteOthers удаляет все сессии пользователя, кроме keepKey.
func (r *SessionRepository) DeleteOthers(ctx context.Context, userID int64, keepKey string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND key <> ?", userID, keepKey).
		Delete(&domain.Session{})

	if result.Error != nil {
		return 0, apperror.Internal("failed to delete other sessions", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteStale removes sessions inactive since the cutoff or past their
// hard expiry.
// DeleteStale удаляет сессии, неактивные с момента cutoff или с истёкшим
// жёстким сроком.
func (r *SessionRepository) DeleteStale(ctx context.Context, inactiveSince time.Time, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_activity < ? OR (expires_at IS NOT NULL AND expires_at < ?)", inactiveSince, now).
		Delete(&domain.Session{})

	if result.Error != nil {
		return 0, apperror.Internal("failed to delete stale sessions", result.Error)
	}
	return result.RowsAffected, nil
}
