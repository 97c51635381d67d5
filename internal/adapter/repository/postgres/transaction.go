// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// TransactionManager implements port.Transaction on GORM. The service layer
// uses it where several writes must land together: retiring a password hash
// while storing its successor, swapping backup-code sets, or recording a
// lockout with its audit event.
// TransactionManager реализует port.Transaction на GORM. Сервисный слой
// использует его там, где несколько записей должны попасть в базу вместе:
// вывод хэша пароля из обращения вместе с сохранением преемника, замена
// набора резервных кодов или фиксация блокировки вместе с её событием аудита.
type TransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager creates a TransactionManager on the given handle.
// NewTransactionManager создаёт TransactionManager на заданном подключении.
func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// Begin starts a new database transaction.
// Begin начинает новую транзакцию базы данных.
func (t *TransactionManager) Begin(ctx context.Context) (*gorm.DB, error) {
	tx := t.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperror.Internal("failed to begin transaction", tx.Error)
	}
	return tx, nil
}

// Commit commits a transaction, making all changes permanent.
// Commit фиксирует транзакцию, делая все изменения постоянными.
func (t *TransactionManager) Commit(tx *gorm.DB) error {
	if err := tx.Commit().Error; err != nil {
		return apperror.Internal("failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction, discarding all changes.
// Rollback откатывает транзакцию, отменяя все изменения.
func (t *TransactionManager) Rollback(tx *gorm.DB) error {
	if err := tx.Rollback().Error; err != nil {
		return apperror.Internal("failed to rollback transaction", err)
	}
	return nil
}

// WithTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back on error or panic. The panic is re-raised after the
// rollback.
// WithTransaction выполняет fn внутри транзакции, фиксируя при возврате nil
// и откатывая при ошибке или панике. Паника выбрасывается повторно после
// отката.
func (t *TransactionManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := t.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperror.Internal("failed to begin transaction", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return apperror.Internal("failed to rollback transaction", rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return apperror.Internal("failed to commit transaction", err)
	}
	return nil
}
