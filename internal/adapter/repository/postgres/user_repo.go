// Package postgres provides PostgreSQL-based repository implementations.
// Пакет postgres предоставляет реализации репозиториев на базе PostgreSQL.
//
// This package implements all repository interfaces defined in port package
// using GORM as the ORM layer.
// Этот пакет реализует все интерфейсы репозиториев, определённые в пакете port,
// используя GORM в качестве ORM слоя.
package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/port"
)

// UserRepository implements port.UserRepository using PostgreSQL.
// UserRepository реализует интерфейс port.UserRepository с использованием PostgreSQL.
//
// Username and email are stored lowercase; lookups normalize their input so
// the unique indexes double as case-insensitive constraints.
// Имя пользователя и email хранятся в нижнем регистре; поиск нормализует
// ввод, поэтому уникальные индексы работают как ограничения без учёта
// регистра.
type UserRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewUserRepository creates a new UserRepository instance.
// NewUserRepository создаёт новый экземпляр UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database.
// Create создаёт нового пользователя в базе данных.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.CreateTx(ctx, r.db, user)
}

// CreateTx creates a new user within an existing transaction.
// CreateTx создаёт нового пользователя в рамках существующей транзакции.
func (r *UserRepository) CreateTx(ctx context.Context, tx *gorm.DB, user *domain.User) error {
	user.Username = strings.ToLower(user.Username)
	user.Email = strings.ToLower(user.Email)

	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
			field := "username"
			if strings.Contains(err.Error(), "email") {
				field = "email"
			}
			value := user.Username
			if field == "email" {
				value = user.Email
			}
			return apperror.Conflict("user", field, value)
		}
		return apperror.Internal("failed to create user", err)
	}
	return nil
}

// FindByID retrieves a user by their unique identifier.
// FindByID получает пользователя по уникальному идентификатору.
// Excludes soft-deleted users.
// Исключает мягко удалённых пользователей.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Internal("failed to find user", err)
	}
	return &user, nil
}

// FindByUsername retrieves a user by their login name, case-insensitively.
// FindByUsername получает пользователя по имени для входа без учёта регистра.
// Excludes soft-deleted users.
// Исключает мягко удалённых пользователей.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("username = ? AND deleted_at IS NULL", strings.ToLower(username)).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, apperror.Internal("failed to find user", err)
	}
	return &user, nil
}

// FindByEmail retrieves a user by their email address, case-insensitively.
// FindByEmail получает пользователя по email без учёта регистра.
// Excludes soft-deleted users.
// Исключает мягко удалённых пользователей.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND deleted_at IS NULL", strings.ToLower(email)).
		First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, apperror.Internal("failed to find user", err)
	}
	return &user, nil
}

// Update updates an existing user in the database.
// Update обновляет существующего пользователя в базе данных.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.UpdateTx(ctx, r.db, user)
}

// UpdateTx updates an existing user within an existing transaction.
// UpdateTx обновляет существующего пользователя в рамках существующей транзакции.
func (r *UserRepository) UpdateTx(ctx context.Context, tx *gorm.DB, user *domain.User) error {
	result := tx.WithContext(ctx).Save(user)
	if result.Error != nil {
		return apperror.Internal("failed to update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// RecordLogin increments the login counter and stores the last login IP in
// one statement so concurrent logins never lose a count.
// RecordLogin увеличивает счётчик входов и сохраняет IP последнего входа
// одним запросом, чтобы параллельные входы не теряли счёт.
func (r *UserRepository) RecordLogin(ctx context.Context, userID int64, ip string) error {
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"login_count":   gorm.Expr("login_count + 1"),
			"last_login_ip": ip,
		}).Error

	if err != nil {
		return apperror.Internal("failed to record login", err)
	}
	return nil
}

// Delete performs a soft-delete on a user.
// Delete выполняет мягкое удаление пользователя.
// The user record is not physically removed from the database.
// Запись пользователя физически не удаляется из базы данных.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		Delete(&domain.User{})

	if result.Error != nil {
		return apperror.Internal("failed to delete user", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// List retrieves users with filtering and pagination.
// List получает пользователей с фильтрацией и пагинацией.
// Returns: users slice, total count, error.
// Возвращает: срез пользователей, общее количество, ошибку.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.User{}).Where("deleted_at IS NULL")

	// Apply status filter / Применяем фильтр по статусу
	switch filter.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	// Apply search filter / Применяем поисковый фильтр
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("username ILIKE ? OR email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			search, search, search, search)
	}

	// Count total matching records / Подсчитываем общее количество записей
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count users", err)
	}

	// Calculate offset for pagination / Вычисляем смещение для пагинации
	offset := (filter.Page - 1) * filter.PageSize
	if offset < 0 {
		offset = 0
	}

	// Get paginated results / Получаем результаты с пагинацией
	err := query.
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&users).Error

	if err != nil {
		return nil, 0, apperror.Internal("failed to list users", err)
	}

	return users, total, nil
}

// ExistsByUsername checks if a user with the given login name exists.
// ExistsByUsername проверяет, существует ли пользователь с данным логином.
// Excludes soft-deleted users.
// Исключает мягко удалённых пользователей.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("username = ? AND deleted_at IS NULL", strings.ToLower(username)).
		Count(&count).Error

	if err != nil {
		return false, apperror.Internal("failed to check username existence", err)
	}
	return count > 0, nil
}

// ExistsByEmail checks if a user with the given email already exists.
// ExistsByEmail проверяет, существует ли уже пользователь с данным email.
// Excludes soft-deleted users.
// Исключает мягко удалённых пользователей.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ? AND deleted_at IS NULL", strings.ToLower(email)).
		Count(&count).Error

	if err != nil {
		return false, apperror.Internal("failed to check email existence", err)
	}
	return count > 0, nil
}

// isDuplicateKeyError checks if the error is a PostgreSQL duplicate key violation.
// isDuplicateKeyError проверяет, является ли ошибка нарушением уникального ключа PostgreSQL.
// PostgreSQL error code 23505 indicates unique_violation.
// Код ошибки PostgreSQL 23505 указывает на unique_violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := err.Error()
	return errMsg != "" && (strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "23505"))
}
