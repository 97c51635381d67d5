package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/passhash"
)

// Seeder handles database seeding operations for initial data setup.
// Seeder управляет операциями заполнения базы данных начальными данными.
//
// Used to persist the default security policy row and the superadmin
// account on first run.
// Используется для сохранения строки политики безопасности по умолчанию
// и аккаунта суперадминистратора при первом запуске.
type Seeder struct {
	db     *gorm.DB       // Database connection / Подключение к базе данных
	clk    clock.Clock    // Time source / Источник времени
	logger *logger.Logger // Logger instance / Экземпляр логгера
}

// NewSeeder creates a new Seeder instance.
// NewSeeder создаёт новый экземпляр Seeder.
func NewSeeder(db *gorm.DB, clk clock.Clock, log *logger.Logger) *Seeder {
	return &Seeder{
		db:     db,
		clk:    clk,
		logger: log.WithComponent("seeder"),
	}
}

// SeedAll runs all seeding operations in order.
// SeedAll запускает все операции заполнения по порядку.
//
// Order: 1) Security policy row, 2) Superadmin account.
// Порядок: 1) Строка политики безопасности, 2) Суперадминистратор.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("starting database seeding")

	if err := s.SeedSecurityPolicy(ctx); err != nil {
		return err
	}
	if err := s.SeedSuperAdmin(ctx); err != nil {
		return err
	}

	s.logger.Info("database seeding completed successfully")
	return nil
}

// SeedSecurityPolicy persists the default policy row when none exists.
// The policy lives in a single row; services read it through snapshots.
// SeedSecurityPolicy сохраняет строку политики по умолчанию, если её нет.
// Политика живёт в единственной строке; сервисы читают её через снимки.
func (s *Seeder) SeedSecurityPolicy(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.SecurityPolicy{}).Where("id = ?", 1).Count(&count).Error; err != nil {
		s.logger.Error("failed to check for existing policy", "error", err)
		return err
	}
	if count > 0 {
		s.logger.Info("security policy already exists, skipping")
		return nil
	}

	policy := domain.DefaultSecurityPolicy()
	policy.UpdatedAt = s.clk.Now()
	if err := s.db.WithContext(ctx).Create(policy).Error; err != nil {
		s.logger.Error("failed to create default policy", "error", err)
		return err
	}

	s.logger.Info("default security policy seeded")
	return nil
}

// SeedSuperAdmin creates the default superadmin account if it doesn't exist.
// SeedSuperAdmin создаёт суперадминистратора по умолчанию, если он не существует.
//
// Uses hardcoded credentials for initial setup. Should be changed after first login.
// Использует захардкоженные учётные данные для начальной настройки. Следует изменить после первого входа.
func (s *Seeder) SeedSuperAdmin(ctx context.Context) error {
	// Default admin credentials / Учётные данные администратора по умолчанию
	const (
		adminUsername = "admin"
		adminEmail    = "admin@example.com"
		adminPassword = "ChangeMe123!"
	)

	// Check if admin already exists / Проверяем, существует ли админ
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", adminUsername).Count(&count).Error; err != nil {
		s.logger.Error("failed to check for existing admin", "error", err)
		return err
	}
	if count > 0 {
		s.logger.Info("superadmin already exists, skipping")
		return nil
	}

	// Hash password / Хэшируем пароль
	hashedPassword, err := passhash.Hash(adminPassword)
	if err != nil {
		s.logger.Error("failed to hash admin password", "error", err)
		return err
	}

	now := s.clk.Now()
	admin := &domain.User{
		Username:          adminUsername,
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		PasswordChangedAt: &now,
		FirstName:         "Super",
		LastName:          "Admin",
		Role:              domain.RoleSuperadmin,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		s.logger.Error("failed to create admin user", "error", err)
		return err
	}

	s.logger.Info("superadmin created successfully", "username", adminUsername)
	return nil
}
