package domain

import "time"

// SecurityPolicy is the singleton process-wide security configuration.
// It is persisted as a single row; the service layer publishes an immutable
// snapshot so readers never observe a half-applied update.
// SecurityPolicy — единая конфигурация безопасности для всего процесса.
// Хранится одной строкой; сервисный слой публикует неизменяемый снимок,
// чтобы читатели никогда не видели частично применённое обновление.
type SecurityPolicy struct {
	ID int64 `gorm:"primaryKey"` // Always 1 / Всегда 1

	// Password rules / Правила паролей
	PasswordMinLength      int  `gorm:"not null;default:8"`     // Minimum length / Минимальная длина
	PasswordRequireUpper   bool `gorm:"not null;default:true"`  // Require uppercase / Требовать заглавные
	PasswordRequireLower   bool `gorm:"not null;default:true"`  // Require lowercase / Требовать строчные
	PasswordRequireDigit   bool `gorm:"not null;default:true"`  // Require digits / Требовать цифры
	PasswordRequireSpecial bool `gorm:"not null;default:false"` // Require special chars / Требовать спецсимволы
	PasswordExpiryDays     int  `gorm:"not null;default:0"`     // 0 = never expires / 0 = не истекает
	PasswordHistoryCount   int  `gorm:"not null;default:0"`     // 0 = history disabled / 0 = история отключена

	// Lockout / Блокировка
	MaxFailedAttempts    int `gorm:"not null;default:5"`  // Failures before lock / Неудач до блокировки
	LockoutWindowMinutes int `gorm:"not null;default:30"` // Sliding window size / Размер скользящего окна

	// Session / Сессии
	SessionTimeoutMinutes int  `gorm:"not null;default:0"`     // 0 = no timeout / 0 = без таймаута
	MaxConcurrentSessions int  `gorm:"not null;default:0"`     // 0 = unlimited / 0 = без ограничений
	SingleSession         bool `gorm:"not null;default:false"` // One session per user / Одна сессия на пользователя

	// Two-factor / Двухфакторная аутентификация
	Email2FAEnabled      bool `gorm:"not null;default:true"`  // Email OTP available / Доступен email OTP
	Enforce2FAFirstLogin bool `gorm:"not null;default:false"` // Force enrollment / Принудительная настройка
	BackupCodesCount     int  `gorm:"not null;default:5"`     // Codes per set / Кодов в наборе

	// Audit / Аудит
	LogAllLogins       bool `gorm:"not null;default:true"` // Record login_success / Записывать login_success
	LogFailedLogins    bool `gorm:"not null;default:true"` // Record login_failed / Записывать login_failed
	LogAdminActions    bool `gorm:"not null;default:true"` // Record admin events / Записывать события администрирования
	AuditRetentionDays int  `gorm:"not null;default:365"`  // Event retention / Срок хранения событий

	// IP rules / Правила IP
	IPAllowlistEnforced bool `gorm:"not null;default:false"` // Enforce allowlist / Применять список разрешений
	IPDenylistEnforced  bool `gorm:"not null;default:true"`  // Enforce denylist / Применять список запретов

	// Reset tokens / Токены сброса
	ResetTokenTTLHours int `gorm:"not null;default:24"` // Reset token lifetime / Время жизни токена сброса

	Version   int       `gorm:"not null;default:1"` // Incremented on update / Увеличивается при обновлении
	UpdatedAt time.Time `gorm:"not null"`           // Last update time / Время последнего обновления
	UpdatedBy *int64    `gorm:""`                   // Admin who updated / Администратор, внёсший изменение
}

// TableName returns the database table name for SecurityPolicy entity.
// TableName возвращает имя таблицы в базе данных для сущности SecurityPolicy.
func (SecurityPolicy) TableName() string {
	return "security_policies"
}

// DefaultSecurityPolicy returns the policy used when no row exists yet.
// DefaultSecurityPolicy возвращает политику, используемую до появления строки.
func DefaultSecurityPolicy() *SecurityPolicy {
	return &SecurityPolicy{
		ID:                     1,
		PasswordMinLength:      8,
		PasswordRequireUpper:   true,
		PasswordRequireLower:   true,
		PasswordRequireDigit:   true,
		PasswordRequireSpecial: false,
		PasswordExpiryDays:     0,
		PasswordHistoryCount:   0,
		MaxFailedAttempts:      5,
		LockoutWindowMinutes:   30,
		SessionTimeoutMinutes:  0,
		MaxConcurrentSessions:  0,
		SingleSession:          false,
		Email2FAEnabled:        true,
		Enforce2FAFirstLogin:   false,
		BackupCodesCount:       5,
		LogAllLogins:           true,
		LogFailedLogins:        true,
		LogAdminActions:        true,
		AuditRetentionDays:     365,
		IPAllowlistEnforced:    false,
		IPDenylistEnforced:     true,
		ResetTokenTTLHours:     24,
		Version:                1,
	}
}

// LockoutWindow returns the lockout window as a duration.
// LockoutWindow возвращает окно блокировки как длительность.
func (p *SecurityPolicy) LockoutWindow() time.Duration {
	return time.Duration(p.LockoutWindowMinutes) * time.Minute
}

// SessionTimeout returns the session timeout as a duration, 0 if disabled.
// SessionTimeout возвращает таймаут сессии как длительность, 0 если отключён.
func (p *SecurityPolicy) SessionTimeout() time.Duration {
	return time.Duration(p.SessionTimeoutMinutes) * time.Minute
}

// ResetTokenTTL returns the password-reset token lifetime.
// ResetTokenTTL возвращает время жизни токена сброса пароля.
func (p *SecurityPolicy) ResetTokenTTL() time.Duration {
	return time.Duration(p.ResetTokenTTLHours) * time.Hour
}

// PasswordRules is the public view of the password policy exposed to
// clients so registration forms can validate before submitting.
// PasswordRules — публичное представление политики паролей, доступное
// клиентам, чтобы формы регистрации могли валидировать до отправки.
type PasswordRules struct {
	MinLength      int  `json:"min_length"`      // Minimum length / Минимальная длина
	RequireUpper   bool `json:"require_upper"`   // Uppercase required / Нужны заглавные
	RequireLower   bool `json:"require_lower"`   // Lowercase required / Нужны строчные
	RequireDigit   bool `json:"require_digit"`   // Digit required / Нужны цифры
	RequireSpecial bool `json:"require_special"` // Special char required / Нужны спецсимволы
	ExpiryDays     int  `json:"expiry_days"`     // 0 = never / 0 = никогда
	HistoryCount   int  `json:"history_count"`   // Reuse lookback / Глубина проверки повторов
}

// Rules extracts the password rules from the policy.
// Rules извлекает правила паролей из политики.
func (p *SecurityPolicy) Rules() PasswordRules {
	return PasswordRules{
		MinLength:      p.PasswordMinLength,
		RequireUpper:   p.PasswordRequireUpper,
		RequireLower:   p.PasswordRequireLower,
		RequireDigit:   p.PasswordRequireDigit,
		RequireSpecial: p.PasswordRequireSpecial,
		ExpiryDays:     p.PasswordExpiryDays,
		HistoryCount:   p.PasswordHistoryCount,
	}
}
