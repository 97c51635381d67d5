package domain

import (
	"encoding/json"
	"time"
)

// Audit severity levels.
// Уровни серьёзности аудита.
const (
	SeverityInfo     = "info"     // Routine event / Обычное событие
	SeverityWarning  = "warning"  // Needs attention / Требует внимания
	SeverityCritical = "critical" // Always recorded / Всегда записывается
)

// Audit event types form a closed enumeration spanning authentication,
// two-factor, sessions, API keys, administration and security.
// Типы событий аудита образуют закрытое перечисление, охватывающее
// аутентификацию, двухфакторку, сессии, API-ключи, администрирование
// и безопасность.
const (
	// Authentication / Аутентификация
	EventLoginSuccess         = "login_success"          // Successful login / Успешный вход
	EventLoginFailed          = "login_failed"           // Failed login / Неудачный вход
	EventLogout               = "logout"                 // User logout / Выход пользователя
	EventAccountLocked        = "account_locked"         // Lockout engaged / Блокировка включена
	EventAccountUnlocked      = "account_unlocked"       // Lockout cleared by admin / Блокировка снята администратором
	EventPasswordChange       = "password_change"        // Password changed / Пароль изменён
	EventPasswordResetRequest = "password_reset_request" // Reset requested / Запрошен сброс
	EventPasswordReset        = "password_reset"         // Reset completed / Сброс завершён

	// Two-factor / Двухфакторная аутентификация
	Event2FAEnabled             = "2fa_enabled"              // 2FA activated / 2FA активирована
	Event2FADisabled            = "2fa_disabled"             // 2FA deactivated / 2FA отключена
	Event2FAVerified            = "2fa_verified"             // Code accepted / Код принят
	Event2FAFailed              = "2fa_failed"               // Code rejected / Код отклонён
	EventBackupCodeUsed         = "backup_code_used"         // Recovery code consumed / Код восстановления использован
	EventBackupCodesRegenerated = "backup_codes_regenerated" // New code set issued / Выпущен новый набор кодов

	// Sessions / Сессии
	EventSessionCreated        = "session_created"         // Session opened / Сессия открыта
	EventSessionTerminated     = "session_terminated"      // Session closed / Сессия закрыта
	EventSessionsTerminatedAll = "sessions_terminated_all" // Bulk termination / Массовое закрытие
	EventNewDeviceLogin        = "new_device_login"        // Unknown fingerprint / Неизвестный отпечаток

	// API keys / API-ключи
	EventAPIKeyCreated = "api_key_created" // Key issued / Ключ выпущен
	EventAPIKeyRevoked = "api_key_revoked" // Key revoked / Ключ отозван

	// Administration / Администрирование
	EventUserCreated       = "user_created"        // Account created / Аккаунт создан
	EventUserUpdated       = "user_updated"        // Account modified / Аккаунт изменён
	EventUserActivated     = "user_activated"      // Account re-enabled / Аккаунт включён
	EventUserDeactivated   = "user_deactivated"    // Account disabled / Аккаунт отключён
	EventUserRoleChanged   = "user_role_changed"   // Role reassigned / Роль изменена
	EventSettingsChanged   = "settings_changed"    // Policy updated / Политика обновлена
	EventIPRuleAdded       = "ip_rule_added"       // Allow/deny entry added / Добавлена запись allow/deny
	EventIPRuleRemoved     = "ip_rule_removed"     // Allow/deny entry removed / Удалена запись allow/deny
	EventAdminActionDenied = "admin_action_denied" // Authorization refused / Авторизация отклонена

	// Security / Безопасность
	EventSuspiciousActivity = "suspicious_activity" // Anomaly detected / Обнаружена аномалия
)

// criticalEvents are always recorded regardless of policy log flags.
// criticalEvents всегда записываются независимо от флагов политики.
var criticalEvents = map[string]struct{}{
	EventSuspiciousActivity: {},
	Event2FAFailed:          {},
	EventAPIKeyRevoked:      {},
}

// IsCriticalEvent reports whether eventType bypasses policy log filters.
// IsCriticalEvent сообщает, обходит ли eventType фильтры журнала политики.
func IsCriticalEvent(eventType string) bool {
	_, ok := criticalEvents[eventType]
	return ok
}

// adminEvents are gated by the LogAdminActions policy flag.
// adminEvents контролируются флагом политики LogAdminActions.
var adminEvents = map[string]struct{}{
	EventUserCreated:     {},
	EventUserUpdated:     {},
	EventUserActivated:   {},
	EventUserDeactivated: {},
	EventUserRoleChanged: {},
	EventSettingsChanged: {},
	EventIPRuleAdded:     {},
	EventIPRuleRemoved:   {},
}

// IsAdminEvent reports whether eventType is an administrative action.
// IsAdminEvent сообщает, является ли eventType административным действием.
func IsAdminEvent(eventType string) bool {
	_, ok := adminEvents[eventType]
	return ok
}

// AuditEvent is an immutable security event. Actor and target reference
// users weakly: events outlive account removal with nulled references.
// AuditEvent — неизменяемое событие безопасности. Actor и target ссылаются
// на пользователей слабо: события переживают удаление аккаунта с
// обнулёнными ссылками.
type AuditEvent struct {
	ID        int64           `gorm:"primaryKey"`                                                      // Primary key / Первичный ключ
	EventType string          `gorm:"type:varchar(50);not null;index:idx_audit_type"`                  // One of Event* / Одна из констант Event*
	Severity  string          `gorm:"type:varchar(10);not null;default:'info';index:idx_audit_severity"` // info|warning|critical
	ActorID   *int64          `gorm:"index:idx_audit_actor"`                                           // Acting user / Действующий пользователь
	TargetID  *int64          `gorm:"index:idx_audit_target"`                                          // Affected user / Затронутый пользователь
	IP        *string         `gorm:"type:inet"`                                                       // Client IP / IP клиента
	UserAgent *string         `gorm:"type:text"`                                                       // Client user agent / User agent клиента
	Details   json.RawMessage `gorm:"type:jsonb"`                                                      // Structured detail map / Структурированные детали
	CreatedAt time.Time       `gorm:"not null;index:idx_audit_created,sort:desc"`                      // Server time / Серверное время
}

// TableName returns the database table name for AuditEvent entity.
// TableName возвращает имя таблицы в базе данных для сущности AuditEvent.
func (AuditEvent) TableName() string {
	return "audit_events"
}

// AuditFilter narrows audit log reads. Zero values mean "no filter".
// AuditFilter сужает чтение журнала аудита. Нулевые значения означают
// отсутствие фильтра.
type AuditFilter struct {
	EventType string     // Exact event type / Точный тип события
	Severity  string     // Exact severity / Точная серьёзность
	ActorID   *int64     // Acting user / Действующий пользователь
	TargetID  *int64     // Affected user / Затронутый пользователь
	From      *time.Time // Inclusive lower bound / Нижняя граница включительно
	To        *time.Time // Exclusive upper bound / Верхняя граница исключительно
	Limit     int        // Page size / Размер страницы
	Offset    int        // Page offset / Смещение страницы
}
