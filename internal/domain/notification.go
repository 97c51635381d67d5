package domain

import "time"

// Notification event types emitted to the external dispatcher. The core
// produces structured payloads; rendering them is the dispatcher's job.
// Типы событий уведомлений, отправляемых внешнему диспетчеру. Ядро
// формирует структурированные полезные нагрузки; их отрисовка — задача
// диспетчера.
const (
	NotifyNewDeviceLogin         = "new_device_login"         // Login from unknown device / Вход с неизвестного устройства
	NotifySuspiciousLogin        = "suspicious_login"         // Repeated failures / Повторяющиеся неудачи
	NotifyAccountLocked          = "account_locked"           // Lockout engaged / Блокировка включена
	NotifyPasswordChanged        = "password_changed"         // Password changed / Пароль изменён
	NotifyPasswordResetRequested = "password_reset_requested" // Reset link issued / Выдана ссылка сброса
	NotifyPasswordResetSuccess   = "password_reset_success"   // Reset completed / Сброс завершён
	Notify2FAEnabled             = "2fa_enabled"              // 2FA activated / 2FA активирована
	Notify2FADisabled            = "2fa_disabled"             // 2FA deactivated / 2FA отключена
	NotifyReportReady            = "report_ready"             // Passthrough for the report platform / Транзит для платформы отчётов
	NotifyWelcome                = "welcome"                  // New account greeting / Приветствие нового аккаунта
	NotifyEmailOTP               = "email_otp"                // Login verification code / Код подтверждения входа
)

// Notification is a typed event handed to the external dispatcher.
// Dispatch is fire-and-forget: a delivery failure never rolls back the
// authentication transition that produced the event.
// Notification — типизированное событие, передаваемое внешнему диспетчеру.
// Отправка выполняется по принципу fire-and-forget: сбой доставки никогда
// не откатывает породивший событие переход аутентификации.
type Notification struct {
	Type      string                 `json:"type"`                // One of Notify* / Одна из констант Notify*
	UserID    int64                  `json:"user_id,omitempty"`   // Recipient account / Аккаунт-получатель
	Username  string                 `json:"username,omitempty"`  // Recipient login / Логин получателя
	Email     string                 `json:"email,omitempty"`     // Recipient email / Email получателя
	IP        string                 `json:"ip,omitempty"`        // Originating IP / Исходный IP
	Device    string                 `json:"device,omitempty"`    // Device label / Метка устройства
	Location  string                 `json:"location,omitempty"`  // Coarse location / Приблизительное местоположение
	Timestamp time.Time              `json:"timestamp"`           // Event time / Время события
	Payload   map[string]interface{} `json:"payload,omitempty"`   // Type-specific data / Данные, зависящие от типа
}
