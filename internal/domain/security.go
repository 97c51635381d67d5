package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Failed login reasons record why an authentication attempt was rejected.
// Причины неудачного входа фиксируют, почему попытка аутентификации отклонена.
const (
	// FailReasonInvalidPassword indicates the password did not match.
	// FailReasonInvalidPassword указывает, что пароль не совпал.
	FailReasonInvalidPassword = "invalid_password"

	// FailReasonInvalidUsername indicates no account exists for the username.
	// FailReasonInvalidUsername указывает, что аккаунт с таким именем не существует.
	FailReasonInvalidUsername = "invalid_username"

	// FailReasonAccountLocked indicates the account is under an active lockout.
	// FailReasonAccountLocked указывает, что аккаунт находится под активной блокировкой.
	FailReasonAccountLocked = "account_locked"

	// FailReasonAccountDisabled indicates the account has been deactivated.
	// FailReasonAccountDisabled указывает, что аккаунт деактивирован.
	FailReasonAccountDisabled = "account_disabled"

	// FailReasonIPBlocked indicates the client IP was rejected by IP rules.
	// FailReasonIPBlocked указывает, что IP клиента отклонён правилами IP.
	FailReasonIPBlocked = "ip_blocked"
)

// Device type constants classify the client device of a session.
// Константы типов устройств классифицируют клиентское устройство сессии.
const (
	DeviceTypeDesktop = "desktop" // Desktop browser / Настольный браузер
	DeviceTypeMobile  = "mobile"  // Mobile device / Мобильное устройство
	DeviceTypeTablet  = "tablet"  // Tablet device / Планшет
	DeviceTypeUnknown = "unknown" // Unclassified client / Неклассифицированный клиент
)

// IP rule kinds distinguish allowlist entries from denylist entries.
// Виды правил IP различают записи списка разрешений и списка запретов.
const (
	IPRuleAllow = "allow" // Allowlist entry / Запись списка разрешений
	IPRuleDeny  = "deny"  // Denylist entry / Запись списка запретов
)

// SessionKeyLength is the length of an opaque session key in characters.
// SessionKeyLength — длина непрозрачного ключа сессии в символах.
const SessionKeyLength = 40

// PasswordRecord stores one retired password hash for history comparison.
// Retention is bounded by the policy history count.
// PasswordRecord хранит один устаревший хэш пароля для сравнения с историей.
// Срок хранения ограничен политикой history count.
type PasswordRecord struct {
	ID        int64     `gorm:"primaryKey"`                    // Primary key / Первичный ключ
	UserID    int64     `gorm:"not null;index:idx_pwdrec_user"` // Owning user / Владелец
	Hash      string    `gorm:"not null"`                      // Argon2id hash / Argon2id хэш
	CreatedAt time.Time `gorm:"not null"`                      // When retired / Когда устарел
}

// TableName returns the database table name for PasswordRecord entity.
// TableName возвращает имя таблицы в базе данных для сущности PasswordRecord.
func (PasswordRecord) TableName() string {
	return "password_records"
}

// TOTPDevice holds the TOTP shared secret for a user. A device with
// Verified=false is provisional: the secret was generated but the user has
// not yet proven possession of it. At most one device exists per user.
// TOTPDevice хранит общий TOTP-секрет пользователя. Устройство с
// Verified=false является предварительным: секрет сгенерирован, но
// пользователь ещё не подтвердил владение им. У пользователя не более
// одного устройства.
type TOTPDevice struct {
	ID         int64      `gorm:"primaryKey"`           // Primary key / Первичный ключ
	UserID     int64      `gorm:"uniqueIndex;not null"` // Owning user / Владелец
	Secret     string     `gorm:"not null"`             // Base32 shared secret / Общий секрет в base32
	Verified   bool       `gorm:"not null;default:false"` // Enrollment confirmed / Регистрация подтверждена
	LastUsedAt *time.Time `gorm:""`                     // Last successful verify / Последняя успешная проверка
	CreatedAt  time.Time  `gorm:"not null"`             // Creation time / Время создания
}

// TableName returns the database table name for TOTPDevice entity.
// TableName возвращает имя таблицы в базе данных для сущности TOTPDevice.
func (TOTPDevice) TableName() string {
	return "totp_devices"
}

// BackupCode is a single-use 2FA recovery code. Only the hash is stored.
// BackupCode — одноразовый код восстановления 2FA. Хранится только хэш.
type BackupCode struct {
	ID        int64      `gorm:"primaryKey"`                     // Primary key / Первичный ключ
	UserID    int64      `gorm:"not null;index:idx_backup_user"` // Owning user / Владелец
	CodeHash  string     `gorm:"not null"`                       // Argon2id hash of the code / Argon2id хэш кода
	Used      bool       `gorm:"not null;default:false"`         // Consumed flag / Флаг использования
	UsedAt    *time.Time `gorm:""`                               // When consumed / Когда использован
	CreatedAt time.Time  `gorm:"not null"`                       // Creation time / Время создания
}

// TableName returns the database table name for BackupCode entity.
// TableName возвращает имя таблицы в базе данных для сущности BackupCode.
func (BackupCode) TableName() string {
	return "backup_codes"
}

// Session represents an active authenticated session identified by an
// opaque random key. A session with a non-nil ExpiresAt in the past must be
// treated as absent by every caller.
// Session представляет активную аутентифицированную сессию, идентифицируемую
// непрозрачным случайным ключом. Сессию с ненулевым ExpiresAt в прошлом все
// вызывающие должны считать отсутствующей.
type Session struct {
	ID           int64      `gorm:"primaryKey"`                          // Primary key / Первичный ключ
	Key          string     `gorm:"type:varchar(40);uniqueIndex;not null"` // Opaque session key / Непрозрачный ключ сессии
	UserID       int64      `gorm:"not null;index:idx_session_user"`     // Owning user / Владелец
	DeviceName   string     `gorm:"type:varchar(255)"`                   // Human device label / Метка устройства
	DeviceType   string     `gorm:"type:varchar(20);not null;default:'unknown'"` // desktop|mobile|tablet|unknown
	Browser      string     `gorm:"type:varchar(100)"`                   // Browser family / Семейство браузера
	OS           string     `gorm:"type:varchar(100)"`                   // Operating system / Операционная система
	Fingerprint  string     `gorm:"type:varchar(16);index:idx_session_fp"` // Device fingerprint / Отпечаток устройства
	IP           string     `gorm:"type:inet"`                           // Client IP / IP клиента
	Location     string     `gorm:"type:varchar(255)"`                   // Coarse location / Приблизительное местоположение
	CreatedAt    time.Time  `gorm:"not null"`                            // Creation time / Время создания
	LastActivity time.Time  `gorm:"not null;index:idx_session_activity"` // Last touch / Последняя активность
	ExpiresAt    *time.Time `gorm:""`                                    // Hard expiry, nil = none / Жёсткое истечение, nil = нет
}

// TableName returns the database table name for Session entity.
// TableName возвращает имя таблицы в базе данных для сущности Session.
func (Session) TableName() string {
	return "sessions"
}

// IsExpired reports whether the session has passed its hard expiry.
// IsExpired сообщает, истекла ли сессия по жёсткому сроку.
func (s *Session) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// FailedLoginAttempt is one append-only entry in the failure ledger.
// Lockout state is never stored: it is derived from the sliding window of
// these rows at check time.
// FailedLoginAttempt — одна append-only запись в журнале неудач. Состояние
// блокировки никогда не сохраняется: оно выводится из скользящего окна этих
// строк в момент проверки.
type FailedLoginAttempt struct {
	ID        int64     `gorm:"primaryKey"`                                                   // Primary key / Первичный ключ
	Username  string    `gorm:"type:varchar(150);not null;index:idx_attempt_username,priority:1"` // Attempted login / Попытка входа
	IP        string    `gorm:"type:inet;not null;index:idx_attempt_ip,priority:1"`          // Client IP / IP клиента
	UserAgent string    `gorm:"type:text"`                                                    // Client user agent / User agent клиента
	Reason    string    `gorm:"type:varchar(30);not null"`                                    // One of FailReason* / Одна из констант FailReason*
	CreatedAt time.Time `gorm:"not null;index:idx_attempt_username,priority:2;index:idx_attempt_ip,priority:2"` // Attempt time / Время попытки
}

// TableName returns the database table name for FailedLoginAttempt entity.
// TableName возвращает имя таблицы в базе данных для сущности FailedLoginAttempt.
func (FailedLoginAttempt) TableName() string {
	return "failed_login_attempts"
}

// IPRule is an allowlist or denylist entry. Deny rules may carry a
// temporary expiry; expired deny rules are ignored.
// IPRule — запись списка разрешений или запретов. Правила запрета могут
// иметь временный срок действия; истёкшие правила запрета игнорируются.
type IPRule struct {
	ID        int64      `gorm:"primaryKey"`                       // Primary key / Первичный ключ
	Address   string     `gorm:"type:varchar(45);not null;index"`  // IPv4/IPv6 address / Адрес IPv4/IPv6
	Kind      string     `gorm:"type:varchar(10);not null"`        // allow|deny
	IsActive  bool       `gorm:"not null;default:true"`            // Active flag / Флаг активности
	ExpiresAt *time.Time `gorm:""`                                 // Deny-only expiry / Истечение (только для deny)
	Reason    string     `gorm:"type:varchar(255)"`                // Free-form reason / Причина в свободной форме
	CreatedAt time.Time  `gorm:"not null"`                         // Creation time / Время создания
}

// TableName returns the database table name for IPRule entity.
// TableName возвращает имя таблицы в базе данных для сущности IPRule.
func (IPRule) TableName() string {
	return "ip_rules"
}

// Matches reports whether the rule applies to ip at the given moment.
// Matches сообщает, применимо ли правило к ip в данный момент.
func (r *IPRule) Matches(ip string, now time.Time) bool {
	if !r.IsActive || r.Address != ip {
		return false
	}
	if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return false
	}
	return true
}

// RequestMeta carries the ambient request context every authentication
// operation needs: client address, user agent and the device descriptor
// derived from it.
// RequestMeta несёт окружающий контекст запроса, необходимый каждой
// операции аутентификации: адрес клиента, user agent и производный от него
// дескриптор устройства.
type RequestMeta struct {
	IP        string // Client IP / IP клиента
	UserAgent string // Raw user agent / Исходный user agent
}

// Device derives a coarse device descriptor from the user agent. The parse
// is intentionally shallow: the descriptor feeds the fingerprint and the
// session list, not any security decision.
// Device выводит приблизительный дескриптор устройства из user agent.
// Разбор намеренно поверхностный: дескриптор используется для отпечатка и
// списка сессий, а не для решений безопасности.
func (m RequestMeta) Device() DeviceDescriptor {
	ua := strings.ToLower(m.UserAgent)
	d := DeviceDescriptor{Type: DeviceTypeDesktop, Browser: "Unknown", OS: "Unknown"}

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		d.Type = DeviceTypeTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		d.Type = DeviceTypeMobile
	case ua == "":
		d.Type = DeviceTypeUnknown
	}

	switch {
	case strings.Contains(ua, "edg/"):
		d.Browser = "Edge"
	case strings.Contains(ua, "firefox"):
		d.Browser = "Firefox"
	case strings.Contains(ua, "chrome"):
		d.Browser = "Chrome"
	case strings.Contains(ua, "safari"):
		d.Browser = "Safari"
	}

	switch {
	case strings.Contains(ua, "windows"):
		d.OS = "Windows"
	case strings.Contains(ua, "android"):
		d.OS = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		d.OS = "iOS"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		d.OS = "macOS"
	case strings.Contains(ua, "linux"):
		d.OS = "Linux"
	}

	d.Name = d.Browser + " on " + d.OS
	return d
}

// DeviceDescriptor is the coarse classification of a client device.
// DeviceDescriptor — приблизительная классификация клиентского устройства.
type DeviceDescriptor struct {
	Name    string // Display label / Отображаемая метка
	Type    string // desktop|mobile|tablet|unknown
	Browser string // Browser family / Семейство браузера
	OS      string // Operating system / Операционная система
}

// Fingerprint returns the deterministic device fingerprint: a SHA-256 hash
// of browser, OS and device class truncated to 16 hex characters. It only
// detects new devices for a user and is not a security boundary.
// Fingerprint возвращает детерминированный отпечаток устройства: SHA-256
// хэш браузера, ОС и класса устройства, усечённый до 16 шестнадцатеричных
// символов. Он лишь обнаруживает новые устройства пользователя и не
// является границей безопасности.
func (d DeviceDescriptor) Fingerprint() string {
	sum := sha256.Sum256([]byte(d.Browser + "|" + d.OS + "|" + d.Type))
	return hex.EncodeToString(sum[:])[:16]
}
