// Package port defines interfaces (ports) for the application's external dependencies.
// Пакет port определяет интерфейсы (порты) для внешних зависимостей приложения.
//
// This package follows the Hexagonal Architecture (Ports and Adapters) pattern,
// where ports define the contracts that adapters must implement.
// Этот пакет следует паттерну Гексагональной Архитектуры (Порты и Адаптеры),
// где порты определяют контракты, которые должны реализовывать адаптеры.
package port

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
)

// UserFilter defines filtering options for user queries.
// UserFilter определяет параметры фильтрации для запросов пользователей.
type UserFilter struct {
	Status   string // "active", "inactive", "all" / "active", "inactive", "all"
	Role     string // Exact role / Точная роль
	Search   string // Search by username, email or name / Поиск по логину, email или имени
	Page     int    // Page number / Номер страницы
	PageSize int    // Items per page / Элементов на странице
}

// UserRepository defines the interface for user data access operations.
// UserRepository определяет интерфейс для операций доступа к данным пользователей.
//
// Username and email lookups are case-insensitive; implementations store
// both columns lowercase and callers may pass any casing.
// Поиск по имени пользователя и email нечувствителен к регистру; реализации
// хранят обе колонки в нижнем регистре, а вызывающие могут передавать любой
// регистр.
type UserRepository interface {
	// Create creates a new user in the database.
	// Create создаёт нового пользователя в базе данных.
	Create(ctx context.Context, user *domain.User) error

	// CreateTx creates a new user within an existing database transaction.
	// CreateTx создаёт нового пользователя в рамках существующей транзакции БД.
	CreateTx(ctx context.Context, tx *gorm.DB, user *domain.User) error

	// FindByID retrieves a user by their unique identifier.
	// FindByID получает пользователя по уникальному идентификатору.
	// Returns nil if user is not found.
	// Возвращает nil, если пользователь не найден.
	FindByID(ctx context.Context, id int64) (*domain.User, error)

	// FindByUsername retrieves a user by their login name.
	// FindByUsername получает пользователя по имени для входа.
	// Returns nil if user is not found.
	// Возвращает nil, если пользователь не найден.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByEmail retrieves a user by their email address.
	// FindByEmail получает пользователя по email адресу.
	// Returns nil if user is not found.
	// Возвращает nil, если пользователь не найден.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user's information.
	// Update обновляет информацию существующего пользователя.
	Update(ctx context.Context, user *domain.User) error

	// UpdateTx updates an existing user within a transaction.
	// UpdateTx обновляет пользователя в рамках транзакции.
	UpdateTx(ctx context.Context, tx *gorm.DB, user *domain.User) error

	// RecordLogin increments the login counter and stores the last login IP.
	// RecordLogin увеличивает счётчик входов и сохраняет IP последнего входа.
	RecordLogin(ctx context.Context, userID int64, ip string) error

	// Delete performs a soft delete on a user (sets deleted_at timestamp).
	// Delete выполняет мягкое удаление пользователя (устанавливает deleted_at).
	Delete(ctx context.Context, id int64) error

	// List retrieves users with filtering and pagination support.
	// List получает пользователей с поддержкой фильтрации и пагинации.
	// Returns the list of users, total count, and any error.
	// Возвращает список пользователей, общее количество и ошибку.
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)

	// ExistsByUsername checks if a user with the given login name exists.
	// ExistsByUsername проверяет, существует ли пользователь с таким логином.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if a user with the given email already exists.
	// ExistsByEmail проверяет, существует ли пользователь с указанным email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PasswordHistoryRepository manages retired password hashes.
// PasswordHistoryRepository управляет устаревшими хэшами паролей.
type PasswordHistoryRepository interface {
	// CreateTx appends a retired hash within a transaction.
	// CreateTx добавляет устаревший хэш в рамках транзакции.
	CreateTx(ctx context.Context, tx *gorm.DB, record *domain.PasswordRecord) error

	// FindRecent returns the newest count records for a user, newest first.
	// FindRecent возвращает новейшие count записей пользователя, начиная с новейшей.
	FindRecent(ctx context.Context, userID int64, count int) ([]domain.PasswordRecord, error)

	// TrimTx deletes all but the newest keep records within a transaction.
	// TrimTx удаляет все записи, кроме новейших keep, в рамках транзакции.
	TrimTx(ctx context.Context, tx *gorm.DB, userID int64, keep int) error
}

// TwoFactorRepository manages TOTP devices and backup codes.
// TwoFactorRepository управляет TOTP-устройствами и резервными кодами.
type TwoFactorRepository interface {
	// FindDevice returns the user's TOTP device, nil if none exists.
	// FindDevice возвращает TOTP-устройство пользователя, nil если его нет.
	FindDevice(ctx context.Context, userID int64) (*domain.TOTPDevice, error)

	// SaveDevice creates or replaces the user's TOTP device.
	// SaveDevice создаёт или заменяет TOTP-устройство пользователя.
	SaveDevice(ctx context.Context, device *domain.TOTPDevice) error

	// SaveDeviceTx creates or replaces the device within a transaction.
	// SaveDeviceTx создаёт или заменяет устройство в рамках транзакции.
	SaveDeviceTx(ctx context.Context, tx *gorm.DB, device *domain.TOTPDevice) error

	// UpdateDevice persists changes to an existing device.
	// UpdateDevice сохраняет изменения существующего устройства.
	UpdateDevice(ctx context.Context, device *domain.TOTPDevice) error

	// DeleteDevice removes the user's TOTP device.
	// DeleteDevice удаляет TOTP-устройство пользователя.
	DeleteDevice(ctx context.Context, userID int64) error

	// ReplaceBackupCodesTx atomically replaces the user's backup code set.
	// ReplaceBackupCodesTx атомарно заменяет набор резервных кодов пользователя.
	ReplaceBackupCodesTx(ctx context.Context, tx *gorm.DB, userID int64, codes []domain.BackupCode) error

	// FindUnusedBackupCodes returns the user's unconsumed backup codes.
	// FindUnusedBackupCodes возвращает неиспользованные резервные коды пользователя.
	FindUnusedBackupCodes(ctx context.Context, userID int64) ([]domain.BackupCode, error)

	// MarkBackupCodeUsed marks a code consumed at the given time.
	// MarkBackupCodeUsed помечает код использованным в указанное время.
	MarkBackupCodeUsed(ctx context.Context, codeID int64, usedAt time.Time) error

	// DeleteBackupCodes removes every backup code of the user.
	// DeleteBackupCodes удаляет все резервные коды пользователя.
	DeleteBackupCodes(ctx context.Context, userID int64) error
}

// SessionRepository manages the active-session ledger.
// SessionRepository управляет реестром активных сессий.
type SessionRepository interface {
	// CreateTx inserts a session within a transaction.
	// CreateTx вставляет сессию в рамках транзакции.
	CreateTx(ctx context.Context, tx *gorm.DB, session *domain.Session) error

	// FindByKey returns the session with the given key, nil if absent.
	// FindByKey возвращает сессию с данным ключом, nil если отсутствует.
	FindByKey(ctx context.Context, key string) (*domain.Session, error)

	// FindActiveByUserTx lists the user's sessions inside a transaction with
	// the user's rows locked, ordered by last activity descending.
	// FindActiveByUserTx перечисляет сессии пользователя внутри транзакции с
	// блокировкой строк пользователя, упорядоченные по убыванию активности.
	FindActiveByUserTx(ctx context.Context, tx *gorm.DB, userID int64) ([]domain.Session, error)

	// FindActiveByUser lists the user's sessions, newest activity first.
	// FindActiveByUser перечисляет сессии пользователя, сначала самые активные.
	FindActiveByUser(ctx context.Context, userID int64) ([]domain.Session, error)

	// HasFingerprint reports whether any session of the user ever carried
	// the fingerprint (expired sessions count: the device is still known).
	// HasFingerprint сообщает, имела ли какая-либо сессия пользователя этот
	// отпечаток (истёкшие сессии учитываются: устройство всё ещё известно).
	HasFingerprint(ctx context.Context, userID int64, fingerprint string) (bool, error)

	// Touch updates last_activity for the session key.
	// Touch обновляет last_activity для ключа сессии.
	Touch(ctx context.Context, key string, at time.Time) error

	// DeleteByKey removes a session, returning whether it existed.
	// DeleteByKey удаляет сессию, сообщая, существовала ли она.
	DeleteByKey(ctx context.Context, key string) (bool, error)

	// DeleteByKeyTx removes a session within a transaction.
	// DeleteByKeyTx удаляет сессию в рамках транзакции.
	DeleteByKeyTx(ctx context.Context, tx *gorm.DB, key string) (bool, error)

	// DeleteOthers removes all sessions of the user except keepKey,
	// returning the number removed.
	// DeleteOthers удаляет все сессии пользователя, кроме keepKey, сообщая
	// количество удалённых.
	DeleteOthers(ctx context.Context, userID int64, keepKey string) (int64, error)

	// DeleteStale removes sessions inactive since the cutoff or past their
	// hard expiry, returning the number removed.
	// DeleteStale удаляет сессии, неактивные с момента cutoff или с истёкшим
	// жёстким сроком, сообщая количество удалённых.
	DeleteStale(ctx context.Context, inactiveSince time.Time, now time.Time) (int64, error)
}

// LoginAttemptRepository is the append-only failed-attempt ledger.
// LoginAttemptRepository — append-only журнал неудачных попыток.
type LoginAttemptRepository interface {
	// CreateTx appends an attempt within a transaction.
	// CreateTx добавляет попытку в рамках транзакции.
	CreateTx(ctx context.Context, tx *gorm.DB, attempt *domain.FailedLoginAttempt) error

	// CountByUsernameTx counts credential failures for a username after
	// since, inside the same transaction that inserted the newest attempt.
	// Only reasons that precede the lock (invalid_password, invalid_username)
	// are counted, so attempts during a lock never extend it.
	// CountByUsernameTx считает неудачи по учётным данным для имени после
	// since внутри той же транзакции, что вставила новейшую попытку.
	// Учитываются только причины до блокировки (invalid_password,
	// invalid_username), поэтому попытки во время блокировки её не продлевают.
	CountByUsernameTx(ctx context.Context, tx *gorm.DB, username string, since time.Time) (int64, error)

	// CountByIPTx counts credential failures from an IP after since.
	// CountByIPTx считает неудачи по учётным данным с IP после since.
	CountByIPTx(ctx context.Context, tx *gorm.DB, ip string, since time.Time) (int64, error)

	// OldestCountedByUsername returns the creation time of the oldest counted
	// failure for the username after since, nil if none.
	// OldestCountedByUsername возвращает время создания старейшей учитываемой
	// неудачи для имени после since, nil если таких нет.
	OldestCountedByUsername(ctx context.Context, username string, since time.Time) (*time.Time, error)

	// OldestCountedByIP returns the creation time of the oldest counted
	// failure from the IP after since, nil if none.
	// OldestCountedByIP возвращает время создания старейшей учитываемой
	// неудачи с IP после since, nil если таких нет.
	OldestCountedByIP(ctx context.Context, ip string, since time.Time) (*time.Time, error)

	// CountByUsername counts credential failures outside a transaction.
	// CountByUsername считает неудачи по учётным данным вне транзакции.
	CountByUsername(ctx context.Context, username string, since time.Time) (int64, error)

	// CountByIP counts credential failures from an IP outside a transaction.
	// CountByIP считает неудачи с IP вне транзакции.
	CountByIP(ctx context.Context, ip string, since time.Time) (int64, error)

	// DeleteByUsername clears the ledger for a username (admin unlock),
	// returning the number removed.
	// DeleteByUsername очищает журнал для имени (разблокировка админом),
	// сообщая количество удалённых.
	DeleteByUsername(ctx context.Context, username string) (int64, error)
}

// IPRuleRepository manages allowlist and denylist entries.
// IPRuleRepository управляет записями списков разрешений и запретов.
type IPRuleRepository interface {
	// Create inserts a rule.
	// Create вставляет правило.
	Create(ctx context.Context, rule *domain.IPRule) error

	// FindActiveByKind returns active rules of the given kind.
	// FindActiveByKind возвращает активные правила заданного вида.
	FindActiveByKind(ctx context.Context, kind string) ([]domain.IPRule, error)

	// ListByKind returns every rule of the kind, newest first.
	// ListByKind возвращает все правила вида, сначала новейшие.
	ListByKind(ctx context.Context, kind string) ([]domain.IPRule, error)

	// Delete removes a rule by id, returning whether it existed.
	// Delete удаляет правило по id, сообщая, существовало ли оно.
	Delete(ctx context.Context, id int64) (bool, error)
}

// AuditRepository is the append-only audit event store.
// AuditRepository — append-only хранилище событий аудита.
type AuditRepository interface {
	// Create persists an event.
	// Create сохраняет событие.
	Create(ctx context.Context, event *domain.AuditEvent) error

	// CreateTx persists an event within a transaction.
	// CreateTx сохраняет событие в рамках транзакции.
	CreateTx(ctx context.Context, tx *gorm.DB, event *domain.AuditEvent) error

	// List reads events matching the filter, newest first, with total count.
	// List читает события по фильтру, сначала новейшие, с общим количеством.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error)

	// FindByActor returns recent events where the user acted.
	// FindByActor возвращает последние события, где пользователь действовал.
	FindByActor(ctx context.Context, actorID int64, eventType string, limit int) ([]domain.AuditEvent, error)

	// DeleteOlderThan removes events created before the cutoff, returning
	// the number removed.
	// DeleteOlderThan удаляет события, созданные до cutoff, сообщая
	// количество удалённых.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PolicyRepository persists the singleton security policy row.
// PolicyRepository сохраняет единственную строку политики безопасности.
type PolicyRepository interface {
	// Load reads the policy row, nil if it does not exist yet.
	// Load читает строку политики, nil если её ещё нет.
	Load(ctx context.Context) (*domain.SecurityPolicy, error)

	// Save upserts the policy row.
	// Save вставляет или обновляет строку политики.
	Save(ctx context.Context, policy *domain.SecurityPolicy) error
}

// Transaction provides database transaction support.
// Transaction обеспечивает поддержку транзакций базы данных.
type Transaction interface {
	// Begin starts a new database transaction.
	// Begin начинает новую транзакцию базы данных.
	Begin(ctx context.Context) (*gorm.DB, error)

	// Commit commits a transaction, making all changes permanent.
	// Commit фиксирует транзакцию, делая все изменения постоянными.
	Commit(tx *gorm.DB) error

	// Rollback rolls back a transaction, discarding all changes.
	// Rollback откатывает транзакцию, отменяя все изменения.
	Rollback(tx *gorm.DB) error

	// WithTransaction executes a function within a transaction.
	// WithTransaction выполняет функцию в рамках транзакции.
	// Automatically commits on success or rolls back on error.
	// Автоматически фиксирует при успехе или откатывает при ошибке.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
