// Package port defines interfaces (ports) for the application's external dependencies.
// Пакет port определяет интерфейсы (порты) для внешних зависимостей приложения.
package port

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
)

// PolicyService exposes the singleton security policy as an atomic
// snapshot. Reads are lock-free and frequent; updates are serialized and
// publish a fresh snapshot. A failure to obtain the policy fails closed:
// callers must reject the security decision.
// PolicyService предоставляет единую политику безопасности как атомарный
// снимок. Чтения свободны от блокировок и часты; обновления
// сериализуются и публикуют новый снимок. Ошибка получения политики
// закрывает доступ: вызывающие должны отклонить решение безопасности.
type PolicyService interface {
	// Snapshot returns the current immutable policy snapshot.
	// Snapshot возвращает текущий неизменяемый снимок политики.
	Snapshot(ctx context.Context) (*domain.SecurityPolicy, error)

	// Update applies the new policy, bumps its version, publishes the
	// snapshot and audits settings_changed.
	// Update применяет новую политику, увеличивает её версию, публикует
	// снимок и записывает settings_changed в аудит.
	Update(ctx context.Context, updated *domain.SecurityPolicy, actorID int64, meta domain.RequestMeta) (*domain.SecurityPolicy, error)

	// Reload re-reads the policy row from storage and republishes it.
	// Reload перечитывает строку политики из хранилища и публикует её заново.
	Reload(ctx context.Context) error
}

// CredentialService is the password boundary: plaintext passwords enter
// here and only hashes leave.
// CredentialService — граница паролей: пароли открытым текстом входят
// сюда, а выходят только хэши.
type CredentialService interface {
	// Verify reports whether plaintext matches the user's current password.
	// Verify сообщает, соответствует ли plaintext текущему паролю пользователя.
	Verify(ctx context.Context, user *domain.User, plaintext string) (bool, error)

	// SetPassword validates plaintext against the policy rules and history,
	// then atomically retires the old hash, trims history, replaces the
	// current hash and stamps password_changed_at.
	// SetPassword проверяет plaintext по правилам политики и истории, затем
	// атомарно убирает старый хэш в историю, обрезает историю, заменяет
	// текущий хэш и проставляет password_changed_at.
	SetPassword(ctx context.Context, userID int64, plaintext string) error

	// IsExpired reports whether the user's password is past its expiry.
	// An unset password_changed_at counts as expired when expiry is enforced.
	// IsExpired сообщает, истёк ли срок действия пароля пользователя.
	// Незаполненный password_changed_at считается истёкшим при включённом сроке.
	IsExpired(ctx context.Context, user *domain.User) (bool, error)

	// DaysUntilExpiry returns the whole days left before expiry. The second
	// result is false when the password never expires.
	// DaysUntilExpiry возвращает целые дни до истечения. Второй результат
	// равен false, когда пароль не истекает.
	DaysUntilExpiry(ctx context.Context, user *domain.User) (int, bool, error)

	// Validate checks a candidate password against the current policy rules
	// without touching any stored state.
	// Validate проверяет пароль-кандидат по текущим правилам политики, не
	// затрагивая хранимое состояние.
	Validate(ctx context.Context, candidate string) (bool, []string, error)
}

// TwoFactorService drives email OTP, TOTP enrollment and backup codes.
// TwoFactorService управляет email OTP, регистрацией TOTP и резервными кодами.
type TwoFactorService interface {
	// IssueEmailOTP generates a fresh 6-digit code, replacing any
	// outstanding one, and returns it for the notification dispatcher.
	// IssueEmailOTP генерирует свежий 6-значный код, заменяя любой
	// действующий, и возвращает его диспетчеру уведомлений.
	IssueEmailOTP(ctx context.Context, userID int64) (string, error)

	// VerifyEmailOTP consumes the outstanding code on success.
	// VerifyEmailOTP потребляет действующий код при успехе.
	VerifyEmailOTP(ctx context.Context, userID int64, code string) (bool, error)

	// StartEnroll creates a provisional TOTP device with a fresh secret and
	// a new backup code set. The secret and plaintext codes are returned
	// exactly once.
	// StartEnroll создаёт предварительное TOTP-устройство со свежим
	// секретом и новым набором резервных кодов. Секрет и коды открытым
	// текстом возвращаются ровно один раз.
	StartEnroll(ctx context.Context, user *domain.User) (*domain.TwoFactorEnrollment, error)

	// VerifySetup validates a code against the provisional secret; on
	// success the device becomes active and 2FA turns on for the user.
	// VerifySetup проверяет код по предварительному секрету; при успехе
	// устройство становится активным и 2FA включается для пользователя.
	VerifySetup(ctx context.Context, user *domain.User, code string, meta domain.RequestMeta) error

	// VerifyTOTP validates a code against the active secret within the
	// clock-skew window and records last_used_at.
	// VerifyTOTP проверяет код по активному секрету в окне допуска часов и
	// записывает last_used_at.
	VerifyTOTP(ctx context.Context, userID int64, code string) (bool, error)

	// VerifyBackupCode consumes the matching unused backup code.
	// VerifyBackupCode потребляет совпавший неиспользованный резервный код.
	VerifyBackupCode(ctx context.Context, userID int64, code string) (bool, error)

	// Disable removes the TOTP device and backup codes after the user
	// proves possession of a current factor.
	// Disable удаляет TOTP-устройство и резервные коды после того, как
	// пользователь докажет владение текущим фактором.
	Disable(ctx context.Context, user *domain.User, proofCode string, meta domain.RequestMeta) error

	// RegenerateBackupCodes invalidates the previous set and returns the
	// new plaintext codes once.
	// RegenerateBackupCodes аннулирует предыдущий набор и один раз
	// возвращает новые коды открытым текстом.
	RegenerateBackupCodes(ctx context.Context, user *domain.User, meta domain.RequestMeta) ([]string, error)
}

// LockState describes the lockout decision for a username or IP.
// LockState описывает решение о блокировке для имени пользователя или IP.
type LockState struct {
	Locked   bool      // Under an active lock / Под активной блокировкой
	UnlockAt time.Time // When the lock lifts / Когда блокировка снимется
	Failures int64     // Counted failures in the window / Учтённые неудачи в окне
}

// FailureOutcome reports the side effects of recording a failed attempt.
// FailureOutcome сообщает о побочных эффектах записи неудачной попытки.
type FailureOutcome struct {
	Failures    int64     // Counted failures after this one / Учтённых неудач после этой
	NewlyLocked bool      // This failure formed the lock / Эта неудача образовала блокировку
	UnlockAt    time.Time // Valid when NewlyLocked or locked / Действительно при блокировке
	Suspicious  bool      // Crossed the suspicious threshold / Пересечён порог подозрительности
}

// RiskService evaluates IP rules, failed-attempt windows and device
// fingerprints before and after credential checks.
// RiskService оценивает правила IP, окна неудачных попыток и отпечатки
// устройств до и после проверки учётных данных.
type RiskService interface {
	// CheckIP rejects the address per allowlist/denylist policy.
	// Returns nil when the address may proceed.
	// CheckIP отклоняет адрес согласно политике allowlist/denylist.
	// Возвращает nil, когда адрес может продолжить.
	CheckIP(ctx context.Context, ip string) error

	// CheckLock computes the current lock state for the username and IP.
	// CheckLock вычисляет текущее состояние блокировки для имени и IP.
	CheckLock(ctx context.Context, username, ip string) (*LockState, error)

	// RecordFailure appends to the attempt ledger and re-evaluates the lock
	// inside one transaction.
	// RecordFailure добавляет запись в журнал попыток и переоценивает
	// блокировку внутри одной транзакции.
	RecordFailure(ctx context.Context, username, reason string, meta domain.RequestMeta) (*FailureOutcome, error)

	// IsKnownDevice reports whether the fingerprint was seen for the user.
	// IsKnownDevice сообщает, встречался ли отпечаток у пользователя.
	IsKnownDevice(ctx context.Context, userID int64, fingerprint string) (bool, error)

	// ClearFailures wipes the ledger for a username (admin unlock).
	// ClearFailures очищает журнал для имени (разблокировка админом).
	ClearFailures(ctx context.Context, username string, actorID int64, meta domain.RequestMeta) (int64, error)
}

// SessionView is a session row decorated for display.
// SessionView — строка сессии, подготовленная для отображения.
type SessionView struct {
	Key          string    `json:"key"`           // Opaque session key / Непрозрачный ключ сессии
	DeviceName   string    `json:"device_name"`   // Device label / Метка устройства
	DeviceType   string    `json:"device_type"`   // desktop|mobile|tablet|unknown
	IP           string    `json:"ip"`            // Client IP / IP клиента
	Location     string    `json:"location"`      // Coarse location / Приблизительное местоположение
	CreatedAt    time.Time `json:"created_at"`    // Creation time / Время создания
	LastActivity time.Time `json:"last_activity"` // Last touch / Последняя активность
	LastSeen     string    `json:"last_seen"`     // Humanized inactivity / Время неактивности для людей
	IsCurrent    bool      `json:"is_current"`    // Session making the request / Сессия текущего запроса
}

// SessionService manages the active-session ledger per user.
// SessionService управляет реестром активных сессий пользователя.
type SessionService interface {
	// Create opens a session, enforcing single-session and the concurrency
	// cap inside a per-user transaction.
	// Create открывает сессию, применяя single-session и лимит
	// одновременности внутри транзакции по пользователю.
	Create(ctx context.Context, user *domain.User, meta domain.RequestMeta) (*domain.Session, error)

	// Resolve returns the live session for the key, nil when the key is
	// unknown, terminated or expired. Liveness is touched on success.
	// Resolve возвращает живую сессию по ключу, nil если ключ неизвестен,
	// завершён или истёк. При успехе обновляется активность.
	Resolve(ctx context.Context, key string) (*domain.Session, error)

	// Terminate removes the session and audits session_terminated.
	// Terminate удаляет сессию и записывает session_terminated в аудит.
	Terminate(ctx context.Context, key string, actorID int64, meta domain.RequestMeta) error

	// TerminateOthers removes every session of the user except currentKey.
	// TerminateOthers удаляет все сессии пользователя, кроме currentKey.
	TerminateOthers(ctx context.Context, userID int64, currentKey string, meta domain.RequestMeta) (int64, error)

	// List returns the user's active sessions decorated for display.
	// List возвращает активные сессии пользователя для отображения.
	List(ctx context.Context, userID int64, currentKey string) ([]SessionView, error)

	// CleanupStale removes idle and hard-expired sessions.
	// CleanupStale удаляет простаивающие и жёстко истёкшие сессии.
	CleanupStale(ctx context.Context) (int64, error)
}

// AuditService is the append-only security event stream with conditional
// ingestion driven by the policy log flags.
// AuditService — append-only поток событий безопасности с условным
// приёмом, управляемым флагами журнала политики.
type AuditService interface {
	// Record applies the ingestion rules and persists the event. Critical
	// events are recorded regardless of policy flags.
	// Record применяет правила приёма и сохраняет событие. Критические
	// события записываются независимо от флагов политики.
	Record(ctx context.Context, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error

	// RecordTx records an event within an existing transaction.
	// RecordTx записывает событие в рамках существующей транзакции.
	RecordTx(ctx context.Context, tx *gorm.DB, eventType, severity string, actorID, targetID *int64, meta domain.RequestMeta, details map[string]interface{}) error

	// List reads events matching the filter with a total count.
	// List читает события по фильтру с общим количеством.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error)

	// LoginHistory returns the user's recent successful logins.
	// LoginHistory возвращает последние успешные входы пользователя.
	LoginHistory(ctx context.Context, userID int64, limit int) ([]domain.AuditEvent, error)

	// CleanupExpired deletes events past the policy retention and records a
	// settings_changed event summarising the removal.
	// CleanupExpired удаляет события за пределами срока хранения политики и
	// записывает событие settings_changed с итогами удаления.
	CleanupExpired(ctx context.Context) (int64, error)
}

// AuthService is the orchestrating state machine composing the policy,
// credential, two-factor, risk, session and audit components.
// AuthService — оркестрирующий конечный автомат, объединяющий компоненты
// политики, учётных данных, двухфакторки, риска, сессий и аудита.
type AuthService interface {
	// Login runs the full login protocol: IP rules, account state, lockout,
	// password, expiry, 2FA requirement, session establishment.
	// Login выполняет полный протокол входа: правила IP, состояние
	// аккаунта, блокировка, пароль, истечение, требование 2FA,
	// установление сессии.
	Login(ctx context.Context, username, password string, meta domain.RequestMeta) (*domain.LoginResult, error)

	// SendLoginOTP issues an email OTP for a pending 2FA ticket and emits
	// it to the notification dispatcher.
	// SendLoginOTP выдаёт email OTP для ожидающего 2FA тикета и отправляет
	// его диспетчеру уведомлений.
	SendLoginOTP(ctx context.Context, ticketID string, meta domain.RequestMeta) error

	// CompleteTwoFactor finishes a pending login with an email OTP, TOTP or
	// backup code. Three failures invalidate the ticket.
	// CompleteTwoFactor завершает ожидающий вход с помощью email OTP, TOTP
	// или резервного кода. Три неудачи аннулируют тикет.
	CompleteTwoFactor(ctx context.Context, ticketID, code, method string, meta domain.RequestMeta) (*domain.LoginResult, error)

	// CompleteExpiredPasswordChange finishes a login parked on an expired
	// password by setting a new one, then establishes the session.
	// CompleteExpiredPasswordChange завершает вход, остановленный на
	// истёкшем пароле, установкой нового, затем создаёт сессию.
	CompleteExpiredPasswordChange(ctx context.Context, ticketID, newPassword string, meta domain.RequestMeta) (*domain.LoginResult, error)

	// StartTwoFactorSetup begins TOTP enrollment for a login parked on
	// forced 2FA setup; the enrollment payload is returned exactly once.
	// StartTwoFactorSetup начинает регистрацию TOTP для входа,
	// остановленного на принудительной настройке 2FA; данные регистрации
	// возвращаются ровно один раз.
	StartTwoFactorSetup(ctx context.Context, ticketID string, meta domain.RequestMeta) (*domain.TwoFactorEnrollment, error)

	// CompleteTwoFactorSetup verifies the first code, activates 2FA and
	// establishes the session. Three failures invalidate the ticket.
	// CompleteTwoFactorSetup проверяет первый код, включает 2FA и создаёт
	// сессию. Три неудачи аннулируют тикет.
	CompleteTwoFactorSetup(ctx context.Context, ticketID, code string, meta domain.RequestMeta) (*domain.LoginResult, error)

	// Logout terminates the session behind the key.
	// Logout завершает сессию за ключом.
	Logout(ctx context.Context, sessionKey string, meta domain.RequestMeta) error

	// Signup self-registers a Guest account and emits a welcome event.
	// Signup саморегистрирует аккаунт Guest и отправляет событие welcome.
	Signup(ctx context.Context, req *domain.SignupRequest, meta domain.RequestMeta) (*domain.User, error)

	// Authenticate resolves a session key into its user for middleware.
	// Authenticate разрешает ключ сессии в его пользователя для middleware.
	Authenticate(ctx context.Context, sessionKey string) (*domain.User, *domain.Session, error)

	// ChangePassword verifies the current password, sets the new one and
	// terminates every other session of the user.
	// ChangePassword проверяет текущий пароль, устанавливает новый и
	// завершает все остальные сессии пользователя.
	ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword, currentSessionKey string, meta domain.RequestMeta) error

	// RequestPasswordReset always succeeds from the caller's viewpoint; if
	// the account exists a signed, time-limited token is emitted.
	// RequestPasswordReset всегда успешен с точки зрения вызывающего; если
	// аккаунт существует, отправляется подписанный ограниченный токен.
	RequestPasswordReset(ctx context.Context, email string, meta domain.RequestMeta) error

	// ResetPassword validates the token binding and sets the new password.
	// ResetPassword проверяет привязку токена и устанавливает новый пароль.
	ResetPassword(ctx context.Context, userID int64, token, newPassword string, meta domain.RequestMeta) error
}

// UserService handles administrative account management.
// UserService выполняет административное управление аккаунтами.
type UserService interface {
	// Create creates an account with an explicit role.
	// Create создаёт аккаунт с явной ролью.
	Create(ctx context.Context, req *domain.CreateUserRequest, actorID int64, meta domain.RequestMeta) (*domain.User, error)

	// GetByID retrieves an account by id.
	// GetByID получает аккаунт по id.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// List retrieves accounts with filtering and pagination.
	// List получает аккаунты с фильтрацией и пагинацией.
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)

	// SetActive activates or deactivates an account. Deactivation also
	// terminates the account's sessions.
	// SetActive активирует или деактивирует аккаунт. Деактивация также
	// завершает сессии аккаунта.
	SetActive(ctx context.Context, id int64, active bool, actorID int64, meta domain.RequestMeta) error

	// ChangeRole reassigns the account's role.
	// ChangeRole переназначает роль аккаунта.
	ChangeRole(ctx context.Context, id int64, role string, actorID int64, meta domain.RequestMeta) error
}

// Notifier is the outbound port to the external notification dispatcher.
// Delivery failures surface as errors so callers can audit them, but must
// never roll back the auth transition that produced the event.
// Notifier — исходящий порт к внешнему диспетчеру уведомлений. Сбои
// доставки возвращаются как ошибки, чтобы вызывающие могли записать их в
// аудит, но никогда не должны откатывать породивший событие переход.
type Notifier interface {
	// Emit dispatches a typed notification event.
	// Emit отправляет типизированное событие уведомления.
	Emit(ctx context.Context, n *domain.Notification) error
}
