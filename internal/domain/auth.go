package domain

import "time"

// Login flow status constants. A login either completes with a session or
// parks in a challenge state carrying a pre-auth ticket.
// Константы статусов процесса входа. Вход либо завершается сессией, либо
// останавливается в состоянии вызова с pre-auth тикетом.
const (
	// LoginStatusSuccess means a session was established.
	// LoginStatusSuccess означает, что сессия установлена.
	LoginStatusSuccess = "success"

	// LoginStatusTwoFactorRequired means credentials passed and a second
	// factor must be submitted against the returned ticket.
	// LoginStatusTwoFactorRequired означает, что учётные данные приняты и
	// второй фактор должен быть отправлен с возвращённым тикетом.
	LoginStatusTwoFactorRequired = "2fa_required"

	// LoginStatusPasswordExpired means credentials passed but the password
	// must be changed via the returned ticket before a session is issued.
	// LoginStatusPasswordExpired означает, что учётные данные приняты, но
	// пароль должен быть изменён через возвращённый тикет до выдачи сессии.
	LoginStatusPasswordExpired = "password_expired"

	// LoginStatusTwoFactorSetupRequired means credentials passed but the
	// policy demands 2FA enrollment via the returned ticket before a
	// session is issued.
	// LoginStatusTwoFactorSetupRequired означает, что учётные данные
	// приняты, но политика требует регистрации 2FA через возвращённый
	// тикет до выдачи сессии.
	LoginStatusTwoFactorSetupRequired = "2fa_setup_required"
)

// Ticket kinds distinguish the remediation flows a login can park in.
// Виды тикетов различают процессы исправления, в которых может
// остановиться вход.
const (
	TicketKindTwoFactor      = "2fa"             // Second factor pending / Ожидается второй фактор
	TicketKindPasswordChange = "password_change" // Forced change pending / Ожидается принудительная смена
	TicketKindTwoFactorSetup = "2fa_setup"       // Forced enrollment pending / Ожидается принудительная регистрация
)

// TicketTTL bounds the lifetime of a pre-auth ticket.
// TicketTTL ограничивает время жизни pre-auth тикета.
const TicketTTL = 10 * time.Minute

// TicketMaxFailures is the number of failed completions after which a
// pre-auth ticket is invalidated.
// TicketMaxFailures — число неудачных завершений, после которого pre-auth
// тикет аннулируется.
const TicketMaxFailures = 3

// PreAuthTicket represents a login parked mid-flow: the user proved their
// password but still owes a second factor or a forced password change.
// The ticket is bound to the originating IP.
// PreAuthTicket представляет вход, остановленный посреди процесса:
// пользователь подтвердил пароль, но ещё должен второй фактор или
// принудительную смену пароля. Тикет привязан к исходному IP.
type PreAuthTicket struct {
	ID       string    `json:"id"`       // Random 128-bit identifier / Случайный 128-битный идентификатор
	UserID   int64     `json:"user_id"`  // Pending user / Ожидающий пользователь
	IP       string    `json:"ip"`       // Binding IP / Привязанный IP
	Kind     string    `json:"kind"`     // 2fa|password_change
	Failures int       `json:"failures"` // Failed completions so far / Неудачных завершений
	IssuedAt time.Time `json:"issued_at"` // Issue time / Время выдачи
}

// LoginResult is the outcome of a login attempt that was not rejected.
// LoginResult — итог попытки входа, которая не была отклонена.
type LoginResult struct {
	Status     string // One of LoginStatus* / Одна из констант LoginStatus*
	User       *User  // Authenticated user / Аутентифицированный пользователь
	SessionKey string // Set when Status == success / Заполнен при Status == success
	Ticket     string // Set for challenge states / Заполнен для состояний вызова
	NewDevice  bool   // Fingerprint was unknown / Отпечаток был неизвестен
}

// TwoFactorEnrollment is returned once when TOTP enrollment starts; the
// secret and backup codes are never retrievable again.
// TwoFactorEnrollment возвращается один раз при начале регистрации TOTP;
// секрет и резервные коды больше никогда не выдаются.
type TwoFactorEnrollment struct {
	Secret          string   `json:"secret"`           // Base32 shared secret / Общий секрет в base32
	ProvisioningURI string   `json:"qr_uri"`           // otpauth:// URI for QR / otpauth:// URI для QR
	BackupCodes     []string `json:"backup_codes"`     // Plaintext codes, shown once / Коды открытым текстом, показываются один раз
}

// SignupRequest represents self-registration input. New accounts always
// receive the Guest role.
// SignupRequest представляет данные саморегистрации. Новые аккаунты всегда
// получают роль Guest.
//
// Validation rules / Правила валидации:
//   - Username: Required, 3-150 characters / Обязательно, 3-150 символов
//   - Email: Required, valid email / Обязательно, валидный email
//   - Password, PasswordConfirm: Required, must match / Обязательно, должны совпадать
type SignupRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=150"`        // Login name / Имя для входа
	Email           string `json:"email" binding:"required,email"`                   // Email address / Email адрес
	Password        string `json:"password" binding:"required"`                      // Password / Пароль
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"` // Confirmation / Подтверждение
	FirstName       string `json:"first_name" binding:"max=150"`                     // Given name / Имя
	LastName        string `json:"last_name" binding:"max=150"`                      // Family name / Фамилия
}

// CreateUserRequest represents an administrative account creation.
// CreateUserRequest представляет административное создание аккаунта.
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=150"` // Login name / Имя для входа
	Email     string `json:"email" binding:"required,email"`            // Email address / Email адрес
	Password  string `json:"password" binding:"required"`               // Initial password / Начальный пароль
	Role      string `json:"role" binding:"required,oneof=superadmin staff_admin data_collector client guest"` // Account role / Роль аккаунта
	FirstName string `json:"first_name" binding:"max=150"`              // Given name / Имя
	LastName  string `json:"last_name" binding:"max=150"`               // Family name / Фамилия
}

// ChangePasswordRequest represents an authenticated password change.
// ChangePasswordRequest представляет аутентифицированную смену пароля.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current" binding:"required"` // Current password / Текущий пароль
	NewPassword     string `json:"new" binding:"required"`     // New password / Новый пароль
}
