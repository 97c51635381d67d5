// Package domain contains core business entities and value objects.
// Пакет domain содержит основные бизнес-сущности и объекты-значения.
package domain

import (
	"time"
)

// User role constants define the role of a platform account.
// Константы ролей определяют роль учётной записи на платформе.
const (
	// RoleSuperadmin grants full privileges over the platform.
	// RoleSuperadmin предоставляет полные привилегии на платформе.
	RoleSuperadmin = "superadmin"

	// RoleStaffAdmin grants staff-level administrative privileges.
	// RoleStaffAdmin предоставляет административные привилегии уровня персонала.
	RoleStaffAdmin = "staff_admin"

	// RoleDataCollector is a field operator who submits records.
	// RoleDataCollector — полевой оператор, который отправляет записи.
	RoleDataCollector = "data_collector"

	// RoleClient is a customer with read access to their reports.
	// RoleClient — клиент с доступом на чтение к своим отчётам.
	RoleClient = "client"

	// RoleGuest is the default role for self-signup accounts.
	// RoleGuest — роль по умолчанию для самостоятельно созданных аккаунтов.
	RoleGuest = "guest"
)

// ValidRoles lists every assignable role.
// ValidRoles перечисляет все назначаемые роли.
var ValidRoles = []string{RoleSuperadmin, RoleStaffAdmin, RoleDataCollector, RoleClient, RoleGuest}

// Privileges describes the derived access level of a role.
// Privileges описывает производный уровень доступа роли.
type Privileges struct {
	Staff     bool // Staff-level access / Доступ уровня персонала
	Superuser bool // Unrestricted access / Неограниченный доступ
}

// RolePrivileges maps a role to its privileges. It is a pure function:
// privileges are evaluated at authorization time and never stored.
// RolePrivileges сопоставляет роль с её привилегиями. Это чистая функция:
// привилегии вычисляются в момент авторизации и никогда не сохраняются.
func RolePrivileges(role string) Privileges {
	switch role {
	case RoleSuperadmin:
		return Privileges{Staff: true, Superuser: true}
	case RoleStaffAdmin:
		return Privileges{Staff: true}
	default:
		return Privileges{}
	}
}

// IsValidRole reports whether role is one of the assignable roles.
// IsValidRole сообщает, является ли role одной из назначаемых ролей.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a platform account: identity, role and login counters.
// Credential state (password hash, history) and 2FA state are owned by the
// user but live in their own records with their own locking granularity.
// User представляет учётную запись платформы: идентичность, роль и счётчики
// входов. Состояние учётных данных (хэш пароля, история) и состояние 2FA
// принадлежат пользователю, но хранятся в отдельных записях со своей
// гранулярностью блокировок.
//
// Fields:
//   - ID: Unique identifier (primary key)
//   - Username: Unique login name, stored lowercase
//   - Email: Unique email address, stored lowercase
//   - Role: One of the Role* constants
//   - IsActive: Whether the account may authenticate (deactivation is soft)
//   - PasswordHash: Argon2id hash of the current password
//   - PasswordChangedAt: When the password was last changed (nil forces expiry)
//   - LoginCount: Number of successful logins
//   - LastLoginIP: IP address of the most recent successful login
//   - TwoFactorEnabled: Whether a second factor is active for this account
//   - TwoFactorSetupRequired: Whether the account must enroll 2FA at next login
//
// Поля:
//   - ID: Уникальный идентификатор (первичный ключ)
//   - Username: Уникальное имя для входа, хранится в нижнем регистре
//   - Email: Уникальный email, хранится в нижнем регистре
//   - Role: Одна из констант Role*
//   - IsActive: Может ли аккаунт аутентифицироваться (деактивация — мягкая)
//   - PasswordHash: Argon2id хэш текущего пароля
//   - PasswordChangedAt: Когда пароль менялся в последний раз (nil означает истёкший)
//   - LoginCount: Число успешных входов
//   - LastLoginIP: IP-адрес последнего успешного входа
//   - TwoFactorEnabled: Активен ли второй фактор для аккаунта
//   - TwoFactorSetupRequired: Должен ли аккаунт настроить 2FA при следующем входе
type User struct {
	ID                     int64      `gorm:"primaryKey"`                    // Primary key / Первичный ключ
	Username               string     `gorm:"type:varchar(150);uniqueIndex;not null"` // Unique login / Уникальный логин
	Email                  string     `gorm:"type:varchar(255);uniqueIndex;not null"` // Unique email / Уникальный email
	FirstName              string     `gorm:"type:varchar(150)"`             // Given name / Имя
	LastName               string     `gorm:"type:varchar(150)"`             // Family name / Фамилия
	Role                   string     `gorm:"type:varchar(20);not null;default:'guest'"` // Account role / Роль аккаунта
	IsActive               bool       `gorm:"not null;default:true"`         // Active flag / Флаг активности
	PasswordHash           string     `gorm:"not null"`                      // Argon2id hash / Argon2id хэш
	PasswordChangedAt      *time.Time `gorm:""`                              // Last password change / Последняя смена пароля
	LoginCount             int64      `gorm:"not null;default:0"`            // Successful logins / Успешные входы
	LastLoginIP            *string    `gorm:"type:inet"`                     // Last login IP / IP последнего входа
	TwoFactorEnabled       bool       `gorm:"not null;default:false"`        // 2FA active / 2FA активна
	TwoFactorSetupRequired bool       `gorm:"not null;default:false"`        // 2FA enrollment required / Требуется настройка 2FA
	CreatedAt              time.Time  `gorm:"not null"`                      // Creation time / Время создания
	UpdatedAt              time.Time  `gorm:"not null"`                      // Update time / Время обновления
	DeletedAt              *time.Time `gorm:"index"`                         // Soft delete / Мягкое удаление
}

// TableName returns the database table name for User entity.
// TableName возвращает имя таблицы в базе данных для сущности User.
func (User) TableName() string {
	return "users"
}

// FullName returns the display name of the user.
// FullName возвращает отображаемое имя пользователя.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
