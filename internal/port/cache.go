// Package port defines interfaces (ports) for the application's external dependencies.
// Пакет port определяет интерфейсы (порты) для внешних зависимостей приложения.
package port

import (
	"context"
	"time"

	"github.com/andrewhigh08/account-core/internal/domain"
)

// TicketCache stores pre-auth tickets: logins parked mid-flow awaiting a
// second factor or a forced password change. Tickets expire by TTL and are
// consumed exactly once.
// TicketCache хранит pre-auth тикеты: входы, остановленные посреди процесса
// в ожидании второго фактора или принудительной смены пароля. Тикеты
// истекают по TTL и потребляются ровно один раз.
type TicketCache interface {
	// Store saves a ticket under its id with the given TTL.
	// Store сохраняет тикет под его id с заданным TTL.
	Store(ctx context.Context, ticket *domain.PreAuthTicket, ttl time.Duration) error

	// Get returns the ticket by id, nil if absent or expired.
	// Get возвращает тикет по id, nil если отсутствует или истёк.
	Get(ctx context.Context, id string) (*domain.PreAuthTicket, error)

	// RecordFailure increments the ticket's failure counter, preserving the
	// remaining TTL, and returns the new count. When the counter reaches the
	// limit the caller deletes the ticket.
	// RecordFailure увеличивает счётчик неудач тикета, сохраняя оставшийся
	// TTL, и возвращает новое значение. Когда счётчик достигает предела,
	// вызывающий удаляет тикет.
	RecordFailure(ctx context.Context, id string) (int, error)

	// Delete removes a ticket (consumption or invalidation).
	// Delete удаляет тикет (потребление или аннулирование).
	Delete(ctx context.Context, id string) error
}

// OTPCache stores the single outstanding email OTP per user. Issuing a new
// code atomically replaces any prior one; successful verification consumes
// the code.
// OTPCache хранит единственный действующий email OTP на пользователя.
// Выдача нового кода атомарно заменяет предыдущий; успешная проверка
// потребляет код.
type OTPCache interface {
	// StoreCode saves the code for the user with the given TTL, replacing
	// any outstanding code.
	// StoreCode сохраняет код для пользователя с заданным TTL, заменяя
	// любой действующий код.
	StoreCode(ctx context.Context, userID int64, code string, ttl time.Duration) error

	// GetCode returns the outstanding code, empty string if none.
	// GetCode возвращает действующий код, пустую строку если его нет.
	GetCode(ctx context.Context, userID int64) (string, error)

	// DeleteCode clears the outstanding code (single-use consumption).
	// DeleteCode очищает действующий код (одноразовое потребление).
	DeleteCode(ctx context.Context, userID int64) error
}

// RateLimitCache counts login attempts per client in a fixed window. The
// counter backs the pre-auth throttle on the login endpoints and is cleared
// once a client signs in successfully.
// RateLimitCache считает попытки входа клиента в фиксированном окне. Счётчик
// обеспечивает pre-auth троттлинг на эндпоинтах входа и очищается после
// успешного входа клиента.
type RateLimitCache interface {
	// Increment increments a counter and returns the new value.
	// Increment увеличивает счётчик и возвращает новое значение.
	// Sets expiration if this is a new key.
	// Устанавливает время истечения, если это новый ключ.
	Increment(ctx context.Context, key string, expiration time.Duration) (int64, error)

	// Reset clears the counter for a key after a successful login.
	// Reset сбрасывает счётчик для ключа после успешного входа.
	Reset(ctx context.Context, key string) error
}
