// Package circuitbreaker shields outbound calls (the notification webhook)
// from a failing receiver: after enough consecutive failures further calls
// are rejected immediately until a cool-down passes and a probe succeeds.
// Пакет circuitbreaker защищает исходящие вызовы (webhook уведомлений) от
// падающего получателя: после достаточного числа подряд идущих сбоев
// дальнейшие вызовы отклоняются сразу, пока не пройдёт пауза и не удастся
// пробный запрос.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/clock"
)

// State is the breaker state.
// State — состояние breaker.
type State int

const (
	StateClosed   State = iota // Calls flow normally / Вызовы проходят нормально
	StateOpen                  // Calls rejected / Вызовы отклоняются
	StateHalfOpen              // Probing for recovery / Проверка восстановления
)

// String returns the state name used in logs.
// String возвращает имя состояния, используемое в логах.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a breaker. Zero values fall back to the defaults of
// DefaultConfig.
// Config настраивает breaker. Нулевые значения заменяются значениями по
// умолчанию из DefaultConfig.
type Config struct {
	Name                string                         // Identifier for logs / Идентификатор для логов
	MaxFailures         int                            // Failures before opening / Сбоев до размыкания
	Timeout             time.Duration                  // Open-state cool-down / Пауза в разомкнутом состоянии
	MaxHalfOpenRequests int                            // Probes allowed half-open / Проб в полуоткрытом состоянии
	OnStateChange       func(name string, from, to State) // Transition callback / Callback перехода
	Clock               clock.Clock                    // Time source, nil = system / Источник времени, nil = системный
}

// DefaultConfig returns the baseline breaker settings.
// DefaultConfig возвращает базовые настройки breaker.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// CircuitBreaker tracks consecutive transient failures of one dependency.
// CircuitBreaker отслеживает подряд идущие временные сбои одной зависимости.
type CircuitBreaker struct {
	config Config
	clk    clock.Clock

	mu               sync.RWMutex
	state            State
	failures         int
	successes        int
	lastFailureAt    time.Time
	halfOpenRequests int
}

// New creates a breaker in the closed state.
// New создаёт breaker в замкнутом состоянии.
func New(config Config) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxHalfOpenRequests <= 0 {
		config.MaxHalfOpenRequests = 1
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.System{}
	}

	return &CircuitBreaker{
		config: config,
		clk:    clk,
		state:  StateClosed,
	}
}

// Execute runs fn under the breaker. When the breaker is open the call is
// rejected with a SERVICE_UNAVAILABLE error without invoking fn.
// Execute запускает fn под защитой breaker. Когда breaker разомкнут, вызов
// отклоняется с ошибкой SERVICE_UNAVAILABLE без запуска fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// ExecuteWithResult is Execute for calls that return a value.
// ExecuteWithResult — Execute для вызовов, возвращающих значение.
func ExecuteWithResult[T any](ctx context.Context, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.admit(); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	cb.record(err)
	return result, err
}

// admit decides whether a call may proceed, moving open to half-open once
// the cool-down has elapsed.
// admit решает, может ли вызов пройти, переводя open в half-open после
// истечения паузы.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.clk.Now().Sub(cb.lastFailureAt) > cb.config.Timeout {
			cb.transition(StateHalfOpen)
			cb.halfOpenRequests = 1
			return nil
		}
		return apperror.ServiceUnavailable("service temporarily unavailable (circuit breaker open)")

	case StateHalfOpen:
		if cb.halfOpenRequests < cb.config.MaxHalfOpenRequests {
			cb.halfOpenRequests++
			return nil
		}
		return apperror.ServiceUnavailable("service temporarily unavailable (circuit breaker half-open)")
	}

	return nil
}

// record folds an execution result into the failure tracking. Business
// errors pass through without touching the breaker; only transient
// failures count toward opening it.
// record учитывает результат выполнения в отслеживании сбоев. Бизнес-ошибки
// проходят, не затрагивая breaker; к размыканию ведут только временные сбои.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err == nil:
		cb.onSuccess()
	case isTransient(err):
		cb.onFailure()
	}
}

// isTransient reports whether the error indicates a dependency outage
// rather than a rejected request. Unknown error types are treated as
// outages.
// isTransient сообщает, указывает ли ошибка на недоступность зависимости,
// а не на отклонённый запрос. Неизвестные типы ошибок считаются
// недоступностью.
func isTransient(err error) bool {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == apperror.CodeInternal || appErr.Code == apperror.CodeServiceUnavailable
	}
	return true
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureAt = cb.clk.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately.
		// Неудачная проба размыкает сразу.
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.MaxHalfOpenRequests {
			cb.transition(StateClosed)
		}
	}
}

// transition changes state and resets the counters. The callback runs on
// its own goroutine so a slow observer cannot hold the breaker lock.
// transition меняет состояние и сбрасывает счётчики. Callback выполняется
// в отдельной горутине, чтобы медленный наблюдатель не держал блокировку
// breaker.
func (cb *CircuitBreaker) transition(next State) {
	if cb.state == next {
		return
	}

	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenRequests = 0

	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(cb.config.Name, prev, next)
	}
}

// State returns the current breaker state.
// State возвращает текущее состояние breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the consecutive transient failure count.
// Failures возвращает число подряд идущих временных сбоев.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset force-closes the breaker.
// Reset принудительно замыкает breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenRequests = 0
}
