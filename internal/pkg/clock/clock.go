// Package clock provides an injectable time source. Every expiry
// computation in the service layer (OTP, tickets, sessions, lockouts,
// reset tokens) reads the clock so tests can drive time deterministically.
// Пакет clock предоставляет внедряемый источник времени. Каждое вычисление
// истечения в сервисном слое (OTP, тикеты, сессии, блокировки, токены
// сброса) читает часы, чтобы тесты могли детерминированно управлять
// временем.
package clock

import "time"

// Clock is the time source abstraction.
// Clock — абстракция источника времени.
type Clock interface {
	// Now returns the current time.
	// Now возвращает текущее время.
	Now() time.Time
}

// System is the real wall clock.
// System — реальные системные часы.
type System struct{}

// Now returns time.Now().
// Now возвращает time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a test clock that can be advanced manually. It is not safe for
// concurrent mutation; tests advance it from a single goroutine.
// Fixed — тестовые часы, которые можно продвигать вручную. Небезопасны для
// конкурентной мутации; тесты продвигают их из одной горутины.
type Fixed struct {
	Current time.Time
}

// NewFixed creates a Fixed clock starting at t.
// NewFixed создаёт часы Fixed, начинающиеся с t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{Current: t}
}

// Now returns the frozen current time.
// Now возвращает замороженное текущее время.
func (f *Fixed) Now() time.Time {
	return f.Current
}

// Advance moves the clock forward by d.
// Advance продвигает часы вперёд на d.
func (f *Fixed) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
