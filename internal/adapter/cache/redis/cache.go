// Package redis provides Redis-based cache implementations.
// Пакет redis предоставляет реализации кэша на базе Redis.
//
// This package implements all cache interfaces defined in port package
// using Redis as the underlying storage.
// Этот пакет реализует все интерфейсы кэша, определённые в пакете port,
// используя Redis в качестве хранилища.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// TicketCache implements port.TicketCache using Redis.
// TicketCache реализует интерфейс port.TicketCache с использованием Redis.
//
// Stores short-lived pre-auth tickets issued between the password step and
// the second factor (or forced password change). The TTL enforces the
// ticket lifetime; no background sweeping is needed.
// Хранит короткоживущие pre-auth тикеты, выдаваемые между проверкой пароля
// и вторым фактором (или принудительной сменой пароля). TTL обеспечивает
// время жизни тикета; фоновая очистка не требуется.
type TicketCache struct {
	client *redis.Client // Redis client / Клиент Redis
	prefix string        // Key prefix / Префикс ключа
}

// NewTicketCache creates a new TicketCache instance.
// NewTicketCache создаёт новый экземпляр TicketCache.
func NewTicketCache(client *redis.Client) *TicketCache {
	return &TicketCache{
		client: client,
		prefix: "ticket",
	}
}

// Store saves a ticket as JSON under its id with the given TTL.
// Store сохраняет тикет в формате JSON под его id с заданным TTL.
func (c *TicketCache) Store(ctx context.Context, ticket *domain.PreAuthTicket, ttl time.Duration) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return apperror.Internal("failed to marshal ticket", err)
	}

	key := fmt.Sprintf("%s:%s", c.prefix, ticket.ID)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperror.Internal("failed to store ticket", err)
	}
	return nil
}

// Get retrieves a ticket by id. Returns nil when the ticket does not exist
// or has expired.
// Get получает тикет по id. Возвращает nil, если тикет не существует или
// истёк.
func (c *TicketCache) Get(ctx context.Context, ticketID string) (*domain.PreAuthTicket, error) {
	key := fmt.Sprintf("%s:%s", c.prefix, ticketID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperror.Internal("failed to get ticket", err)
	}

	var ticket domain.PreAuthTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, apperror.Internal("failed to unmarshal ticket", err)
	}
	return &ticket, nil
}

// RecordFailure increments the failure counter on a ticket without
// extending its TTL, and returns the new failure count. Returns 0 when
// the ticket no longer exists.
// RecordFailure увеличивает счётчик неудач тикета, не продлевая его TTL,
// и возвращает новое количество неудач. Возвращает 0, если тикет больше
// не существует.
func (c *TicketCache) RecordFailure(ctx context.Context, ticketID string) (int, error) {
	key := fmt.Sprintf("%s:%s", c.prefix, ticketID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, apperror.Internal("failed to get ticket", err)
	}

	var ticket domain.PreAuthTicket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return 0, apperror.Internal("failed to unmarshal ticket", err)
	}

	ticket.Failures++

	updated, err := json.Marshal(&ticket)
	if err != nil {
		return 0, apperror.Internal("failed to marshal ticket", err)
	}

	// KeepTTL preserves the original expiry so failed codes can't be used
	// to stretch the ticket lifetime.
	// KeepTTL сохраняет исходное время истечения, чтобы неверные коды не
	// могли продлить жизнь тикета.
	if err := c.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return 0, apperror.Internal("failed to update ticket", err)
	}
	return ticket.Failures, nil
}

// Delete removes a ticket (after consumption or too many failures).
// Delete удаляет тикет (после использования или слишком большого числа неудач).
func (c *TicketCache) Delete(ctx context.Context, ticketID string) error {
	key := fmt.Sprintf("%s:%s", c.prefix, ticketID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return apperror.Internal("failed to delete ticket", err)
	}
	return nil
}

// OTPCache implements port.OTPCache using Redis.
// OTPCache реализует интерфейс port.OTPCache с использованием Redis.
//
// Stores one-time email codes keyed by user id. A new code overwrites the
// previous one, so at most one code per user is valid at a time.
// Хранит одноразовые email-коды по id пользователя. Новый код перезаписывает
// предыдущий, поэтому в любой момент действует не более одного кода на
// пользователя.
type OTPCache struct {
	client *redis.Client // Redis client / Клиент Redis
	prefix string        // Key prefix / Префикс ключа
}

// NewOTPCache creates a new OTPCache instance.
// NewOTPCache создаёт новый экземпляр OTPCache.
func NewOTPCache(client *redis.Client) *OTPCache {
	return &OTPCache{
		client: client,
		prefix: "otp:email",
	}
}

// StoreCode saves the code for a user with the given TTL.
// StoreCode сохраняет код для пользователя с заданным TTL.
func (c *OTPCache) StoreCode(ctx context.Context, userID int64, code string, ttl time.Duration) error {
	key := fmt.Sprintf("%s:%d", c.prefix, userID)
	if err := c.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return apperror.Internal("failed to store otp code", err)
	}
	return nil
}

// GetCode retrieves the current code for a user. Returns an empty string
// when no code is pending.
// GetCode получает текущий код для пользователя. Возвращает пустую строку,
// если ожидающего кода нет.
func (c *OTPCache) GetCode(ctx context.Context, userID int64) (string, error) {
	key := fmt.Sprintf("%s:%d", c.prefix, userID)

	code, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", apperror.Internal("failed to get otp code", err)
	}
	return code, nil
}

// DeleteCode removes the pending code for a user, enforcing single use.
// DeleteCode удаляет ожидающий код пользователя, обеспечивая однократное использование.
func (c *OTPCache) DeleteCode(ctx context.Context, userID int64) error {
	key := fmt.Sprintf("%s:%d", c.prefix, userID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return apperror.Internal("failed to delete otp code", err)
	}
	return nil
}

// RateLimitCache implements port.RateLimitCache using Redis.
// RateLimitCache реализует интерфейс port.RateLimitCache с использованием Redis.
//
// Counts login attempts per client in fixed windows backed by Redis atomic
// counters, so the throttle holds across all API replicas.
// Считает попытки входа клиента в фиксированных окнах на основе атомарных
// счётчиков Redis, поэтому троттлинг действует на все реплики API.
type RateLimitCache struct {
	client *redis.Client // Redis client / Клиент Redis
	prefix string        // Key prefix / Префикс ключа
}

// NewRateLimitCache creates a new RateLimitCache instance.
// NewRateLimitCache создаёт новый экземпляр RateLimitCache.
func NewRateLimitCache(client *redis.Client) *RateLimitCache {
	return &RateLimitCache{
		client: client,
		prefix: "ratelimit",
	}
}

// Increment increments a counter and returns the new value.
// Increment увеличивает счётчик и возвращает новое значение.
// The expiration is applied only when the key is created, so the window is
// fixed rather than sliding.
// Время истечения применяется только при создании ключа, поэтому окно
// фиксированное, а не скользящее.
func (c *RateLimitCache) Increment(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, expiration)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return 0, apperror.Internal("failed to increment rate limit counter", err)
	}

	return incr.Val(), nil
}

// Reset clears the counter for a key after a successful login, so a user who
// mistyped their password a few times starts the next window clean.
// Reset очищает счётчик для ключа после успешного входа, чтобы пользователь,
// несколько раз ошибившийся в пароле, начинал следующее окно с нуля.
func (c *RateLimitCache) Reset(ctx context.Context, key string) error {
	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return apperror.Internal("failed to reset rate limit counter", err)
	}
	return nil
}
