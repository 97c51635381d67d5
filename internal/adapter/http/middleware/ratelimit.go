package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/port"
)

// RateLimitConfig holds the two limits the service applies: a per-IP global
// limit over all endpoints and a much tighter per-IP limit on the login
// family of endpoints.
// RateLimitConfig содержит два лимита сервиса: глобальный на IP по всем
// эндпоинтам и значительно более жёсткий на IP для семейства эндпоинтов
// входа.
type RateLimitConfig struct {
	RequestsPerSecond      float64 // Global per-IP rate / Глобальная частота на IP
	Burst                  int     // Global burst / Глобальный пик
	LoginAttemptsPerMinute int     // Login attempts per IP / Попыток входа на IP
}

// DefaultRateLimitConfig returns the stock limits.
// DefaultRateLimitConfig возвращает стандартные лимиты.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond:      100,
		Burst:                  200,
		LoginAttemptsPerMinute: 5,
	}
}

// IPRateLimiter keeps one token bucket per client IP in process memory.
// Used for the global limit; login endpoints use the redis-backed limiter
// so the cap holds across instances.
// IPRateLimiter хранит по одному token bucket на IP клиента в памяти
// процесса. Используется для глобального лимита; эндпоинты входа используют
// ограничитель на базе redis, чтобы потолок действовал между экземплярами.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

// NewIPRateLimiter creates an empty per-IP limiter set.
// NewIPRateLimiter создаёт пустой набор ограничителей по IP.
func NewIPRateLimiter(config RateLimitConfig) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// allow takes one token from the bucket of ip, creating the bucket on first
// sight of the address.
// allow забирает один токен из bucket для ip, создавая bucket при первом
// появлении адреса.
func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.limiters[ip] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimitMiddleware enforces the global per-IP limit.
// RateLimitMiddleware применяет глобальный лимит на IP.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			response.TooManyRequests(c, "rate limit exceeded", 1)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedisRateLimiter counts requests in redis so the login cap is shared by
// every instance behind the balancer.
// RedisRateLimiter считает запросы в redis, поэтому потолок входа общий для
// всех экземпляров за балансировщиком.
type RedisRateLimiter struct {
	cache  port.RateLimitCache
	config RateLimitConfig
}

// NewRedisRateLimiter creates a redis-backed limiter.
// NewRedisRateLimiter создаёт ограничитель на базе redis.
func NewRedisRateLimiter(cache port.RateLimitCache, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		cache:  cache,
		config: config,
	}
}

// RedisLoginRateLimitMiddleware caps login-family requests per IP per
// minute. A redis failure lets the request through rather than taking
// authentication down with the cache; the account lockout still limits
// credential guessing.
// RedisLoginRateLimitMiddleware ограничивает запросы семейства входа на IP
// в минуту. Сбой redis пропускает запрос, а не роняет аутентификацию вместе
// с кэшем; блокировка аккаунта по-прежнему ограничивает подбор учётных
// данных.
func RedisLoginRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "login:" + c.ClientIP()

		count, err := limiter.cache.Increment(c.Request.Context(), key, time.Minute)
		if err != nil {
			c.Next()
			return
		}

		limit := int64(limiter.config.LoginAttemptsPerMinute)
		if count > limit {
			response.TooManyRequests(c, "too many login attempts, please try again later", 60)
			c.Abort()
			return
		}

		remaining := limit - count
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		c.Next()

		// A completed login clears the window, so earlier typos are not
		// charged against the next attempt.
		// Успешный вход очищает окно, поэтому прежние опечатки не
		// засчитываются в следующую попытку.
		if c.Writer.Status() == http.StatusOK {
			_ = limiter.cache.Reset(c.Request.Context(), key)
		}
	}
}
