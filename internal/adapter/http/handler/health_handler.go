package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
)

// HealthHandler serves the Kubernetes probes. Liveness only proves the
// process answers; readiness additionally pings postgres and redis because
// the service cannot authenticate anyone without either of them.
// HealthHandler обслуживает пробы Kubernetes. Liveness лишь подтверждает,
// что процесс отвечает; readiness дополнительно пингует postgres и redis,
// потому что без любого из них сервис не может никого аутентифицировать.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler creates a HealthHandler over the shared connections.
// NewHealthHandler создаёт HealthHandler над общими подключениями.
func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// HealthStatus is the probe response body.
// HealthStatus — тело ответа пробы.
type HealthStatus struct {
	Status    string           `json:"status"`           // ok or degraded / ok или degraded
	Timestamp string           `json:"timestamp"`        // Probe time / Время пробы
	Checks    map[string]Check `json:"checks,omitempty"` // Per-dependency results / Результаты по зависимостям
}

// Check is the result for one dependency.
// Check — результат по одной зависимости.
type Check struct {
	Status  string `json:"status"`            // healthy or unhealthy / healthy или unhealthy
	Message string `json:"message,omitempty"` // Failure reason / Причина сбоя
}

// Live handles GET /health/live.
// Live обрабатывает GET /health/live.
// @Summary Liveness probe
// @Description Check if the service is alive
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /health/ready.
// Ready обрабатывает GET /health/ready.
// @Summary Readiness probe
// @Description Check if the service can reach postgres and redis
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database": h.checkDatabase(ctx),
	}
	if h.redis != nil {
		checks["redis"] = h.checkRedis(ctx)
	}

	status, httpStatus := "ok", http.StatusOK
	for _, check := range checks {
		if check.Status != "healthy" {
			status, httpStatus = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy"}
}

func (h *HealthHandler) checkRedis(ctx context.Context) Check {
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return Check{Status: "unhealthy", Message: err.Error()}
	}
	return Check{Status: "healthy"}
}

// Health handles GET /health, kept for load balancers that expect a flat
// endpoint.
// Health обрабатывает GET /health, сохранён для балансировщиков, ожидающих
// плоский эндпоинт.
// @Summary Health check
// @Description Basic health check
// @Tags health
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
