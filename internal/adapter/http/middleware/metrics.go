// Package middleware provides HTTP middleware components for the Gin framework.
// Пакет middleware предоставляет компоненты HTTP middleware для фреймворка Gin.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors. Request traffic is observed by the Metrics
// middleware; the auth and role counters are fed by the handlers through
// the Record helpers below.
// Коллекторы Prometheus. Трафик запросов наблюдает middleware Metrics;
// счётчики аутентификации и ролей питаются обработчиками через хелперы
// Record ниже.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "account_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "account_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// Login attempts by outcome. Failures here include wrong credentials,
	// locked accounts and rejected 2FA codes.
	// Попытки входа по исходу. К неудачам относятся неверные учётные
	// данные, заблокированные аккаунты и отклонённые коды 2FA.
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// Admin endpoint role gate outcomes.
	// Исходы ролевой проверки административных эндпоинтов.
	roleChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_role_checks_total",
			Help: "Total number of admin role gate checks",
		},
		[]string{"result", "path", "method"},
	)
)

// Metrics observes every request: count, latency and the in-flight gauge.
// Metrics наблюдает каждый запрос: количество, задержку и gauge запросов в
// обработке.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordAuthAttempt counts one login attempt.
// RecordAuthAttempt учитывает одну попытку входа.
func RecordAuthAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRoleCheck counts one admin role gate decision.
// RecordRoleCheck учитывает одно решение ролевой проверки.
func RecordRoleCheck(allowed bool, path, method string) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	roleChecksTotal.WithLabelValues(result, path, method).Inc()
}
