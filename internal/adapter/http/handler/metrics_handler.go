package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterMetrics exposes GET /metrics in Prometheus text format. The
// counters themselves live in the middleware package, which observes every
// request and every login outcome.
// RegisterMetrics открывает GET /metrics в текстовом формате Prometheus.
// Сами счётчики живут в пакете middleware, который наблюдает каждый запрос
// и каждый исход входа.
func RegisterMetrics(router *gin.Engine) {
	scrape := promhttp.Handler()
	router.GET("/metrics", func(c *gin.Context) {
		scrape.ServeHTTP(c.Writer, c.Request)
	})
}
