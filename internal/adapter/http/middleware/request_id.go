// Package middleware provides HTTP middleware components for the Gin framework.
// Пакет middleware предоставляет компоненты HTTP middleware для фреймворка Gin.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andrewhigh08/account-core/internal/pkg/logger"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	// RequestIDHeader переносит ID запроса в обе стороны.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin context key holding the request ID.
	// RequestIDKey — ключ контекста gin, хранящий ID запроса.
	RequestIDKey = "request_id"
)

// RequestID tags every request with an ID, echoes it back in the response
// and threads it into the logger context so audit and security log lines of
// one login attempt correlate. A client-supplied ID is honored only when it
// parses as a UUID, anything else is replaced.
// RequestID помечает каждый запрос идентификатором, возвращает его в ответе
// и пробрасывает в контекст логгера, чтобы строки аудита и журнала
// безопасности одной попытки входа коррелировали. Присланный клиентом ID
// принимается, только если парсится как UUID, иначе заменяется.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		ctx := logger.WithRequestIDContext(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "" when absent.
// GetRequestID возвращает ID запроса, установленный RequestID, или "" при
// отсутствии.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(RequestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
