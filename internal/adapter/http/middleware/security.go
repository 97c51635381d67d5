package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig holds the CORS rules and security headers applied to every
// response. Session auth rides on a cookie, so cross-origin browsers only
// work when the origin is explicitly allowed and credentials are enabled.
// SecurityConfig содержит правила CORS и заголовки безопасности для каждого
// ответа. Сессионная аутентификация использует cookie, поэтому кросс-доменные
// браузеры работают только при явно разрешённом origin и включённых
// credentials.
type SecurityConfig struct {
	AllowOrigins     []string // Allowed origins, "*" = any / Разрешённые origin, "*" = любой
	AllowMethods     []string // Allowed HTTP methods / Разрешённые HTTP методы
	AllowHeaders     []string // Allowed request headers / Разрешённые заголовки запроса
	ExposeHeaders    []string // Headers readable by the client / Заголовки, доступные клиенту
	AllowCredentials bool     // Send cookies cross-origin / Передавать cookie кросс-доменно
	MaxAge           int      // Preflight cache, seconds / Кэш preflight, секунды

	ContentSecurityPolicy   string // CSP / CSP
	XFrameOptions           string // X-Frame-Options / X-Frame-Options
	XContentTypeOptions     string // X-Content-Type-Options / X-Content-Type-Options
	XXSSProtection          string // X-XSS-Protection / X-XSS-Protection
	ReferrerPolicy          string // Referrer-Policy / Referrer-Policy
	StrictTransportSecurity string // HSTS / HSTS
}

// DefaultSecurityConfig returns the development configuration: any origin,
// permissive CSP for local tooling.
// DefaultSecurityConfig возвращает конфигурацию для разработки: любой origin,
// мягкий CSP для локальных инструментов.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           86400,

		ContentSecurityPolicy:   "default-src 'none'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; connect-src 'self'",
		XFrameOptions:           "DENY",
		XContentTypeOptions:     "nosniff",
		XXSSProtection:          "1; mode=block",
		ReferrerPolicy:          "strict-origin-when-cross-origin",
		StrictTransportSecurity: "max-age=31536000; includeSubDomains",
	}
}

// ProductionSecurityConfig narrows the defaults to an explicit origin list
// and an API-only CSP. The origin list must be set, otherwise browsers
// cannot send the session cookie at all.
// ProductionSecurityConfig сужает значения по умолчанию до явного списка
// origin и CSP только для API. Список origin должен быть задан, иначе
// браузеры вообще не смогут передавать сессионную cookie.
func ProductionSecurityConfig(allowedOrigins []string) SecurityConfig {
	cfg := DefaultSecurityConfig()
	cfg.AllowOrigins = allowedOrigins
	cfg.ContentSecurityPolicy = "default-src 'none'"
	return cfg
}

// SecurityHeaders stamps the hardening headers on every response.
// SecurityHeaders ставит защитные заголовки на каждый ответ.
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", config.XContentTypeOptions)
		c.Header("X-Frame-Options", config.XFrameOptions)
		c.Header("X-XSS-Protection", config.XXSSProtection)
		c.Header("Referrer-Policy", config.ReferrerPolicy)

		// The swagger UI needs inline scripts, everything else gets the CSP.
		// Swagger UI требует inline скриптов, всё остальное получает CSP.
		if !strings.HasPrefix(c.Request.URL.Path, "/swagger") {
			c.Header("Content-Security-Policy", config.ContentSecurityPolicy)
		}

		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", config.StrictTransportSecurity)
		}

		c.Next()
	}
}

// CORS answers preflight requests and sets the cross-origin headers.
// Credentials are never combined with a wildcard origin; when a concrete
// origin is echoed back, Vary: Origin keeps shared caches honest.
// CORS отвечает на preflight запросы и устанавливает кросс-доменные
// заголовки. Credentials никогда не сочетаются с wildcard origin; при
// возврате конкретного origin заголовок Vary: Origin защищает общие кэши.
func CORS(config SecurityConfig) gin.HandlerFunc {
	wildcard := len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*"

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := wildcard || originAllowed(origin, config.AllowOrigins)

		if c.Request.Method == http.MethodOptions {
			if !allowed {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			setAllowOrigin(c, origin, wildcard, config.AllowCredentials)
			c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
			c.Header("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if allowed {
			setAllowOrigin(c, origin, wildcard, config.AllowCredentials)
		}
		if len(config.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
		}

		c.Next()
	}
}

func setAllowOrigin(c *gin.Context, origin string, wildcard, credentials bool) {
	if wildcard {
		c.Header("Access-Control-Allow-Origin", "*")
		return
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	if credentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == origin || a == "*" {
			return true
		}
	}
	return false
}

// NoCache forbids any caching of the response. Applied to the auth routes
// so session keys, tickets and profile data never land in shared caches.
// NoCache запрещает любое кэширование ответа. Применяется к маршрутам
// аутентификации, чтобы ключи сессий, тикеты и данные профиля не попадали
// в общие кэши.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
