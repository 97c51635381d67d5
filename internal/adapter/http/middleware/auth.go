package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// Context keys and cookie name for the authenticated session.
// Ключи контекста и имя cookie для аутентифицированной сессии.
const (
	// SessionCookieName is the HTTP cookie carrying the session key.
	// SessionCookieName — HTTP cookie, несущая ключ сессии.
	SessionCookieName = "session_key"

	// UserKey is the context key for the authenticated user.
	// UserKey — ключ контекста для аутентифицированного пользователя.
	UserKey = "auth_user"

	// SessionKey is the context key for the resolved session.
	// SessionKey — ключ контекста для разрешённой сессии.
	SessionKey = "auth_session"
)

// RequireAuth returns a middleware that resolves the session cookie into
// a user. The session key is also accepted from the Authorization header
// as "Bearer <key>" for non-browser clients.
// RequireAuth возвращает middleware, разрешающий cookie сессии в
// пользователя. Ключ сессии также принимается из заголовка Authorization
// в виде "Bearer <key>" для небраузерных клиентов.
func RequireAuth(auth port.AuthService, log *logger.Logger) gin.HandlerFunc {
	componentLog := log.WithComponent("auth_middleware")

	return func(c *gin.Context) {
		key := sessionKeyFromRequest(c)
		if key == "" {
			response.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, session, err := auth.Authenticate(c.Request.Context(), key)
		if err != nil {
			componentLog.WithContext(c.Request.Context()).Debug("session rejected", "error", err)
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(UserKey, user)
		c.Set(SessionKey, session)

		// Downstream log lines pick the user id up through WithContext.
		// Нижестоящие записи логов получают id пользователя через WithContext.
		c.Request = c.Request.WithContext(logger.WithUserIDContext(c.Request.Context(), user.ID))

		c.Next()
	}
}

// RequireStaff returns a middleware that rejects non-staff users. Denied
// attempts are recorded in the audit stream.
// RequireStaff возвращает middleware, отклоняющий пользователей не из
// персонала. Отклонённые попытки записываются в поток аудита.
func RequireStaff(audit port.AuditService, log *logger.Logger) gin.HandlerFunc {
	return requirePrivilege(audit, log, false)
}

// RequireSuperuser returns a middleware that admits only superadmins.
// RequireSuperuser возвращает middleware, допускающий только суперадминов.
func RequireSuperuser(audit port.AuditService, log *logger.Logger) gin.HandlerFunc {
	return requirePrivilege(audit, log, true)
}

func requirePrivilege(audit port.AuditService, log *logger.Logger, superuser bool) gin.HandlerFunc {
	componentLog := log.WithComponent("authz_middleware")

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Unauthorized(c, "")
			c.Abort()
			return
		}

		privileges := domain.RolePrivileges(user.Role)
		allowed := privileges.Staff
		if superuser {
			allowed = privileges.Superuser
		}
		RecordRoleCheck(allowed, c.FullPath(), c.Request.Method)

		if !allowed {
			meta := domain.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
			if err := audit.Record(c.Request.Context(), domain.EventAdminActionDenied, domain.SeverityWarning, &user.ID, nil, meta, map[string]interface{}{
				"path":   c.FullPath(),
				"method": c.Request.Method,
				"role":   user.Role,
			}); err != nil {
				componentLog.WithContext(c.Request.Context()).Warn("failed to audit denied action", "error", err)
			}
			response.Forbidden(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user from the Gin context, or nil.
// CurrentUser возвращает аутентифицированного пользователя из контекста Gin или nil.
func CurrentUser(c *gin.Context) *domain.User {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentSession returns the resolved session from the Gin context, or nil.
// CurrentSession возвращает разрешённую сессию из контекста Gin или nil.
func CurrentSession(c *gin.Context) *domain.Session {
	value, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*domain.Session)
	if !ok {
		return nil
	}
	return session
}

func sessionKeyFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	const bearerPrefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(bearerPrefix) && header[:len(bearerPrefix)] == bearerPrefix {
		return header[len(bearerPrefix):]
	}
	return ""
}
