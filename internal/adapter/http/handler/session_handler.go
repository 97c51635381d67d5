package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// SessionHandler exposes the user's active-session ledger.
// SessionHandler предоставляет реестр активных сессий пользователя.
type SessionHandler struct {
	sessionService port.SessionService // Session ledger / Реестр сессий
	logger         *logger.Logger      // Logger instance / Экземпляр логгера
}

// NewSessionHandler creates a new SessionHandler instance.
// NewSessionHandler создаёт новый экземпляр SessionHandler.
func NewSessionHandler(sessionService port.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         log.WithComponent("session_handler"),
	}
}

// List handles GET /auth/sessions.
// List обрабатывает GET /auth/sessions.
// @Summary List active sessions
// @Description List the caller's active sessions with device info; the current one is marked
// @Tags sessions
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse{data=[]port.SessionView}
// @Failure 401 {object} response.APIResponse
// @Router /auth/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	session := middleware.CurrentSession(c)
	if user == nil || session == nil {
		response.Unauthorized(c, "")
		return
	}

	views, err := h.sessionService.List(c.Request.Context(), user.ID, session.Key)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, views)
}

// Terminate handles POST /auth/sessions/:key/terminate.
// Terminate обрабатывает POST /auth/sessions/:key/terminate.
// @Summary Terminate a session
// @Description Terminate one of the caller's own sessions by key
// @Tags sessions
// @Produce json
// @Security SessionCookie
// @Param key path string true "Session key"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /auth/sessions/{key}/terminate [post]
func (h *SessionHandler) Terminate(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	key := c.Param("key")

	// Ownership check: a user may only terminate keys from their own list.
	// Проверка владения: пользователь может завершать только ключи из
	// собственного списка.
	views, err := h.sessionService.List(c.Request.Context(), user.ID, "")
	if err != nil {
		response.Error(c, err)
		return
	}
	owned := false
	for _, v := range views {
		if v.Key == key {
			owned = true
			break
		}
	}
	if !owned {
		response.NotFound(c, "session", key)
		return
	}

	if err := h.sessionService.Terminate(c.Request.Context(), key, user.ID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Session terminated"})
}

// TerminateOthers handles POST /auth/sessions/terminate-others.
// TerminateOthers обрабатывает POST /auth/sessions/terminate-others.
// @Summary Terminate all other sessions
// @Description Terminate every session of the caller except the current one
// @Tags sessions
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/sessions/terminate-others [post]
func (h *SessionHandler) TerminateOthers(c *gin.Context) {
	user := middleware.CurrentUser(c)
	session := middleware.CurrentSession(c)
	if user == nil || session == nil {
		response.Unauthorized(c, "")
		return
	}

	terminated, err := h.sessionService.TerminateOthers(c.Request.Context(), user.ID, session.Key, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"terminated": terminated})
}
