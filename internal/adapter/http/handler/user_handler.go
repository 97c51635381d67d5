package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// UserHandler handles administrative user management requests.
// UserHandler обрабатывает запросы административного управления пользователями.
type UserHandler struct {
	userService port.UserService  // User service / Сервис пользователей
	audit       port.AuditService // Audit stream for login history / Поток аудита для истории входов
	logger      *logger.Logger    // Logger instance / Экземпляр логгера
}

// NewUserHandler creates a new UserHandler instance.
// NewUserHandler создаёт новый экземпляр UserHandler.
func NewUserHandler(userService port.UserService, audit port.AuditService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		audit:       audit,
		logger:      log.WithComponent("user_handler"),
	}
}

// UserResponse represents a user in administrative API responses.
// UserResponse представляет пользователя в административных ответах API.
type UserResponse struct {
	ID               int64      `json:"id"`                  // User ID / ID пользователя
	Username         string     `json:"username"`            // Login name / Имя для входа
	Email            string     `json:"email"`               // Email address / Email адрес
	FirstName        string     `json:"first_name"`          // Given name / Имя
	LastName         string     `json:"last_name"`           // Family name / Фамилия
	Role             string     `json:"role"`                // Account role / Роль аккаунта
	IsActive         bool       `json:"is_active"`           // Active flag / Флаг активности
	TwoFactorEnabled bool       `json:"two_factor_enabled"`  // TOTP active / TOTP активен
	LoginCount       int64      `json:"login_count"`         // Successful logins / Успешных входов
	LastLoginIP      string     `json:"last_login_ip"`       // Last login address / Адрес последнего входа
	PasswordChanged  *time.Time `json:"password_changed_at"` // Last password change / Последняя смена пароля
	CreatedAt        time.Time  `json:"created_at"`          // Creation time / Время создания
}

func userResponse(u *domain.User) UserResponse {
	lastIP := ""
	if u.LastLoginIP != nil {
		lastIP = *u.LastLoginIP
	}
	return UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             u.Role,
		IsActive:         u.IsActive,
		TwoFactorEnabled: u.TwoFactorEnabled,
		LoginCount:       u.LoginCount,
		LastLoginIP:      lastIP,
		PasswordChanged:  u.PasswordChangedAt,
		CreatedAt:        u.CreatedAt,
	}
}

// ListUsers handles GET /admin/users.
// ListUsers обрабатывает GET /admin/users.
// @Summary List users
// @Description Get a paginated list of accounts with optional filtering
// @Tags users
// @Produce json
// @Security SessionCookie
// @Param status query string false "Filter by status: active, inactive, all" default(all)
// @Param role query string false "Filter by exact role"
// @Param search query string false "Search by username, email or name"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} response.APIResponse{data=[]UserResponse}
// @Failure 403 {object} response.APIResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := port.UserFilter{
		Status:   c.DefaultQuery("status", "all"),
		Role:     c.Query("role"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}

	users, total, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userResponse(&users[i]))
	}

	response.SuccessWithMeta(c, out, response.NewMeta(filter.Page, filter.PageSize, total))
}

// GetUser handles GET /admin/users/:id.
// GetUser обрабатывает GET /admin/users/:id.
// @Summary Get a user
// @Tags users
// @Produce json
// @Security SessionCookie
// @Param id path int true "User ID"
// @Success 200 {object} response.APIResponse{data=UserResponse}
// @Failure 404 {object} response.APIResponse
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, userResponse(user))
}

// CreateUser handles POST /admin/users.
// CreateUser обрабатывает POST /admin/users.
// @Summary Create a user
// @Description Create an account with an explicit role
// @Tags users
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body domain.CreateUserRequest true "User data"
// @Success 201 {object} response.APIResponse{data=UserResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req domain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Unauthorized(c, "")
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req, actor.ID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, userResponse(user))
}

// SetActiveRequest toggles the account's active flag.
// SetActiveRequest переключает флаг активности аккаунта.
type SetActiveRequest struct {
	Active bool `json:"active"` // Desired state / Желаемое состояние
}

// SetUserActive handles PATCH /admin/users/:id/active.
// SetUserActive обрабатывает PATCH /admin/users/:id/active.
// @Summary Activate or deactivate a user
// @Description Deactivation also terminates the account's sessions
// @Tags users
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path int true "User ID"
// @Param request body SetActiveRequest true "Desired state"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/users/{id}/active [patch]
func (h *UserHandler) SetUserActive(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Unauthorized(c, "")
		return
	}

	if err := h.userService.SetActive(c.Request.Context(), id, req.Active, actor.ID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "User updated"})
}

// ChangeRoleRequest reassigns the account's role.
// ChangeRoleRequest переназначает роль аккаунта.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"` // New role / Новая роль
}

// ChangeUserRole handles PATCH /admin/users/:id/role.
// ChangeUserRole обрабатывает PATCH /admin/users/:id/role.
// @Summary Change a user's role
// @Tags users
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param id path int true "User ID"
// @Param request body ChangeRoleRequest true "New role"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/users/{id}/role [patch]
func (h *UserHandler) ChangeUserRole(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		response.Unauthorized(c, "")
		return
	}

	if err := h.userService.ChangeRole(c.Request.Context(), id, req.Role, actor.ID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Role updated"})
}

// LoginHistoryEntry represents one successful login in the history listing.
// LoginHistoryEntry представляет один успешный вход в списке истории.
type LoginHistoryEntry struct {
	IP        string    `json:"ip"`         // Client address / Адрес клиента
	UserAgent string    `json:"user_agent"` // Client user agent / User agent клиента
	CreatedAt time.Time `json:"created_at"` // Login time / Время входа
}

// GetLoginHistory handles GET /auth/login-history.
// GetLoginHistory обрабатывает GET /auth/login-history.
// @Summary Recent successful logins
// @Description List the current user's recent successful logins
// @Tags users
// @Produce json
// @Security SessionCookie
// @Param limit query int false "Maximum entries" default(20)
// @Success 200 {object} response.APIResponse{data=[]LoginHistoryEntry}
// @Failure 401 {object} response.APIResponse
// @Router /auth/login-history [get]
func (h *UserHandler) GetLoginHistory(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	events, err := h.audit.LoginHistory(c.Request.Context(), user.ID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]LoginHistoryEntry, 0, len(events))
	for i := range events {
		entry := LoginHistoryEntry{CreatedAt: events[i].CreatedAt}
		if events[i].IP != nil {
			entry.IP = *events[i].IP
		}
		if events[i].UserAgent != nil {
			entry.UserAgent = *events[i].UserAgent
		}
		out = append(out, entry)
	}
	response.Success(c, out)
}

// GetMe handles GET /auth/me.
// GetMe обрабатывает GET /auth/me.
// @Summary Current user profile
// @Tags users
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse{data=UserResponse}
// @Failure 401 {object} response.APIResponse
// @Router /auth/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	response.Success(c, userResponse(user))
}
