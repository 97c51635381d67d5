// Package handler provides HTTP request handlers for the account service.
// Пакет handler предоставляет обработчики HTTP запросов для сервиса аккаунтов.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/pkg/validator"
	"github.com/andrewhigh08/account-core/internal/port"
)

// sessionCookieMaxAge is the cookie lifetime, matching the hard session TTL.
// sessionCookieMaxAge — время жизни cookie, совпадающее с жёстким TTL сессии.
const sessionCookieMaxAge = int(14 * 24 * time.Hour / time.Second)

// AuthHandler handles authentication-related HTTP requests.
// AuthHandler обрабатывает HTTP запросы, связанные с аутентификацией.
//
// Provides endpoints for login, signup, the 2FA challenge flow
// completions and the password lifecycle.
// Предоставляет эндпоинты для входа, регистрации, завершения 2FA
// и жизненного цикла паролей.
type AuthHandler struct {
	authService   port.AuthService       // Authentication orchestrator / Оркестратор аутентификации
	credentials   port.CredentialService // Password boundary / Граница паролей
	policyService port.PolicyService     // Policy snapshots / Снимки политики
	secureCookies bool                   // Set Secure on cookies / Устанавливать Secure на cookie
	logger        *logger.Logger         // Logger instance / Экземпляр логгера
}

// NewAuthHandler creates a new AuthHandler instance.
// NewAuthHandler создаёт новый экземпляр AuthHandler.
func NewAuthHandler(
	authService port.AuthService,
	credentials port.CredentialService,
	policyService port.PolicyService,
	secureCookies bool,
	log *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		credentials:   credentials,
		policyService: policyService,
		secureCookies: secureCookies,
		logger:        log.WithComponent("auth_handler"),
	}
}

// requestMeta extracts the ambient request context for the service layer.
// requestMeta извлекает окружающий контекст запроса для сервисного слоя.
func requestMeta(c *gin.Context) domain.RequestMeta {
	return domain.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// setSessionCookie issues the opaque session cookie.
// setSessionCookie выдаёт непрозрачную cookie сессии.
func setSessionCookie(c *gin.Context, key string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, key, sessionCookieMaxAge, "/", "", secure, true)
}

// clearSessionCookie drops the session cookie.
// clearSessionCookie удаляет cookie сессии.
func clearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", secure, true)
}

// UserInfo represents user information in responses.
// UserInfo представляет информацию о пользователе в ответах.
type UserInfo struct {
	ID               int64  `json:"id"`                 // User ID / ID пользователя
	Username         string `json:"username"`           // Login name / Имя для входа
	Email            string `json:"email"`              // Email address / Email адрес
	FirstName        string `json:"first_name"`         // Given name / Имя
	LastName         string `json:"last_name"`          // Family name / Фамилия
	Role             string `json:"role"`               // Account role / Роль аккаунта
	TwoFactorEnabled bool   `json:"two_factor_enabled"` // TOTP active / TOTP активен
}

func userInfo(u *domain.User) *UserInfo {
	return &UserInfo{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}

// LoginRequest represents the login request body.
// LoginRequest представляет тело запроса на вход.
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Login name / Имя для входа
	Password string `json:"password" binding:"required"` // User password / Пароль пользователя
}

// LoginResponse represents a login response in any terminal state.
// LoginResponse представляет ответ на вход в любом конечном состоянии.
type LoginResponse struct {
	Status    string    `json:"status"`               // success | 2fa_required | 2fa_setup_required | password_expired
	User      *UserInfo `json:"user,omitempty"`       // User info on success / Информация о пользователе при успехе
	Ticket    string    `json:"ticket,omitempty"`     // Pre-auth ticket for pending flows / Pre-auth тикет для ожидающих потоков
	NewDevice bool      `json:"new_device,omitempty"` // First login from this device / Первый вход с этого устройства
}

func (h *AuthHandler) loginResponse(c *gin.Context, result *domain.LoginResult) {
	resp := LoginResponse{
		Status:    result.Status,
		Ticket:    result.Ticket,
		NewDevice: result.NewDevice,
	}
	if result.Status == domain.LoginStatusSuccess {
		resp.User = userInfo(result.User)
		setSessionCookie(c, result.SessionKey, h.secureCookies)
	}
	response.Success(c, resp)
}

// Login handles POST /auth/login endpoint.
// Login обрабатывает POST /auth/login эндпоинт.
// @Summary User login
// @Description Authenticate with username and password; may return a pending 2FA or expired-password ticket
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} response.APIResponse{data=LoginResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, requestMeta(c))
	if err != nil {
		middleware.RecordAuthAttempt(false)
		response.Error(c, err)
		return
	}

	middleware.RecordAuthAttempt(result.Status == domain.LoginStatusSuccess)
	h.loginResponse(c, result)
}

// Logout handles POST /auth/logout endpoint.
// Logout обрабатывает POST /auth/logout эндпоинт.
// @Summary Logout user
// @Description Terminate the current session and drop the cookie
// @Tags auth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil && cookie != "" {
		if err := h.authService.Logout(c.Request.Context(), cookie, requestMeta(c)); err != nil {
			response.Error(c, err)
			return
		}
	}

	clearSessionCookie(c, h.secureCookies)
	response.Success(c, gin.H{"message": "Logged out successfully"})
}

// Signup handles POST /auth/signup endpoint.
// Signup обрабатывает POST /auth/signup эндпоинт.
// @Summary Self-registration
// @Description Create a Guest account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body domain.SignupRequest true "Registration data"
// @Success 201 {object} response.APIResponse{data=UserInfo}
// @Failure 400 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req domain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, userInfo(user))
}

// ChangePassword handles POST /auth/password/change.
// ChangePassword обрабатывает POST /auth/password/change.
// @Summary Change password
// @Description Change password for the authenticated user; other sessions are terminated
// @Tags password
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body domain.ChangePasswordRequest true "Password change data"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/password/change [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req domain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	user := middleware.CurrentUser(c)
	session := middleware.CurrentSession(c)
	if user == nil || session == nil {
		response.Unauthorized(c, "")
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword, session.Key, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Password changed successfully"})
}

// ExpiredPasswordChangeRequest completes a login parked on an expired password.
// ExpiredPasswordChangeRequest завершает вход, остановленный на истёкшем пароле.
type ExpiredPasswordChangeRequest struct {
	Ticket      string `json:"ticket" binding:"required"`       // Pre-auth ticket / Pre-auth тикет
	NewPassword string `json:"new_password" binding:"required"` // New password / Новый пароль
}

// CompleteExpiredPasswordChange handles POST /auth/password/expired-change.
// CompleteExpiredPasswordChange обрабатывает POST /auth/password/expired-change.
// @Summary Complete an expired-password login
// @Description Set a new password using the ticket from login, then receive the session
// @Tags password
// @Accept json
// @Produce json
// @Param request body ExpiredPasswordChangeRequest true "Ticket and new password"
// @Success 200 {object} response.APIResponse{data=LoginResponse}
// @Failure 400 {object} response.APIResponse
// @Router /auth/password/expired-change [post]
func (h *AuthHandler) CompleteExpiredPasswordChange(c *gin.Context) {
	var req ExpiredPasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	result, err := h.authService.CompleteExpiredPasswordChange(c.Request.Context(), req.Ticket, req.NewPassword, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.loginResponse(c, result)
}

// RequestResetRequest represents the reset-request body.
// RequestResetRequest представляет тело запроса на сброс.
type RequestResetRequest struct {
	Email string `json:"email" binding:"required,email"` // Account email / Email аккаунта
}

// RequestPasswordReset handles POST /auth/password/request-reset.
// RequestPasswordReset обрабатывает POST /auth/password/request-reset.
// @Summary Request a password reset
// @Description Always returns success; a reset link is emitted when the account exists
// @Tags password
// @Accept json
// @Produce json
// @Param request body RequestResetRequest true "Account email"
// @Success 200 {object} response.APIResponse
// @Router /auth/password/request-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req RequestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "If the account exists, a reset link has been sent"})
}

// ResetPasswordRequest represents the reset-completion body.
// ResetPasswordRequest представляет тело завершения сброса.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"` // New password / Новый пароль
}

// resetPasswordURI binds the path parameters of the reset endpoint.
type resetPasswordURI struct {
	UserID int64  `uri:"uid" binding:"required"`
	Token  string `uri:"token" binding:"required"`
}

// ResetPassword handles POST /auth/password/reset/:uid/:token.
// ResetPassword обрабатывает POST /auth/password/reset/:uid/:token.
// @Summary Complete a password reset
// @Description Set a new password using a signed reset token
// @Tags password
// @Accept json
// @Produce json
// @Param uid path int true "User ID"
// @Param token path string true "Signed reset token"
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Router /auth/password/reset/{uid}/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var uri resetPasswordURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ValidationError(c, "invalid reset link", nil)
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), uri.UserID, uri.Token, req.NewPassword, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Password has been reset"})
}

// PasswordPolicyResponse is the public view of the password rules.
// PasswordPolicyResponse — публичное представление правил паролей.
type PasswordPolicyResponse struct {
	MinLength      int  `json:"min_length"`      // Minimum length / Минимальная длина
	RequireUpper   bool `json:"require_upper"`   // Uppercase required / Требуются заглавные
	RequireLower   bool `json:"require_lower"`   // Lowercase required / Требуются строчные
	RequireDigit   bool `json:"require_digit"`   // Digits required / Требуются цифры
	RequireSpecial bool `json:"require_special"` // Special chars required / Требуются спецсимволы
	ExpiryDays     int  `json:"expiry_days"`     // 0 = never / 0 = никогда
	HistoryCount   int  `json:"history_count"`   // Reuse depth blocked / Глубина запрета повторов
}

// GetPasswordPolicy handles GET /auth/password-policy.
// GetPasswordPolicy обрабатывает GET /auth/password-policy.
// @Summary Public password policy
// @Description Password rules for client-side hints; no admin settings are exposed
// @Tags password
// @Produce json
// @Success 200 {object} response.APIResponse{data=PasswordPolicyResponse}
// @Router /auth/password-policy [get]
func (h *AuthHandler) GetPasswordPolicy(c *gin.Context) {
	policy, err := h.policyService.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, PasswordPolicyResponse{
		MinLength:      policy.PasswordMinLength,
		RequireUpper:   policy.PasswordRequireUpper,
		RequireLower:   policy.PasswordRequireLower,
		RequireDigit:   policy.PasswordRequireDigit,
		RequireSpecial: policy.PasswordRequireSpecial,
		ExpiryDays:     policy.PasswordExpiryDays,
		HistoryCount:   policy.PasswordHistoryCount,
	})
}

// ValidatePasswordRequest represents a candidate password to check.
// ValidatePasswordRequest представляет пароль-кандидат для проверки.
type ValidatePasswordRequest struct {
	Password string `json:"password" binding:"required"` // Candidate / Кандидат
}

// ValidatePasswordResponse reports the rules the candidate failed.
// ValidatePasswordResponse сообщает правила, которые кандидат нарушил.
type ValidatePasswordResponse struct {
	Valid    bool     `json:"valid"`            // Candidate passes / Кандидат проходит
	Errors   []string `json:"errors,omitempty"` // Failed rules / Нарушенные правила
	Strength string   `json:"strength"`         // weak, fair, good or strong / weak, fair, good или strong
}

// ValidatePassword handles POST /auth/password/validate.
// ValidatePassword обрабатывает POST /auth/password/validate.
// @Summary Validate a candidate password
// @Description Check a candidate against the active policy rules without storing anything
// @Tags password
// @Accept json
// @Produce json
// @Param request body ValidatePasswordRequest true "Candidate password"
// @Success 200 {object} response.APIResponse{data=ValidatePasswordResponse}
// @Router /auth/password/validate [post]
func (h *AuthHandler) ValidatePassword(c *gin.Context) {
	var req ValidatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	valid, errs, err := h.credentials.Validate(c.Request.Context(), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, ValidatePasswordResponse{
		Valid:    valid,
		Errors:   errs,
		Strength: validator.CheckPasswordStrength(req.Password).String(),
	})
}
