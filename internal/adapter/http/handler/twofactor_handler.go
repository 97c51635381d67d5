package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
	"github.com/andrewhigh08/account-core/internal/service"
)

// TwoFactorHandler handles the 2FA login challenge and enrollment endpoints.
// TwoFactorHandler обрабатывает эндпоинты 2FA-вызова при входе и регистрации.
type TwoFactorHandler struct {
	authService      port.AuthService      // Challenge completion / Завершение вызова
	twoFactorService port.TwoFactorService // Enrollment lifecycle / Жизненный цикл регистрации
	secureCookies    bool                  // Set Secure on cookies / Устанавливать Secure на cookie
	logger           *logger.Logger        // Logger instance / Экземпляр логгера
}

// NewTwoFactorHandler creates a new TwoFactorHandler instance.
// NewTwoFactorHandler создаёт новый экземпляр TwoFactorHandler.
func NewTwoFactorHandler(authService port.AuthService, twoFactorService port.TwoFactorService, secureCookies bool, log *logger.Logger) *TwoFactorHandler {
	return &TwoFactorHandler{
		authService:      authService,
		twoFactorService: twoFactorService,
		secureCookies:    secureCookies,
		logger:           log.WithComponent("twofactor_handler"),
	}
}

// TicketRequest carries the pre-auth ticket of a pending login.
// TicketRequest несёт pre-auth тикет ожидающего входа.
type TicketRequest struct {
	Ticket string `json:"ticket" binding:"required"` // Pre-auth ticket / Pre-auth тикет
}

// SendCode handles POST /auth/2fa/send-code.
// SendCode обрабатывает POST /auth/2fa/send-code.
// @Summary Send an email verification code
// @Description Issue a fresh email OTP for a pending login ticket
// @Tags two-factor
// @Accept json
// @Produce json
// @Param request body TicketRequest true "Pending login ticket"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Router /auth/2fa/send-code [post]
func (h *TwoFactorHandler) SendCode(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	if err := h.authService.SendLoginOTP(c.Request.Context(), req.Ticket, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Verification code sent"})
}

// VerifyLoginRequest completes a pending login with a TOTP or email code.
// VerifyLoginRequest завершает ожидающий вход кодом TOTP или email.
type VerifyLoginRequest struct {
	Ticket string `json:"ticket" binding:"required"` // Pre-auth ticket / Pre-auth тикет
	Code   string `json:"code" binding:"required"`   // Verification code / Код подтверждения
}

// VerifyLogin handles POST /auth/2fa/verify-login.
// VerifyLogin обрабатывает POST /auth/2fa/verify-login.
// @Summary Complete login with a verification code
// @Description Accepts either a TOTP code or an email OTP; three failures invalidate the ticket
// @Tags two-factor
// @Accept json
// @Produce json
// @Param request body VerifyLoginRequest true "Ticket and code"
// @Success 200 {object} response.APIResponse{data=LoginResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/verify-login [post]
func (h *TwoFactorHandler) VerifyLogin(c *gin.Context) {
	h.completeChallenge(c, service.TwoFactorMethodCode)
}

// VerifyBackupCode handles POST /auth/2fa/verify-backup-code.
// VerifyBackupCode обрабатывает POST /auth/2fa/verify-backup-code.
// @Summary Complete login with a backup code
// @Description Consumes a single-use backup code in place of the second factor
// @Tags two-factor
// @Accept json
// @Produce json
// @Param request body VerifyLoginRequest true "Ticket and backup code"
// @Success 200 {object} response.APIResponse{data=LoginResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/verify-backup-code [post]
func (h *TwoFactorHandler) VerifyBackupCode(c *gin.Context) {
	h.completeChallenge(c, service.TwoFactorMethodBackup)
}

func (h *TwoFactorHandler) completeChallenge(c *gin.Context, method string) {
	var req VerifyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	result, err := h.authService.CompleteTwoFactor(c.Request.Context(), req.Ticket, req.Code, method, requestMeta(c))
	if err != nil {
		middleware.RecordAuthAttempt(false)
		response.Error(c, err)
		return
	}

	middleware.RecordAuthAttempt(true)

	resp := LoginResponse{Status: result.Status, NewDevice: result.NewDevice}
	if result.User != nil {
		resp.User = userInfo(result.User)
	}
	setSessionCookie(c, result.SessionKey, h.secureCookies)
	response.Success(c, resp)
}

// SetupStart handles POST /auth/2fa/setup/start.
// SetupStart обрабатывает POST /auth/2fa/setup/start.
// @Summary Begin forced TOTP enrollment
// @Description Start enrollment for a login parked on mandatory 2FA setup; returns the provisioning payload exactly once
// @Tags two-factor
// @Accept json
// @Produce json
// @Param request body TicketRequest true "Pending login ticket"
// @Success 200 {object} response.APIResponse{data=domain.TwoFactorEnrollment}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/setup/start [post]
func (h *TwoFactorHandler) SetupStart(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	enrollment, err := h.authService.StartTwoFactorSetup(c.Request.Context(), req.Ticket, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, enrollment)
}

// SetupVerify handles POST /auth/2fa/setup/verify.
// SetupVerify обрабатывает POST /auth/2fa/setup/verify.
// @Summary Complete forced TOTP enrollment
// @Description Verify the first code, activate 2FA and receive the session; three failures invalidate the ticket
// @Tags two-factor
// @Accept json
// @Produce json
// @Param request body VerifyLoginRequest true "Ticket and code"
// @Success 200 {object} response.APIResponse{data=LoginResponse}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/setup/verify [post]
func (h *TwoFactorHandler) SetupVerify(c *gin.Context) {
	var req VerifyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	result, err := h.authService.CompleteTwoFactorSetup(c.Request.Context(), req.Ticket, req.Code, requestMeta(c))
	if err != nil {
		middleware.RecordAuthAttempt(false)
		response.Error(c, err)
		return
	}

	middleware.RecordAuthAttempt(true)

	resp := LoginResponse{Status: result.Status, NewDevice: result.NewDevice}
	if result.User != nil {
		resp.User = userInfo(result.User)
	}
	setSessionCookie(c, result.SessionKey, h.secureCookies)
	response.Success(c, resp)
}

// Enable handles POST /auth/2fa/enable.
// Enable обрабатывает POST /auth/2fa/enable.
// @Summary Begin TOTP enrollment
// @Description Returns the provisioning URI, base32 secret and backup codes exactly once
// @Tags two-factor
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse{data=domain.TwoFactorEnrollment}
// @Failure 401 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/2fa/enable [post]
func (h *TwoFactorHandler) Enable(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	enrollment, err := h.twoFactorService.StartEnroll(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, enrollment)
}

// CodeRequest carries a second-factor code.
// CodeRequest несёт код второго фактора.
type CodeRequest struct {
	Code string `json:"code" binding:"required"` // Verification code / Код подтверждения
}

// VerifyEnable handles POST /auth/2fa/verify-enable.
// VerifyEnable обрабатывает POST /auth/2fa/verify-enable.
// @Summary Confirm TOTP enrollment
// @Description Validate a code against the provisional secret; 2FA turns on when it matches
// @Tags two-factor
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body CodeRequest true "TOTP code"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/verify-enable [post]
func (h *TwoFactorHandler) VerifyEnable(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	if err := h.twoFactorService.VerifySetup(c.Request.Context(), user, req.Code, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Two-factor authentication enabled"})
}

// Disable handles POST /auth/2fa/disable.
// Disable обрабатывает POST /auth/2fa/disable.
// @Summary Disable two-factor authentication
// @Description Requires proof of a current factor: a TOTP code or an unused backup code
// @Tags two-factor
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body CodeRequest true "Current factor proof"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/disable [post]
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	if err := h.twoFactorService.Disable(c.Request.Context(), user, req.Code, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Two-factor authentication disabled"})
}

// RegenerateBackupCodes handles POST /auth/2fa/backup-codes/regenerate.
// RegenerateBackupCodes обрабатывает POST /auth/2fa/backup-codes/regenerate.
// @Summary Regenerate backup codes
// @Description Invalidates the previous set and returns the new plaintext codes once
// @Tags two-factor
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/2fa/backup-codes/regenerate [post]
func (h *TwoFactorHandler) RegenerateBackupCodes(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Unauthorized(c, "")
		return
	}

	codes, err := h.twoFactorService.RegenerateBackupCodes(c.Request.Context(), user, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"backup_codes": codes})
}
