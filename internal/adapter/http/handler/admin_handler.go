package handler

import (
	"net"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/adapter/http/response"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// AdminHandler handles the administrative security surface: audit logs,
// IP rules, the security policy and account unlocks.
// AdminHandler обрабатывает административную поверхность безопасности:
// журналы аудита, правила IP, политику безопасности и разблокировки.
type AdminHandler struct {
	auditService  port.AuditService     // Event stream reads / Чтение потока событий
	policyService port.PolicyService    // Policy snapshot and update / Снимок и обновление политики
	riskService   port.RiskService      // Admin unlock / Разблокировка админом
	ipRules       port.IPRuleRepository // Rule CRUD / CRUD правил
	logger        *logger.Logger        // Logger instance / Экземпляр логгера
}

// NewAdminHandler creates a new AdminHandler instance.
// NewAdminHandler создаёт новый экземпляр AdminHandler.
func NewAdminHandler(
	auditService port.AuditService,
	policyService port.PolicyService,
	riskService port.RiskService,
	ipRules port.IPRuleRepository,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		auditService:  auditService,
		policyService: policyService,
		riskService:   riskService,
		ipRules:       ipRules,
		logger:        log.WithComponent("admin_handler"),
	}
}

// auditLogQuery binds the audit log filter query parameters.
// auditLogQuery связывает параметры запроса фильтра журнала аудита.
type auditLogQuery struct {
	EventType string `form:"event_type"`
	Severity  string `form:"severity"`
	ActorID   *int64 `form:"actor_id"`
	TargetID  *int64 `form:"target_id"`
	From      string `form:"from"` // RFC3339
	To        string `form:"to"`   // RFC3339
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=50"`
}

// ListAuditLogs handles GET /admin/audit-logs.
// ListAuditLogs обрабатывает GET /admin/audit-logs.
// @Summary List audit events
// @Description Paginated audit event stream, filterable by type, severity, actor, target and time range
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Param event_type query string false "Exact event type"
// @Param severity query string false "Exact severity"
// @Param actor_id query int false "Acting user ID"
// @Param target_id query int false "Affected user ID"
// @Param from query string false "Inclusive lower bound (RFC3339)"
// @Param to query string false "Exclusive upper bound (RFC3339)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} response.APIResponse{data=[]domain.AuditEvent}
// @Failure 400 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	var q auditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, "invalid query parameters", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 200 {
		q.PageSize = 50
	}

	filter := domain.AuditFilter{
		EventType: q.EventType,
		Severity:  q.Severity,
		ActorID:   q.ActorID,
		TargetID:  q.TargetID,
		Limit:     q.PageSize,
		Offset:    (q.Page - 1) * q.PageSize,
	}
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			response.ValidationError(c, "invalid 'from' timestamp", nil)
			return
		}
		filter.From = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			response.ValidationError(c, "invalid 'to' timestamp", nil)
			return
		}
		filter.To = &t
	}

	events, total, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, events, response.NewMeta(q.Page, q.PageSize, total))
}

// IPRuleResponse represents an allowlist or denylist entry.
// IPRuleResponse представляет запись списка разрешений или запретов.
type IPRuleResponse struct {
	ID        int64      `json:"id"`                   // Rule ID / ID правила
	Address   string     `json:"address"`              // IPv4/IPv6 address / Адрес IPv4/IPv6
	IsActive  bool       `json:"is_active"`            // Active flag / Флаг активности
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // Deny-only expiry / Истечение (только deny)
	Reason    string     `json:"reason,omitempty"`     // Free-form reason / Причина
	CreatedAt time.Time  `json:"created_at"`           // Creation time / Время создания
}

func ipRuleResponses(rules []domain.IPRule) []IPRuleResponse {
	out := make([]IPRuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, IPRuleResponse{
			ID:        r.ID,
			Address:   r.Address,
			IsActive:  r.IsActive,
			ExpiresAt: r.ExpiresAt,
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// CreateIPRuleRequest represents a new allowlist or denylist entry.
// CreateIPRuleRequest представляет новую запись списка разрешений или запретов.
type CreateIPRuleRequest struct {
	Address   string     `json:"address" binding:"required"` // IPv4/IPv6 address / Адрес IPv4/IPv6
	ExpiresAt *time.Time `json:"expires_at,omitempty"`       // Deny-only expiry / Истечение (только deny)
	Reason    string     `json:"reason,omitempty"`           // Free-form reason / Причина
}

// ListAllowlist handles GET /admin/ip-allowlist.
// ListAllowlist обрабатывает GET /admin/ip-allowlist.
// @Summary List allowlist entries
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse{data=[]IPRuleResponse}
// @Router /admin/ip-allowlist [get]
func (h *AdminHandler) ListAllowlist(c *gin.Context) {
	h.listRules(c, domain.IPRuleAllow)
}

// ListDenylist handles GET /admin/ip-denylist.
// ListDenylist обрабатывает GET /admin/ip-denylist.
// @Summary List denylist entries
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse{data=[]IPRuleResponse}
// @Router /admin/ip-denylist [get]
func (h *AdminHandler) ListDenylist(c *gin.Context) {
	h.listRules(c, domain.IPRuleDeny)
}

func (h *AdminHandler) listRules(c *gin.Context, kind string) {
	rules, err := h.ipRules.ListByKind(c.Request.Context(), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ipRuleResponses(rules))
}

// AddAllowlistEntry handles POST /admin/ip-allowlist.
// AddAllowlistEntry обрабатывает POST /admin/ip-allowlist.
// @Summary Add an allowlist entry
// @Tags admin
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body CreateIPRuleRequest true "Rule data"
// @Success 201 {object} response.APIResponse{data=IPRuleResponse}
// @Failure 400 {object} response.APIResponse
// @Router /admin/ip-allowlist [post]
func (h *AdminHandler) AddAllowlistEntry(c *gin.Context) {
	h.addRule(c, domain.IPRuleAllow)
}

// AddDenylistEntry handles POST /admin/ip-denylist.
// AddDenylistEntry обрабатывает POST /admin/ip-denylist.
// @Summary Add a denylist entry
// @Tags admin
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body CreateIPRuleRequest true "Rule data"
// @Success 201 {object} response.APIResponse{data=IPRuleResponse}
// @Failure 400 {object} response.APIResponse
// @Router /admin/ip-denylist [post]
func (h *AdminHandler) AddDenylistEntry(c *gin.Context) {
	h.addRule(c, domain.IPRuleDeny)
}

func (h *AdminHandler) addRule(c *gin.Context, kind string) {
	var req CreateIPRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", map[string]interface{}{
			"details": err.Error(),
		})
		return
	}

	if net.ParseIP(req.Address) == nil {
		response.ValidationError(c, "invalid IP address", map[string]interface{}{
			"address": req.Address,
		})
		return
	}

	// Expiry only applies to deny rules.
	// Истечение применимо только к правилам deny.
	if kind == domain.IPRuleAllow {
		req.ExpiresAt = nil
	}

	rule := &domain.IPRule{
		Address:   req.Address,
		Kind:      kind,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
		Reason:    req.Reason,
	}
	if err := h.ipRules.Create(c.Request.Context(), rule); err != nil {
		response.Error(c, err)
		return
	}

	actor := middleware.CurrentUser(c)
	var actorID *int64
	if actor != nil {
		actorID = &actor.ID
	}
	_ = h.auditService.Record(c.Request.Context(), domain.EventIPRuleAdded, domain.SeverityWarning, //nolint:errcheck
		actorID, nil, requestMeta(c), map[string]interface{}{
			"address": rule.Address,
			"kind":    rule.Kind,
			"reason":  rule.Reason,
		})

	response.Created(c, ipRuleResponses([]domain.IPRule{*rule})[0])
}

// DeleteAllowlistEntry handles DELETE /admin/ip-allowlist/:id.
// DeleteAllowlistEntry обрабатывает DELETE /admin/ip-allowlist/:id.
// @Summary Remove an allowlist entry
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Param id path int true "Rule ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/ip-allowlist/{id} [delete]
func (h *AdminHandler) DeleteAllowlistEntry(c *gin.Context) {
	h.deleteRule(c, domain.IPRuleAllow)
}

// DeleteDenylistEntry handles DELETE /admin/ip-denylist/:id.
// DeleteDenylistEntry обрабатывает DELETE /admin/ip-denylist/:id.
// @Summary Remove a denylist entry
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Param id path int true "Rule ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/ip-denylist/{id} [delete]
func (h *AdminHandler) DeleteDenylistEntry(c *gin.Context) {
	h.deleteRule(c, domain.IPRuleDeny)
}

func (h *AdminHandler) deleteRule(c *gin.Context, kind string) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid rule id")
		return
	}

	existed, err := h.ipRules.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !existed {
		response.NotFound(c, "ip rule", id)
		return
	}

	actor := middleware.CurrentUser(c)
	var actorID *int64
	if actor != nil {
		actorID = &actor.ID
	}
	_ = h.auditService.Record(c.Request.Context(), domain.EventIPRuleRemoved, domain.SeverityWarning, //nolint:errcheck
		actorID, nil, requestMeta(c), map[string]interface{}{
			"rule_id": id,
			"kind":    kind,
		})

	response.Success(c, gin.H{"message": "Rule removed"})
}

// GetSecuritySettings handles GET /admin/security-settings.
// GetSecuritySettings обрабатывает GET /admin/security-settings.
// @Summary Read the security policy
// @Tags admin
// @Produce json
// @Security SessionCookie
// @Success 200 {object} response.APIResponse{data=domain.SecurityPolicy}
// @Router /admin/security-settings [get]
func (h *AdminHandler) GetSecuritySettings(c *gin.Context) {
	policy, err := h.policyService.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, policy)
}

// UpdateSecuritySettingsRequest carries partial policy updates. Absent
// fields keep their current values.
// UpdateSecuritySettingsRequest несёт частичные обновления политики.
// Отсутствующие поля сохраняют текущие значения.
type UpdateSecuritySettingsRequest struct {
	PasswordMinLength      *int  `json:"password_min_length,omitempty"`
	PasswordRequireUpper   *bool `json:"password_require_upper,omitempty"`
	PasswordRequireLower   *bool `json:"password_require_lower,omitempty"`
	PasswordRequireDigit   *bool `json:"password_require_digit,omitempty"`
	PasswordRequireSpecial *bool `json:"password_require_special,omitempty"`
	PasswordExpiryDays     *int  `json:"password_expiry_days,omitempty"`
	PasswordHistoryCount   *int  `json:"password_history_count,omitempty"`
	MaxFailedAttempts      *int  `json:"max_failed_attempts,omitempty"`
	LockoutWindowMinutes   *int  `json:"lockout_window_minutes,omitempty"`
	SessionTimeoutMinutes  *int  `json:"session_timeout_minutes,omitempty"`
	MaxConcurrentSessions  *int  `json:"max_concurrent_sessions,omitempty"`
	SingleSession          *bool `json:"single_session,omitempty"`
	Email2FAEnabled        *bool `json:"email_2fa_enabled,omitempty"`
	Enforce2FAFirstLogin   *bool `json:"enforce_2fa_first_login,omitempty"`
	BackupCodesCount       *int  `json:"backup_codes_count,omitempty"`
	LogAllLogins           *bool `json:"log_all_logins,omitempty"`
	LogFailedLogins        *bool `json:"log_failed_logins,omitempty"`
	LogAdminActions        *bool `json:"log_admin_actions,omitempty"`
	AuditRetentionDays     *int  `json:"audit_retention_days,omitempty"`
	IPAllowlistEnforced    *bool `json:"ip_allowlist_enforced,omitempty"`
	IPDenylistEnforced     *bool `json:"ip_denylist_enforced,omitempty"`
	ResetTokenTTLHours     *int  `json:"reset_token_ttl_hours,omitempty"`
}

func (r *UpdateSecuritySettingsRequest) apply(p *domain.SecurityPolicy) {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&p.PasswordMinLength, r.PasswordMinLength)
	setBool(&p.PasswordRequireUpper, r.PasswordRequireUpper)
	setBool(&p.PasswordRequireLower, r.PasswordRequireLower)
	setBool(&p.PasswordRequireDigit, r.PasswordRequireDigit)
	setBool(&p.PasswordRequireSpecial, r.PasswordRequireSpecial)
	setInt(&p.PasswordExpiryDays, r.PasswordExpiryDays)
	setInt(&p.PasswordHistoryCount, r.PasswordHistoryCount)
	setInt(&p.MaxFailedAttempts, r.MaxFailedAttempts)
	setInt(&p.LockoutWindowMinutes, r.LockoutWindowMinutes)
	setInt(&p.SessionTimeoutMinutes, r.SessionTimeoutMinutes)
	setInt(&p.MaxConcurrentSessions, r.MaxConcurrentSessions)
	setBool(&p.SingleSession, r.SingleSession)
	setBool(&p.Email2FAEnabled, r.Email2FAEnabled)
	setBool(&p.Enforce2FAFirstLogin, r.Enforce2FAFirstLogin)
	setInt(&p.BackupCodesCount, r.BackupCodesCount)
	setBool(&p.LogAllLogins, r.LogAllLogins)
	setBool(&p.LogFailedLogins, r.LogFailedLogins)
	setBool(&p.LogAdminActions, r.LogAdminActions)
	setInt(&p.AuditRetentionDays, r.AuditRetentionDays)
	setBool(&p.IPAllowlistEnforced, r.IPAllowlistEnforced)
	setBool(&p.IPDenylistEnforced, r.IPDenylistEnforced)
	setInt(&p.ResetTokenTTLHours, r.ResetTokenTTLHours)
}

// UpdateSecuritySettings handles PATCH /admin/security-settings.
// UpdateSecuritySettings обрабатывает PATCH /admin/security-settings.
// @Summary Update the security policy
// @Description Apply a partial update; absent fields keep their current values
// @Tags admin
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body UpdateSecuritySettingsRequest true "Partial policy update"
// @Success 200 {object} response.APIResponse{data=domain.SecurityPolicy}
// @Failure 400 {object} response.APIResponse
// @Router /admin/security-settings [patch]
func (h *AdminHandler) UpdateSecuritySettings(c *gin.Context) {
	var req UpdateSecuritySettingsRequest
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

	current, err := h.policyService.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	updated := *current
	req.apply(&updated)

	saved, err := h.policyService.Update(c.Request.Context(), &updated, actor.ID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, saved)
}

// UnlockAccountRequest names the account to unlock.
// UnlockAccountRequest называет аккаунт для разблокировки.
type UnlockAccountRequest struct {
	Username string `json:"username" binding:"required"` // Locked username / Заблокированное имя
}

// UnlockAccount handles POST /admin/unlock-account.
// UnlockAccount обрабатывает POST /admin/unlock-account.
// @Summary Clear a lockout
// @Description Wipe the failed-attempt ledger for a username so it may log in again
// @Tags admin
// @Accept json
// @Produce json
// @Security SessionCookie
// @Param request body UnlockAccountRequest true "Locked username"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Router /admin/unlock-account [post]
func (h *AdminHandler) UnlockAccount(c *gin.Context) {
	var req UnlockAccountRequest
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

	cleared, err := h.riskService.ClearFailures(c.Request.Context(), req.Username, actor.ID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"cleared": cleared})
}
