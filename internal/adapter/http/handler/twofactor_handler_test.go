package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/service"
)

func setupTwoFactorTest(auth *stubAuthService, tfa *stubTwoFactorService) (*TwoFactorHandler, *gin.Engine) {
	handler := NewTwoFactorHandler(auth, tfa, false, testLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return handler, router
}

func TestTwoFactorHandler_SendCode(t *testing.T) {
	var gotTicket string
	auth := &stubAuthService{
		sendLoginOTPFn: func(_ context.Context, ticketID string, _ domain.RequestMeta) error {
			gotTicket = ticketID
			return nil
		},
	}
	handler, router := setupTwoFactorTest(auth, nil)
	router.POST("/auth/2fa/send-code", handler.SendCode)

	w := postJSON(t, router, "/auth/2fa/send-code", `{"ticket":"ticket-123"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ticket-123", gotTicket)
}

func TestTwoFactorHandler_SendCode_ExpiredTicket(t *testing.T) {
	auth := &stubAuthService{
		sendLoginOTPFn: func(_ context.Context, _ string, _ domain.RequestMeta) error {
			return apperror.Expired("login ticket")
		},
	}
	handler, router := setupTwoFactorTest(auth, nil)
	router.POST("/auth/2fa/send-code", handler.SendCode)

	w := postJSON(t, router, "/auth/2fa/send-code", `{"ticket":"stale"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTwoFactorHandler_VerifyLogin_Success(t *testing.T) {
	auth := &stubAuthService{
		completeTwoFactorFn: func(_ context.Context, ticketID, code, method string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			assert.Equal(t, "ticket-123", ticketID)
			assert.Equal(t, "123456", code)
			assert.Equal(t, service.TwoFactorMethodCode, method)
			return &domain.LoginResult{
				Status:     domain.LoginStatusSuccess,
				User:       &domain.User{ID: 1, Username: "alice"},
				SessionKey: "sessionkey-2fa",
			}, nil
		},
	}
	handler, router := setupTwoFactorTest(auth, nil)
	router.POST("/auth/2fa/verify-login", handler.VerifyLogin)

	w := postJSON(t, router, "/auth/2fa/verify-login", `{"ticket":"ticket-123","code":"123456"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionkey-2fa", cookies[0].Value)
}

func TestTwoFactorHandler_VerifyLogin_WrongCode(t *testing.T) {
	auth := &stubAuthService{
		completeTwoFactorFn: func(_ context.Context, _, _, _ string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			return nil, apperror.Unauthorized("verification code is invalid")
		},
	}
	handler, router := setupTwoFactorTest(auth, nil)
	router.POST("/auth/2fa/verify-login", handler.VerifyLogin)

	w := postJSON(t, router, "/auth/2fa/verify-login", `{"ticket":"ticket-123","code":"000000"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestTwoFactorHandler_VerifyBackupCode_UsesBackupMethod(t *testing.T) {
	var gotMethod string
	auth := &stubAuthService{
		completeTwoFactorFn: func(_ context.Context, _, _, method string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			gotMethod = method
			return &domain.LoginResult{
				Status:     domain.LoginStatusSuccess,
				User:       &domain.User{ID: 1, Username: "alice"},
				SessionKey: "sessionkey-backup",
			}, nil
		},
	}
	handler, router := setupTwoFactorTest(auth, nil)
	router.POST("/auth/2fa/verify-backup-code", handler.VerifyBackupCode)

	w := postJSON(t, router, "/auth/2fa/verify-backup-code", `{"ticket":"ticket-123","code":"ABCD-1234"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.TwoFactorMethodBackup, gotMethod)
}

func TestTwoFactorHandler_Enable(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true}
	tfa := &stubTwoFactorService{
		startEnrollFn: func(_ context.Context, u *domain.User) (*domain.TwoFactorEnrollment, error) {
			assert.Equal(t, user.ID, u.ID)
			return &domain.TwoFactorEnrollment{
				Secret:          "JBSWY3DPEHPK3PXP",
				ProvisioningURI: "otpauth://totp/account-core:alice?secret=JBSWY3DPEHPK3PXP",
				BackupCodes:     []string{"AAAA-1111", "BBBB-2222"},
			}, nil
		},
	}
	handler, router := setupTwoFactorTest(&stubAuthService{}, tfa)
	router.POST("/auth/2fa/enable", asUser(user, nil), handler.Enable)

	req := httptest.NewRequest(http.MethodPost, "/auth/2fa/enable", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "JBSWY3DPEHPK3PXP", data["secret"])
	assert.Contains(t, data["qr_uri"], "otpauth://")
	assert.Len(t, data["backup_codes"], 2)
}

func TestTwoFactorHandler_Enable_AlreadyEnabled(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true, TwoFactorEnabled: true}
	tfa := &stubTwoFactorService{
		startEnrollFn: func(_ context.Context, _ *domain.User) (*domain.TwoFactorEnrollment, error) {
			return nil, apperror.Conflict("totp device", "user_id", int64(1))
		},
	}
	handler, router := setupTwoFactorTest(&stubAuthService{}, tfa)
	router.POST("/auth/2fa/enable", asUser(user, nil), handler.Enable)

	req := httptest.NewRequest(http.MethodPost, "/auth/2fa/enable", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTwoFactorHandler_VerifyEnable(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true}
	var gotCode string
	tfa := &stubTwoFactorService{
		verifySetupFn: func(_ context.Context, _ *domain.User, code string, _ domain.RequestMeta) error {
			gotCode = code
			return nil
		},
	}
	handler, router := setupTwoFactorTest(&stubAuthService{}, tfa)
	router.POST("/auth/2fa/verify-enable", asUser(user, nil), handler.VerifyEnable)

	w := postJSON(t, router, "/auth/2fa/verify-enable", `{"code":"654321"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "654321", gotCode)
}

func TestTwoFactorHandler_Disable_RequiresProof(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true, TwoFactorEnabled: true}
	tfa := &stubTwoFactorService{
		disableFn: func(_ context.Context, _ *domain.User, proofCode string, _ domain.RequestMeta) error {
			if proofCode != "123456" {
				return apperror.Unauthorized("verification code is invalid")
			}
			return nil
		},
	}
	handler, router := setupTwoFactorTest(&stubAuthService{}, tfa)
	router.POST("/auth/2fa/disable", asUser(user, nil), handler.Disable)

	w := postJSON(t, router, "/auth/2fa/disable", `{"code":"999999"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, router, "/auth/2fa/disable", `{"code":"123456"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTwoFactorHandler_RegenerateBackupCodes(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true, TwoFactorEnabled: true}
	tfa := &stubTwoFactorService{
		regenerateFn: func(_ context.Context, _ *domain.User, _ domain.RequestMeta) ([]string, error) {
			return []string{"NEW1-1111", "NEW2-2222", "NEW3-3333"}, nil
		},
	}
	handler, router := setupTwoFactorTest(&stubAuthService{}, tfa)
	router.POST("/auth/2fa/backup-codes/regenerate", asUser(user, nil), handler.RegenerateBackupCodes)

	req := httptest.NewRequest(http.MethodPost, "/auth/2fa/backup-codes/regenerate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["backup_codes"], 3)
}
