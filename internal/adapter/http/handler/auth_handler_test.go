package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/adapter/http/middleware"
	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

func setupAuthTest(auth *stubAuthService, credentials *stubCredentialService, policy *stubPolicyService) (*AuthHandler, *gin.Engine) {
	handler := NewAuthHandler(auth, credentials, policy, false, testLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return handler, router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthHandler_Login_Success(t *testing.T) {
	auth := &stubAuthService{
		loginFn: func(_ context.Context, username, password string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			assert.Equal(t, "alice", username)
			assert.Equal(t, "Pass123!", password)
			return &domain.LoginResult{
				Status:     domain.LoginStatusSuccess,
				User:       &domain.User{ID: 1, Username: "alice", Email: "alice@example.com", Role: domain.RoleClient},
				SessionKey: "sessionkey-abc",
			}, nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/login", handler.Login)

	w := postJSON(t, router, "/auth/login", `{"username":"alice","password":"Pass123!"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.True(t, resp["success"].(bool))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "success", data["status"])
	assert.Equal(t, "alice", data["user"].(map[string]interface{})["username"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "sessionkey-abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthHandler_Login_TwoFactorRequired(t *testing.T) {
	auth := &stubAuthService{
		loginFn: func(_ context.Context, _, _ string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			return &domain.LoginResult{
				Status: domain.LoginStatusTwoFactorRequired,
				Ticket: "ticket-123",
			}, nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/login", handler.Login)

	w := postJSON(t, router, "/auth/login", `{"username":"alice","password":"Pass123!"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "2fa_required", data["status"])
	assert.Equal(t, "ticket-123", data["ticket"])
	assert.Nil(t, data["user"])
	assert.Empty(t, w.Result().Cookies())
}

func TestAuthHandler_Login_PasswordExpired(t *testing.T) {
	auth := &stubAuthService{
		loginFn: func(_ context.Context, _, _ string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			return &domain.LoginResult{
				Status: domain.LoginStatusPasswordExpired,
				Ticket: "ticket-456",
			}, nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/login", handler.Login)

	w := postJSON(t, router, "/auth/login", `{"username":"alice","password":"Pass123!"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "password_expired", data["status"])
	assert.Equal(t, "ticket-456", data["ticket"])
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	auth := &stubAuthService{
		loginFn: func(_ context.Context, _, _ string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			return nil, apperror.Unauthorized("invalid username or password")
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/login", handler.Login)

	w := postJSON(t, router, "/auth/login", `{"username":"alice","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeBody(t, w)
	assert.False(t, resp["success"].(bool))
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "invalid username or password", errBody["message"])
}

func TestAuthHandler_Login_AccountLocked(t *testing.T) {
	unlockAt := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	auth := &stubAuthService{
		loginFn: func(_ context.Context, _, _ string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			return nil, apperror.AccountLocked(unlockAt)
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/login", handler.Login)

	w := postJSON(t, router, "/auth/login", `{"username":"alice","password":"Pass123!"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	errBody := decodeBody(t, w)["error"].(map[string]interface{})
	details := errBody["details"].(map[string]interface{})
	assert.Equal(t, unlockAt.Format(time.RFC3339), details["locked_until"])
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	handler, router := setupAuthTest(&stubAuthService{}, nil, nil)
	router.POST("/auth/login", handler.Login)

	w := postJSON(t, router, "/auth/login", `{"username":"alice"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	var loggedOut string
	auth := &stubAuthService{
		logoutFn: func(_ context.Context, sessionKey string, _ domain.RequestMeta) error {
			loggedOut = sessionKey
			return nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/logout", handler.Logout)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sessionkey-abc"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sessionkey-abc", loggedOut)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthHandler_Logout_NoCookie(t *testing.T) {
	handler, router := setupAuthTest(&stubAuthService{}, nil, nil)
	router.POST("/auth/logout", handler.Logout)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Logout without a session is a no-op, not an error.
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Signup(t *testing.T) {
	auth := &stubAuthService{
		signupFn: func(_ context.Context, req *domain.SignupRequest, _ domain.RequestMeta) (*domain.User, error) {
			assert.Equal(t, "newuser", req.Username)
			return &domain.User{ID: 7, Username: req.Username, Email: req.Email, Role: domain.RoleGuest}, nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/signup", handler.Signup)

	w := postJSON(t, router, "/auth/signup",
		`{"username":"newuser","email":"new@example.com","password":"Str0ngPass!","password_confirm":"Str0ngPass!","first_name":"New","last_name":"User"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "guest", data["role"])
}

func TestAuthHandler_Signup_Conflict(t *testing.T) {
	auth := &stubAuthService{
		signupFn: func(_ context.Context, _ *domain.SignupRequest, _ domain.RequestMeta) (*domain.User, error) {
			return nil, apperror.Conflict("user", "username", "newuser")
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/signup", handler.Signup)

	w := postJSON(t, router, "/auth/signup",
		`{"username":"newuser","email":"new@example.com","password":"Str0ngPass!","password_confirm":"Str0ngPass!","first_name":"New","last_name":"User"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true}
	session := &domain.Session{Key: "current-key", UserID: 1}

	var gotCurrent, gotNew, gotKey string
	auth := &stubAuthService{
		changePasswordFn: func(_ context.Context, u *domain.User, currentPassword, newPassword, currentSessionKey string, _ domain.RequestMeta) error {
			assert.Equal(t, user.ID, u.ID)
			gotCurrent, gotNew, gotKey = currentPassword, newPassword, currentSessionKey
			return nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/password/change", asUser(user, session), handler.ChangePassword)

	w := postJSON(t, router, "/auth/password/change",
		`{"current":"OldPass1!","new":"NewPass1!"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OldPass1!", gotCurrent)
	assert.Equal(t, "NewPass1!", gotNew)
	assert.Equal(t, "current-key", gotKey)
}

func TestAuthHandler_ChangePassword_WrongCurrent(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", IsActive: true}
	session := &domain.Session{Key: "current-key", UserID: 1}

	auth := &stubAuthService{
		changePasswordFn: func(_ context.Context, _ *domain.User, _, _, _ string, _ domain.RequestMeta) error {
			return apperror.Unauthorized("current password is incorrect")
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/password/change", asUser(user, session), handler.ChangePassword)

	w := postJSON(t, router, "/auth/password/change",
		`{"current":"wrong","new":"NewPass1!"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_CompleteExpiredPasswordChange(t *testing.T) {
	auth := &stubAuthService{
		completeExpiredChangeFn: func(_ context.Context, ticketID, newPassword string, _ domain.RequestMeta) (*domain.LoginResult, error) {
			assert.Equal(t, "ticket-456", ticketID)
			assert.Equal(t, "NewPass1!", newPassword)
			return &domain.LoginResult{
				Status:     domain.LoginStatusSuccess,
				User:       &domain.User{ID: 1, Username: "alice"},
				SessionKey: "fresh-key",
			}, nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/password/expired-change", handler.CompleteExpiredPasswordChange)

	w := postJSON(t, router, "/auth/password/expired-change",
		`{"ticket":"ticket-456","new_password":"NewPass1!"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "success", data["status"])

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fresh-key", cookies[0].Value)
}

func TestAuthHandler_RequestPasswordReset_AlwaysOK(t *testing.T) {
	auth := &stubAuthService{
		requestResetFn: func(_ context.Context, email string, _ domain.RequestMeta) error {
			assert.Equal(t, "ghost@example.com", email)
			return nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/password/request-reset", handler.RequestPasswordReset)

	w := postJSON(t, router, "/auth/password/request-reset", `{"email":"ghost@example.com"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	auth := &stubAuthService{
		resetPasswordFn: func(_ context.Context, userID int64, token, newPassword string, _ domain.RequestMeta) error {
			assert.Equal(t, int64(42), userID)
			assert.Equal(t, "signed-token", token)
			assert.Equal(t, "NewPass1!", newPassword)
			return nil
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/password/reset/:uid/:token", handler.ResetPassword)

	w := postJSON(t, router, "/auth/password/reset/42/signed-token", `{"new_password":"NewPass1!"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_ResetPassword_InvalidToken(t *testing.T) {
	auth := &stubAuthService{
		resetPasswordFn: func(_ context.Context, _ int64, _, _ string, _ domain.RequestMeta) error {
			return apperror.BadRequest("reset token is invalid")
		},
	}
	handler, router := setupAuthTest(auth, nil, nil)
	router.POST("/auth/password/reset/:uid/:token", handler.ResetPassword)

	w := postJSON(t, router, "/auth/password/reset/42/garbage", `{"new_password":"NewPass1!"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_GetPasswordPolicy(t *testing.T) {
	policy := &stubPolicyService{
		snapshotFn: func(_ context.Context) (*domain.SecurityPolicy, error) {
			p := domain.DefaultSecurityPolicy()
			p.PasswordMinLength = 12
			p.PasswordExpiryDays = 90
			return p, nil
		},
	}
	handler, router := setupAuthTest(&stubAuthService{}, nil, policy)
	router.GET("/auth/password-policy", handler.GetPasswordPolicy)

	req := httptest.NewRequest(http.MethodGet, "/auth/password-policy", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(12), data["min_length"])
	assert.Equal(t, float64(90), data["expiry_days"])
	// Only password rules leak to the public view.
	assert.NotContains(t, data, "max_failed_attempts")
	assert.NotContains(t, data, "audit_retention_days")
}

func TestAuthHandler_ValidatePassword(t *testing.T) {
	credentials := &stubCredentialService{
		validateFn: func(_ context.Context, candidate string) (bool, []string, error) {
			if candidate == "weak" {
				return false, []string{"password must be at least 8 characters"}, nil
			}
			return true, nil, nil
		},
	}
	handler, router := setupAuthTest(&stubAuthService{}, credentials, nil)
	router.POST("/auth/password/validate", handler.ValidatePassword)

	w := postJSON(t, router, "/auth/password/validate", `{"password":"weak"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.False(t, data["valid"].(bool))
	assert.Len(t, data["errors"], 1)
	assert.Equal(t, "weak", data["strength"])

	w = postJSON(t, router, "/auth/password/validate", `{"password":"Str0ngPass!"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w)["data"].(map[string]interface{})
	assert.True(t, data["valid"].(bool))
	assert.Equal(t, "good", data["strength"])
}
