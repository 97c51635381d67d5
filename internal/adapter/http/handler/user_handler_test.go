package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/port"
)

func setupUserTest(users *stubUserService) (*UserHandler, *gin.Engine, *domain.User) {
	return setupUserTestWithAudit(users, &stubAuditService{})
}

func setupUserTestWithAudit(users *stubUserService, audit *stubAuditService) (*UserHandler, *gin.Engine, *domain.User) {
	handler := NewUserHandler(users, audit, testLogger())

	gin.SetMode(gin.TestMode)
	router := gin.New()

	admin := &domain.User{ID: 99, Username: "admin", Role: domain.RoleSuperadmin, IsActive: true}

	return handler, router, admin
}

func TestUserHandler_ListUsers(t *testing.T) {
	users := &stubUserService{
		listFn: func(_ context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
			assert.Equal(t, "active", filter.Status)
			assert.Equal(t, "client", filter.Role)
			assert.Equal(t, 1, filter.Page)
			assert.Equal(t, 20, filter.PageSize)
			return []domain.User{
				{ID: 1, Username: "alice", Role: domain.RoleClient, IsActive: true},
				{ID: 2, Username: "bob", Role: domain.RoleClient, IsActive: true},
			}, 2, nil
		},
	}
	handler, router, admin := setupUserTest(users)
	router.GET("/admin/users", asUser(admin, nil), handler.ListUsers)

	req := httptest.NewRequest(http.MethodGet, "/admin/users?status=active&role=client", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Len(t, resp["data"], 2)
	assert.Equal(t, float64(2), resp["meta"].(map[string]interface{})["total"])
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	users := &stubUserService{
		getByIDFn: func(_ context.Context, id int64) (*domain.User, error) {
			return nil, apperror.NotFound("user", id)
		},
	}
	handler, router, admin := setupUserTest(users)
	router.GET("/admin/users/:id", asUser(admin, nil), handler.GetUser)

	req := httptest.NewRequest(http.MethodGet, "/admin/users/404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandler_CreateUser(t *testing.T) {
	users := &stubUserService{
		createFn: func(_ context.Context, req *domain.CreateUserRequest, actorID int64, _ domain.RequestMeta) (*domain.User, error) {
			assert.Equal(t, int64(99), actorID)
			assert.Equal(t, "client", req.Role)
			return &domain.User{ID: 10, Username: req.Username, Role: req.Role, IsActive: true}, nil
		},
	}
	handler, router, admin := setupUserTest(users)
	router.POST("/admin/users", asUser(admin, nil), handler.CreateUser)

	w := postJSON(t, router, "/admin/users",
		`{"username":"carol","email":"carol@example.com","password":"Str0ngPass!","role":"client"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "carol", data["username"])
}

func TestUserHandler_CreateUser_InvalidRole(t *testing.T) {
	handler, router, admin := setupUserTest(&stubUserService{})
	router.POST("/admin/users", asUser(admin, nil), handler.CreateUser)

	// Rejected by the binding's oneof rule before the service is called.
	w := postJSON(t, router, "/admin/users",
		`{"username":"carol","email":"carol@example.com","password":"Str0ngPass!","role":"emperor"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_SetUserActive(t *testing.T) {
	var gotID int64
	var gotActive bool
	users := &stubUserService{
		setActiveFn: func(_ context.Context, id int64, active bool, actorID int64, _ domain.RequestMeta) error {
			gotID, gotActive = id, active
			return nil
		},
	}
	handler, router, admin := setupUserTest(users)
	router.PATCH("/admin/users/:id/active", asUser(admin, nil), handler.SetUserActive)

	req := httptest.NewRequest(http.MethodPatch, "/admin/users/7/active",
		strings.NewReader(`{"active":false}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), gotID)
	assert.False(t, gotActive)
}

func TestUserHandler_ChangeUserRole(t *testing.T) {
	users := &stubUserService{
		changeRoleFn: func(_ context.Context, id int64, role string, actorID int64, _ domain.RequestMeta) error {
			assert.Equal(t, int64(7), id)
			assert.Equal(t, "staff_admin", role)
			return nil
		},
	}
	handler, router, admin := setupUserTest(users)
	router.PATCH("/admin/users/:id/role", asUser(admin, nil), handler.ChangeUserRole)

	req := httptest.NewRequest(http.MethodPatch, "/admin/users/7/role",
		strings.NewReader(`{"role":"staff_admin"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserHandler_GetLoginHistory(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", Role: domain.RoleClient, IsActive: true}
	ip := "198.51.100.7"
	ua := "history-client"
	audit := &stubAuditService{
		loginHistoryFn: func(_ context.Context, userID int64, limit int) ([]domain.AuditEvent, error) {
			assert.Equal(t, int64(1), userID)
			assert.Equal(t, 5, limit)
			return []domain.AuditEvent{
				{EventType: domain.EventLoginSuccess, IP: &ip, UserAgent: &ua},
			}, nil
		},
	}

	handler, router, _ := setupUserTestWithAudit(&stubUserService{}, audit)
	router.GET("/auth/login-history", asUser(user, nil), handler.GetLoginHistory)

	req := httptest.NewRequest(http.MethodGet, "/auth/login-history?limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	entry := data[0].(map[string]interface{})
	assert.Equal(t, ip, entry["ip"])
	assert.Equal(t, ua, entry["user_agent"])
}

func TestUserHandler_GetMe(t *testing.T) {
	user := &domain.User{ID: 1, Username: "alice", Role: domain.RoleClient, IsActive: true}

	handler, router, _ := setupUserTest(&stubUserService{})
	router.GET("/auth/me", asUser(user, nil), handler.GetMe)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["username"])
}
