package fixtures

import (
	"strconv"
	"time"

	"github.com/andrewhigh08/account-core/internal/domain"
)

// UserFixtures provides test user data
type UserFixtures struct{}

// NewUserFixtures creates a new UserFixtures instance
func NewUserFixtures() *UserFixtures {
	return &UserFixtures{}
}

// ValidUser returns an active user for testing. The hash encodes
// "Password123!" with the production argon2id parameters.
func (f *UserFixtures) ValidUser() *domain.User {
	changed := time.Now().Add(-24 * time.Hour)
	return &domain.User{
		ID:                1,
		Username:          "testuser",
		Email:             "test@example.com",
		PasswordHash:      "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2Fs$Yx0bNICbF1OpCz0ZstLqQYcGnN7xQkumNmJQCC7l5BE",
		PasswordChangedAt: &changed,
		FirstName:         "Test",
		LastName:          "User",
		Role:              domain.RoleClient,
		IsActive:          true,
		CreatedAt:         time.Now().Add(-24 * time.Hour),
		UpdatedAt:         time.Now(),
	}
}

// ValidUserWithID returns a valid user with a specific ID
func (f *UserFixtures) ValidUserWithID(id int64) *domain.User {
	user := f.ValidUser()
	user.ID = id
	return user
}

// DisabledUser returns a deactivated user for testing
func (f *UserFixtures) DisabledUser() *domain.User {
	user := f.ValidUser()
	user.ID = 2
	user.Username = "disabled"
	user.Email = "disabled@example.com"
	user.IsActive = false
	return user
}

// TwoFactorUser returns a user with TOTP enabled for testing
func (f *UserFixtures) TwoFactorUser() *domain.User {
	user := f.ValidUser()
	user.ID = 3
	user.Username = "twofactor"
	user.Email = "twofactor@example.com"
	user.TwoFactorEnabled = true
	return user
}

// AdminUser returns a superadmin user for testing
func (f *UserFixtures) AdminUser() *domain.User {
	user := f.ValidUser()
	user.ID = 4
	user.Username = "admin"
	user.Email = "admin@example.com"
	user.Role = domain.RoleSuperadmin
	return user
}

// ValidSignupRequest returns a valid self-registration request
func (f *UserFixtures) ValidSignupRequest() *domain.SignupRequest {
	return &domain.SignupRequest{
		Username:        "newuser",
		Email:           "newuser@example.com",
		Password:        "SecurePass123!",
		PasswordConfirm: "SecurePass123!",
		FirstName:       "New",
		LastName:        "User",
	}
}

// ValidCreateUserRequest returns a valid administrative creation request
func (f *UserFixtures) ValidCreateUserRequest() *domain.CreateUserRequest {
	return &domain.CreateUserRequest{
		Username: "created",
		Email:    "created@example.com",
		Password: "SecurePass123!",
		Role:     domain.RoleClient,
	}
}

// ValidCreateUserRequestWithRole returns a creation request with specific role
func (f *UserFixtures) ValidCreateUserRequestWithRole(role string) *domain.CreateUserRequest {
	req := f.ValidCreateUserRequest()
	req.Role = role
	return req
}

// UsersList returns a list of users for testing pagination
func (f *UserFixtures) UsersList(count int) []domain.User {
	users := make([]domain.User, count)
	for i := 0; i < count; i++ {
		n := strconv.Itoa(i)
		users[i] = domain.User{
			ID:        int64(i + 1),
			Username:  "user" + n,
			Email:     "user" + n + "@example.com",
			Role:      domain.RoleClient,
			IsActive:  i%5 != 0, // Every 5th user is disabled
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
			UpdatedAt: time.Now(),
		}
	}
	return users
}

// AuditEventFixtures provides test audit event data
type AuditEventFixtures struct{}

// NewAuditEventFixtures creates a new AuditEventFixtures instance
func NewAuditEventFixtures() *AuditEventFixtures {
	return &AuditEventFixtures{}
}

// ValidEvent returns a valid audit event for testing
func (f *AuditEventFixtures) ValidEvent() *domain.AuditEvent {
	actorID := int64(1)
	ip := "192.168.1.1"
	ua := "Mozilla/5.0"
	return &domain.AuditEvent{
		ID:        1,
		EventType: domain.EventLoginSuccess,
		Severity:  domain.SeverityInfo,
		ActorID:   &actorID,
		IP:        &ip,
		UserAgent: &ua,
		Details:   []byte(`{}`),
		CreatedAt: time.Now(),
	}
}

// EventsList returns a list of audit events for testing
func (f *AuditEventFixtures) EventsList(count int) []domain.AuditEvent {
	eventTypes := []string{
		domain.EventLoginSuccess,
		domain.EventLoginFailed,
		domain.EventPasswordChange,
		domain.EventSessionCreated,
	}
	events := make([]domain.AuditEvent, count)
	for i := 0; i < count; i++ {
		actorID := int64(i%10 + 1)
		events[i] = domain.AuditEvent{
			ID:        int64(i + 1),
			EventType: eventTypes[i%len(eventTypes)],
			Severity:  domain.SeverityInfo,
			ActorID:   &actorID,
			Details:   []byte(`{}`),
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute),
		}
	}
	return events
}
