// Package service contains the business logic layer of the application.
// Пакет service содержит слой бизнес-логики приложения.
package service

import (
	"context"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/pkg/logger"
	"github.com/andrewhigh08/account-core/internal/port"
)

// UserService implements port.UserService: administrative account
// management. Self-registration lives in AuthService.
// UserService реализует port.UserService: административное управление
// аккаунтами. Саморегистрация находится в AuthService.
type UserService struct {
	userRepo    port.UserRepository    // User storage / Хранилище пользователей
	credentials port.CredentialService // Password boundary / Граница паролей
	sessions    port.SessionService    // Session ledger / Реестр сессий
	audit       port.AuditService      // Audit stream / Поток аудита
	logger      *logger.Logger         // Logger instance / Экземпляр логгера
}

// NewUserService creates a new UserService instance.
// NewUserService создаёт новый экземпляр UserService.
func NewUserService(
	userRepo port.UserRepository,
	credentials port.CredentialService,
	sessions port.SessionService,
	audit port.AuditService,
	log *logger.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		credentials: credentials,
		sessions:    sessions,
		audit:       audit,
		logger:      log.WithComponent("user_service"),
	}
}

// Create creates an account with an explicit role.
// Create создаёт аккаунт с явной ролью.
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest, actorID int64, meta domain.RequestMeta) (*domain.User, error) {
	log := s.logger.WithContext(ctx)

	if !domain.IsValidRole(req.Role) {
		return nil, apperror.ValidationError("invalid role", map[string]interface{}{
			"role":        req.Role,
			"valid_roles": domain.ValidRoles,
		})
	}

	valid, errs, err := s.credentials.Validate(ctx, req.Password)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, apperror.ValidationError("password does not meet the security requirements", map[string]interface{}{
			"errors": errs,
		})
	}

	if exists, err := s.userRepo.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("user", "username", req.Username)
	}
	if exists, err := s.userRepo.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, apperror.Conflict("user", "email", req.Email)
	}

	user := &domain.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.credentials.SetPassword(ctx, user.ID, req.Password); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, domain.EventUserCreated, domain.SeverityInfo, &actorID, &user.ID, meta, map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	}); err != nil {
		log.Warn("failed to audit user creation", "error", err)
	}

	log.Info("user created", "user_id", user.ID, "role", user.Role, "actor_id", actorID)
	return user, nil
}

// GetByID retrieves an account by id.
// GetByID получает аккаунт по id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

// List retrieves accounts with filtering and pagination.
// List получает аккаунты с фильтрацией и пагинацией.
func (s *UserService) List(ctx context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.userRepo.List(ctx, filter)
}

// SetActive activates or deactivates an account. Deactivation terminates
// every session of the account so the change takes effect immediately.
// SetActive активирует или деактивирует аккаунт. Деактивация завершает все
// сессии аккаунта, чтобы изменение вступило в силу немедленно.
func (s *UserService) SetActive(ctx context.Context, id int64, active bool, actorID int64, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsActive == active {
		return nil
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	eventType := domain.EventUserActivated
	if !active {
		eventType = domain.EventUserDeactivated
		if _, err := s.sessions.TerminateOthers(ctx, user.ID, "", meta); err != nil {
			log.Error("failed to terminate sessions of deactivated user", "user_id", user.ID, "error", err)
		}
	}

	if err := s.audit.Record(ctx, eventType, domain.SeverityWarning, &actorID, &user.ID, meta, map[string]interface{}{
		"username": user.Username,
	}); err != nil {
		log.Warn("failed to audit account state change", "error", err)
	}

	log.Info("account state changed", "user_id", user.ID, "active", active, "actor_id", actorID)
	return nil
}

// ChangeRole reassigns the account's role.
// ChangeRole переназначает роль аккаунта.
func (s *UserService) ChangeRole(ctx context.Context, id int64, role string, actorID int64, meta domain.RequestMeta) error {
	log := s.logger.WithContext(ctx)

	if !domain.IsValidRole(role) {
		return apperror.ValidationError("invalid role", map[string]interface{}{
			"role":        role,
			"valid_roles": domain.ValidRoles,
		})
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == role {
		return nil
	}

	previous := user.Role
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.audit.Record(ctx, domain.EventUserRoleChanged, domain.SeverityWarning, &actorID, &user.ID, meta, map[string]interface{}{
		"username": user.Username,
		"from":     previous,
		"to":       role,
	}); err != nil {
		log.Warn("failed to audit role change", "error", err)
	}

	log.Info("role changed", "user_id", user.ID, "from", previous, "to", role, "actor_id", actorID)
	return nil
}
