package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
)

// PolicyRepository implements port.PolicyRepository using PostgreSQL.
// The security policy lives in a single row with a fixed id.
// PolicyRepository реализует интерфейс port.PolicyRepository с
// использованием PostgreSQL. Политика безопасности хранится в
// единственной строке с фиксированным id.
type PolicyRepository struct {
	db *gorm.DB // Database connection / Подключение к базе данных
}

// NewPolicyRepository creates a new PolicyRepository instance.
// NewPolicyRepository создаёт новый экземпляр PolicyRepository.
func NewPolicyRepository(db *gorm.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// Load reads the policy row. Returns nil when the row has never been
// persisted yet, letting the service fall back to defaults.
// Load читает строку политики. Возвращает nil, если строка ещё не была
// сохранена, позволяя сервису использовать значения по умолчанию.
func (r *PolicyRepository) Load(ctx context.Context) (*domain.SecurityPolicy, error) {
	var policy domain.SecurityPolicy

	err := r.db.WithContext(ctx).First(&policy, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal("failed to load security policy", err)
	}
	return &policy, nil
}

// Save upserts the policy row, keeping the fixed id.
// Save создаёт или обновляет строку политики, сохраняя фиксированный id.
func (r *PolicyRepository) Save(ctx context.Context, policy *domain.SecurityPolicy) error {
	policy.ID = 1

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(policy).Error

	if err != nil {
		return apperror.Internal("failed to save security policy", err)
	}
	return nil
}
