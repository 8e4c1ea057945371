package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gudani/internal/models/db_models"
)

type PlanRepository interface {
	ByTier(ctx context.Context, tier string) (*db_models.PlanConfig, error)
	ByID(ctx context.Context, id uuid.UUID) (*db_models.PlanConfig, error)
	ByProviderCode(ctx context.Context, provider, code string) (*db_models.PlanConfig, error)
	All(ctx context.Context) ([]db_models.PlanConfig, error)
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// ByTier is case-insensitive: tiers are stored upper-case and the input is
// normalized before lookup.
func (r *planRepository) ByTier(ctx context.Context, tier string) (*db_models.PlanConfig, error) {
	var plan db_models.PlanConfig
	err := r.db.WithContext(ctx).
		First(&plan, "tier = ?", db_models.NormalizeTier(tier)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ByID(ctx context.Context, id uuid.UUID) (*db_models.PlanConfig, error) {
	var plan db_models.PlanConfig
	err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ByProviderCode(ctx context.Context, provider, code string) (*db_models.PlanConfig, error) {
	var column string
	switch provider {
	case db_models.ProviderStripe:
		column = "stripe_price_id"
	case db_models.ProviderPaystack:
		column = "paystack_plan_code"
	default:
		return nil, nil
	}

	var plan db_models.PlanConfig
	err := r.db.WithContext(ctx).First(&plan, column+" = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) All(ctx context.Context) ([]db_models.PlanConfig, error) {
	var plans []db_models.PlanConfig
	if err := r.db.WithContext(ctx).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
