package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gudani/internal/models/db_models"
)

// SubscriptionRef identifies the row an operation should act on. When a
// provider subscription id is present it always wins; the per-user fallback is
// only used when the id is not yet known locally (the very first creation
// event) or for user-initiated actions.
type SubscriptionRef struct {
	Provider               string
	ProviderSubscriptionID string
	UserID                 uuid.UUID
}

type SubscriptionRepository interface {
	Insert(ctx context.Context, sub *db_models.Subscription) error
	Save(ctx context.Context, sub *db_models.Subscription) error

	// Current returns the authoritative row for a user: the one with the
	// latest start date.
	Current(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error)
	ByProviderSubscriptionID(ctx context.Context, provider, code string) (*db_models.Subscription, error)

	// Resolve applies the id-first precedence shared by the state machine and
	// the switch workflow.
	Resolve(ctx context.Context, ref SubscriptionRef) (*db_models.Subscription, error)

	// UpdateResolved resolves the row, locks it, applies mutate and persists
	// the result in one transaction, so concurrent deliveries for the same
	// subscription cannot interleave their read-modify-write sequences.
	UpdateResolved(ctx context.Context, ref SubscriptionRef, mutate func(sub *db_models.Subscription) error) (*db_models.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func providerSubscriptionColumn(provider string) string {
	switch provider {
	case db_models.ProviderStripe:
		return "stripe_subscription_id"
	case db_models.ProviderPaystack:
		return "paystack_subscription_id"
	}
	return ""
}

func (r *subscriptionRepository) Insert(ctx context.Context, sub *db_models.Subscription) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *db_models.Subscription) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(sub).Error
}

func (r *subscriptionRepository) Current(ctx context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	return current(r.db.WithContext(ctx), userID)
}

func current(db *gorm.DB, userID uuid.UUID) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("start_date DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ByProviderSubscriptionID(ctx context.Context, provider, code string) (*db_models.Subscription, error) {
	return byProviderSubscriptionID(r.db.WithContext(ctx), provider, code)
}

func byProviderSubscriptionID(db *gorm.DB, provider, code string) (*db_models.Subscription, error) {
	column := providerSubscriptionColumn(provider)
	if column == "" || code == "" {
		return nil, nil
	}
	var sub db_models.Subscription
	err := db.Preload("Plan").First(&sub, column+" = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Resolve(ctx context.Context, ref SubscriptionRef) (*db_models.Subscription, error) {
	return resolve(r.db.WithContext(ctx), ref)
}

func resolve(db *gorm.DB, ref SubscriptionRef) (*db_models.Subscription, error) {
	if ref.ProviderSubscriptionID != "" {
		sub, err := byProviderSubscriptionID(db, ref.Provider, ref.ProviderSubscriptionID)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	if ref.UserID != uuid.Nil {
		return current(db, ref.UserID)
	}
	return nil, nil
}

func (r *subscriptionRepository) UpdateResolved(ctx context.Context, ref SubscriptionRef, mutate func(sub *db_models.Subscription) error) (*db_models.Subscription, error) {
	var result *db_models.Subscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "subscriptions"}})
		sub, err := resolve(locked, ref)
		if err != nil {
			return err
		}
		if sub == nil {
			return gorm.ErrRecordNotFound
		}
		if err := mutate(sub); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(sub).Error; err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}
