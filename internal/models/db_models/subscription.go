package db_models

import "github.com/google/uuid"

const (
	ProviderStripe   = "stripe"
	ProviderPaystack = "paystack"
)

type SubscriptionStatus string

const (
	SubStatusActive SubscriptionStatus = "ACTIVE"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusFree    PaymentStatus = "FREE"
)

// Subscription is a user's current plan binding. One row per logical
// lifecycle: provider events and user actions mutate the row in place, and a
// downgrade resets it to the FREE tier instead of deleting it. At most one
// provider subscription id is populated at a time.
type Subscription struct {
	BaseModel
	UserID uuid.UUID `gorm:"index"`
	PlanID uuid.UUID `gorm:"index"`

	Status        SubscriptionStatus `gorm:"index"`
	PaymentStatus PaymentStatus

	StartDate         int64 `gorm:"not null;index"`
	EndDate           *int64
	CancelAtPeriodEnd bool
	CancellationDate  *int64

	StripeSubscriptionID   *string `gorm:"uniqueIndex"`
	PaystackSubscriptionID *string `gorm:"uniqueIndex"`
	// EmailToken is required by Paystack to disable a subscription.
	EmailToken string

	PastDueAmount   float64
	PastDueCurrency string

	User User       `gorm:"foreignKey:UserID"`
	Plan PlanConfig `gorm:"foreignKey:PlanID"`
}

// ProviderName reports which provider holds the external record, based on
// which subscription id field is populated.
func (s *Subscription) ProviderName() string {
	if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != "" {
		return ProviderStripe
	}
	if s.PaystackSubscriptionID != nil && *s.PaystackSubscriptionID != "" {
		return ProviderPaystack
	}
	return ""
}

func (s *Subscription) ProviderSubscriptionID() string {
	switch s.ProviderName() {
	case ProviderStripe:
		return *s.StripeSubscriptionID
	case ProviderPaystack:
		return *s.PaystackSubscriptionID
	}
	return ""
}

// SetProviderSubscriptionID binds the row to one provider record, clearing any
// other provider's id so only one is ever populated.
func (s *Subscription) SetProviderSubscriptionID(provider, id string) {
	s.StripeSubscriptionID = nil
	s.PaystackSubscriptionID = nil
	switch provider {
	case ProviderStripe:
		s.StripeSubscriptionID = &id
	case ProviderPaystack:
		s.PaystackSubscriptionID = &id
	}
}

func (s *Subscription) ClearProvider() {
	s.StripeSubscriptionID = nil
	s.PaystackSubscriptionID = nil
	s.EmailToken = ""
}
