package billing

import (
	"context"
	"fmt"
	"time"

	"gudani/internal/models/db_models"
	"gudani/pkg/utils"
)

// Checkout describes a hosted payment page the caller must redirect to. The
// subscription is activated later by the provider's subscription.created event.
type Checkout struct {
	URL       string
	Reference string
}

// ProviderSubscription is the provider-side record created for a plan.
type ProviderSubscription struct {
	SubscriptionID string
	// EmailToken is only set by Paystack; it is needed to disable the
	// subscription later.
	EmailToken  string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// PaymentProvider is the capability surface the reconciliation workflow needs
// from a billing system of record. Implementations must not touch local
// storage; persisting ids is the caller's job so that no local write happens
// when a provider call fails.
type PaymentProvider interface {
	Name() string

	// EnsureCustomer returns the user's existing customer id for this provider
	// or creates one remotely. It never persists the id locally.
	EnsureCustomer(ctx context.Context, user *db_models.User) (string, error)

	// DefaultPaymentMethod reports whether a reusable payment instrument is on
	// file for the customer, returning a provider-specific reference to it.
	DefaultPaymentMethod(ctx context.Context, customerID string) (ref string, ok bool, err error)

	CreateSubscription(ctx context.Context, customerID, planCode, paymentMethodRef string) (*ProviderSubscription, error)

	// SwitchPlan moves an existing subscription to a different plan code. The
	// returned id equals subscriptionID unless the provider has no in-place
	// plan change and a replacement record had to be created.
	SwitchPlan(ctx context.Context, subscriptionID, planCode string) (string, error)

	DisableAtPeriodEnd(ctx context.Context, subscriptionID, emailToken string) error
	CancelNow(ctx context.Context, subscriptionID, emailToken string) error

	InitializeCheckout(ctx context.Context, user *db_models.User, plan *db_models.PlanConfig) (*Checkout, error)
}

// Registry holds the configured providers. New subscriptions go to the default
// provider; existing subscriptions are routed by which external id field is
// populated on the row.
type Registry struct {
	providers   map[string]PaymentProvider
	defaultName string
}

func NewRegistry(defaultName string, providers ...PaymentProvider) (*Registry, error) {
	r := &Registry{providers: make(map[string]PaymentProvider), defaultName: defaultName}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	if _, ok := r.providers[defaultName]; !ok {
		return nil, fmt.Errorf("default payment provider %q not registered", defaultName)
	}
	return r, nil
}

func (r *Registry) Default() PaymentProvider {
	return r.providers[r.defaultName]
}

func (r *Registry) ByName(name string) (PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment provider %q", utils.ErrProviderFailure, name)
	}
	return p, nil
}

// ForSubscription routes to the provider holding the row's external record.
func (r *Registry) ForSubscription(sub *db_models.Subscription) (PaymentProvider, error) {
	name := sub.ProviderName()
	if name == "" {
		return nil, utils.ErrNothingToCancel
	}
	return r.ByName(name)
}
