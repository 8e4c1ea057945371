package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"gudani/internal/models/db_models"
	"gudani/pkg/utils"
)

type StripeConfig struct {
	SecretKey   string
	FrontendURL string
}

type stripeProvider struct {
	sc     *client.API
	cfg    StripeConfig
	logger *zap.Logger
}

func NewStripeProvider(cfg StripeConfig, logger *zap.Logger) PaymentProvider {
	return &stripeProvider{
		sc:     client.New(cfg.SecretKey, nil),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *stripeProvider) Name() string { return db_models.ProviderStripe }

func (s *stripeProvider) fail(op string, err error) error {
	// Full provider payload stays in the logs; callers get the generic error.
	s.logger.Error("stripe call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: stripe %s", utils.ErrProviderFailure, op)
}

func (s *stripeProvider) EnsureCustomer(ctx context.Context, user *db_models.User) (string, error) {
	if id := user.CustomerIDFor(db_models.ProviderStripe); id != "" {
		return id, nil
	}
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.FullName()),
		Metadata: map[string]string{
			"user_id": user.ID.String(),
		},
	}
	params.Context = ctx
	cust, err := s.sc.Customers.New(params)
	if err != nil {
		return "", s.fail("create customer", err)
	}
	return cust.ID, nil
}

func (s *stripeProvider) DefaultPaymentMethod(ctx context.Context, customerID string) (string, bool, error) {
	getParams := &stripe.CustomerParams{}
	getParams.Context = ctx
	cust, err := s.sc.Customers.Get(customerID, getParams)
	if err != nil {
		return "", false, s.fail("get customer", err)
	}
	if cust.InvoiceSettings != nil && cust.InvoiceSettings.DefaultPaymentMethod != nil {
		return cust.InvoiceSettings.DefaultPaymentMethod.ID, true, nil
	}

	listParams := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	listParams.Context = ctx
	iter := s.sc.PaymentMethods.List(listParams)
	for iter.Next() {
		return iter.PaymentMethod().ID, true, nil
	}
	if err := iter.Err(); err != nil {
		return "", false, s.fail("list payment methods", err)
	}
	return "", false, nil
}

func (s *stripeProvider) CreateSubscription(ctx context.Context, customerID, planCode, paymentMethodRef string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(planCode)},
		},
	}
	if paymentMethodRef != "" {
		params.DefaultPaymentMethod = stripe.String(paymentMethodRef)
	}
	params.Context = ctx
	sub, err := s.sc.Subscriptions.New(params)
	if err != nil {
		return nil, s.fail("create subscription", err)
	}
	return &ProviderSubscription{
		SubscriptionID: sub.ID,
		PeriodStart:    time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		PeriodEnd:      time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}, nil
}

func (s *stripeProvider) SwitchPlan(ctx context.Context, subscriptionID, planCode string) (string, error) {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := s.sc.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return "", s.fail("get subscription", err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return "", s.fail("switch plan", fmt.Errorf("subscription %s has no items", subscriptionID))
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(planCode),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	if _, err := s.sc.Subscriptions.Update(subscriptionID, params); err != nil {
		return "", s.fail("update subscription", err)
	}
	return subscriptionID, nil
}

func (s *stripeProvider) DisableAtPeriodEnd(ctx context.Context, subscriptionID, _ string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx
	if _, err := s.sc.Subscriptions.Update(subscriptionID, params); err != nil {
		return s.fail("disable subscription", err)
	}
	return nil
}

func (s *stripeProvider) CancelNow(ctx context.Context, subscriptionID, _ string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := s.sc.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return s.fail("cancel subscription", err)
	}
	return nil
}

func (s *stripeProvider) InitializeCheckout(ctx context.Context, user *db_models.User, plan *db_models.PlanConfig) (*Checkout, error) {
	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontend + "/billing/success"),
		CancelURL:  stripe.String(frontend + "/billing/cancel"),
	}
	if id := user.CustomerIDFor(db_models.ProviderStripe); id != "" {
		params.Customer = stripe.String(id)
	}
	params.Context = ctx
	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, s.fail("create checkout session", err)
	}
	return &Checkout{URL: sess.URL, Reference: sess.ID}, nil
}
