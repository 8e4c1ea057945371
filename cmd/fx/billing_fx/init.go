package billing_fx

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"gudani/internal/billing"
	"gudani/internal/models/db_models"
)

var Module = fx.Provide(provideRegistry)

// provideRegistry wires both payment providers. BILLING_PROVIDER selects which
// one new subscriptions go to; existing subscriptions route by which external
// id their row carries.
func provideRegistry(logger *zap.Logger) (*billing.Registry, error) {
	stripeProvider := billing.NewStripeProvider(billing.StripeConfig{
		SecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
	}, logger)

	paystackProvider := billing.NewPaystackProvider(billing.PaystackConfig{
		SecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		CallbackURL: os.Getenv("FRONTEND_URL") + "/billing/callback",
	}, logger)

	defaultName := os.Getenv("BILLING_PROVIDER")
	if defaultName == "" {
		defaultName = db_models.ProviderPaystack
	}
	return billing.NewRegistry(defaultName, stripeProvider, paystackProvider)
}
