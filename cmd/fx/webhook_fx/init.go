package webhook_fx

import (
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gudani/internal/api/controllers"
	"gudani/internal/billing"
	"gudani/internal/repositories"
	"gudani/internal/services"
)

var Module = fx.Provide(
	provideWebhookEventRepo, provideLifecycleService, provideWebhookController,
)

func provideWebhookEventRepo(db *gorm.DB) repositories.WebhookEventRepository {
	return repositories.NewWebhookEventRepository(db)
}

func provideLifecycleService(
	subs repositories.SubscriptionRepository,
	users repositories.UserRepository,
	plans repositories.PlanRepository,
	notifications *services.NotificationDispatcher,
	gateway *billing.Registry,
	logger *zap.Logger,
) *services.LifecycleService {
	return services.NewLifecycleService(subs, users, plans, notifications, gateway.Default().Name(), logger)
}

func provideWebhookController(
	lifecycle *services.LifecycleService,
	events repositories.WebhookEventRepository,
	gateway *billing.Registry,
	logger *zap.Logger,
) *controllers.WebhookController {
	return controllers.NewWebhookController(
		os.Getenv("WEBHOOK_SECRET"),
		gateway.Default().Name(),
		lifecycle,
		events,
		logger,
	)
}
