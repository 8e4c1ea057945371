package subscription_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gudani/internal/api/controllers"
	"gudani/internal/billing"
	"gudani/internal/repositories"
	"gudani/internal/services"
)

var Module = fx.Provide(
	provideSubscriptionRepo, providePlanRepo,
	provideSubscriptionService, provideSubscriptionController,
)

func provideSubscriptionRepo(db *gorm.DB) repositories.SubscriptionRepository {
	return repositories.NewSubscriptionRepository(db)
}

func providePlanRepo(db *gorm.DB) repositories.PlanRepository {
	return repositories.NewPlanRepository(db)
}

func provideSubscriptionService(
	subs repositories.SubscriptionRepository,
	users repositories.UserRepository,
	plans repositories.PlanRepository,
	gateway *billing.Registry,
	notifications *services.NotificationDispatcher,
	logger *zap.Logger,
) services.SubscriptionServiceInterface {
	return services.NewSubscriptionService(subs, users, plans, gateway, notifications, logger)
}

func provideSubscriptionController(
	subscriptions services.SubscriptionServiceInterface,
	quota services.QuotaServiceInterface,
	plans repositories.PlanRepository,
	logger *zap.Logger,
) *controllers.SubscriptionController {
	return controllers.NewSubscriptionController(subscriptions, quota, plans, logger)
}
