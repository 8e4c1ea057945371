package account_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gudani/internal/api/controllers"
	"gudani/internal/repositories"
	"gudani/internal/services"
)

var Module = fx.Provide(
	provideUserRepo, provideAccountService, provideAccountController)

func provideUserRepo(db *gorm.DB) repositories.UserRepository {
	return repositories.NewUserRepository(db)
}

func provideAccountService(
	users repositories.UserRepository,
	subs repositories.SubscriptionRepository,
	plans repositories.PlanRepository,
	logger *zap.Logger,
) services.AccountServiceInterface {
	return services.NewAccountService(users, subs, plans, logger)
}

func provideAccountController(accounts services.AccountServiceInterface, logger *zap.Logger) *controllers.AccountController {
	return controllers.NewAccountController(accounts, logger)
}
