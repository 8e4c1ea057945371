package quota_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gudani/internal/services"
)

var Module = fx.Provide(provideQuotaService)

func provideQuotaService(db *gorm.DB, logger *zap.Logger) services.QuotaServiceInterface {
	return services.NewQuotaService(db, logger)
}
