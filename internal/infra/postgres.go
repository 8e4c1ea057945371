package infra

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gudani/internal/models/db_models"
)

func InitPostgresql() *gorm.DB {
	dsn := os.Getenv("POSTGRES_URL")

	connectionPool, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		log.Fatal("Error connecting to database")
	}

	if err := AutoMigrate(connectionPool); err != nil {
		log.Fatalf("Error migrating database schema: %v", err)
	}
	if err := SeedPlans(connectionPool); err != nil {
		log.Fatalf("Error seeding plan catalog: %v", err)
	}

	return connectionPool
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database instance: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&db_models.User{},
		&db_models.PlanConfig{},
		&db_models.Subscription{},
		&db_models.TokenUsage{},
		&db_models.WebhookEvent{},
	)
}

// SeedPlans upserts the fixed plan catalog. Limits and prices are code-owned;
// provider plan codes come from the environment so each deployment can point
// at its own provider objects.
func SeedPlans(db *gorm.DB) error {
	plans := []db_models.PlanConfig{
		{
			Tier:         db_models.TierFree,
			DailyLimit:   10,
			MonthlyLimit: 300,
			Price:        0,
			Currency:     "USD",
		},
		{
			Tier:             db_models.TierStandard,
			DailyLimit:       500,
			MonthlyLimit:     15000,
			Price:            110,
			Currency:         "USD",
			StripePriceID:    os.Getenv("STRIPE_PRICE_STANDARD"),
			PaystackPlanCode: os.Getenv("PAYSTACK_PLAN_STANDARD"),
		},
		{
			Tier:             db_models.TierPremium,
			DailyLimit:       1000,
			MonthlyLimit:     30000,
			Price:            250,
			Currency:         "USD",
			StripePriceID:    os.Getenv("STRIPE_PRICE_PREMIUM"),
			PaystackPlanCode: os.Getenv("PAYSTACK_PLAN_PREMIUM"),
		},
	}

	for i := range plans {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"daily_limit", "monthly_limit", "price", "currency",
				"stripe_price_id", "paystack_plan_code",
			}),
		}).Create(&plans[i]).Error
		if err != nil {
			return err
		}
	}
	return nil
}
