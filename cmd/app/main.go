package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"gudani/cmd/fx/account_fx"
	"gudani/cmd/fx/billing_fx"
	"gudani/cmd/fx/chat_fx"
	"gudani/cmd/fx/db_fx"
	"gudani/cmd/fx/mail_fx"
	"gudani/cmd/fx/quota_fx"
	"gudani/cmd/fx/subscription_fx"
	"gudani/cmd/fx/webhook_fx"
	"gudani/internal/api/controllers"
	"gudani/internal/services"
	"gudani/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	app := fx.New(
		fx.Provide(provideLogger),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		db_fx.Module,
		mail_fx.Module,
		billing_fx.Module,
		account_fx.Module,
		quota_fx.Module,
		subscription_fx.Module,
		webhook_fx.Module,
		chat_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func provideLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, dispatcher *services.NotificationDispatcher, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			go func() {
				logger.Info("starting HTTP server", zap.String("port", port))
				if err := engine.Run(":" + port); err != nil {
					logger.Fatal("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server, draining notifications")
			dispatcher.Wait()
			return nil
		},
	})
}

func ProvideRouter(
	accountController *controllers.AccountController,
	subscriptionController *controllers.SubscriptionController,
	webhookController *controllers.WebhookController,
	chatController *controllers.ChatController,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, accountController, subscriptionController, webhookController, chatController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	subscriptionController *controllers.SubscriptionController,
	webhookController *controllers.WebhookController,
	chatController *controllers.ChatController,
) {
	accounts := r.Group("/accounts")
	accounts.POST("/register", accountController.SignUp)
	accounts.POST("/login", accountController.Login)
	accounts.GET("/me", middleware.JWTAuthMiddleware(), accountController.Profile)

	// Webhooks authenticate by signature, not by JWT.
	r.POST("/webhooks/billing", webhookController.Receive)

	r.GET("/plans", subscriptionController.Plans)

	subscriptions := r.Group("/subscriptions")
	subscriptions.Use(middleware.JWTAuthMiddleware())
	subscriptions.POST("/subscribe", subscriptionController.Subscribe)
	subscriptions.POST("/cancel", subscriptionController.Cancel)
	subscriptions.GET("/details", subscriptionController.Details)
	subscriptions.GET("/usage", subscriptionController.Usage)

	r.POST("/chat", middleware.JWTAuthMiddleware(), chatController.Complete)

	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	admin.GET("/plans", subscriptionController.AdminPlans)
}
