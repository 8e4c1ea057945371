package mail_fx

import (
	"os"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"gudani/internal/services"
)

var Module = fx.Provide(provideNotifier, provideDispatcher)

func provideNotifier() services.Notifier {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	cfg := services.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		FromName: "Gudani",

		AppName:    "Gudani",
		AppBaseURL: os.Getenv("FRONTEND_URL"),
	}
	return services.NewSMTPNotifier(cfg)
}

func provideDispatcher(notifier services.Notifier, logger *zap.Logger) *services.NotificationDispatcher {
	return services.NewNotificationDispatcher(notifier, logger)
}
