package chat_fx

import (
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"gudani/internal/api/controllers"
	"gudani/internal/services"
)

var Module = fx.Provide(provideChatService, provideChatController)

func provideChatService(quota services.QuotaServiceInterface, logger *zap.Logger) services.ChatServiceInterface {
	client := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	return services.NewChatService(client, quota, os.Getenv("OPENAI_MODEL"), logger)
}

func provideChatController(chat services.ChatServiceInterface, logger *zap.Logger) *controllers.ChatController {
	return controllers.NewChatController(chat, logger)
}
