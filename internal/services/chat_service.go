package services

import (
	"context"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"gudani/internal/models/response_models"
)

// ChatCompleter is the slice of the OpenAI client the chat service needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ChatServiceInterface interface {
	// Complete answers a prompt after charging the estimated token cost
	// against the user's quota. Quota errors surface before any model call.
	Complete(ctx context.Context, userID uuid.UUID, prompt string) (*response_models.ChatResponse, error)
}

type ChatService struct {
	client ChatCompleter
	quota  QuotaServiceInterface
	model  string
	logger *zap.Logger
}

func NewChatService(client ChatCompleter, quota QuotaServiceInterface, model string, logger *zap.Logger) ChatServiceInterface {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &ChatService{client: client, quota: quota, model: model, logger: logger}
}

func (s *ChatService) Complete(ctx context.Context, userID uuid.UUID, prompt string) (*response_models.ChatResponse, error) {
	tokens := estimateTokens(prompt)
	if err := s.quota.CheckAndConsume(ctx, userID, tokens); err != nil {
		return nil, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		s.logger.Error("chat completion failed", zap.Error(err))
		return nil, err
	}

	answer := ""
	if len(resp.Choices) > 0 {
		answer = resp.Choices[0].Message.Content
	}
	return &response_models.ChatResponse{Answer: answer, TokensUsed: tokens}, nil
}

// estimateTokens approximates cost as one token per four characters, charging
// at least one token per request.
func estimateTokens(prompt string) int64 {
	tokens := (int64(len(prompt)) + 3) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
