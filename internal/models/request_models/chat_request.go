package request_models

type ChatRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}
