package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gudani/internal/models/request_models"
	"gudani/internal/services"
	"gudani/pkg/utils"
)

type ChatController struct {
	chat   services.ChatServiceInterface
	logger *zap.Logger
}

func NewChatController(chat services.ChatServiceInterface, logger *zap.Logger) *ChatController {
	return &ChatController{chat: chat, logger: logger}
}

func (ctrl *ChatController) Complete(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req request_models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := ctrl.chat.Complete(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, resp, "")
}
