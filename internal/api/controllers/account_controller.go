package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gudani/internal/models/request_models"
	"gudani/internal/services"
	"gudani/pkg/utils"
)

type AccountController struct {
	accounts services.AccountServiceInterface
	logger   *zap.Logger
}

func NewAccountController(accounts services.AccountServiceInterface, logger *zap.Logger) *AccountController {
	return &AccountController{accounts: accounts, logger: logger}
}

// authedUserID extracts the authenticated user's id set by the JWT middleware.
func authedUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid authentication context")
		return uuid.Nil, false
	}
	return id, true
}

func (ctrl *AccountController) SignUp(c *gin.Context) {
	var req request_models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.accounts.CreateAccount(c.Request.Context(), req); err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, nil, "Account created")
}

func (ctrl *AccountController) Login(c *gin.Context) {
	var req request_models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := ctrl.accounts.Login(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, resp, "Login successful")
}

func (ctrl *AccountController) Profile(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	resp, err := ctrl.accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, resp, "")
}
