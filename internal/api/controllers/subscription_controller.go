package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gudani/internal/models/request_models"
	"gudani/internal/repositories"
	"gudani/internal/services"
	"gudani/pkg/utils"
)

type SubscriptionController struct {
	subscriptions services.SubscriptionServiceInterface
	quota         services.QuotaServiceInterface
	plans         repositories.PlanRepository
	logger        *zap.Logger
}

func NewSubscriptionController(
	subscriptions services.SubscriptionServiceInterface,
	quota services.QuotaServiceInterface,
	plans repositories.PlanRepository,
	logger *zap.Logger,
) *SubscriptionController {
	return &SubscriptionController{
		subscriptions: subscriptions,
		quota:         quota,
		plans:         plans,
		logger:        logger,
	}
}

func (ctrl *SubscriptionController) Subscribe(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req request_models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := ctrl.subscriptions.Subscribe(c.Request.Context(), userID, req.PlanTier)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, result, "")
}

func (ctrl *SubscriptionController) Cancel(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	result, err := ctrl.subscriptions.Cancel(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, result, "Cancellation scheduled")
}

func (ctrl *SubscriptionController) Details(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	details, err := ctrl.subscriptions.Details(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, details, "")
}

func (ctrl *SubscriptionController) Usage(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	usage, err := ctrl.quota.Usage(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, usage, "")
}

func (ctrl *SubscriptionController) Plans(c *gin.Context) {
	plans, err := ctrl.plans.All(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}

	type planView struct {
		Tier         string `json:"tier"`
		DailyLimit   int64  `json:"dailyLimit"`
		MonthlyLimit int64  `json:"monthlyLimit"`
		Price        int64  `json:"price"`
		Currency     string `json:"currency"`
	}
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{
			Tier:         string(p.Tier),
			DailyLimit:   p.DailyLimit,
			MonthlyLimit: p.MonthlyLimit,
			Price:        p.Price,
			Currency:     p.Currency,
		})
	}
	utils.RespondSuccess(c, views, "")
}

// AdminPlans returns the full plan rows, provider codes included, for the
// admin dashboard.
func (ctrl *SubscriptionController) AdminPlans(c *gin.Context) {
	plans, err := ctrl.plans.All(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, ctrl.logger, err)
		return
	}
	utils.RespondSuccess(c, plans, "")
}
