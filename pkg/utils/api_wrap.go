package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	v, _ := c.Get("trace_id")
	id, _ := v.(string)
	return id
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// HandleServiceError maps service errors onto the API envelope. Quota, conflict
// and validation errors carry an actionable message; provider and configuration
// failures are logged in full and surfaced generically.
func HandleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrPlanNotFound),
		errors.Is(err, ErrSubscriptionNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrEmailAlreadyExists),
		errors.Is(err, ErrSamePlan),
		errors.Is(err, ErrNothingToCancel):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrDailyLimitExceeded), errors.Is(err, ErrMonthlyLimitExceeded):
		RespondError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrMissingPlan):
		RespondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrPlanNotBillable):
		logger.Error("billing misconfiguration", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Billing is not configured for this plan")
	case errors.Is(err, ErrProviderFailure):
		logger.Error("billing provider failure", zap.Error(err))
		RespondError(c, http.StatusBadGateway, "Billing provider is unavailable, please try again")
	case errors.Is(err, ErrDatabaseError):
		logger.Error("database error", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		logger.Error("unhandled service error", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
