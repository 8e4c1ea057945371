package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gudani/internal/billing"
	"gudani/internal/repositories"
	"gudani/pkg/utils"
)

const maxWebhookBodyBytes = 65536

// EventApplier is the slice of the lifecycle service the gateway needs.
type EventApplier interface {
	Apply(ctx context.Context, ev *billing.Event) error
}

// WebhookController receives billing provider deliveries. Its responses speak
// the provider's plain-JSON dialect rather than the API envelope: the caller
// is a machine that only looks at the status code.
type WebhookController struct {
	secret    string
	provider  string
	lifecycle EventApplier
	events    repositories.WebhookEventRepository
	logger    *zap.Logger
}

func NewWebhookController(
	secret string,
	provider string,
	lifecycle EventApplier,
	events repositories.WebhookEventRepository,
	logger *zap.Logger,
) *WebhookController {
	return &WebhookController{
		secret:    secret,
		provider:  provider,
		lifecycle: lifecycle,
		events:    events,
		logger:    logger,
	}
}

// Receive verifies, deduplicates and applies one delivery. 2xx tells the
// provider to stop redelivering; 5xx asks for a retry, so only errors a retry
// could fix return it. An event is only a duplicate once a previous delivery
// processed it to completion; retries after a 5xx are processed again.
func (ctrl *WebhookController) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}
	if len(body) > maxWebhookBodyBytes {
		// Truncating would make a valid signature unverifiable; reject the
		// delivery distinctly instead.
		ctrl.logger.Warn("webhook body over size limit", zap.Int("bytes", len(body)))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	signature := c.GetHeader("X-Billing-Signature")
	if !billing.VerifySignature(ctrl.secret, body, signature) {
		ctrl.logger.Warn("webhook signature verification failed",
			zap.String("provider", ctrl.provider))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	event, err := billing.ParseEvent(body)
	if err != nil {
		ctrl.logger.Warn("webhook payload rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if event.Type == billing.EventUnhandled {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	needsProcessing, err := ctrl.events.MarkReceived(c.Request.Context(), ctrl.provider, event.ID, event.RawType, body)
	if err != nil {
		ctrl.logger.Error("webhook dedup write failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !needsProcessing {
		ctrl.logger.Info("duplicate webhook delivery acknowledged",
			zap.String("event_id", event.ID),
			zap.String("type", event.RawType))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	applyErr := ctrl.lifecycle.Apply(c.Request.Context(), event)
	if markErr := ctrl.events.MarkProcessed(c.Request.Context(), ctrl.provider, event.ID, applyErr); markErr != nil {
		ctrl.logger.Warn("webhook processed-at write failed", zap.Error(markErr))
	}

	if applyErr != nil {
		// Reference mismatches mean our records genuinely lack the entity;
		// redelivering the same payload cannot fix that, so acknowledge it.
		if errors.Is(applyErr, utils.ErrSubscriptionNotFound) ||
			errors.Is(applyErr, utils.ErrUserNotFound) ||
			errors.Is(applyErr, utils.ErrPlanNotFound) {
			ctrl.logger.Warn("webhook event had no matching local record",
				zap.String("event_id", event.ID),
				zap.String("type", event.RawType),
				zap.Error(applyErr))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		ctrl.logger.Error("webhook event processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", event.RawType),
			zap.Error(applyErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
