package request_models

type SubscribeRequest struct {
	// PlanTier is matched case-insensitively against the plan catalog.
	PlanTier string `json:"plan_tier" binding:"required"`
}
