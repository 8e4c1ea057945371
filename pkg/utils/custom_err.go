package utils

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDatabaseError      = errors.New("database error")

	ErrPlanNotFound         = errors.New("plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrMissingPlan          = errors.New("no plan resolvable for user")

	ErrDailyLimitExceeded   = errors.New("daily token limit exceeded")
	ErrMonthlyLimitExceeded = errors.New("monthly token limit exceeded")

	// Conflict conditions: the request is well formed but contradicts current state.
	ErrSamePlan        = errors.New("already subscribed to this plan")
	ErrNothingToCancel = errors.New("no paid subscription to cancel")

	// ErrProviderFailure wraps any billing provider API failure. The full provider
	// payload is logged internally; callers only ever see a generic message.
	ErrProviderFailure = errors.New("billing provider error")

	// ErrPlanNotBillable means a paid tier has no plan code configured for the
	// selected provider. Fails before any provider call is attempted.
	ErrPlanNotBillable = errors.New("plan has no provider plan code configured")

	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMissingPeriodEnd means a subscription event carried no billing period end
	// and the latest invoice had none either. Guessing a period is not allowed.
	ErrMissingPeriodEnd = errors.New("provider event missing billing period end")
)
