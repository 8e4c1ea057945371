package response_models

import "time"

type SubscriptionDetails struct {
	PlanTier          string     `json:"planTier"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"paymentStatus"`
	StartDate         time.Time  `json:"startDate"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	CancellationDate  *time.Time `json:"cancellationDate,omitempty"`
	PastDueAmount     float64    `json:"pastDueAmount"`
	PastDueCurrency   string     `json:"pastDueCurrency,omitempty"`
}

// SubscribeResult is one of three shapes: a hosted checkout redirect, an
// immediately active subscription, or an immediate downgrade to FREE.
type SubscribeResult struct {
	RequiresPayment bool   `json:"requiresPayment,omitempty"`
	CheckoutURL     string `json:"checkoutUrl,omitempty"`
	Reference       string `json:"reference,omitempty"`

	SubscriptionID string `json:"subscriptionId,omitempty"`
	Status         string `json:"status,omitempty"`
	PlanTier       string `json:"planTier,omitempty"`

	Reset string `json:"reset,omitempty"`
}

type CancelResult struct {
	Scheduled     bool       `json:"scheduled,omitempty"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	Reset         string     `json:"reset,omitempty"`
}
