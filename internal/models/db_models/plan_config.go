package db_models

import "strings"

type PlanTier string

const (
	TierFree     PlanTier = "FREE"
	TierStandard PlanTier = "STANDARD"
	TierPremium  PlanTier = "PREMIUM"
)

// NormalizeTier maps user input onto the stored tier spelling. Tiers are kept
// upper-case; lookups accept any casing and surrounding whitespace.
func NormalizeTier(tier string) string {
	return strings.ToUpper(strings.TrimSpace(tier))
}

// PlanConfig is immutable reference data seeded at deploy time. Limits are
// tokens per UTC calendar window; Price is in major currency units.
type PlanConfig struct {
	BaseModel
	Tier         PlanTier `gorm:"uniqueIndex"`
	DailyLimit   int64
	MonthlyLimit int64
	Price        int64
	Currency     string `gorm:"size:3"`

	StripePriceID    string
	PaystackPlanCode string
}

func (p *PlanConfig) IsPaid() bool {
	return p.Tier != TierFree
}

// ProviderPlanCode returns the plan code for the given provider, or "" when
// none is configured. A paid tier with no code is a configuration error that
// callers must surface before any provider call.
func (p *PlanConfig) ProviderPlanCode(provider string) string {
	switch provider {
	case ProviderStripe:
		return p.StripePriceID
	case ProviderPaystack:
		return p.PaystackPlanCode
	}
	return ""
}
