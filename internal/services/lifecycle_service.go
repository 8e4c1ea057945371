package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gudani/internal/billing"
	"gudani/internal/models/db_models"
	"gudani/internal/repositories"
	"gudani/pkg/utils"
)

// LifecycleService is the canonical transition logic translating provider
// events into repository writes. All row lookups go through the repository's
// resolver so the "authoritative row" rule lives in exactly one place.
type LifecycleService struct {
	subs          repositories.SubscriptionRepository
	users         repositories.UserRepository
	plans         repositories.PlanRepository
	notifications *NotificationDispatcher
	provider      string
	logger        *zap.Logger
}

func NewLifecycleService(
	subs repositories.SubscriptionRepository,
	users repositories.UserRepository,
	plans repositories.PlanRepository,
	notifications *NotificationDispatcher,
	provider string,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		subs:          subs,
		users:         users,
		plans:         plans,
		notifications: notifications,
		provider:      provider,
		logger:        logger,
	}
}

// Apply dispatches a parsed event to its transition. Unhandled events are a
// no-op; callers decide how to acknowledge them.
func (s *LifecycleService) Apply(ctx context.Context, ev *billing.Event) error {
	switch ev.Type {
	case billing.EventSubscriptionCreated:
		return s.ApplySubscriptionCreated(ctx, ev.Subscription)
	case billing.EventSubscriptionUpdated:
		return s.ApplySubscriptionUpdated(ctx, ev.Subscription)
	case billing.EventSubscriptionDeleted:
		return s.ApplySubscriptionDeleted(ctx, ev.Subscription)
	case billing.EventInvoicePaymentSucceeded:
		return s.ApplyInvoicePaymentSucceeded(ctx, ev.Invoice)
	case billing.EventInvoicePaymentFailed:
		return s.ApplyInvoicePaymentFailed(ctx, ev.Invoice)
	case billing.EventCustomerUpdated:
		return s.ApplyCustomerUpdated(ctx, ev.Customer)
	default:
		s.logger.Info("ignoring unhandled billing event", zap.String("type", ev.RawType))
		return nil
	}
}

// ApplySubscriptionCreated activates the user's row for a newly confirmed paid
// subscription. Resolution prefers the external subscription id; on the very
// first creation event the id is not yet known locally, so it falls back to
// the user's current row.
func (s *LifecycleService) ApplySubscriptionCreated(ctx context.Context, data *billing.SubscriptionEventData) error {
	plan, err := s.plans.ByProviderCode(ctx, s.provider, data.PlanCode)
	if err != nil {
		return err
	}
	if plan == nil {
		s.logger.Warn("subscription created for unknown plan code",
			zap.String("plan_code", data.PlanCode))
		return utils.ErrPlanNotFound
	}

	periodEnd, ok := data.PeriodEnd()
	if !ok {
		// Activating without an end date would make the period unguessable
		// forever; this must surface loudly instead.
		return fmt.Errorf("%w: subscription %s", utils.ErrMissingPeriodEnd, data.SubscriptionCode)
	}

	ref := repositories.SubscriptionRef{
		Provider:               s.provider,
		ProviderSubscriptionID: data.SubscriptionCode,
	}
	user, err := s.users.FindByProviderCustomerID(ctx, s.provider, data.CustomerCode)
	if err != nil {
		return err
	}
	if user != nil {
		ref.UserID = user.ID
	}

	start := data.CurrentPeriodStart
	if start <= 0 {
		start = time.Now().Unix()
	}

	activate := func(sub *db_models.Subscription) error {
		sub.PlanID = plan.ID
		sub.Status = db_models.SubStatusActive
		sub.PaymentStatus = db_models.PaymentStatusPaid
		sub.SetProviderSubscriptionID(s.provider, data.SubscriptionCode)
		sub.EmailToken = data.EmailToken
		sub.StartDate = start
		end := periodEnd
		sub.EndDate = &end
		sub.CancelAtPeriodEnd = false
		sub.CancellationDate = nil
		sub.PastDueAmount = 0
		return nil
	}

	updated, err := s.subs.UpdateResolved(ctx, ref, activate)
	if err != nil {
		return err
	}
	if updated != nil {
		return nil
	}

	// No local row resolved. A registered user always has one, but tolerate
	// its absence and upsert rather than dropping the event.
	if user == nil {
		s.logger.Warn("subscription created for unknown customer",
			zap.String("customer_code", data.CustomerCode),
			zap.String("subscription_code", data.SubscriptionCode))
		return utils.ErrSubscriptionNotFound
	}
	sub := &db_models.Subscription{UserID: user.ID}
	if err := activate(sub); err != nil {
		return err
	}
	return s.subs.Insert(ctx, sub)
}

// ApplySubscriptionUpdated handles the provider scheduling a cancellation at
// period end. Updates without the cancel flag carry nothing we track.
func (s *LifecycleService) ApplySubscriptionUpdated(ctx context.Context, data *billing.SubscriptionEventData) error {
	if !data.CancelAtPeriodEnd {
		s.logger.Debug("subscription update without cancel flag ignored",
			zap.String("subscription_code", data.SubscriptionCode))
		return nil
	}

	ref := repositories.SubscriptionRef{
		Provider:               s.provider,
		ProviderSubscriptionID: data.SubscriptionCode,
	}
	updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
		sub.CancelAtPeriodEnd = true
		if end, ok := data.PeriodEnd(); ok {
			sub.CancellationDate = &end
		} else {
			sub.CancellationDate = sub.EndDate
		}
		return nil
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return utils.ErrSubscriptionNotFound
	}
	return nil
}

// ApplySubscriptionDeleted downgrades the row to the FREE tier in place. This
// is a reset, not a delete: the row keeps its identity and history.
func (s *LifecycleService) ApplySubscriptionDeleted(ctx context.Context, data *billing.SubscriptionEventData) error {
	freePlan, err := s.plans.ByTier(ctx, string(db_models.TierFree))
	if err != nil {
		return err
	}
	if freePlan == nil {
		return fmt.Errorf("%w: FREE plan is not seeded", utils.ErrPlanNotFound)
	}

	ref := repositories.SubscriptionRef{
		Provider:               s.provider,
		ProviderSubscriptionID: data.SubscriptionCode,
	}
	updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
		resetToFree(sub, freePlan)
		return nil
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return utils.ErrSubscriptionNotFound
	}
	return nil
}

// resetToFree is the single downgrade mutation shared by the deletion event
// and the user-initiated switch to FREE.
func resetToFree(sub *db_models.Subscription, freePlan *db_models.PlanConfig) {
	sub.PlanID = freePlan.ID
	sub.Status = db_models.SubStatusActive
	sub.PaymentStatus = db_models.PaymentStatusFree
	sub.ClearProvider()
	sub.StartDate = time.Now().Unix()
	sub.EndDate = nil
	sub.CancelAtPeriodEnd = false
	sub.CancellationDate = nil
	sub.PastDueAmount = 0
	sub.PastDueCurrency = ""
}

func (s *LifecycleService) ApplyInvoicePaymentSucceeded(ctx context.Context, data *billing.InvoiceEventData) error {
	ref := repositories.SubscriptionRef{
		Provider:               s.provider,
		ProviderSubscriptionID: data.SubscriptionCode,
	}
	updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
		sub.PaymentStatus = db_models.PaymentStatusPaid
		sub.PastDueAmount = 0
		sub.PastDueCurrency = strings.ToUpper(data.Currency)
		return nil
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return utils.ErrSubscriptionNotFound
	}

	s.notifyInvoice(ctx, NotifyPaymentReceipt, updated, data, data.AmountPaid)
	return nil
}

// ApplyInvoicePaymentFailed marks the row past due. Access is deliberately not
// suspended here; dunning follows the provider's own retry schedule.
func (s *LifecycleService) ApplyInvoicePaymentFailed(ctx context.Context, data *billing.InvoiceEventData) error {
	ref := repositories.SubscriptionRef{
		Provider:               s.provider,
		ProviderSubscriptionID: data.SubscriptionCode,
	}
	updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
		sub.PaymentStatus = db_models.PaymentStatusFailed
		sub.PastDueAmount = minorToMajor(data.AmountDue)
		sub.PastDueCurrency = strings.ToUpper(data.Currency)
		return nil
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return utils.ErrSubscriptionNotFound
	}

	s.notifyInvoice(ctx, NotifyPaymentFailed, updated, data, data.AmountDue)
	return nil
}

// ApplyCustomerUpdated propagates profile changes to the local user record.
// An unmatched customer is non-fatal.
func (s *LifecycleService) ApplyCustomerUpdated(ctx context.Context, data *billing.CustomerEventData) error {
	user, err := s.users.FindByProviderCustomerID(ctx, s.provider, data.CustomerCode)
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Info("customer update for unknown customer",
			zap.String("customer_code", data.CustomerCode))
		return nil
	}

	if data.Email != "" {
		user.Email = data.Email
	}
	if data.FirstName != "" {
		user.FirstName = data.FirstName
	}
	if data.LastName != "" {
		user.LastName = data.LastName
	}
	return s.users.Save(ctx, user)
}

func (s *LifecycleService) notifyInvoice(ctx context.Context, kind NotificationKind, sub *db_models.Subscription, data *billing.InvoiceEventData, amountMinor int64) {
	user, err := s.users.FindByID(ctx, sub.UserID)
	if err != nil || user == nil {
		s.logger.Warn("cannot notify: user lookup failed",
			zap.String("subscription", sub.ID.String()), zap.Error(err))
		return
	}
	tier := ""
	if plan, err := s.plans.ByID(ctx, sub.PlanID); err == nil && plan != nil {
		tier = string(plan.Tier)
	}
	s.notifications.Dispatch(kind, user.Email, map[string]string{
		"name":        user.FirstName,
		"plan":        tier,
		"amount":      fmt.Sprintf("%.2f", minorToMajor(amountMinor)),
		"currency":    strings.ToUpper(data.Currency),
		"invoice_url": data.HostedInvoiceURL,
	})
}

// minorToMajor normalizes provider amounts (minor units) to major currency
// units, e.g. 4999 -> 49.99.
func minorToMajor(minor int64) float64 {
	return float64(minor) / 100
}
