package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gudani/internal/billing"
	"gudani/internal/models/db_models"
	"gudani/internal/models/response_models"
	"gudani/internal/repositories"
	"gudani/pkg/utils"
)

type SubscriptionServiceInterface interface {
	// Subscribe moves the user toward the requested tier. Depending on the
	// current state this is a conflict, an immediate downgrade to FREE, an
	// in-place provider plan switch, or a new provider subscription (direct
	// charge when an instrument is on file, hosted checkout otherwise).
	Subscribe(ctx context.Context, userID uuid.UUID, tier string) (*response_models.SubscribeResult, error)

	// Cancel schedules the current paid subscription to end at period end.
	Cancel(ctx context.Context, userID uuid.UUID) (*response_models.CancelResult, error)

	Details(ctx context.Context, userID uuid.UUID) (*response_models.SubscriptionDetails, error)
}

type SubscriptionService struct {
	subs          repositories.SubscriptionRepository
	users         repositories.UserRepository
	plans         repositories.PlanRepository
	gateway       *billing.Registry
	notifications *NotificationDispatcher
	logger        *zap.Logger
}

func NewSubscriptionService(
	subs repositories.SubscriptionRepository,
	users repositories.UserRepository,
	plans repositories.PlanRepository,
	gateway *billing.Registry,
	notifications *NotificationDispatcher,
	logger *zap.Logger,
) SubscriptionServiceInterface {
	return &SubscriptionService{
		subs:          subs,
		users:         users,
		plans:         plans,
		gateway:       gateway,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *SubscriptionService) Subscribe(ctx context.Context, userID uuid.UUID, tier string) (*response_models.SubscribeResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	target, err := s.plans.ByTier(ctx, tier)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, utils.ErrPlanNotFound
	}

	current, err := s.subs.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.PlanID == target.ID {
		return nil, utils.ErrSamePlan
	}

	if !target.IsPaid() {
		return s.downgradeToFree(ctx, user, current, target)
	}

	// Existing provider record: switch the plan in place on that provider.
	if current != nil && current.ProviderName() != "" {
		return s.switchPlan(ctx, current, target)
	}

	return s.startPaid(ctx, user, current, target)
}

// downgradeToFree cancels any external record immediately and resets the local
// row to the FREE tier. The external cancellation goes first so a provider
// failure leaves the local state untouched.
func (s *SubscriptionService) downgradeToFree(ctx context.Context, user *db_models.User, current *db_models.Subscription, freePlan *db_models.PlanConfig) (*response_models.SubscribeResult, error) {
	var cancelledTier string
	if current != nil && current.ProviderName() != "" {
		provider, err := s.gateway.ForSubscription(current)
		if err != nil {
			return nil, err
		}
		if err := provider.CancelNow(ctx, current.ProviderSubscriptionID(), current.EmailToken); err != nil {
			return nil, err
		}
		if plan, err := s.plans.ByID(ctx, current.PlanID); err == nil && plan != nil {
			cancelledTier = string(plan.Tier)
		}
	}

	if current != nil {
		ref := repositories.SubscriptionRef{UserID: user.ID}
		updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
			resetToFree(sub, freePlan)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, utils.ErrSubscriptionNotFound
		}
	} else {
		sub := &db_models.Subscription{UserID: user.ID}
		resetToFree(sub, freePlan)
		if err := s.subs.Insert(ctx, sub); err != nil {
			return nil, err
		}
	}

	if cancelledTier != "" {
		s.notifications.Dispatch(NotifySubscriptionCancelled, user.Email, map[string]string{
			"name": user.FirstName,
			"plan": cancelledTier,
			"mode": "immediate",
		})
	}

	return &response_models.SubscribeResult{Reset: string(db_models.TierFree)}, nil
}

// switchPlan changes the plan on the provider record the row already points
// at. The provider may replace the record, in which case the returned id
// differs and the row is rebound to it.
func (s *SubscriptionService) switchPlan(ctx context.Context, current *db_models.Subscription, target *db_models.PlanConfig) (*response_models.SubscribeResult, error) {
	provider, err := s.gateway.ForSubscription(current)
	if err != nil {
		return nil, err
	}
	planCode := target.ProviderPlanCode(provider.Name())
	if planCode == "" {
		return nil, utils.ErrPlanNotBillable
	}

	newID, err := provider.SwitchPlan(ctx, current.ProviderSubscriptionID(), planCode)
	if err != nil {
		return nil, err
	}

	ref := repositories.SubscriptionRef{
		Provider:               provider.Name(),
		ProviderSubscriptionID: current.ProviderSubscriptionID(),
		UserID:                 current.UserID,
	}
	updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
		sub.PlanID = target.ID
		if newID != sub.ProviderSubscriptionID() {
			sub.SetProviderSubscriptionID(provider.Name(), newID)
		}
		sub.CancelAtPeriodEnd = false
		sub.CancellationDate = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, utils.ErrSubscriptionNotFound
	}

	return &response_models.SubscribeResult{
		SubscriptionID: newID,
		Status:         string(updated.Status),
		PlanTier:       string(target.Tier),
	}, nil
}

// startPaid creates a new provider subscription for a user with no external
// record. With a reusable instrument on file the charge happens directly and
// the row activates now; otherwise the user is sent to hosted checkout and the
// row stays untouched until the provider's subscription.created event lands.
func (s *SubscriptionService) startPaid(ctx context.Context, user *db_models.User, current *db_models.Subscription, target *db_models.PlanConfig) (*response_models.SubscribeResult, error) {
	provider := s.gateway.Default()
	planCode := target.ProviderPlanCode(provider.Name())
	if planCode == "" {
		s.logger.Error("paid plan has no provider code configured",
			zap.String("tier", string(target.Tier)),
			zap.String("provider", provider.Name()))
		return nil, utils.ErrPlanNotBillable
	}

	customerID, err := provider.EnsureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}
	if user.CustomerIDFor(provider.Name()) != customerID {
		user.SetCustomerIDFor(provider.Name(), customerID)
		if err := s.users.Save(ctx, user); err != nil {
			return nil, err
		}
	}

	methodRef, hasMethod, err := provider.DefaultPaymentMethod(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !hasMethod {
		checkout, err := provider.InitializeCheckout(ctx, user, target)
		if err != nil {
			return nil, err
		}
		return &response_models.SubscribeResult{
			RequiresPayment: true,
			CheckoutURL:     checkout.URL,
			Reference:       checkout.Reference,
		}, nil
	}

	created, err := provider.CreateSubscription(ctx, customerID, planCode, methodRef)
	if err != nil {
		return nil, err
	}

	activate := func(sub *db_models.Subscription) error {
		sub.PlanID = target.ID
		sub.Status = db_models.SubStatusActive
		sub.PaymentStatus = db_models.PaymentStatusPaid
		sub.SetProviderSubscriptionID(provider.Name(), created.SubscriptionID)
		sub.EmailToken = created.EmailToken
		if !created.PeriodStart.IsZero() {
			sub.StartDate = created.PeriodStart.Unix()
		} else {
			sub.StartDate = time.Now().Unix()
		}
		if !created.PeriodEnd.IsZero() {
			end := created.PeriodEnd.Unix()
			sub.EndDate = &end
		} else {
			sub.EndDate = nil
		}
		sub.CancelAtPeriodEnd = false
		sub.CancellationDate = nil
		sub.PastDueAmount = 0
		return nil
	}

	if current != nil {
		ref := repositories.SubscriptionRef{UserID: user.ID}
		if _, err := s.subs.UpdateResolved(ctx, ref, activate); err != nil {
			return nil, err
		}
	} else {
		sub := &db_models.Subscription{UserID: user.ID}
		if err := activate(sub); err != nil {
			return nil, err
		}
		if err := s.subs.Insert(ctx, sub); err != nil {
			return nil, err
		}
	}

	return &response_models.SubscribeResult{
		SubscriptionID: created.SubscriptionID,
		Status:         string(db_models.SubStatusActive),
		PlanTier:       string(target.Tier),
	}, nil
}

func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*response_models.CancelResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	current, err := s.subs.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.ProviderName() == "" {
		return nil, utils.ErrNothingToCancel
	}

	provider, err := s.gateway.ForSubscription(current)
	if err != nil {
		return nil, err
	}

	// Without a known period end there is nothing to schedule against, so the
	// cancellation is immediate: cancel remotely and reset to FREE now.
	if current.EndDate == nil {
		freePlan, err := s.plans.ByTier(ctx, string(db_models.TierFree))
		if err != nil {
			return nil, err
		}
		if freePlan == nil {
			return nil, utils.ErrPlanNotFound
		}
		if err := provider.CancelNow(ctx, current.ProviderSubscriptionID(), current.EmailToken); err != nil {
			return nil, err
		}
		cancelledTier := ""
		if plan, err := s.plans.ByID(ctx, current.PlanID); err == nil && plan != nil {
			cancelledTier = string(plan.Tier)
		}
		ref := repositories.SubscriptionRef{UserID: userID}
		if _, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
			resetToFree(sub, freePlan)
			return nil
		}); err != nil {
			return nil, err
		}
		s.notifications.Dispatch(NotifySubscriptionCancelled, user.Email, map[string]string{
			"name": user.FirstName,
			"plan": cancelledTier,
			"mode": "immediate",
		})
		return &response_models.CancelResult{Reset: string(db_models.TierFree)}, nil
	}

	if err := provider.DisableAtPeriodEnd(ctx, current.ProviderSubscriptionID(), current.EmailToken); err != nil {
		return nil, err
	}

	ref := repositories.SubscriptionRef{
		Provider:               provider.Name(),
		ProviderSubscriptionID: current.ProviderSubscriptionID(),
		UserID:                 userID,
	}
	updated, err := s.subs.UpdateResolved(ctx, ref, func(sub *db_models.Subscription) error {
		sub.CancelAtPeriodEnd = true
		sub.CancellationDate = sub.EndDate
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, utils.ErrSubscriptionNotFound
	}

	result := &response_models.CancelResult{Scheduled: true}
	payload := map[string]string{
		"name": user.FirstName,
		"plan": string(updated.Plan.Tier),
	}
	if updated.CancellationDate != nil {
		effective := utils.FromUnixSeconds(*updated.CancellationDate)
		result.EffectiveDate = &effective
		payload["effective_date"] = effective.Format("January 2, 2006")
	}
	s.notifications.Dispatch(NotifySubscriptionCancelled, user.Email, payload)

	return result, nil
}

func (s *SubscriptionService) Details(ctx context.Context, userID uuid.UUID) (*response_models.SubscriptionDetails, error) {
	current, err := s.subs.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, utils.ErrSubscriptionNotFound
	}

	details := &response_models.SubscriptionDetails{
		PlanTier:          string(current.Plan.Tier),
		Status:            string(current.Status),
		PaymentStatus:     string(current.PaymentStatus),
		StartDate:         utils.FromUnixSeconds(current.StartDate),
		CancelAtPeriodEnd: current.CancelAtPeriodEnd,
		PastDueAmount:     current.PastDueAmount,
		PastDueCurrency:   current.PastDueCurrency,
	}
	if current.EndDate != nil {
		end := utils.FromUnixSeconds(*current.EndDate)
		details.EndDate = &end
	}
	if current.CancellationDate != nil {
		when := utils.FromUnixSeconds(*current.CancellationDate)
		details.CancellationDate = &when
	}
	return details, nil
}
