package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gudani/internal/billing"
	"gudani/internal/models/db_models"
	"gudani/pkg/utils"
)

type subscribeFixture struct {
	users      *fakeUserRepo
	subs       *fakeSubRepo
	plans      *fakePlanRepo
	provider   *fakeProvider
	notifier   *fakeNotifier
	dispatcher *NotificationDispatcher
	svc        SubscriptionServiceInterface

	user     *db_models.User
	free     *db_models.PlanConfig
	standard *db_models.PlanConfig
	premium  *db_models.PlanConfig
}

func newSubscribeFixture(t *testing.T, subs ...*db_models.Subscription) *subscribeFixture {
	t.Helper()

	user := &db_models.User{FirstName: "Ada", Email: "ada@example.com"}
	user.ID = uuid.New()
	for _, s := range subs {
		s.UserID = user.ID
	}

	free := &db_models.PlanConfig{Tier: db_models.TierFree, DailyLimit: 10, MonthlyLimit: 300}
	standard := &db_models.PlanConfig{
		Tier: db_models.TierStandard, Price: 110, Currency: "USD",
		PaystackPlanCode: "plan_standard",
	}
	premium := &db_models.PlanConfig{
		Tier: db_models.TierPremium, Price: 250, Currency: "USD",
		PaystackPlanCode: "plan_premium",
	}

	provider := &fakeProvider{name: db_models.ProviderPaystack, customerID: "cus_new"}
	registry, err := billing.NewRegistry(db_models.ProviderPaystack, provider)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	dispatcher := NewNotificationDispatcher(notifier, zap.NewNop())

	f := &subscribeFixture{
		users:      newFakeUserRepo(user),
		subs:       newFakeSubRepo(subs...),
		plans:      newFakePlanRepo(free, standard, premium),
		provider:   provider,
		notifier:   notifier,
		dispatcher: dispatcher,
		user:       user,
		free:       free,
		standard:   standard,
		premium:    premium,
	}
	f.svc = NewSubscriptionService(f.subs, f.users, f.plans, registry, dispatcher, zap.NewNop())
	return f
}

func (f *subscribeFixture) freeSub() *db_models.Subscription {
	return &db_models.Subscription{
		UserID:        f.user.ID,
		PlanID:        f.free.ID,
		Status:        db_models.SubStatusActive,
		PaymentStatus: db_models.PaymentStatusFree,
		StartDate:     1690000000,
	}
}

func (f *subscribeFixture) paidSub(plan *db_models.PlanConfig, code string) *db_models.Subscription {
	sub := &db_models.Subscription{
		UserID:        f.user.ID,
		PlanID:        plan.ID,
		Status:        db_models.SubStatusActive,
		PaymentStatus: db_models.PaymentStatusPaid,
		StartDate:     1700000000,
	}
	sub.SetProviderSubscriptionID(db_models.ProviderPaystack, code)
	return sub
}

func TestSubscribeSamePlanConflicts(t *testing.T) {
	f := newSubscribeFixture(t)
	sub := f.freeSub()
	require.NoError(t, f.subs.Insert(context.Background(), sub))

	_, err := f.svc.Subscribe(context.Background(), f.user.ID, "FREE")
	assert.ErrorIs(t, err, utils.ErrSamePlan)
}

func TestSubscribeUnknownTier(t *testing.T) {
	f := newSubscribeFixture(t)
	_, err := f.svc.Subscribe(context.Background(), f.user.ID, "PLATINUM")
	assert.ErrorIs(t, err, utils.ErrPlanNotFound)
}

func TestSubscribeWithSavedInstrumentActivatesDirectly(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.freeSub()))
	f.provider.hasMethod = true
	f.provider.methodRef = "AUTH_1"

	result, err := f.svc.Subscribe(context.Background(), f.user.ID, "STANDARD")
	require.NoError(t, err)

	assert.False(t, result.RequiresPayment)
	assert.NotEmpty(t, result.SubscriptionID)
	assert.Equal(t, "STANDARD", result.PlanTier)
	assert.Equal(t, 1, f.provider.createCalls)

	// Customer id was persisted before the charge.
	user, _ := f.users.FindByID(context.Background(), f.user.ID)
	assert.Equal(t, "cus_new", user.CustomerIDFor(db_models.ProviderPaystack))

	sub, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, f.standard.ID, sub.PlanID)
	assert.Equal(t, db_models.PaymentStatusPaid, sub.PaymentStatus)
}

func TestSubscribeWithoutInstrumentGoesToCheckout(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.freeSub()))
	f.provider.hasMethod = false

	result, err := f.svc.Subscribe(context.Background(), f.user.ID, "STANDARD")
	require.NoError(t, err)

	assert.True(t, result.RequiresPayment)
	assert.NotEmpty(t, result.CheckoutURL)
	assert.Zero(t, f.provider.createCalls)

	// The local row is untouched until the provider confirms via webhook.
	sub, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, f.free.ID, sub.PlanID)
	assert.Equal(t, db_models.PaymentStatusFree, sub.PaymentStatus)
}

func TestSubscribePaidToPaidSwitchesInPlace(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.paidSub(f.standard, "SUB_1")))

	result, err := f.svc.Subscribe(context.Background(), f.user.ID, "PREMIUM")
	require.NoError(t, err)

	assert.Equal(t, "PREMIUM", result.PlanTier)
	assert.Equal(t, []string{"SUB_1->plan_premium"}, f.provider.switchCalls)
	assert.Zero(t, f.provider.createCalls, "an existing record must be switched, not recreated")
	assert.Zero(t, f.provider.checkoutCalls)

	sub, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, f.premium.ID, sub.PlanID)
	assert.Equal(t, "SUB_1", sub.ProviderSubscriptionID())
}

func TestSubscribeSwitchRebindsReplacedRecord(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.paidSub(f.standard, "SUB_1")))
	f.provider.switchedID = "SUB_2"

	result, err := f.svc.Subscribe(context.Background(), f.user.ID, "PREMIUM")
	require.NoError(t, err)
	assert.Equal(t, "SUB_2", result.SubscriptionID)

	sub, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, "SUB_2", sub.ProviderSubscriptionID())
}

func TestSubscribeDowngradeToFreeCancelsImmediately(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.paidSub(f.standard, "SUB_1")))

	result, err := f.svc.Subscribe(context.Background(), f.user.ID, "FREE")
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.Equal(t, "FREE", result.Reset)
	assert.Equal(t, []string{"SUB_1"}, f.provider.cancelCalls)

	sub, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, f.free.ID, sub.PlanID)
	assert.Equal(t, db_models.PaymentStatusFree, sub.PaymentStatus)
	assert.Empty(t, sub.ProviderName())

	deliveries := f.notifier.deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, NotifySubscriptionCancelled, deliveries[0].kind)
	assert.Equal(t, "immediate", deliveries[0].payload["mode"])
}

func TestSubscribeProviderFailureLeavesLocalStateUntouched(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.paidSub(f.standard, "SUB_1")))
	f.provider.err = utils.ErrProviderFailure

	_, err := f.svc.Subscribe(context.Background(), f.user.ID, "PREMIUM")
	assert.ErrorIs(t, err, utils.ErrProviderFailure)

	sub, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, f.standard.ID, sub.PlanID, "a failed provider call must not change the plan")
}

func TestSubscribePaidTierWithoutPlanCode(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.freeSub()))
	f.standard.PaystackPlanCode = ""

	_, err := f.svc.Subscribe(context.Background(), f.user.ID, "STANDARD")
	assert.ErrorIs(t, err, utils.ErrPlanNotBillable)
	assert.Zero(t, f.provider.ensureCalls, "misconfiguration must fail before any provider call")
}

func TestCancelSchedulesAtPeriodEnd(t *testing.T) {
	f := newSubscribeFixture(t)
	sub := f.paidSub(f.standard, "SUB_1")
	end := int64(1702592000)
	sub.EndDate = &end
	sub.Plan = *f.standard
	require.NoError(t, f.subs.Insert(context.Background(), sub))

	result, err := f.svc.Cancel(context.Background(), f.user.ID)
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.True(t, result.Scheduled)
	require.NotNil(t, result.EffectiveDate)
	assert.Equal(t, end, result.EffectiveDate.Unix())
	assert.Equal(t, []string{"SUB_1"}, f.provider.disableCalls)

	got, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.True(t, got.CancelAtPeriodEnd)
	require.NotNil(t, got.CancellationDate)
	assert.Equal(t, end, *got.CancellationDate)
	// The plan stays in force until the deletion event arrives.
	assert.Equal(t, f.standard.ID, got.PlanID)

	deliveries := f.notifier.deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, NotifySubscriptionCancelled, deliveries[0].kind)
}

func TestCancelWithoutPeriodEndResetsImmediately(t *testing.T) {
	f := newSubscribeFixture(t)
	sub := f.paidSub(f.standard, "SUB_1")
	sub.EndDate = nil
	require.NoError(t, f.subs.Insert(context.Background(), sub))

	result, err := f.svc.Cancel(context.Background(), f.user.ID)
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.False(t, result.Scheduled)
	assert.Equal(t, "FREE", result.Reset)
	assert.Equal(t, []string{"SUB_1"}, f.provider.cancelCalls)
	assert.Empty(t, f.provider.disableCalls)

	got, _ := f.subs.Current(context.Background(), f.user.ID)
	assert.Equal(t, f.free.ID, got.PlanID)
	assert.Empty(t, got.ProviderName())
}

func TestCancelWithNothingToCancel(t *testing.T) {
	f := newSubscribeFixture(t)
	require.NoError(t, f.subs.Insert(context.Background(), f.freeSub()))

	_, err := f.svc.Cancel(context.Background(), f.user.ID)
	assert.ErrorIs(t, err, utils.ErrNothingToCancel)
	assert.Empty(t, f.provider.disableCalls)
}

func TestDetails(t *testing.T) {
	f := newSubscribeFixture(t)
	sub := f.paidSub(f.standard, "SUB_1")
	end := int64(1702592000)
	sub.EndDate = &end
	sub.Plan = *f.standard
	sub.PastDueAmount = 49.99
	sub.PastDueCurrency = "USD"
	require.NoError(t, f.subs.Insert(context.Background(), sub))

	details, err := f.svc.Details(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", details.PlanTier)
	assert.Equal(t, "PAID", details.PaymentStatus)
	require.NotNil(t, details.EndDate)
	assert.Equal(t, end, details.EndDate.Unix())
	assert.Equal(t, 49.99, details.PastDueAmount)

	_, err = f.svc.Details(context.Background(), uuid.New())
	assert.ErrorIs(t, err, utils.ErrSubscriptionNotFound)
}
