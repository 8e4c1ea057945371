package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gudani/internal/billing"
	"gudani/internal/models/db_models"
	"gudani/internal/repositories"
)

// In-memory doubles for the repository and provider interfaces. They model
// just enough behavior for the workflows under test: id-first resolution,
// not-found as (nil, nil), mutate-then-save.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*db_models.User
}

func newFakeUserRepo(users ...*db_models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*db_models.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Insert(_ context.Context, user *db_models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Save(_ context.Context, user *db_models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*db_models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*db_models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByProviderCustomerID(_ context.Context, provider, customerID string) (*db_models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.CustomerIDFor(provider) == customerID && customerID != "" {
			return u, nil
		}
	}
	return nil, nil
}

type fakePlanRepo struct {
	plans []*db_models.PlanConfig
}

func newFakePlanRepo(plans ...*db_models.PlanConfig) *fakePlanRepo {
	for _, p := range plans {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
	}
	return &fakePlanRepo{plans: plans}
}

func (r *fakePlanRepo) ByTier(_ context.Context, tier string) (*db_models.PlanConfig, error) {
	for _, p := range r.plans {
		if string(p.Tier) == db_models.NormalizeTier(tier) {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) ByID(_ context.Context, id uuid.UUID) (*db_models.PlanConfig, error) {
	for _, p := range r.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) ByProviderCode(_ context.Context, provider, code string) (*db_models.PlanConfig, error) {
	for _, p := range r.plans {
		if p.ProviderPlanCode(provider) == code && code != "" {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) All(_ context.Context) ([]db_models.PlanConfig, error) {
	out := make([]db_models.PlanConfig, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, *p)
	}
	return out, nil
}

type fakeSubRepo struct {
	mu   sync.Mutex
	subs []*db_models.Subscription
}

func newFakeSubRepo(subs ...*db_models.Subscription) *fakeSubRepo {
	for _, s := range subs {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
	}
	return &fakeSubRepo{subs: subs}
}

func (r *fakeSubRepo) Insert(_ context.Context, sub *db_models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	r.subs = append(r.subs, sub)
	return nil
}

func (r *fakeSubRepo) Save(_ context.Context, sub *db_models.Subscription) error {
	return nil
}

func (r *fakeSubRepo) Current(_ context.Context, userID uuid.UUID) (*db_models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked(userID), nil
}

func (r *fakeSubRepo) currentLocked(userID uuid.UUID) *db_models.Subscription {
	var latest *db_models.Subscription
	for _, s := range r.subs {
		if s.UserID != userID {
			continue
		}
		if latest == nil || s.StartDate > latest.StartDate {
			latest = s
		}
	}
	return latest
}

func (r *fakeSubRepo) ByProviderSubscriptionID(_ context.Context, provider, code string) (*db_models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byProviderIDLocked(provider, code), nil
}

func (r *fakeSubRepo) byProviderIDLocked(provider, code string) *db_models.Subscription {
	if code == "" {
		return nil
	}
	for _, s := range r.subs {
		if s.ProviderName() == provider && s.ProviderSubscriptionID() == code {
			return s
		}
	}
	return nil
}

func (r *fakeSubRepo) Resolve(_ context.Context, ref repositories.SubscriptionRef) (*db_models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(ref), nil
}

func (r *fakeSubRepo) resolveLocked(ref repositories.SubscriptionRef) *db_models.Subscription {
	if ref.ProviderSubscriptionID != "" {
		if sub := r.byProviderIDLocked(ref.Provider, ref.ProviderSubscriptionID); sub != nil {
			return sub
		}
	}
	if ref.UserID != uuid.Nil {
		return r.currentLocked(ref.UserID)
	}
	return nil
}

func (r *fakeSubRepo) UpdateResolved(_ context.Context, ref repositories.SubscriptionRef, mutate func(sub *db_models.Subscription) error) (*db_models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub := r.resolveLocked(ref)
	if sub == nil {
		return nil, nil
	}
	if err := mutate(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// fakeProvider records calls and returns scripted results.
type fakeProvider struct {
	name string

	customerID string
	hasMethod  bool
	methodRef  string
	created    *billing.ProviderSubscription
	switchedID string
	checkout   *billing.Checkout
	err        error

	ensureCalls   int
	createCalls   int
	switchCalls   []string
	disableCalls  []string
	cancelCalls   []string
	checkoutCalls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) EnsureCustomer(_ context.Context, user *db_models.User) (string, error) {
	p.ensureCalls++
	if p.err != nil {
		return "", p.err
	}
	if id := user.CustomerIDFor(p.name); id != "" {
		return id, nil
	}
	return p.customerID, nil
}

func (p *fakeProvider) DefaultPaymentMethod(_ context.Context, customerID string) (string, bool, error) {
	if p.err != nil {
		return "", false, p.err
	}
	return p.methodRef, p.hasMethod, nil
}

func (p *fakeProvider) CreateSubscription(_ context.Context, customerID, planCode, paymentMethodRef string) (*billing.ProviderSubscription, error) {
	p.createCalls++
	if p.err != nil {
		return nil, p.err
	}
	if p.created != nil {
		return p.created, nil
	}
	return &billing.ProviderSubscription{
		SubscriptionID: fmt.Sprintf("%s_sub_%d", p.name, p.createCalls),
		PeriodStart:    time.Now(),
		PeriodEnd:      time.Now().Add(30 * 24 * time.Hour),
	}, nil
}

func (p *fakeProvider) SwitchPlan(_ context.Context, subscriptionID, planCode string) (string, error) {
	p.switchCalls = append(p.switchCalls, subscriptionID+"->"+planCode)
	if p.err != nil {
		return "", p.err
	}
	if p.switchedID != "" {
		return p.switchedID, nil
	}
	return subscriptionID, nil
}

func (p *fakeProvider) DisableAtPeriodEnd(_ context.Context, subscriptionID, emailToken string) error {
	p.disableCalls = append(p.disableCalls, subscriptionID)
	return p.err
}

func (p *fakeProvider) CancelNow(_ context.Context, subscriptionID, emailToken string) error {
	p.cancelCalls = append(p.cancelCalls, subscriptionID)
	return p.err
}

func (p *fakeProvider) InitializeCheckout(_ context.Context, user *db_models.User, plan *db_models.PlanConfig) (*billing.Checkout, error) {
	p.checkoutCalls++
	if p.err != nil {
		return nil, p.err
	}
	if p.checkout != nil {
		return p.checkout, nil
	}
	return &billing.Checkout{URL: "https://checkout.test/session", Reference: "ref_1"}, nil
}

// fakeNotifier records deliveries; failing lets tests assert that delivery
// errors never propagate into the triggering operation.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentNotification
	failing bool
}

type sentNotification struct {
	kind      NotificationKind
	recipient string
	payload   map[string]string
}

func (n *fakeNotifier) Notify(kind NotificationKind, recipient string, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failing {
		return fmt.Errorf("smtp unavailable")
	}
	n.sent = append(n.sent, sentNotification{kind: kind, recipient: recipient, payload: payload})
	return nil
}

func (n *fakeNotifier) deliveries() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentNotification, len(n.sent))
	copy(out, n.sent)
	return out
}
