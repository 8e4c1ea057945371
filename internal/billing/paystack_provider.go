package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gudani/internal/models/db_models"
	"gudani/pkg/utils"
)

type PaystackConfig struct {
	SecretKey   string
	BaseURL     string // defaults to the live API
	CallbackURL string // where hosted checkout redirects after payment
}

type paystackProvider struct {
	cfg    PaystackConfig
	http   *http.Client
	logger *zap.Logger
}

// NewPaystackProvider returns a PaymentProvider over Paystack's REST API.
// Paystack ships no Go SDK, so this is a thin client covering only the
// endpoints the reconciliation workflow needs.
func NewPaystackProvider(cfg PaystackConfig, logger *zap.Logger) PaymentProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	return &paystackProvider{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (p *paystackProvider) Name() string { return db_models.ProviderPaystack }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *paystackProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: paystack encode request: %v", utils.ErrProviderFailure, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: paystack build request: %v", utils.ErrProviderFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Error("paystack request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: paystack %s %s", utils.ErrProviderFailure, method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: paystack read response: %v", utils.ErrProviderFailure, err)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		p.logger.Error("paystack malformed response",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return fmt.Errorf("%w: paystack %s %s", utils.ErrProviderFailure, method, path)
	}
	if !env.Status {
		p.logger.Error("paystack call rejected",
			zap.String("path", path), zap.Int("status", resp.StatusCode),
			zap.String("message", env.Message), zap.ByteString("body", raw))
		return fmt.Errorf("%w: paystack %s %s", utils.ErrProviderFailure, method, path)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: paystack decode response: %v", utils.ErrProviderFailure, err)
		}
	}
	return nil
}

func (p *paystackProvider) EnsureCustomer(ctx context.Context, user *db_models.User) (string, error) {
	if id := user.CustomerIDFor(db_models.ProviderPaystack); id != "" {
		return id, nil
	}
	var data struct {
		CustomerCode string `json:"customer_code"`
	}
	err := p.do(ctx, http.MethodPost, "/customer", map[string]string{
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}, &data)
	if err != nil {
		return "", err
	}
	return data.CustomerCode, nil
}

type paystackAuthorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Reusable          bool   `json:"reusable"`
}

func (p *paystackProvider) DefaultPaymentMethod(ctx context.Context, customerID string) (string, bool, error) {
	var data struct {
		Authorizations []paystackAuthorization `json:"authorizations"`
	}
	if err := p.do(ctx, http.MethodGet, "/customer/"+customerID, nil, &data); err != nil {
		return "", false, err
	}
	for _, auth := range data.Authorizations {
		if auth.Reusable && auth.AuthorizationCode != "" {
			return auth.AuthorizationCode, true, nil
		}
	}
	return "", false, nil
}

type paystackSubscription struct {
	SubscriptionCode string `json:"subscription_code"`
	EmailToken       string `json:"email_token"`
	NextPaymentDate  string `json:"next_payment_date"`
	Customer         struct {
		CustomerCode string `json:"customer_code"`
	} `json:"customer"`
	Authorization paystackAuthorization `json:"authorization"`
	Plan          struct {
		PlanCode string `json:"plan_code"`
	} `json:"plan"`
}

func (p *paystackProvider) CreateSubscription(ctx context.Context, customerID, planCode, paymentMethodRef string) (*ProviderSubscription, error) {
	var data paystackSubscription
	err := p.do(ctx, http.MethodPost, "/subscription", map[string]string{
		"customer":      customerID,
		"plan":          planCode,
		"authorization": paymentMethodRef,
	}, &data)
	if err != nil {
		return nil, err
	}

	result := &ProviderSubscription{
		SubscriptionID: data.SubscriptionCode,
		EmailToken:     data.EmailToken,
		PeriodStart:    time.Now().UTC(),
	}
	if data.NextPaymentDate != "" {
		if end, err := time.Parse(time.RFC3339, data.NextPaymentDate); err == nil {
			result.PeriodEnd = end.UTC()
		}
	}
	return result, nil
}

// SwitchPlan has no in-place equivalent on Paystack: the existing subscription
// is disabled and a replacement is created against the same authorization, so
// the returned id differs from the input.
func (p *paystackProvider) SwitchPlan(ctx context.Context, subscriptionID, planCode string) (string, error) {
	var current paystackSubscription
	if err := p.do(ctx, http.MethodGet, "/subscription/"+subscriptionID, nil, &current); err != nil {
		return "", err
	}
	if current.Authorization.AuthorizationCode == "" {
		p.logger.Error("paystack subscription has no reusable authorization",
			zap.String("subscription", subscriptionID))
		return "", fmt.Errorf("%w: paystack switch plan", utils.ErrProviderFailure)
	}

	if err := p.disable(ctx, subscriptionID, current.EmailToken); err != nil {
		return "", err
	}

	replacement, err := p.CreateSubscription(ctx, current.Customer.CustomerCode, planCode, current.Authorization.AuthorizationCode)
	if err != nil {
		return "", err
	}
	return replacement.SubscriptionID, nil
}

func (p *paystackProvider) disable(ctx context.Context, subscriptionID, emailToken string) error {
	return p.do(ctx, http.MethodPost, "/subscription/disable", map[string]string{
		"code":  subscriptionID,
		"token": emailToken,
	}, nil)
}

func (p *paystackProvider) DisableAtPeriodEnd(ctx context.Context, subscriptionID, emailToken string) error {
	return p.disable(ctx, subscriptionID, emailToken)
}

// CancelNow also maps to disable: Paystack only stops future renewals. The
// caller resets local state immediately regardless.
func (p *paystackProvider) CancelNow(ctx context.Context, subscriptionID, emailToken string) error {
	return p.disable(ctx, subscriptionID, emailToken)
}

func (p *paystackProvider) InitializeCheckout(ctx context.Context, user *db_models.User, plan *db_models.PlanConfig) (*Checkout, error) {
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	// Passing the plan makes Paystack create the subscription itself once the
	// charge succeeds; activation then arrives through the webhook.
	err := p.do(ctx, http.MethodPost, "/transaction/initialize", map[string]any{
		"email":  user.Email,
		"plan":   plan.PaystackPlanCode,
		"amount": plan.Price * 100,
		"metadata": map[string]string{
			"user_id":   user.ID.String(),
			"plan_tier": string(plan.Tier),
			"plan_id":   plan.ID.String(),
		},
		"callback_url": p.cfg.CallbackURL,
	}, &data)
	if err != nil {
		return nil, err
	}
	return &Checkout{URL: data.AuthorizationURL, Reference: data.Reference}, nil
}
