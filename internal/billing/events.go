package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventSubscriptionCreated     EventType = "subscription.created"
	EventSubscriptionUpdated     EventType = "subscription.updated"
	EventSubscriptionDeleted     EventType = "subscription.deleted"
	EventInvoicePaymentSucceeded EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    EventType = "invoice.payment_failed"
	EventCustomerUpdated         EventType = "customer.updated"

	// EventUnhandled captures every type we do not act on. The gateway still
	// acknowledges these with 200 so the provider stops redelivering them.
	EventUnhandled EventType = "unhandled"
)

type Period struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type InvoiceLine struct {
	Period Period `json:"period"`
}

type InvoiceRef struct {
	Lines []InvoiceLine `json:"lines"`
}

type SubscriptionEventData struct {
	SubscriptionCode   string      `json:"subscription_code"`
	CustomerCode       string      `json:"customer_code"`
	PlanCode           string      `json:"plan_code"`
	EmailToken         string      `json:"email_token"`
	CancelAtPeriodEnd  bool        `json:"cancel_at_period_end"`
	CurrentPeriodStart int64       `json:"current_period_start"`
	CurrentPeriodEnd   int64       `json:"current_period_end"`
	LatestInvoice      *InvoiceRef `json:"latest_invoice,omitempty"`
}

// PeriodEnd resolves the billing period end, falling back to the latest
// invoice's line item periods when the subscription payload has none. The
// second return is false when neither source has a usable timestamp.
func (d *SubscriptionEventData) PeriodEnd() (int64, bool) {
	if d.CurrentPeriodEnd > 0 {
		return d.CurrentPeriodEnd, true
	}
	if d.LatestInvoice == nil {
		return 0, false
	}
	var end int64
	for _, line := range d.LatestInvoice.Lines {
		if line.Period.End > end {
			end = line.Period.End
		}
	}
	return end, end > 0
}

type InvoiceEventData struct {
	SubscriptionCode string `json:"subscription_code"`
	// AmountDue and AmountPaid are in minor currency units.
	AmountDue        int64  `json:"amount_due"`
	AmountPaid       int64  `json:"amount_paid"`
	Currency         string `json:"currency"`
	Created          int64  `json:"created"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}

type CustomerEventData struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// Event is the validated, typed form of a provider delivery. Exactly one of
// Subscription, Invoice or Customer is populated for known types; RawType
// carries the wire value for unhandled ones.
type Event struct {
	ID      string
	Type    EventType
	RawType string

	Subscription *SubscriptionEventData
	Invoice      *InvoiceEventData
	Customer     *CustomerEventData
}

type envelope struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseEvent decodes and strictly validates a raw webhook body into an Event.
// Unknown event types parse successfully as EventUnhandled; a known type with
// a malformed or incomplete payload is an error.
func ParseEvent(raw []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("event envelope missing event type")
	}

	ev := &Event{ID: env.ID, RawType: env.Event}
	if ev.ID == "" {
		// Some deliveries omit an id; hash the body so deduplication still has
		// a stable reference for redeliveries of the identical payload.
		sum := sha256.Sum256(raw)
		ev.ID = hex.EncodeToString(sum[:])
	}

	switch EventType(env.Event) {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var data SubscriptionEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if data.SubscriptionCode == "" {
			return nil, fmt.Errorf("%s payload missing subscription_code", env.Event)
		}
		if EventType(env.Event) == EventSubscriptionCreated {
			if data.CustomerCode == "" {
				return nil, fmt.Errorf("%s payload missing customer_code", env.Event)
			}
			if data.PlanCode == "" {
				return nil, fmt.Errorf("%s payload missing plan_code", env.Event)
			}
		}
		ev.Type = EventType(env.Event)
		ev.Subscription = &data
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var data InvoiceEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if data.SubscriptionCode == "" {
			return nil, fmt.Errorf("%s payload missing subscription_code", env.Event)
		}
		ev.Type = EventType(env.Event)
		ev.Invoice = &data
	case EventCustomerUpdated:
		var data CustomerEventData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if data.CustomerCode == "" {
			return nil, fmt.Errorf("%s payload missing customer_code", env.Event)
		}
		ev.Type = EventCustomerUpdated
		ev.Customer = &data
	default:
		ev.Type = EventUnhandled
	}

	return ev, nil
}
