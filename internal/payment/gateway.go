package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/vnlease/vnlease-api/internal/domain"
)

// Gateway charges a pending payment. Implementations must keep the
// two-phase shape: a pending row exists before Charge is called, and a
// payment only becomes completed once the gateway confirms. InstantGateway
// confirms synchronously, StripeGateway via webhook.
type Gateway interface {
	// Charge attempts to collect the pending payment. When Completed is
	// true, the charge settled synchronously and the ledger may mark the
	// row completed at once; otherwise the row stays pending until the
	// gateway's callback confirms the reference.
	Charge(ctx context.Context, p *domain.Payment) (*ChargeResult, error)
}

type ChargeResult struct {
	Completed bool
	Method    string
	Reference string
}

// InstantGateway settles every charge immediately. It stands in for a real
// processor; no money moves.
type InstantGateway struct{}

func NewInstantGateway() *InstantGateway {
	return &InstantGateway{}
}

func (g *InstantGateway) Charge(_ context.Context, p *domain.Payment) (*ChargeResult, error) {
	return &ChargeResult{
		Completed: true,
		Method:    "instant",
		Reference: fmt.Sprintf("instant-%d", p.ID),
	}, nil
}

// StripeGateway creates a PaymentIntent and leaves the row pending; the
// webhook endpoint completes it when Stripe reports success.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) Charge(ctx context.Context, p *domain.Payment) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(string(stripe.CurrencyKRW)),
		Metadata: map[string]string{
			"payment_id": fmt.Sprint(p.ID),
			"user_id":    fmt.Sprint(p.UserID),
			"vehicle_id": fmt.Sprint(p.VehicleID),
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, domain.ExternalServiceError("payment provider error", true, err)
	}

	return &ChargeResult{
		Completed: false,
		Method:    "card",
		Reference: pi.ID,
	}, nil
}

// ConfirmFromWebhook validates a Stripe webhook payload and returns the
// PaymentIntent id when the event reports a successful charge.
func (g *StripeGateway) ConfirmFromWebhook(payload []byte, signature string) (string, bool, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return "", false, domain.AuthenticationError("invalid webhook signature")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		id, _ := event.Data.Object["id"].(string)
		return id, true, nil
	case "payment_intent.payment_failed":
		id, _ := event.Data.Object["id"].(string)
		return id, false, nil
	default:
		return "", false, nil
	}
}
