package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"ms-membership/internal/logger"
)

// StripeGateway charges through Stripe payment intents, confirming
// immediately with the prime as the payment method. It satisfies the same
// port as TapPay so the workflow never knows which provider is wired.
type StripeGateway struct {
	Logger *logger.Logger
}

// InitStripe sets the account secret key for the stripe client.
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

func NewStripeGateway(secretKey string, log *logger.Logger) *StripeGateway {
	InitStripe(secretKey)
	return &StripeGateway{Logger: log}
}

func (g *StripeGateway) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.Prime),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Details),
	}
	params.Context = ctx
	if req.OrderRef != "" {
		// Stripe-side idempotency on top of our own: a replayed reference
		// cannot create a second charge even if it slips past the workflow.
		params.IdempotencyKey = stripe.String(req.OrderRef)
		params.AddMetadata("order_ref", req.OrderRef)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			// Card declines are a business outcome, not a transport error.
			if g.Logger != nil {
				g.Logger.LogGateway("stripe", req.OrderRef, fmt.Sprintf("charge declined: %s", stripeErr.Code))
			}
			return &PayResult{
				OK:     false,
				Status: stripeErr.HTTPStatusCode,
				Msg:    string(stripeErr.Code),
			}, nil
		}
		return nil, fmt.Errorf("stripe payment intent failed: %w", err)
	}

	result := &PayResult{
		OK:         pi.Status == stripe.PaymentIntentStatusSucceeded,
		RecTradeID: pi.ID,
	}
	if pi.LastResponse != nil {
		result.Raw = pi.LastResponse.RawJSON
	}
	if !result.OK {
		result.Status = 1
		result.Msg = fmt.Sprintf("payment intent status %s", pi.Status)
	}

	if g.Logger != nil {
		g.Logger.LogGateway("stripe", req.OrderRef, fmt.Sprintf("intent %s status %s", pi.ID, pi.Status))
	}
	return result, nil
}

var _ Gateway = (*StripeGateway)(nil)
