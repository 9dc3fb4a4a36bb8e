package billing

import (
	"context"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Gateway is the slice of the Stripe API billing calls.
type Gateway interface {
	NewCheckoutSession(ctx context.Context, p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	NewPortalSession(ctx context.Context, p *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// stripeGateway adapts a per-key client.API.  A dedicated client keeps the
// key out of the stripe package globals.
type stripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a Gateway for secretKey.
func NewStripeGateway(secretKey string) Gateway {
	return &stripeGateway{api: client.New(secretKey, nil)}
}

func (g *stripeGateway) NewCheckoutSession(ctx context.Context, p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	p.Context = ctx
	return g.api.CheckoutSessions.New(p)
}

func (g *stripeGateway) NewPortalSession(ctx context.Context, p *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	p.Context = ctx
	return g.api.BillingPortalSessions.New(p)
}

func (g *stripeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	p := &stripe.SubscriptionParams{}
	p.Context = ctx
	return g.api.Subscriptions.Get(id, p)
}
