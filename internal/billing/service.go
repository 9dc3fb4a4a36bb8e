// internal/billing/service.go
//
// Stripe checkout, customer portal, and entitlement status.
//
/*
Context
--------
Billing never decides entitlement on its own.  Checkout and the portal hand
the browser to Stripe; the webhook (webhook.go) writes what Stripe reports
into the subscriptions table; Status reads it back through the same
`IsActive` the gate uses.

Notes
-----
  • The user id rides on the checkout session (client_reference_id) and on
    the subscription metadata so every later event can find its owner.
  • A stored customer id is reused so one user never gets two customers.
  • Oxford commas, two spaces after periods.
*/
package billing

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/logger"
)

// MetadataUserID is the subscription metadata key carrying our user id.
const MetadataUserID = "user_id"

// ErrNoCustomer means the caller has never completed a checkout.
var ErrNoCustomer = errors.New("no billing account on file")

// Options are the Stripe and URL settings billing needs.
type Options struct {
	PriceID       string
	WebhookSecret string
	PublicBaseURL string
	SuccessPath   string
	CancelPath    string
}

// StatusView is the billing status returned to the browser.
type StatusView struct {
	Active           bool               `json:"active"`
	Status           entitlement.Status `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end"`
}

// Service is safe for concurrent use.
type Service struct {
	gw    Gateway
	store entitlement.Store
	opt   Options
	now   func() time.Time
}

// NewService wires billing.
func NewService(gw Gateway, store entitlement.Store, opt Options) *Service {
	opt.PublicBaseURL = strings.TrimRight(opt.PublicBaseURL, "/")
	return &Service{gw: gw, store: store, opt: opt, now: time.Now}
}

// Checkout starts a subscription checkout and returns the Stripe URL.
// next is a same-site path to land on after payment.
func (s *Service) Checkout(ctx context.Context, c *auth.Caller, next string) (string, error) {
	next = SafeNext(next)

	success := s.opt.PublicBaseURL + s.opt.SuccessPath
	if next != "" {
		success = s.opt.PublicBaseURL + next
	}
	cancel := s.opt.PublicBaseURL + s.opt.CancelPath
	if next != "" {
		cancel += "?next=" + url.QueryEscape(next)
	}

	p := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.opt.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(success),
		CancelURL:         stripe.String(cancel),
		ClientReferenceID: stripe.String(c.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserID: c.UserID},
		},
	}

	rec, err := s.store.ByUser(ctx, c.UserID)
	switch {
	case err == nil && rec.StripeCustomerID != "":
		p.Customer = stripe.String(rec.StripeCustomerID)
	case err != nil && !errors.Is(err, entitlement.ErrNotFound):
		return "", err
	case c.Email != "":
		p.CustomerEmail = stripe.String(c.Email)
	}

	sess, err := s.gw.NewCheckoutSession(ctx, p)
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).Infow("checkout session created", "session_id", sess.ID)
	return sess.URL, nil
}

// Portal opens the Stripe customer portal for the caller.
func (s *Service) Portal(ctx context.Context, c *auth.Caller) (string, error) {
	rec, err := s.store.ByUser(ctx, c.UserID)
	if errors.Is(err, entitlement.ErrNotFound) || (err == nil && rec.StripeCustomerID == "") {
		return "", ErrNoCustomer
	}
	if err != nil {
		return "", err
	}

	sess, err := s.gw.NewPortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(rec.StripeCustomerID),
		ReturnURL: stripe.String(s.opt.PublicBaseURL + s.opt.CancelPath),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// Status reports the caller's entitlement.  No row reads as inactive.
func (s *Service) Status(ctx context.Context, userID string) (StatusView, error) {
	rec, err := s.store.ByUser(ctx, userID)
	if errors.Is(err, entitlement.ErrNotFound) {
		return StatusView{Status: entitlement.StatusInactive}, nil
	}
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		Active:           rec.IsActive(s.now()),
		Status:           rec.Status,
		CurrentPeriodEnd: rec.CurrentPeriodEnd,
	}, nil
}

// SafeNext keeps next only when it is a same-site absolute path.
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	return next
}
