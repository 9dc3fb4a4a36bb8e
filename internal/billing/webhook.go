// internal/billing/webhook.go
//
// Stripe webhook: the only writer of subscription status.
//
/*
Workflow
--------
  1. Verify the Stripe-Signature header against the raw body.
  2. Route on event type:
       checkout.session.completed         fetch the subscription, link the
                                          customer, and upsert
       customer.subscription.created      upsert from the event object
       customer.subscription.updated      upsert from the event object
       customer.subscription.deleted      upsert as canceled
  3. Anything else is acknowledged and ignored.

Events whose owner cannot be found are logged and acknowledged; Stripe
would only redeliver the same unresolvable payload.

Notes
-----
  • API version mismatches are tolerated; only the fields read below
    matter.
  • Oxford commas, two spaces after periods.
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/metrics"
)

// MaxWebhookBytes caps webhook bodies.
const MaxWebhookBytes = 65536

// ErrBadSignature wraps every signature or payload verification failure.
var ErrBadSignature = errors.New("webhook signature verification failed")

// Outcome labels for webhook metrics and logs.
const (
	OutcomeApplied    = "applied"
	OutcomeIgnored    = "ignored"
	OutcomeUnresolved = "unresolved"
	OutcomeSuperseded = "superseded"
	OutcomeError      = "error"
)

// ParseEvent verifies payload against sigHeader.
func (s *Service) ParseEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.opt.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return ev, nil
}

// HandleEvent applies a verified event and returns its outcome label.
func (s *Service) HandleEvent(ctx context.Context, ev stripe.Event) (string, error) {
	typ := string(ev.Type)
	outcome, err := s.route(ctx, typ, ev)
	if err != nil {
		outcome = OutcomeError
	}
	metrics.WebhookEventsTotal.WithLabelValues(typ, outcome).Inc()
	logger.FromContext(ctx).Infow("stripe event", "event_id", ev.ID, "type", typ, "outcome", outcome)
	return outcome, err
}

func (s *Service) route(ctx context.Context, typ string, ev stripe.Event) (string, error) {
	if ev.Data == nil {
		return OutcomeIgnored, nil
	}
	switch typ {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return "", fmt.Errorf("decode checkout session: %w", err)
		}
		return s.checkoutCompleted(ctx, &sess)

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("decode subscription: %w", err)
		}
		if typ == "customer.subscription.deleted" {
			sub.Status = stripe.SubscriptionStatusCanceled
		}
		return s.subscriptionChanged(ctx, &sub)
	}
	return OutcomeIgnored, nil
}

func (s *Service) checkoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	userID := sess.ClientReferenceID
	if userID == "" {
		userID = sess.Metadata[MetadataUserID]
	}
	if userID == "" || sess.Subscription == nil || sess.Subscription.ID == "" {
		return OutcomeUnresolved, nil
	}

	sub, err := s.gw.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return "", fmt.Errorf("fetch subscription %s: %w", sess.Subscription.ID, err)
	}

	rec := recordFor(userID, sub)
	if rec.StripeCustomerID == "" && sess.Customer != nil {
		rec.StripeCustomerID = sess.Customer.ID
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (s *Service) subscriptionChanged(ctx context.Context, sub *stripe.Subscription) (string, error) {
	var current *entitlement.Record
	userID := sub.Metadata[MetadataUserID]
	if userID == "" && sub.Customer != nil {
		rec, err := s.store.ByCustomer(ctx, sub.Customer.ID)
		if errors.Is(err, entitlement.ErrNotFound) {
			return OutcomeUnresolved, nil
		}
		if err != nil {
			return "", err
		}
		userID, current = rec.UserID, rec
	}
	if userID == "" {
		return OutcomeUnresolved, nil
	}

	if current == nil {
		rec, err := s.store.ByUser(ctx, userID)
		if err != nil && !errors.Is(err, entitlement.ErrNotFound) {
			return "", err
		}
		current = rec
	}

	next := recordFor(userID, sub)
	// A replaced subscription ending must not revoke the one that
	// replaced it.
	if current != nil && current.StripeSubscriptionID != "" &&
		current.StripeSubscriptionID != sub.ID && !grantsAccess(next.Status) {
		logger.FromContext(ctx).Infow("stripe event for replaced subscription",
			"user_id", userID, "event_sub", sub.ID, "current_sub", current.StripeSubscriptionID)
		return OutcomeSuperseded, nil
	}

	if err := s.store.Upsert(ctx, next); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func grantsAccess(st entitlement.Status) bool {
	return st == entitlement.StatusActive || st == entitlement.StatusTrialing
}

// recordFor maps a Stripe subscription onto an entitlement row.
func recordFor(userID string, sub *stripe.Subscription) *entitlement.Record {
	rec := &entitlement.Record{
		UserID:               userID,
		Status:               MapStatus(sub.Status),
		StripeSubscriptionID: sub.ID,
	}
	if sub.Customer != nil {
		rec.StripeCustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		rec.CurrentPeriodEnd = &t
	}
	return rec
}

// MapStatus folds Stripe's subscription states into the five-word
// vocabulary.  States that never grant access become inactive.
func MapStatus(st stripe.SubscriptionStatus) entitlement.Status {
	switch st {
	case stripe.SubscriptionStatusActive:
		return entitlement.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return entitlement.StatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return entitlement.StatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return entitlement.StatusCanceled
	default:
		return entitlement.StatusInactive
	}
}
