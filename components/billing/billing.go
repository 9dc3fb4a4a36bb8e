// components/billing/billing.go
//
// Billing component – Stripe checkout, customer portal, status, and the
// webhook that keeps the subscriptions table current.
//
// Routes
// ------
//   POST /api/webhooks/stripe     signed Stripe events (no caller)
//   GET  /api/billing/status      caller's entitlement
//   POST /api/billing/checkout    {next?} → {url}
//   POST /api/billing/portal      → {url}
//
//------------------------------------------------------------------------------

package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/auth"
	svc "github.com/yanizio/sitesmith/internal/billing"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/httpx"
	"github.com/yanizio/sitesmith/internal/logger"
)

var _ component.Component = (*Component)(nil)

type Component struct {
	billing *svc.Service
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string         { return "billing" }
func (c *Component) Migrations() []string { return entitlement.Schema }

func (c *Component) Init(rt *component.Runtime) error {
	c.billing = rt.Billing
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Post("/api/webhooks/stripe", c.webhook)

	r.Route("/api/billing", func(api chi.Router) {
		api.Use(auth.Require)
		api.Get("/status", c.status)
		api.Post("/checkout", c.checkout)
		api.Post("/portal", c.portal)
	})
}

/*──────────────────────────── webhook ─────────────────────────────────────*/

func (c *Component) webhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		httpx.Error(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, svc.MaxWebhookBytes))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "request body too large")
		return
	}

	ev, err := c.billing.ParseEvent(payload, sig)
	if err != nil {
		logger.FromContext(r.Context()).Warnw("stripe webhook rejected", "err", err)
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	// A 5xx asks Stripe to redeliver.
	outcome, err := c.billing.HandleEvent(r.Context(), ev)
	if err != nil {
		httpx.Fail(w, r, http.StatusInternalServerError, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"received": true, "outcome": outcome})
}

/*──────────────────────────── caller routes ───────────────────────────────*/

type checkoutRequest struct {
	Next string `json:"next" validate:"omitempty,max=2048"`
}

func (c *Component) status(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	view, err := c.billing.Status(r.Context(), caller.UserID)
	if err != nil {
		httpx.Fail(w, r, http.StatusInternalServerError, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (c *Component) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if r.ContentLength != 0 {
		var err error
		if req, err = httpx.Decode[checkoutRequest](w, r); err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	caller, _ := auth.CallerFrom(r.Context())
	url, err := c.billing.Checkout(r.Context(), caller, req.Next)
	if err != nil {
		httpx.Fail(w, r, http.StatusInternalServerError, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func (c *Component) portal(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	url, err := c.billing.Portal(r.Context(), caller)
	switch {
	case errors.Is(err, svc.ErrNoCustomer):
		httpx.Error(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		httpx.Fail(w, r, http.StatusInternalServerError, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}
