// components/domains/domains.go
//
// Custom-domain component.  Thin HTTP shell over customdomain.Service.
//
// Routes
// ------
//   GET    /api/domains            list the caller's domains
//   POST   /api/domains            connect a hostname (subscription)
//   POST   /api/domains/check      re-read provider status
//   POST   /api/domains/verify     ask the provider to re-verify (subscription)
//   DELETE /api/domains/{domain}   detach and forget
//
// Notes
// -----
//   • Hostnames are normalized before the subscription check and before
//     any provider call, so a malformed name is always a 400 with no
//     database or network traffic.
//   • Provider failures surface as 500 with the provider's text.
//
//------------------------------------------------------------------------------

package domains

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/customdomain"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/httpx"
)

var _ component.Component = (*Component)(nil)

type Component struct {
	domains *customdomain.Service
	gate    *entitlement.Gate
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string         { return "domains" }
func (c *Component) Migrations() []string { return customdomain.Schema }

func (c *Component) Init(rt *component.Runtime) error {
	c.domains, c.gate = rt.Domains, rt.Gate
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Route("/api/domains", func(api chi.Router) {
		api.Use(auth.Require)
		api.Get("/", c.list)
		api.Post("/", c.connect)
		api.Post("/check", c.check)
		api.Post("/verify", c.verify)
		api.Delete("/{domain}", c.remove)
	})
}

type connectRequest struct {
	Domain string  `json:"domain"  validate:"required"`
	SiteID *string `json:"site_id"`
}

type domainRequest struct {
	Domain string `json:"domain" validate:"required"`
}

func (c *Component) list(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	rows, err := c.domains.List(r.Context(), caller.UserID)
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"domains": rows})
}

func (c *Component) connect(w http.ResponseWriter, r *http.Request) {
	req, err := httpx.Decode[connectRequest](w, r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	host, ok := c.admit(w, r, req.Domain, true)
	if !ok {
		return
	}
	caller, _ := auth.CallerFrom(r.Context())
	res, err := c.domains.Connect(r.Context(), caller.UserID, customdomain.ConnectInput{
		Domain: host,
		SiteID: req.SiteID,
	})
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (c *Component) check(w http.ResponseWriter, r *http.Request) {
	c.refresh(w, r, false, c.domains.Check)
}

func (c *Component) verify(w http.ResponseWriter, r *http.Request) {
	c.refresh(w, r, true, c.domains.Verify)
}

// refresh runs Check or Verify for the domain named in the body.
func (c *Component) refresh(
	w http.ResponseWriter,
	r *http.Request,
	paid bool,
	call func(context.Context, string, string) (*customdomain.Result, error),
) {
	req, err := httpx.Decode[domainRequest](w, r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	host, ok := c.admit(w, r, req.Domain, paid)
	if !ok {
		return
	}
	caller, _ := auth.CallerFrom(r.Context())
	res, err := call(r.Context(), caller.UserID, host)
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (c *Component) remove(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	domain := chi.URLParam(r, "domain")
	if err := c.domains.Remove(r.Context(), caller.UserID, domain); err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "domain": domain})
}

// admit normalizes raw and, when paid, checks the subscription.  It
// writes the 400 or 402 itself and reports whether to continue.
func (c *Component) admit(w http.ResponseWriter, r *http.Request, raw string, paid bool) (string, bool) {
	host, err := customdomain.NormalizeHostname(raw)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if paid {
		caller, _ := auth.CallerFrom(r.Context())
		if !c.gate.Entitled(r, caller.UserID) {
			httpx.Error(w, http.StatusPaymentRequired, "active subscription required")
			return "", false
		}
	}
	return host, true
}

// statusFor maps workflow errors onto HTTP codes.  Anything unrecognized
// is an upstream or database failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, customdomain.ErrInvalidHostname):
		return http.StatusBadRequest
	case errors.Is(err, customdomain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, customdomain.ErrNotFound), errors.Is(err, customdomain.ErrSiteNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
