// components/pages/pages.go
//
// Server-rendered pages: landing, sign-in hand-off, billing, dashboard,
// and builder, plus the static assets they load.
//
/*
Context
--------
Access to /dashboard and /builder is decided by the entitlement gate
before these handlers run, so they assume an entitled caller.  /billing
only needs a caller; it is where the gate sends people without a
subscription.

Notes
-----
  • Render failures are logged and answered with a bare 500; the page
    buffer means nothing partial was sent.
  • Oxford commas, two spaces after periods.
*/
package pages

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/billing"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/csrf"
	"github.com/yanizio/sitesmith/internal/customdomain"
	"github.com/yanizio/sitesmith/internal/generate"
	"github.com/yanizio/sitesmith/internal/head"
	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/requestinfo"
	"github.com/yanizio/sitesmith/internal/site"
	"github.com/yanizio/sitesmith/internal/view"
)

var _ component.Component = (*Component)(nil)

type Component struct {
	views      *view.Renderer
	sites      *site.Service
	domains    *customdomain.Service
	billing    *billing.Service
	gen        *generate.Generator
	csrf       *csrf.Signer
	signInURL  string
	signInPath string
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string         { return "pages" }
func (c *Component) Migrations() []string { return nil }

func (c *Component) Init(rt *component.Runtime) error {
	c.views = rt.Views
	c.sites, c.domains, c.billing, c.gen = rt.Sites, rt.Domains, rt.Billing, rt.Generator
	c.csrf = rt.CSRF
	c.signInURL = rt.Config.Auth.SignInURL
	c.signInPath = rt.Config.Gate.SignInPath
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Handle("/assets/*", view.Assets())
	r.Get("/", c.landing)
	r.Get("/login", c.login)
	r.Get("/billing", c.billingPage)
	r.Get("/dashboard", c.dashboard)
	r.Get("/builder", c.builder)
}

/*──────────────────────────── handlers ────────────────────────────────────*/

func (c *Component) landing(w http.ResponseWriter, r *http.Request) {
	p := c.page(r, "Sitesmith – websites from a sentence")
	p.Head.Meta(`<meta name="description" content="Describe your site, get a site.  Publish it on your own domain.">`)
	c.render(w, r, "landing", p)
}

// login hands off to the identity provider, or bounces a signed-in
// caller straight to where they were going.
func (c *Component) login(w http.ResponseWriter, r *http.Request) {
	next := billing.SafeNext(r.URL.Query().Get("next"))

	if _, ok := auth.CallerFrom(r.Context()); ok {
		if next == "" {
			next = "/dashboard"
		}
		http.Redirect(w, r, next, http.StatusFound)
		return
	}

	target := signInTarget(c.signInURL, next)
	if target != "" && r.URL.Query().Get("stay") == "" {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	p := c.page(r, "Sign in")
	p.Data["SignInURL"] = target
	p.Data["Next"] = next
	c.render(w, r, "login", p)
}

func (c *Component) billingPage(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		http.Redirect(w, r, c.signInPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
		return
	}
	status, err := c.billing.Status(r.Context(), caller.UserID)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	p := c.page(r, "Billing")
	p.Head.Meta(`<meta name="robots" content="noindex">`)
	p.Data["Status"] = status
	p.Data["Next"] = billing.SafeNext(r.URL.Query().Get("next"))
	c.render(w, r, "billing", p)
}

func (c *Component) dashboard(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	sites, err := c.sites.List(r.Context(), caller.UserID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	domains, err := c.domains.List(r.Context(), caller.UserID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if sites == nil {
		sites = []site.Record{}
	}

	p := c.page(r, "Dashboard")
	p.Head.Meta(`<meta name="robots" content="noindex">`)
	p.Data["Sites"] = sites
	p.Data["Domains"] = domains
	c.render(w, r, "dashboard", p)
}

func (c *Component) builder(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())

	p := c.page(r, "Builder")
	p.Head.Meta(`<meta name="robots" content="noindex">`)
	p.Data["Templates"] = c.gen.Catalog().List()

	if id := r.URL.Query().Get("site"); id != "" {
		rec, err := c.sites.Get(r.Context(), caller.UserID, id)
		if err != nil {
			// Unknown or foreign ids open an empty builder.
			logger.FromContext(r.Context()).Infow("builder site not loaded", "site_id", id, "err", err)
		} else {
			p.Data["Site"] = rec
		}
	}
	c.render(w, r, "builder", p)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (c *Component) page(r *http.Request, title string) *view.Page {
	h := head.New()
	h.SetTitle(title)
	caller, _ := auth.CallerFrom(r.Context())
	if caller != nil && c.csrf != nil {
		if tok, err := c.csrf.Token(); err == nil {
			h.Meta(`<meta name="csrf-token" content="` + tok + `">`)
		}
	}
	return &view.Page{
		Head:   h,
		Caller: caller,
		Info:   requestinfo.FromContext(r.Context()),
		Data:   map[string]any{},
	}
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, name string, p *view.Page) {
	if err := c.views.Render(w, http.StatusOK, name, p); err != nil {
		c.fail(w, r, err)
	}
}

func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Errorw("page failed", "path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// signInTarget appends next to the provider's sign-in URL.  An empty or
// unparsable base yields "".
func signInTarget(base, next string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	if next != "" {
		q := u.Query()
		q.Set("next", next)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
