// components/generate/generate.go
//
// Generation component.  The caller's own model API key travels in the
// request body and is never stored or logged.
//
// Routes
// ------
//   GET  /api/templates   template catalog
//   POST /api/generate    {apiKey, prompt, template?} → {html}
//
//------------------------------------------------------------------------------

package generate

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/entitlement"
	gen "github.com/yanizio/sitesmith/internal/generate"
	"github.com/yanizio/sitesmith/internal/httpx"
)

var _ component.Component = (*Component)(nil)

type Component struct {
	gen  *gen.Generator
	gate *entitlement.Gate
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string         { return "generate" }
func (c *Component) Migrations() []string { return nil }

func (c *Component) Init(rt *component.Runtime) error {
	c.gen, c.gate = rt.Generator, rt.Gate
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/api/templates", c.templates)
	r.With(auth.Require, c.gate.RequireActive).Post("/api/generate", c.generate)
}

type generateRequest struct {
	APIKey   string `json:"apiKey"   validate:"required"`
	Prompt   string `json:"prompt"   validate:"required,max=8000"`
	Template string `json:"template" validate:"omitempty,max=64"`
}

func (c *Component) templates(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": c.gen.Catalog().List()})
}

func (c *Component) generate(w http.ResponseWriter, r *http.Request) {
	req, err := httpx.Decode[generateRequest](w, r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	html, err := c.gen.Generate(r.Context(), gen.Request{
		APIKey:   req.APIKey,
		Prompt:   req.Prompt,
		Template: req.Template,
	})
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"html": html})
}

// statusFor: unknown templates are the caller's fault, everything else is
// upstream.
func statusFor(err error) int {
	if errors.Is(err, gen.ErrUnknownTemplate) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
