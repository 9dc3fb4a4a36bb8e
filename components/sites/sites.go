// components/sites/sites.go
//
// Sites component – draft, publish, and delete for builder sites, plus
// the public /s/{id} route.
//
// Routes
// ------
//   GET    /api/sites                  list the caller's sites
//   POST   /api/sites                  save (create or update) a draft
//   GET    /api/sites/{id}             one site with its draft
//   POST   /api/sites/{id}/publish     snapshot the draft (subscription)
//   POST   /api/sites/{id}/unpublish   drop the snapshot
//   DELETE /api/sites/{id}             delete site and its domains
//   GET    /s/{id}                     serve the published snapshot
//
//------------------------------------------------------------------------------

package sites

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/hosting"
	"github.com/yanizio/sitesmith/internal/httpx"
	"github.com/yanizio/sitesmith/internal/site"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the sites API.
type Component struct {
	sites   *site.Service
	gate    *entitlement.Gate
	hosting *hosting.Server
}

func init() { component.Register(&Component{}) }

/*────────────────── component.Component methods ───────────────────────────*/

func (c *Component) Name() string         { return "sites" }
func (c *Component) Migrations() []string { return site.Schema }

func (c *Component) Init(rt *component.Runtime) error {
	c.sites, c.gate, c.hosting = rt.Sites, rt.Gate, rt.Hosting
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/s/{id}", c.hosting.ServeByID)

	r.Route("/api/sites", func(api chi.Router) {
		api.Use(auth.Require)
		api.Get("/", c.list)
		api.Post("/", c.save)
		api.Get("/{id}", c.get)
		api.With(c.gate.RequireActive).Post("/{id}/publish", c.publish)
		api.Post("/{id}/unpublish", c.unpublish)
		api.Delete("/{id}", c.delete)
	})
}

/*──────────────────────────── payloads ────────────────────────────────────*/

type saveRequest struct {
	ID       string `json:"id"`
	Template string `json:"template" validate:"max=64"`
	Prompt   string `json:"prompt"`
	HTML     string `json:"html"     validate:"required"`
}

type siteJSON struct {
	*site.Record
	Status string `json:"status"`
}

func toJSON(rec *site.Record) siteJSON { return siteJSON{Record: rec, Status: rec.Status()} }

type okResponse struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

/*──────────────────────────── handlers ────────────────────────────────────*/

func (c *Component) list(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	rows, err := c.sites.List(r.Context(), caller.UserID)
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	out := make([]siteJSON, 0, len(rows))
	for i := range rows {
		out = append(out, toJSON(&rows[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sites": out})
}

func (c *Component) save(w http.ResponseWriter, r *http.Request) {
	req, err := httpx.Decode[saveRequest](w, r)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, _ := auth.CallerFrom(r.Context())
	rec, err := c.sites.Save(r.Context(), caller.UserID, site.SaveInput{
		ID:       req.ID,
		Template: req.Template,
		Prompt:   req.Prompt,
		HTML:     req.HTML,
	})
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, okResponse{OK: true, ID: rec.ID, Status: rec.Status()})
}

func (c *Component) get(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	rec, err := c.sites.Get(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, toJSON(rec))
}

func (c *Component) publish(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	rec, err := c.sites.Publish(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, okResponse{OK: true, ID: rec.ID, Status: rec.Status()})
}

func (c *Component) unpublish(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	rec, err := c.sites.Unpublish(r.Context(), caller.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, okResponse{OK: true, ID: rec.ID, Status: rec.Status()})
}

func (c *Component) delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := c.sites.Delete(r.Context(), caller.UserID, id); err != nil {
		httpx.Fail(w, r, statusFor(err), err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// statusFor maps service errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, site.ErrEmptyDraft):
		return http.StatusBadRequest
	case errors.Is(err, site.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, site.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
