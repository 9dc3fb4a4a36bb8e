package component

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/sitesmith/internal/billing"
	"github.com/yanizio/sitesmith/internal/config"
	"github.com/yanizio/sitesmith/internal/csrf"
	"github.com/yanizio/sitesmith/internal/customdomain"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/generate"
	"github.com/yanizio/sitesmith/internal/hosting"
	"github.com/yanizio/sitesmith/internal/site"
	"github.com/yanizio/sitesmith/internal/view"
)

// Runtime is the set of shared services handed to every component's
// Init.  It is built once in internal/app and never mutated afterwards.
type Runtime struct {
	Config *config.Config
	DB     *sqlx.DB
	Log    *zap.SugaredLogger
	Views  *view.Renderer
	CSRF   *csrf.Signer

	Gate      *entitlement.Gate
	Sites     *site.Service
	Domains   *customdomain.Service
	Billing   *billing.Service
	Generator *generate.Generator
	Hosting   *hosting.Server
}
