// cmd/web/main.go
//
// Sitesmith – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (defaults → .env → conf/global.yaml → env → Vault).
//
//  2. Start the rotating JSON logger (tees to console when running in a
//     TTY).
//
//  3. Open the database and, when auto_migrate is on, apply every
//     component's schema.
//
//  4. Wire services and routes (internal/app).
//
//  5. Serve until SIGINT or SIGTERM, then drain for up to 15 seconds.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yanizio/sitesmith/internal/app"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/config"
	"github.com/yanizio/sitesmith/internal/database"
	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/server"

	_ "github.com/yanizio/sitesmith/components/billing"
	_ "github.com/yanizio/sitesmith/components/domains"
	_ "github.com/yanizio/sitesmith/components/generate"
	_ "github.com/yanizio/sitesmith/components/pages"
	_ "github.com/yanizio/sitesmith/components/sites"
)

const shutdownGrace = 15 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config and logger ───────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Database ────────────────────────────────────────────────────
	//
	db, err := database.OpenWithOptions(ctx, cfg.Database.Driver, cfg.Database.DSN, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		logOut.Fatalw("connect database", "driver", cfg.Database.Driver, "err", err)
	}
	defer db.Close()
	logOut.Infow("database online", "driver", cfg.Database.Driver)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, component.Migrations()); err != nil {
			logOut.Fatalw("migrate", "err", err)
		}
		logOut.Infow("schema migrated")
	}

	//
	// ── 3.  App ─────────────────────────────────────────────────────────
	//
	a, err := app.New(cfg, db, logOut, app.Options{})
	if err != nil {
		logOut.Fatalw("wire app", "err", err)
	}
	defer a.Close()

	//
	// ── 4.  Serve with graceful shutdown ────────────────────────────────
	//
	srv := server.New(cfg.HTTP, a.Handler)
	errc := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logOut.Errorw("http server", "err", err)
		}
	case <-ctx.Done():
		logOut.Infow("shutting down", "grace", shutdownGrace)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logOut.Errorw("shutdown", "err", err)
		}
	}
}
