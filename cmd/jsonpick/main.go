package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/jsonpick/api"
	"github.com/use-agent/jsonpick/api/middleware"
	"github.com/use-agent/jsonpick/cache"
	"github.com/use-agent/jsonpick/config"
	"github.com/use-agent/jsonpick/docservice"
	"github.com/use-agent/jsonpick/engine"
	"github.com/use-agent/jsonpick/messaging"
	"github.com/use-agent/jsonpick/metrics"
	"github.com/use-agent/jsonpick/orchestrator"
	"github.com/use-agent/jsonpick/scraper"
	"github.com/use-agent/jsonpick/settings"
	"github.com/use-agent/jsonpick/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	closeLog := initLogger(cfg.Log)
	defer closeLog()
	slog.Info("jsonpick starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
		"settings", cfg.Settings.Path,
	)

	// ── 3. Settings file ────────────────────────────────────────────
	store := settings.NewFileStore(cfg.Settings.Path)
	if cfg.Settings.InstallDefaults {
		installed, err := store.Install()
		if err != nil {
			slog.Error("failed to install default settings", "path", store.Path(), "error", err)
			os.Exit(1)
		}
		if installed {
			slog.Info("default settings installed", "path", store.Path())
		}
	}

	m := metrics.New(nil)

	// ── 4. Initialise scraper (launches browser) ────────────────────
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// ── 4b. Initialise multi-engine dispatcher ─────────────────────
	if cfg.Engine.EnableMultiEngine {
		// The rod engines call back into the scraper, bypassing the
		// dispatcher; engine/ never imports scraper/.
		engines := []engine.Engine{
			engine.NewHTTPEngine().WithTimeout(cfg.Engine.HTTPTimeout),
			engine.NewRodEngine(sc.RodFetch, false),
			engine.NewRodEngine(sc.RodFetch, true),
		}
		memory := engine.NewDomainMemory(24 * time.Hour)
		dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
		dispatcher.OnWin(m.RecordEngine)

		sc.SetDispatcher(dispatcher)
		slog.Info("multi-engine dispatcher enabled",
			"engines", dispatcher.Engines(),
			"delays", cfg.Engine.EscalationDelays,
		)
	}

	// ── 5. Sessions, documents, orchestration ───────────────────────
	broker := messaging.NewBroker(cfg.Messaging.ReplyTimeout)
	orch := orchestrator.New(orchestrator.Deps{
		Loader:    sc,
		Broker:    broker,
		Settings:  store,
		Documents: docservice.New(cfg.DocService.Timeout),
		Webhooks:  webhook.New(cfg.Webhook.Timeout, cfg.Webhook.RetryDelays),
		Metrics:   m,
	})

	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Stop()
	limiters := middleware.NewLimiters(cfg.RateLimit)
	defer limiters.Stop()

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Orchestrator: orch,
		Broker:       broker,
		Cache:        cc,
		Metrics:      m,
		Limiters:     limiters,
		Pool:         sc,
		StartTime:    time.Now(),
	})

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sc.Close() runs via defer: drains the page pool and kills Chrome.
	slog.Info("jsonpick stopped")
}
