// Command autoheald is the autonomous container supervisor daemon: it
// ticks on a timer, evaluates every monitored container's health, and
// restarts, quarantines, or auto-unquarantines them according to the
// policy configuration in its data directory.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/arcane-autoheal/autoheal/internal/api"
	"github.com/arcane-autoheal/autoheal/internal/config"
	"github.com/arcane-autoheal/autoheal/internal/control"
	"github.com/arcane-autoheal/autoheal/internal/decision"
	"github.com/arcane-autoheal/autoheal/internal/health"
	"github.com/arcane-autoheal/autoheal/internal/notify"
	"github.com/arcane-autoheal/autoheal/internal/runtimeadapter/dockeradapter"
	"github.com/arcane-autoheal/autoheal/internal/store"
	"github.com/arcane-autoheal/autoheal/internal/supervisor"
)

func main() {
	setupLogging()

	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, cfg.DirPerm); err != nil {
		// FatalStartup (spec.md §7): missing data dir with no write
		// permission is unrecoverable.
		slog.Error("cannot create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	watcher, err := store.NewWatcher(st, func(change store.PolicyConfigChange) {
		if change.Err != nil {
			return
		}
		slog.Info("config reloaded from disk", "interval_seconds", st.Config().Monitor.IntervalSeconds)
	})
	if err != nil {
		slog.Error("failed to start config watcher", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher.Start(ctx)
	defer watcher.Stop()

	adapter := dockeradapter.New(cfg.DockerHost)
	evaluator := health.New(adapter)
	engine := decision.New()
	dispatcher := notify.New()
	go dispatcher.Run(ctx, func() notify.Config {
		return notify.DecodeConfig(st.Config().Notifications)
	})
	defer dispatcher.Close()

	sup := supervisor.New(adapter, st, engine, evaluator, dispatcher)
	driver := supervisor.NewDriver(sup)

	enroll := supervisor.NewEnrollListener(adapter, st)
	go enroll.Run(ctx)

	interval := time.Duration(st.Config().Monitor.IntervalSeconds) * time.Second
	if err := driver.Start(ctx, interval); err != nil {
		slog.Error("failed to start tick driver", "error", err)
		os.Exit(1)
	}

	core := control.New(st, adapter).WithVerdicts(sup)
	router := api.NewRouter(core, os.Getenv("AUTOHEAL_ENV") == "production")
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		slog.Info("inspection API listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()

	slog.Info("autoheald started", "data_dir", cfg.DataDir, "interval", interval)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight work")

	driver.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown did not complete cleanly", "error", err)
	}

	slog.Info("autoheald stopped")
}

func setupLogging() {
	level := slog.LevelInfo
	if os.Getenv("AUTOHEAL_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))
}
