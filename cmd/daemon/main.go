// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/astrorhythm/internal/config"
	"github.com/ManuGH/astrorhythm/internal/daemon"
	xglog "github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "astrorhythm",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	if path != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	rt, err := buildRuntime(ctx, cfg, loader, logger)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.failed").
			Msg("failed to initialise runtime")
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:     logger,
		APIHandler: rt.handler,
	})
	if err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "startup.failed").Msg("failed to create daemon manager")
	}
	rt.registerShutdownHooks(mgr)

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("listen", cfg.Server.ListenAddr).
		Str("journal", cfg.Journal.Backend).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("starting astrorhythm")

	if err := daemon.NewApp(logger, mgr, rt.holder, rt.hub).Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "shutdown.failed").Msg("daemon stopped with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown.complete").Msg("daemon stopped")
}
