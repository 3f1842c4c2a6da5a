package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/destiny/admin"
	"github.com/freekieb7/destiny/config"
	"github.com/freekieb7/destiny/http"
	"github.com/freekieb7/destiny/telemetry"
)

const name = "github.com/freekieb7/destiny"

func main() {
	configFile := flag.String("config", "destiny.json", "Config file declaring the server and its routes")
	debug := flag.Bool("debug", false, "Log every connection")
	flag.Parse()

	if err := run(context.Background(), *configFile, *debug); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, configFile string, debug bool) error {
	// Handle SIGINT (CTRL+C) and SIGTERM gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Server.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName())
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Warn("failed to flush telemetry", "error", err)
			}
		}()
		logger = telemetry.Logger(name, level)
	}
	slog.SetDefault(logger)

	routes, middleware, opts, err := cfg.Records()
	if err != nil {
		return err
	}
	opts = append(opts, http.WithBuildLogger(logger))

	table, err := http.BuildContext(ctx, routes, middleware, cfg.Server.Version, opts...)
	if err != nil {
		return err
	}
	logger.Info("static table built", "routes", table.Len(), "version", table.Version())

	server, err := http.NewServer(cfg.ServiceName(), table,
		http.WithLogger(logger),
		http.WithReadTimeout(cfg.ReadTimeout()),
		http.WithBufferLength(cfg.Server.BufferLength),
	)
	if err != nil {
		return err
	}

	serverErrorChannel := make(chan error, 2)
	go func() {
		serverErrorChannel <- server.ListenAndServe(ctx, cfg.Server.Address)
	}()

	var adminServer *admin.Server
	if cfg.Server.Admin.Address != "" {
		adminServer = admin.NewServer(cfg.Server.Admin.Address, table, logger)
		go func() {
			serverErrorChannel <- adminServer.ListenAndServe()
		}()
	}

	// Wait for interruption.
	var serveErr error
	select {
	case serveErr = <-serverErrorChannel:
	case <-ctx.Done():
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if adminServer != nil {
		err = errors.Join(err, adminServer.Shutdown(shutdownCtx))
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	return errors.Join(serveErr, err)
}
