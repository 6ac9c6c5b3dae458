// Command emblemd serves the vault application to a consensus engine
// over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/blockberries/emblem/app"
	"github.com/blockberries/emblem/config"
	emblemgrpc "github.com/blockberries/emblem/grpc"
	"github.com/blockberries/emblem/ledger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "emblemd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to a TOML config file")
		home       = flag.String("home", "", "directory that relative store paths resolve against")
		listen     = flag.String("listen", "", "gRPC listen address (overrides config)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Server.ListenAddr = *listen
	}
	if *home != "" && !cfg.Store.InMemory && !filepath.IsAbs(cfg.Store.Dir) {
		cfg.Store.Dir = filepath.Join(*home, cfg.Store.Dir)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Log.Logger()
	instance := uuid.New()
	logger.Info("starting instance=%s store=%s listen=%s", instance, cfg.Store.Dir, cfg.Server.ListenAddr)

	store, err := ledger.OpenBadger(ledger.BadgerOptions{
		Dir:       cfg.Store.Dir,
		InMemory:  cfg.Store.InMemory,
		CacheSize: cfg.Store.CacheSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store: %v", err)
		}
	}()

	application, err := app.New(store, cfg.App, app.WithLogger(logger))
	if err != nil {
		return err
	}
	pc := application.ProgramConfig()
	logger.Info("vault program=%s registry=%s bound_approvals=%t",
		pc.ProgramID, pc.RegistryProgramID, cfg.App.RequireBoundApproval)

	lis, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.ListenAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := emblemgrpc.NewGRPCServer(application, logger).Serve(ctx, lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("instance=%s stopped", instance)
	return nil
}
