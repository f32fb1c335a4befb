package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"certhub/internal/acquire"
	"certhub/internal/acquire/targets"
	"certhub/internal/auth"
	"certhub/internal/lookup"
	"certhub/internal/notify"
	"certhub/internal/platform/config"
	"certhub/internal/platform/logger"
	platformredis "certhub/internal/platform/redis"
	"certhub/internal/solver"
	"certhub/internal/store/artifacts"
	"certhub/internal/store/local"
	"certhub/internal/store/remote"
	syncengine "certhub/internal/sync"
)

// app holds the wired service graph shared by all commands.
type app struct {
	cfg *config.Config
	log *slog.Logger

	local     *local.Store
	remote    remote.Store
	artifacts *artifacts.Store
	engine    *syncengine.Engine
	notifier  *notify.Notifier
	auth      *auth.Service

	closers []func()
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	a := &app{cfg: cfg, log: log}

	a.local, err = local.New(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}
	a.artifacts, err = artifacts.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	a.remote, err = a.buildRemote(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { a.remote.Close() })

	a.engine, err = syncengine.NewEngine(a.local, a.remote, a.artifacts,
		syncengine.WithLogger(log))
	if err != nil {
		return nil, err
	}

	guard := notify.NewGuard(a.remote, a.local, cfg.Instance, log)
	mailer := notify.NewSMTPMailer("", 0, log)
	a.notifier, err = notify.NewNotifier(a.local, a.remote, guard, mailer,
		notify.WithLogger(log))
	if err != nil {
		return nil, err
	}

	a.auth, err = auth.NewService(a.remote, cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL,
		auth.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := a.auth.SeedAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Warn("seed admin account", "error", err)
	}

	return a, nil
}

// buildRemote selects the shared store backend. No backend configured means
// offline mode: everything stays in the local document.
func (a *app) buildRemote(ctx context.Context) (remote.Store, error) {
	switch a.cfg.Remote.Backend {
	case "redis":
		client, err := platformredis.New(ctx, a.cfg.Remote.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return remote.NewRedisStore(client.Client, a.log), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, a.cfg.Remote.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store, err := remote.NewPostgresStore(ctx, pool, a.log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		a.log.Info("no remote backend configured, running offline")
		return remote.NewMemoryStore(a.log), nil
	}
}

// buildOrchestrator wires the acquisition pipeline. Separate from buildApp
// because it needs solver credentials only acquisition commands require.
func (a *app) buildOrchestrator() (*acquire.Orchestrator, error) {
	if a.cfg.Solver.APIKey == "" {
		return nil, fmt.Errorf("CERTHUB_SOLVER_API_KEY is required for acquisition")
	}
	solverClient, err := solver.New(a.cfg.Solver.APIKey, a.cfg.Solver.BaseURL,
		solver.WithPolling(a.cfg.Solver.PollInterval, a.cfg.Solver.PollAttempts),
		solver.WithLogger(a.log))
	if err != nil {
		return nil, err
	}

	machineOpts := []acquire.MachineOption{
		acquire.WithMaxAttempts(a.cfg.Acquire.MaxAttempts),
		acquire.WithVerifyWindow(a.cfg.Acquire.VerifyWindow, 0),
		acquire.WithMachineLogger(a.log),
	}
	if !a.cfg.Acquire.HumanPacing {
		machineOpts = append(machineOpts, acquire.WithPacer(acquire.NopPacer{}))
	}

	var acquirers []acquire.Acquirer
	for _, driver := range targets.Drivers(targets.Config{Timeout: a.cfg.Acquire.StageTimeout}, a.log) {
		machine, err := acquire.NewMachine(driver, solverClient, machineOpts...)
		if err != nil {
			return nil, err
		}
		acquirers = append(acquirers, machine)
	}

	names := lookup.New(
		lookup.WithBaseURL(a.cfg.Acquire.LookupBaseURL),
		lookup.WithLogger(a.log))

	return acquire.NewOrchestrator(acquirers, a.local, a.artifacts,
		acquire.WithRemotePusher(a.remote),
		acquire.WithNameResolver(names),
		acquire.WithOrchestratorLogger(a.log))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
