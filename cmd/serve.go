package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/plugin"
	"github.com/desertthunder/audioquery/internal/server"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve attaches the plugin and serves it over HTTP until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "serve")
	unregister := store.RegisterObserver(func(uri string) {
		logger.Debug("library changed", "uri", uri)
	})
	defer unregister()

	perms := permissions.NewManager(r.config.Permissions, r.logger)
	p := plugin.New(store, perms, r.config, r.logger)
	if err := p.Attach(ctx); err != nil {
		return err
	}
	defer p.Detach()

	sc := r.config.Server
	if port := cmd.Int("port"); port > 0 {
		sc.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(sc, server.NewRouter(p, perms, cmd.Duration("call-timeout"), r.logger))
	logger.Info("serving plugin", "addr", srv.Addr, "on_request", r.config.Permissions.OnRequest)
	return server.Serve(ctx, srv, logger)
}
