package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/modules/setting"
	v0 "code.deblane.dev/repod/routers/api/v0"
	"code.deblane.dev/repod/services/blobstore"
)

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP API server",
	Action: func(c *cli.Context) error {
		cfg, err := setting.Load()
		if err != nil {
			return err
		}
		if err := log.Init(cfg.Log.Level, cfg.Log.JSON); err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		engine, err := db.New(cfg.Database)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		store, err := blobstore.New(cfg.Storage)
		if err != nil {
			return err
		}

		if err := ensureDefaultTenant(engine, cfg.Auth); err != nil {
			return err
		}

		deps := &v0.Deps{Engine: engine, Store: store, Storage: cfg.Storage, Publish: cfg.Publish, HTTP: cfg.HTTP}
		srv := &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      v0.NewRouter(deps),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		}

		go startByHashSweeper(context.Background(), engine, store, cfg.Publish)

		errCh := make(chan error, 1)
		go func() {
			log.S().Infow("listening", "addr", cfg.HTTP.Addr)
			errCh <- srv.ListenAndServe()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-sigCh:
			log.S().Infow("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
		return nil
	},
}

// ensureDefaultTenant seeds the single-tenant bootstrap credentials
// (spec §6, modules/setting.Auth) on first boot, so a fresh deployment
// always has one usable API token.
func ensureDefaultTenant(engine *db.Engine, cfg setting.Auth) error {
	ctx := context.Background()
	tenant, err := catalog.GetTenantBySubdomain(ctx, engine, cfg.DefaultTenantName)
	if err != nil {
		if !apierror.Is(err, apierror.NotFound) {
			return err
		}
		tenant, err = catalog.CreateTenant(ctx, engine, cfg.DefaultTenantName, cfg.DefaultTenantName)
		if err != nil {
			return err
		}
	}
	if cfg.BootstrapToken == "" {
		return nil
	}
	hash := catalog.HashToken(cfg.BootstrapToken)
	has, err := engine.Where("token_hash = ?", hash).Exist(new(catalog.APIToken))
	if err != nil || has {
		return err
	}
	row := &catalog.APIToken{TenantID: tenant.ID, Name: "bootstrap", TokenHash: hash}
	_, err = engine.Insert(row)
	return err
}
