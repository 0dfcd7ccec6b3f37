package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/modules/setting"
	"code.deblane.dev/repod/services/blobstore"
	"code.deblane.dev/repod/services/mirror"
)

var cmdSweepByHash = &cli.Command{
	Name:  "sweep-by-hash",
	Usage: "run one by-hash cleanup pass and exit (spec §4.F)",
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

		removed, err := mirror.SweepByHash(context.Background(), engine, store)
		if err != nil {
			return err
		}
		log.S().Infow("by-hash sweep complete", "removed", removed)
		return nil
	},
}

// startByHashSweeper runs SweepByHash on a fixed interval for the
// lifetime of the serve process, so a deployment doesn't need to run
// sweep-by-hash as a separate cron job unless it wants finer control.
func startByHashSweeper(ctx context.Context, engine *db.Engine, store *blobstore.Store, cfg setting.Publish) {
	interval := cfg.ByHashGraceWindow / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := mirror.SweepByHash(ctx, engine, store)
			if err != nil {
				log.S().Warnw("by-hash sweep failed", "err", err)
				continue
			}
			if removed > 0 {
				log.S().Infow("by-hash sweep complete", "removed", removed)
			}
		}
	}
}
