package main

import (
	"github.com/urfave/cli/v2"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/modules/setting"
)

var cmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "create or update the catalog schema",
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

		if err := engine.Sync(catalog.Tables()...); err != nil {
			return err
		}
		return ensureDefaultTenant(engine, cfg.Auth)
	},
}
