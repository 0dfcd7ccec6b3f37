// Command repod is the control-plane server binary: it dispatches to one
// of the subcommands below, each of which loads configuration from the
// environment (modules/setting) itself.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "repod",
		Usage: "signed APT repository control plane",
		Commands: []*cli.Command{
			cmdServe,
			cmdMigrate,
			cmdSweepByHash,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
