// Command postconfirmctl is the administration utility for the postconfirm
// sender store and message stash: sender action management, pattern rule
// inspection, and stash listing.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/pconfig"
	"github.com/ietf-svn-conversion/postconfirm/internal/sqlstore"
)

func main() {
	app := cli.NewApp()
	app.Name = "postconfirmctl"
	app.Usage = "postconfirm administration utility"
	app.ExitErrHandler = func(c *cli.Context, err error) {
		cli.HandleExitCoder(err)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			cli.OsExiter(1)
		}
	}
	app.Flags = []cli.Flag{
		&cli.PathFlag{
			Name:    "config",
			Usage:   "Configuration file to use",
			EnvVars: []string{"POSTCONFIRM_CONFIG"},
			Value:   filepath.Join("/etc/postconfirm", "postconfirm.conf"),
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "sender",
			Usage: "Sender action management",
			Subcommands: []*cli.Command{
				{
					Name:      "show",
					Usage:     "Show the resolved action for a sender address",
					ArgsUsage: "ADDRESS",
					Action:    senderShow,
				},
				{
					Name:      "set",
					Usage:     "Set the dynamic action for a sender address",
					ArgsUsage: "ADDRESS accept|reject|discard|confirm|unknown|expired",
					Action:    senderSet,
				},
				{
					Name:   "list",
					Usage:  "List every exact-match sender row",
					Action: senderList,
				},
			},
		},
		{
			Name:  "pattern",
			Usage: "Pattern rule inspection",
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List every pattern rule",
					Action: patternList,
				},
			},
		},
		{
			Name:  "stash",
			Usage: "Stashed message inspection",
			Subcommands: []*cli.Command{
				{
					Name:      "list",
					Usage:     "List pending stash entries for a sender",
					ArgsUsage: "ADDRESS",
					Action:    stashList,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openBackend(ctx *cli.Context) (*sqlstore.Backend, func(), error) {
	cfgPath := ctx.String("config")
	if cfgPath == "" {
		return nil, nil, cli.Exit("Error: config is required", 2)
	}

	cfg, err := pconfig.Load(cfgPath)
	if err != nil {
		return nil, nil, cli.Exit(fmt.Sprintf("Error: failed to load config: %v", err), 2)
	}

	logger := log.DefaultLogger
	logger.Name = "postconfirmctl"

	pool := sqlstore.NewDBPool(logger)

	backend, err := sqlstore.Open(context.Background(), pool, sqlstore.Driver(cfg.DBDriver), cfg.DBDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, cli.Exit(fmt.Sprintf("Error: failed to open store: %v", err), 2)
	}
	backend.SetConfirmTTL(cfg.ConfirmTTL)

	return backend, func() { pool.Close() }, nil
}
