package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func stashList(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return cli.Exit("Error: expected exactly one address argument", 2)
	}

	be, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	sender := lookupKey(ctx.Args().Get(0))

	rows, err := be.ListStash(context.Background(), sender)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	if len(rows) == 0 {
		fmt.Println("no stashed messages")
		return nil
	}

	for _, r := range rows {
		fmt.Printf("%-14s #%-6d %-40s %5d bytes -> %s\n", r.Table, r.ID, r.Sender, r.Size, r.Recipients)
	}
	return nil
}
