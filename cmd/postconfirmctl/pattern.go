package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

func patternList(ctx *cli.Context) error {
	be, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	patterns, err := be.Patterns(context.Background())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	for _, p := range patterns {
		fmt.Printf("%-40s %s\n", p.Pattern, p.Action)
	}
	return nil
}
