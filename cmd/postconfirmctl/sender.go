package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ietf-svn-conversion/postconfirm/framework/address"
	"github.com/ietf-svn-conversion/postconfirm/internal/postconfirm"
)

func senderShow(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return cli.Exit("Error: expected exactly one address argument", 2)
	}
	if !address.Valid(ctx.Args().Get(0)) {
		return cli.Exit(fmt.Sprintf("Error: invalid address: %s", ctx.Args().Get(0)), 2)
	}

	be, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	sender := lookupKey(ctx.Args().Get(0))

	action, refs, err := postconfirm.GetAction(context.Background(), be, sender)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	fmt.Printf("%s: %s", sender, action)
	if len(refs) != 0 {
		fmt.Printf(" (refs: %s)", postconfirm.EncodeRefs(refs))
	}
	fmt.Println()
	return nil
}

func senderSet(ctx *cli.Context) error {
	if ctx.Args().Len() != 2 {
		return cli.Exit("Error: expected ADDRESS and ACTION arguments", 2)
	}
	if !address.Valid(ctx.Args().Get(0)) {
		return cli.Exit(fmt.Sprintf("Error: invalid address: %s", ctx.Args().Get(0)), 2)
	}

	action := postconfirm.Action(ctx.Args().Get(1))
	if !action.Valid() {
		return cli.Exit(fmt.Sprintf("Error: invalid action: %s", action), 2)
	}

	be, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	sender := lookupKey(ctx.Args().Get(0))

	if err := be.SetAction(context.Background(), sender, action, nil); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	fmt.Printf("%s: set to %s\n", sender, action)
	return nil
}

func senderList(ctx *cli.Context) error {
	be, closeFn, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := be.ListSenders(context.Background())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	for _, r := range rows {
		if r.Type == "P" {
			continue
		}
		fmt.Printf("%-14s %-40s %-10s %s\n", r.Table, r.Sender, r.Action, r.Ref)
	}
	return nil
}

// lookupKey normalizes a command-line address argument the same way the
// decider normalizes an envelope sender before looking it up.
func lookupKey(raw string) string {
	bare := address.Normalize(raw)
	key, err := address.ForLookup(bare)
	if err != nil {
		return strings.ToLower(bare)
	}
	return key
}
