// Command chatclient is the line-oriented chat client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/deehdev/chatclient/internal/cli"
	"github.com/deehdev/chatclient/internal/client"
	"github.com/deehdev/chatclient/internal/config"
	"github.com/deehdev/chatclient/internal/logger"
)

const name = "chatclient"

var errQuit = errors.New("quit")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(name, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(name, os.Stderr)
		return nil
	}
	if err != nil {
		return err
	}

	log, closer, err := logger.Open(name, cfg.Log.Level, cfg.Log.File, true)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	ui := cli.New(c, os.Stdout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(gctx, ui.Event)
	})
	g.Go(func() error {
		if cfg.Session.User != "" {
			ui.Execute(gctx, "login "+cfg.Session.User)
		}
		if err := ui.Run(gctx, os.Stdin); err != nil {
			return err
		}
		return errQuit
	})

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
