// Command chattui is the panel chat client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/deehdev/chatclient/internal/client"
	"github.com/deehdev/chatclient/internal/config"
	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/tui"
)

const (
	name = "chattui"
	// defaultLogFile keeps log lines off the terminal the panel draws on.
	defaultLogFile = "chattui.log"
)

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
	if cfg.Log.File == "" {
		cfg.Log.File = defaultLogFile
	}

	log, closer, err := logger.Open(name, cfg.Log.Level, cfg.Log.File, false)
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

	g, gctx := errgroup.WithContext(ctx)
	ui := tui.New(gctx, c, tui.Options{
		User:          cfg.Session.User,
		BrokerAddress: cfg.Transport.BrokerAddress,
		ProxyAddress:  cfg.Transport.ProxyAddress,
	}, tea.WithAltScreen())

	g.Go(func() error {
		return c.Run(gctx, ui.Event)
	})
	g.Go(func() error {
		if err := ui.Run(); err != nil {
			return err
		}
		return errQuit
	})

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) || errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
