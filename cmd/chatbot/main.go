// Command chatbot runs an autonomous chat participant.
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

	"github.com/deehdev/chatclient/internal/bot"
	"github.com/deehdev/chatclient/internal/client"
	"github.com/deehdev/chatclient/internal/config"
	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/protocol"
)

const name = "chatbot"

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

	b := bot.New(c, bot.Options{
		Name:         cfg.Session.User,
		MinDelay:     cfg.Bot.MinDelay,
		MaxDelay:     cfg.Bot.MaxDelay,
		PrivateRatio: cfg.Bot.PrivateRatio,
		Logger:       log,
	})
	incoming := log.Component("incoming")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(gctx, func(topic string, env protocol.Envelope) {
			incoming.Info().
				Str("topic", topic).
				Str("service", env.Service).
				Interface("data", env.Data).
				Int64("clock", env.Clock).
				Msg("broadcast")
		})
	})
	g.Go(func() error {
		return b.Run(gctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
