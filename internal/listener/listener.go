// Package listener consumes broadcast items from the proxy feed.
package listener

import (
	"context"

	"github.com/deehdev/chatclient/internal/clock"
	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/protocol"
	"github.com/deehdev/chatclient/internal/transport"
)

// EventFunc receives every decoded broadcast, in arrival order.
type EventFunc func(topic string, env protocol.Envelope)

type Listener struct {
	sub   transport.Subscriber
	clock *clock.Lamport
	log   *logger.Logger
}

func New(sub transport.Subscriber, clk *clock.Lamport, log *logger.Logger) *Listener {
	if log == nil {
		log = logger.Nop()
	}
	return &Listener{
		sub:   sub,
		clock: clk,
		log:   log.Component("listener"),
	}
}

// Run delivers broadcasts to onEvent until ctx is done or the feed fails.
// Items that do not decode are logged and skipped. A nil onEvent only
// advances the clock.
//
// Run returns ctx.Err() on shutdown and a *transport.Error on a feed fault.
func (l *Listener) Run(ctx context.Context, onEvent EventFunc) error {
	for {
		topic, payload, err := l.sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Error().Err(err).Msg("feed failed")
			return transport.Wrap("receive broadcast", err)
		}

		env, err := protocol.Decode(payload)
		if err != nil {
			l.log.Error().Err(err).Str("topic", topic).Msg("decode broadcast")
			continue
		}

		local := l.clock.Observe(env.Clock)
		l.log.Debug().
			Str("topic", topic).
			Str("service", env.Service).
			Int64("clock_remote", env.Clock).
			Int64("clock_local", local).
			Msg("broadcast received")

		if onEvent != nil {
			onEvent(topic, env)
		}
	}
}
