// Package bot drives a client that chats on its own: it logs in, joins a
// channel and then alternates between channel posts and private messages
// at random intervals.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/deehdev/chatclient/internal/client"
	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/protocol"
)

// DefaultChannel is created when the broker reports no channels.
const DefaultChannel = "geral"

var Names = []string{
	"Ana", "Pedro", "Rafael", "Deise", "Camila", "Victor",
	"Paula", "Juliana", "Lucas", "Marcos", "Mateus", "João",
	"Carla", "Bruno", "Renata", "Sofia",
}

var Phrases = []string{
	"Alguém viu algum filme bom?",
	"Preciso de uma recomendação urgente.",
	"Esse mês saiu muito filme bom!",
	"Vocês preferem dublado ou legendado?",
	"Interstellar é perfeito.",
	"Quero algo leve!",
	"Alguém entendeu Tenet?",
	"Recomendações de terror psicológico?",
}

// Chat is the part of *client.Client the bot uses.
type Chat interface {
	Login(ctx context.Context, user string) (protocol.Envelope, error)
	Channels(ctx context.Context) ([]string, error)
	CreateChannel(ctx context.Context, name string) (protocol.Envelope, error)
	Subscribe(ctx context.Context, topic string) (protocol.Envelope, error)
	Publish(ctx context.Context, channel, text string) (protocol.Envelope, error)
	Message(ctx context.Context, dst, text string) (protocol.Envelope, error)
	IsSubscribed(topic string) bool
}

var _ Chat = (*client.Client)(nil)

// Rand is the randomness the bot draws on; *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
	Int64N(n int64) int64
}

type Options struct {
	// Name overrides the random pick from Names.
	Name         string
	MinDelay     time.Duration
	MaxDelay     time.Duration
	PrivateRatio float64
	Rand         Rand
	// Sleep waits d or until ctx is done.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *logger.Logger
}

type Bot struct {
	chat Chat
	opts Options
	log  *logger.Logger

	name    string
	channel string
}

func New(chat Chat, opts Options) *Bot {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	return &Bot{
		chat: chat,
		opts: opts,
		log:  opts.Logger.Component("bot"),
	}
}

// Name returns the identity the bot logged in with.
func (b *Bot) Name() string {
	return b.name
}

// Channel returns the channel the bot posts to.
func (b *Bot) Channel() string {
	return b.channel
}

// Run sets the bot up and then takes turns until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	for {
		b.Step(ctx)
		if err := b.opts.Sleep(ctx, b.delay()); err != nil {
			return err
		}
	}
}

// Start logs in, makes sure a channel exists and follows one.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.login(ctx); err != nil {
		return err
	}

	channels, err := b.chat.Channels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	if len(channels) == 0 {
		if _, err := b.chat.CreateChannel(ctx, DefaultChannel); err != nil {
			return fmt.Errorf("create channel %q: %w", DefaultChannel, err)
		}
		channels = []string{DefaultChannel}
	}

	b.channel = channels[b.opts.Rand.IntN(len(channels))]
	if _, err := b.chat.Subscribe(ctx, b.channel); err != nil {
		return fmt.Errorf("subscribe %q: %w", b.channel, err)
	}
	b.log.Info().Str("user", b.name).Str("channel", b.channel).Msg("bot ready")
	return nil
}

// login tries the configured or a random name, then once more with a
// unique suffix if the broker refuses it.
func (b *Bot) login(ctx context.Context) error {
	name := b.opts.Name
	if name == "" {
		name = Names[b.opts.Rand.IntN(len(Names))]
	}

	for _, candidate := range []string{name, name + "_" + uuid.NewString()[:4]} {
		reply, err := b.chat.Login(ctx, candidate)
		if err != nil {
			return fmt.Errorf("login %q: %w", candidate, err)
		}
		if reply.Succeeded() {
			b.name = candidate
			return nil
		}
		b.log.Warn().Str("user", candidate).Str("reason", reply.Failure()).Msg("login refused")
	}
	return errors.New("login refused for every candidate name")
}

// Step takes one turn. Failures are logged and never stop the bot.
func (b *Bot) Step(ctx context.Context) {
	text := Phrases[b.opts.Rand.IntN(len(Phrases))]

	if b.opts.Rand.Float64() < b.opts.PrivateRatio {
		dst := b.pickPeer()
		if _, err := b.chat.Message(ctx, dst, text); err != nil {
			b.log.Warn().Err(err).Str("dst", dst).Msg("private message failed")
			return
		}
		b.log.Info().Str("dst", dst).Str("message", text).Msg("private message sent")
		return
	}

	if !b.chat.IsSubscribed(b.channel) {
		b.log.Warn().Str("channel", b.channel).Msg("not subscribed, skipping post")
		return
	}
	if _, err := b.chat.Publish(ctx, b.channel, text); err != nil {
		b.log.Warn().Err(err).Str("channel", b.channel).Msg("publish failed")
		return
	}
	b.log.Info().Str("channel", b.channel).Str("message", text).Msg("published")
}

func (b *Bot) pickPeer() string {
	peers := make([]string, 0, len(Names))
	for _, n := range Names {
		if n != b.name {
			peers = append(peers, n)
		}
	}
	return peers[b.opts.Rand.IntN(len(peers))]
}

func (b *Bot) delay() time.Duration {
	span := b.opts.MaxDelay - b.opts.MinDelay
	if span <= 0 {
		return b.opts.MinDelay
	}
	return b.opts.MinDelay + time.Duration(b.opts.Rand.Int64N(int64(span)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
