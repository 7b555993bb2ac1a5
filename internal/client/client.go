// Package client is the surface the chat front ends drive: typed helpers
// for every broker service, topic management and the broadcast loop, all
// sharing one logical clock and one session identity.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deehdev/chatclient/internal/clock"
	"github.com/deehdev/chatclient/internal/config"
	"github.com/deehdev/chatclient/internal/listener"
	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/protocol"
	"github.com/deehdev/chatclient/internal/request"
	"github.com/deehdev/chatclient/internal/session"
	"github.com/deehdev/chatclient/internal/subscription"
	"github.com/deehdev/chatclient/internal/transport"
	zmqtransport "github.com/deehdev/chatclient/internal/transport/zmq"
)

var (
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyLoggedIn = errors.New("already logged in")
	ErrNotSubscribed   = errors.New("not subscribed to channel")
	ErrEmptyArgument   = errors.New("empty argument")
)

type Options struct {
	Requester  transport.Requester
	Subscriber transport.Subscriber
	// Timeout bounds each request; request.DefaultTimeout when zero.
	Timeout time.Duration
	// RequireSubscription makes Publish refuse channels the client does
	// not follow.
	RequireSubscription bool
	Logger              *logger.Logger
	Now                 func() time.Time
}

type Client struct {
	req        transport.Requester
	sub        transport.Subscriber
	clock      *clock.Lamport
	session    *session.State
	registry   *subscription.Registry
	channel    *request.Channel
	listener   *listener.Listener
	requireSub bool
}

func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		req:        opts.Requester,
		sub:        opts.Subscriber,
		clock:      clock.New(),
		session:    session.New(),
		requireSub: opts.RequireSubscription,
	}
	c.registry = subscription.New(opts.Subscriber, log)
	c.channel = request.New(request.Options{
		Requester: opts.Requester,
		Clock:     c.clock,
		Session:   c.session,
		Registry:  c.registry,
		Timeout:   opts.Timeout,
		Logger:    log,
		Now:       opts.Now,
	})
	c.listener = listener.New(opts.Subscriber, c.clock, log)
	return c
}

// Dial connects both sockets described by cfg.
func Dial(cfg *config.Config, log *logger.Logger) (*Client, error) {
	opts := zmqtransport.Options{
		Linger:       cfg.Transport.Linger,
		PollInterval: cfg.Transport.PollInterval,
		Logger:       log,
	}

	req, err := zmqtransport.NewRequester(cfg.Transport.BrokerAddress, opts)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	sub, err := zmqtransport.NewSubscriber(cfg.Transport.ProxyAddress, opts)
	if err != nil {
		req.Close()
		return nil, fmt.Errorf("dial proxy: %w", err)
	}

	return New(Options{
		Requester:           req,
		Subscriber:          sub,
		Timeout:             cfg.Transport.RequestTimeout,
		RequireSubscription: cfg.Session.RequireSubscription,
		Logger:              log,
	}), nil
}

// Call sends any service with raw data. Most callers want the typed
// helpers below.
func (c *Client) Call(ctx context.Context, svc protocol.Service, data map[string]any) (protocol.Envelope, error) {
	return c.channel.Call(ctx, svc, data)
}

// Login asks the broker to register user. A successful reply makes user
// the session identity and subscribes its private topic.
func (c *Client) Login(ctx context.Context, user string) (protocol.Envelope, error) {
	if user == "" {
		return protocol.Envelope{}, fmt.Errorf("login: %w: user", ErrEmptyArgument)
	}
	if current, ok := c.session.CurrentUser(); ok {
		return protocol.Envelope{}, fmt.Errorf("login as %q: %w as %q", user, ErrAlreadyLoggedIn, current)
	}
	return c.channel.Call(ctx, protocol.ServiceLogin, map[string]any{"user": user})
}

func (c *Client) Users(ctx context.Context) ([]string, error) {
	reply, err := c.channel.Call(ctx, protocol.ServiceUsers, nil)
	if err != nil {
		return nil, err
	}
	return reply.StringList("users"), nil
}

func (c *Client) Channels(ctx context.Context) ([]string, error) {
	reply, err := c.channel.Call(ctx, protocol.ServiceChannels, nil)
	if err != nil {
		return nil, err
	}
	return reply.StringList("channels"), nil
}

func (c *Client) CreateChannel(ctx context.Context, name string) (protocol.Envelope, error) {
	if name == "" {
		return protocol.Envelope{}, fmt.Errorf("channel: %w: name", ErrEmptyArgument)
	}
	return c.channel.Call(ctx, protocol.ServiceChannel, map[string]any{"channel": name})
}

// Publish posts text to channel as the current user.
func (c *Client) Publish(ctx context.Context, channel, text string) (protocol.Envelope, error) {
	user, err := c.requireUser()
	if err != nil {
		return protocol.Envelope{}, err
	}
	if channel == "" {
		return protocol.Envelope{}, fmt.Errorf("publish: %w: channel", ErrEmptyArgument)
	}
	if c.requireSub && !c.follows(channel) {
		return protocol.Envelope{}, fmt.Errorf("publish to %q: %w", channel, ErrNotSubscribed)
	}
	return c.channel.Call(ctx, protocol.ServicePublish, map[string]any{
		"user":    user,
		"channel": channel,
		"message": text,
	})
}

// Message sends text privately to dst.
func (c *Client) Message(ctx context.Context, dst, text string) (protocol.Envelope, error) {
	user, err := c.requireUser()
	if err != nil {
		return protocol.Envelope{}, err
	}
	if dst == "" {
		return protocol.Envelope{}, fmt.Errorf("message: %w: destination", ErrEmptyArgument)
	}
	return c.channel.Call(ctx, protocol.ServiceMessage, map[string]any{
		"src":     user,
		"dst":     dst,
		"message": text,
	})
}

// Subscribe starts receiving topic locally, then tells the broker. On
// ErrBusy the local change is undone. After a timeout or transport error the
// local filter stays changed, since the broker may have applied the request.
func (c *Client) Subscribe(ctx context.Context, topic string) (protocol.Envelope, error) {
	user, err := c.requireUser()
	if err != nil {
		return protocol.Envelope{}, err
	}
	if topic == "" {
		return protocol.Envelope{}, fmt.Errorf("subscribe: %w: topic", ErrEmptyArgument)
	}
	had := c.registry.IsSubscribed(topic)
	if err := c.registry.Subscribe(topic); err != nil {
		return protocol.Envelope{}, err
	}
	reply, err := c.channel.Call(ctx, protocol.ServiceSubscribe, map[string]any{"user": user, "topic": topic})
	if errors.Is(err, request.ErrBusy) && !had {
		if undoErr := c.registry.Unsubscribe(topic); undoErr != nil {
			err = errors.Join(err, undoErr)
		}
	}
	return reply, err
}

// Unsubscribe stops receiving topic locally, then tells the broker. It
// undoes the local change on the same terms as Subscribe.
func (c *Client) Unsubscribe(ctx context.Context, topic string) (protocol.Envelope, error) {
	user, err := c.requireUser()
	if err != nil {
		return protocol.Envelope{}, err
	}
	if topic == "" {
		return protocol.Envelope{}, fmt.Errorf("unsubscribe: %w: topic", ErrEmptyArgument)
	}
	had := c.registry.IsSubscribed(topic)
	if err := c.registry.Unsubscribe(topic); err != nil {
		return protocol.Envelope{}, err
	}
	reply, err := c.channel.Call(ctx, protocol.ServiceUnsubscribe, map[string]any{"user": user, "topic": topic})
	if errors.Is(err, request.ErrBusy) && had {
		if undoErr := c.registry.Subscribe(topic); undoErr != nil {
			err = errors.Join(err, undoErr)
		}
	}
	return reply, err
}

// SubscribeTopic changes only the local filter, without informing the
// broker.
func (c *Client) SubscribeTopic(topic string) error {
	return c.registry.Subscribe(topic)
}

// SubscribeAll receives every topic the proxy relays.
func (c *Client) SubscribeAll() error {
	return c.registry.Subscribe(subscription.Wildcard)
}

func (c *Client) IsSubscribed(topic string) bool {
	return c.registry.IsSubscribed(topic)
}

func (c *Client) Topics() []string {
	return c.registry.Topics()
}

func (c *Client) CurrentUser() (string, bool) {
	return c.session.CurrentUser()
}

// Clock returns the current logical clock value.
func (c *Client) Clock() int64 {
	return c.clock.Value()
}

// Run blocks delivering broadcasts to onEvent until ctx is done or the
// feed fails.
func (c *Client) Run(ctx context.Context, onEvent listener.EventFunc) error {
	return c.listener.Run(ctx, onEvent)
}

// Close releases both sockets. A Run still in progress then fails with
// transport.ErrClosed.
func (c *Client) Close() error {
	return errors.Join(c.req.Close(), c.sub.Close())
}

func (c *Client) requireUser() (string, error) {
	user, ok := c.session.CurrentUser()
	if !ok {
		return "", ErrNotLoggedIn
	}
	return user, nil
}

func (c *Client) follows(channel string) bool {
	return c.registry.IsSubscribed(channel) || c.registry.IsSubscribed(subscription.Wildcard)
}
