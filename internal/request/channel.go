// Package request implements the single-flight request/reply channel to the
// broker.
//
// Only one call may be outstanding at a time: the underlying REQ socket
// alternates strictly between send and receive. A concurrent call fails
// with ErrBusy instead of queueing. When a reply does not arrive in time
// the socket is reset, so a late reply can never be paired with a later
// request.
package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deehdev/chatclient/internal/clock"
	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/protocol"
	"github.com/deehdev/chatclient/internal/session"
	"github.com/deehdev/chatclient/internal/subscription"
	"github.com/deehdev/chatclient/internal/transport"
)

// DefaultTimeout bounds the wait for a reply.
const DefaultTimeout = 5 * time.Second

var (
	// ErrBusy is returned when another call is still in flight.
	ErrBusy = errors.New("request already in flight")
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("request timed out")
)

// TimeoutError reports a call whose reply did not arrive within the bound.
type TimeoutError struct {
	Service protocol.Service
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no reply within %s", e.Service, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Options configures a Channel. Requester, Clock, Session and Registry are
// required.
type Options struct {
	Requester transport.Requester
	Clock     *clock.Lamport
	Session   *session.State
	Registry  *subscription.Registry
	Timeout   time.Duration
	Logger    *logger.Logger
	// Now stamps request timestamps; defaults to time.Now.
	Now func() time.Time
}

// Channel sends requests to the broker one at a time.
type Channel struct {
	req      transport.Requester
	clock    *clock.Lamport
	session  *session.State
	registry *subscription.Registry
	timeout  time.Duration
	log      *logger.Logger
	now      func() time.Time

	// token holds one value while a call owns the socket.
	token chan struct{}
}

func New(opts Options) *Channel {
	c := &Channel{
		req:      opts.Requester,
		clock:    opts.Clock,
		session:  opts.Session,
		registry: opts.Registry,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		now:      opts.Now,
		token:    make(chan struct{}, 1),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	c.log = c.log.Component("request")
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Channel) acquire() bool {
	select {
	case c.token <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Channel) release() {
	<-c.token
}

// Call sends svc with data and waits for the reply.
//
// Errors: ErrBusy, *TimeoutError (errors.Is ErrTimeout), *protocol.CodecError,
// *transport.Error, or ctx.Err() when ctx ends first. A login reply carrying
// the success status also establishes the session identity and subscribes
// to its private topic; if that subscription fails the reply is returned
// together with the error.
func (c *Channel) Call(ctx context.Context, svc protocol.Service, data map[string]any) (protocol.Envelope, error) {
	if !svc.Valid() {
		return protocol.Envelope{}, fmt.Errorf("call: invalid %s", svc)
	}
	if !c.acquire() {
		return protocol.Envelope{}, ErrBusy
	}
	defer c.release()

	env := protocol.NewRequest(svc, data, c.clock.Tick(), c.now())
	log := c.log.With().
		Str("service", env.Service).
		Str("trace_id", uuid.NewString()).
		Logger()

	raw, err := protocol.Encode(env)
	if err != nil {
		return protocol.Envelope{}, err
	}
	if err := c.req.Send(raw); err != nil {
		return protocol.Envelope{}, transport.Wrap("send", err)
	}
	log.Debug().Int64("clock", env.Clock).Msg("request sent")

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	replyRaw, err := c.req.Receive(waitCtx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case waitCtx.Err() != nil:
			err = &TimeoutError{Service: svc, After: c.timeout}
			log.Warn().Dur("after", c.timeout).Msg("no reply, resetting socket")
		default:
			err = transport.Wrap("receive", err)
		}
		if resetErr := c.req.Reset(); resetErr != nil {
			log.Error().Err(resetErr).Msg("socket reset failed")
			err = errors.Join(err, transport.Wrap("reset", resetErr))
		}
		return protocol.Envelope{}, err
	}

	reply, err := protocol.Decode(replyRaw)
	if err != nil {
		log.Error().Err(err).Msg("decode reply")
		return protocol.Envelope{}, err
	}
	local := c.clock.Observe(reply.Clock)
	log.Debug().
		Int64("clock_remote", reply.Clock).
		Int64("clock_local", local).
		Str("status", reply.Status()).
		Msg("reply received")

	switch svc {
	case protocol.ServiceLogin:
		if err := c.afterLogin(env, reply); err != nil {
			return reply, err
		}
	case protocol.ServiceUsers, protocol.ServiceChannels, protocol.ServiceChannel,
		protocol.ServicePublish, protocol.ServiceMessage,
		protocol.ServiceSubscribe, protocol.ServiceUnsubscribe:
	}
	return reply, nil
}

func (c *Channel) afterLogin(req, reply protocol.Envelope) error {
	if !reply.Succeeded() {
		return nil
	}
	user := req.String("user")
	if user == "" {
		return nil
	}
	if err := c.session.SetCurrentUser(user); err != nil {
		c.log.Warn().Err(err).Str("user", user).Msg("login reply ignored")
		return nil
	}
	if err := c.registry.Subscribe(user); err != nil {
		return fmt.Errorf("subscribe private topic %q: %w", user, err)
	}
	return nil
}
