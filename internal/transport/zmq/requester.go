// Package zmq implements the transport interfaces over ZeroMQ: a REQ socket
// to the broker and a SUB socket to the proxy.
//
// zmq sockets are not safe for concurrent use. Both adapters guard their
// socket with a mutex and wait in short poll slices, so Close and filter
// changes from other goroutines are never blocked for long.
package zmq

import (
	"context"
	"sync"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/transport"
)

const DefaultPollInterval = 100 * time.Millisecond

// Options tunes both socket adapters.
type Options struct {
	// Linger is applied with SetLinger; 0 drops unsent messages on close.
	Linger time.Duration
	// PollInterval bounds a single wait on the socket.
	PollInterval time.Duration
	Logger       *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// Requester is a REQ socket connected to the broker.
type Requester struct {
	addr string
	opts Options
	log  *logger.Logger

	mu     sync.Mutex
	sock   *zmq.Socket
	poller *zmq.Poller
	closed bool
}

var _ transport.Requester = (*Requester)(nil)

func NewRequester(addr string, opts Options) (*Requester, error) {
	opts = opts.withDefaults()
	r := &Requester{
		addr: addr,
		opts: opts,
		log:  opts.Logger.Component("zmq.req"),
	}
	if err := r.connect(); err != nil {
		return nil, transport.Wrap("connect "+addr, err)
	}
	r.log.Info().Str("addr", addr).Msg("connected to broker")
	return r, nil
}

func (r *Requester) connect() error {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return err
	}
	if err := sock.SetLinger(r.opts.Linger); err != nil {
		sock.Close()
		return err
	}
	if err := sock.Connect(r.addr); err != nil {
		sock.Close()
		return err
	}
	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	r.sock = sock
	r.poller = poller
	return nil
}

func (r *Requester) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return transport.ErrClosed
	}
	_, err := r.sock.SendBytes(payload, 0)
	return err
}

func (r *Requester) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reply, ready, err := r.poll(ctx)
		if err != nil || ready {
			return reply, err
		}
	}
}

// poll waits one slice for a reply.
func (r *Requester) poll(ctx context.Context) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, transport.ErrClosed
	}

	polled, err := r.poller.Poll(slice(ctx, r.opts.PollInterval))
	if err != nil {
		return nil, false, err
	}
	if len(polled) == 0 {
		return nil, false, nil
	}
	reply, err := r.sock.RecvBytes(0)
	return reply, true, err
}

// Reset closes the socket and connects a fresh one, dropping any reply
// still in flight.
func (r *Requester) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return transport.ErrClosed
	}
	if err := r.sock.Close(); err != nil {
		r.log.Warn().Err(err).Msg("close stale socket")
	}
	if err := r.connect(); err != nil {
		r.closed = true
		return err
	}
	r.log.Info().Str("addr", r.addr).Msg("socket reset")
	return nil
}

func (r *Requester) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.sock.Close()
}

// slice returns the next poll timeout: the interval, shortened to the
// remaining time before ctx's deadline.
func slice(ctx context.Context, interval time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return interval
	}
	left := time.Until(deadline)
	if left <= 0 {
		return time.Millisecond
	}
	return min(left, interval)
}
