package zmq

import (
	"context"
	"sync"

	zmq "github.com/pebbe/zmq4"

	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/transport"
)

// Subscriber is a SUB socket connected to the proxy. Items arrive as
// two-frame messages: topic, payload.
type Subscriber struct {
	opts Options
	log  *logger.Logger

	mu     sync.Mutex
	sock   *zmq.Socket
	poller *zmq.Poller
	closed bool
}

var _ transport.Subscriber = (*Subscriber)(nil)

func NewSubscriber(addr string, opts Options) (*Subscriber, error) {
	opts = opts.withDefaults()
	sock, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, transport.Wrap("socket", err)
	}
	if err := sock.SetLinger(opts.Linger); err != nil {
		sock.Close()
		return nil, transport.Wrap("linger", err)
	}
	if err := sock.Connect(addr); err != nil {
		sock.Close()
		return nil, transport.Wrap("connect "+addr, err)
	}
	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	s := &Subscriber{
		opts:   opts,
		log:    opts.Logger.Component("zmq.sub"),
		sock:   sock,
		poller: poller,
	}
	s.log.Info().Str("addr", addr).Msg("connected to proxy")
	return s, nil
}

func (s *Subscriber) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	return s.sock.SetSubscribe(topic)
}

func (s *Subscriber) Unsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	return s.sock.SetUnsubscribe(topic)
}

// Receive returns the next well-formed item. Messages with fewer than two
// frames are logged and dropped.
func (s *Subscriber) Receive(ctx context.Context) (string, []byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		parts, err := s.poll(ctx)
		if err != nil {
			return "", nil, err
		}
		if parts == nil {
			continue
		}
		if len(parts) < 2 {
			s.log.Warn().Int("frames", len(parts)).Msg("malformed broadcast dropped")
			continue
		}
		return string(parts[0]), parts[1], nil
	}
}

func (s *Subscriber) poll(ctx context.Context) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, transport.ErrClosed
	}

	polled, err := s.poller.Poll(slice(ctx, s.opts.PollInterval))
	if err != nil {
		return nil, err
	}
	if len(polled) == 0 {
		return nil, nil
	}
	return s.sock.RecvMessageBytes(0)
}

func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sock.Close()
}
