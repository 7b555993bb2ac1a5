package zmq

import (
	"context"
	"errors"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deehdev/chatclient/internal/protocol"
	"github.com/deehdev/chatclient/internal/transport"
	"github.com/deehdev/chatclient/internal/transport/zmq/zmqtest"
)

var testOpts = Options{PollInterval: 10 * time.Millisecond}

func TestRequester_RoundTripThroughBroker(t *testing.T) {
	broker := zmqtest.StartBroker(t, func(req protocol.Envelope) (protocol.Envelope, []byte, bool) {
		return protocol.Envelope{
			Service: req.Service,
			Data:    map[string]any{"status": "sucesso", "users": []any{"alice", "bob"}},
			Clock:   req.Clock + 10,
		}, nil, true
	})

	r, err := NewRequester(broker.Addr, testOpts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	raw, err := protocol.Encode(protocol.Envelope{Service: "users", Data: map[string]any{}, Clock: 1})
	require.NoError(t, err)
	require.NoError(t, r.Send(raw))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	replyRaw, err := r.Receive(ctx)
	require.NoError(t, err)

	reply, err := protocol.Decode(replyRaw)
	require.NoError(t, err)
	assert.Equal(t, int64(11), reply.Clock)
	assert.Equal(t, []string{"alice", "bob"}, reply.StringList("users"))

	reqs := broker.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "users", reqs[0].Service)
}

// A peer that answers late must not leak its reply into the next
// exchange once the socket has been reset.
func TestRequester_ResetDropsLateReply(t *testing.T) {
	rep, err := zmq.NewSocket(zmq.REP)
	require.NoError(t, err)
	rep.SetLinger(0)
	require.NoError(t, rep.Bind("tcp://127.0.0.1:*"))
	addr, err := rep.GetLastEndpoint()
	require.NoError(t, err)

	resetDone := make(chan struct{})
	peerDone := make(chan error, 1)
	go func() {
		defer rep.Close()
		if _, err := rep.RecvBytes(0); err != nil {
			peerDone <- err
			return
		}
		<-resetDone
		if _, err := rep.SendBytes([]byte("late"), 0); err != nil {
			peerDone <- err
			return
		}
		if _, err := rep.RecvBytes(0); err != nil {
			peerDone <- err
			return
		}
		_, err := rep.SendBytes([]byte("fresh"), 0)
		peerDone <- err
	}()

	r, err := NewRequester(addr, testOpts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	require.NoError(t, r.Send([]byte("first")))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err = r.Receive(ctx)
	cancel()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, r.Reset())
	close(resetDone)

	require.NoError(t, r.Send([]byte("second")))
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := r.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(reply))
	require.NoError(t, <-peerDone)
}

func TestRequester_Closed(t *testing.T) {
	r, err := NewRequester("tcp://127.0.0.1:1", testOpts)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Send([]byte("x")), transport.ErrClosed)
	_, err = r.Receive(context.Background())
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.ErrorIs(t, r.Reset(), transport.ErrClosed)
}

func TestNewRequester_BadAddress(t *testing.T) {
	_, err := NewRequester("not-an-endpoint", testOpts)
	var te *transport.Error
	assert.True(t, errors.As(err, &te))
}

// receiveUntil republishes until the subscriber sees an item, which covers
// the delay before a new subscription reaches the publisher.
func receiveUntil(t *testing.T, s *Subscriber, publish func() error) (string, []byte) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, publish())
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		topic, payload, err := s.Receive(ctx)
		cancel()
		if err == nil {
			return topic, payload
		}
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	t.Fatal("no broadcast received")
	return "", nil
}

func TestSubscriber_FiltersByTopicPrefix(t *testing.T) {
	proxy := zmqtest.StartProxy(t)

	s, err := NewSubscriber(proxy.Addr, testOpts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Subscribe("geral"))

	topic, payload := receiveUntil(t, s, func() error {
		if err := proxy.Publish("jogos", protocol.Envelope{Service: "publish", Clock: 1}); err != nil {
			return err
		}
		return proxy.Publish("geral", protocol.Envelope{
			Service: "publish",
			Data:    map[string]any{"user": "bob", "message": "oi"},
			Clock:   7,
		})
	})
	assert.Equal(t, "geral", topic)

	env, err := protocol.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "oi", env.String("message"))
	assert.Equal(t, int64(7), env.Clock)
}

func TestSubscriber_DropsSingleFrameMessages(t *testing.T) {
	proxy := zmqtest.StartProxy(t)

	s, err := NewSubscriber(proxy.Addr, testOpts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Subscribe(""))

	topic, _ := receiveUntil(t, s, func() error {
		if err := proxy.PublishRaw("orphan"); err != nil {
			return err
		}
		return proxy.PublishRaw("servers", []byte{0x80})
	})
	assert.Equal(t, "servers", topic)
}

func TestSubscriber_ReceiveHonorsContext(t *testing.T) {
	proxy := zmqtest.StartProxy(t)
	s, err := NewSubscriber(proxy.Addr, testOpts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, _, err = s.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Subscribe("x"), transport.ErrClosed)
	_, _, err = s.Receive(context.Background())
	assert.ErrorIs(t, err, transport.ErrClosed)
}
