// Package zmqtest runs a miniature broker and proxy on loopback TCP for
// tests: a ROUTER/DEALER broker in front of one REP worker, and an
// XSUB/XPUB proxy fed by a PUB socket.
package zmqtest

import (
	"sync"
	"testing"

	zmq "github.com/pebbe/zmq4"

	"github.com/deehdev/chatclient/internal/protocol"
)

// Handler answers one request. Returning ok=false sends a raw reply
// instead, taken from raw.
type Handler func(req protocol.Envelope) (reply protocol.Envelope, raw []byte, ok bool)

// Broker forwards REQ traffic on Addr to a worker running Handler.
type Broker struct {
	Addr string

	mu       sync.Mutex
	requests []protocol.Envelope
}

// Requests returns every request the worker decoded, in order.
func (b *Broker) Requests() []protocol.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]protocol.Envelope(nil), b.requests...)
}

// StartBroker binds a ROUTER frontend and a DEALER backend, proxies
// between them and serves requests with h. Everything stops at test
// cleanup.
func StartBroker(t testing.TB, h Handler) *Broker {
	t.Helper()

	ctx := newContext(t)
	frontend := bind(t, ctx, zmq.ROUTER)
	backend := bind(t, ctx, zmq.DEALER)

	worker, err := ctx.NewSocket(zmq.REP)
	if err != nil {
		t.Fatalf("worker socket: %v", err)
	}
	worker.SetLinger(0)
	if err := worker.Connect(endpoint(t, backend)); err != nil {
		t.Fatalf("worker connect: %v", err)
	}

	b := &Broker{Addr: endpoint(t, frontend)}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer frontend.Close()
		defer backend.Close()
		zmq.Proxy(frontend, backend, nil)
	}()
	go func() {
		defer wg.Done()
		defer worker.Close()
		b.serve(worker, h)
	}()

	t.Cleanup(func() {
		ctx.Term()
		wg.Wait()
	})
	return b
}

func (b *Broker) serve(worker *zmq.Socket, h Handler) {
	for {
		msg, err := worker.RecvBytes(0)
		if err != nil {
			return
		}

		req, err := protocol.Decode(msg)
		var out []byte
		if err != nil {
			out = msg
		} else {
			b.mu.Lock()
			b.requests = append(b.requests, req)
			b.mu.Unlock()

			reply, raw, ok := h(req)
			if ok {
				out, err = protocol.Encode(reply)
				if err != nil {
					out = []byte{}
				}
			} else {
				out = raw
			}
		}

		if _, err := worker.SendBytes(out, 0); err != nil {
			return
		}
	}
}

func newContext(t testing.TB) *zmq.Context {
	t.Helper()
	ctx, err := zmq.NewContext()
	if err != nil {
		t.Fatalf("zmq context: %v", err)
	}
	return ctx
}

func bind(t testing.TB, ctx *zmq.Context, kind zmq.Type) *zmq.Socket {
	t.Helper()
	sock, err := ctx.NewSocket(kind)
	if err != nil {
		t.Fatalf("%s socket: %v", kind, err)
	}
	sock.SetLinger(0)
	if err := sock.Bind("tcp://127.0.0.1:*"); err != nil {
		t.Fatalf("%s bind: %v", kind, err)
	}
	return sock
}

func endpoint(t testing.TB, sock *zmq.Socket) string {
	t.Helper()
	addr, err := sock.GetLastEndpoint()
	if err != nil {
		t.Fatalf("last endpoint: %v", err)
	}
	return addr
}
