package zmqtest

import (
	"sync"
	"testing"

	zmq "github.com/pebbe/zmq4"

	"github.com/deehdev/chatclient/internal/protocol"
)

// Proxy relays whatever is published on its XSUB side to subscribers of
// Addr.
type Proxy struct {
	Addr string

	mu  sync.Mutex
	pub *zmq.Socket
}

// StartProxy binds an XSUB/XPUB pair and a PUB socket feeding it.
func StartProxy(t testing.TB) *Proxy {
	t.Helper()

	ctx := newContext(t)
	xsub := bind(t, ctx, zmq.XSUB)
	xpub := bind(t, ctx, zmq.XPUB)

	pub, err := ctx.NewSocket(zmq.PUB)
	if err != nil {
		t.Fatalf("pub socket: %v", err)
	}
	pub.SetLinger(0)
	if err := pub.Connect(endpoint(t, xsub)); err != nil {
		t.Fatalf("pub connect: %v", err)
	}

	p := &Proxy{Addr: endpoint(t, xpub), pub: pub}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer xsub.Close()
		defer xpub.Close()
		zmq.Proxy(xsub, xpub, nil)
	}()

	t.Cleanup(func() {
		p.mu.Lock()
		pub.Close()
		p.mu.Unlock()
		ctx.Term()
		<-done
	})
	return p
}

// Publish sends one envelope under topic.
func (p *Proxy) Publish(topic string, env protocol.Envelope) error {
	raw, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	return p.PublishRaw(topic, raw)
}

// PublishRaw sends arbitrary frames; the first is the topic.
func (p *Proxy) PublishRaw(frames ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.pub.SendMessage(frames...)
	return err
}
