// Package transport declares the socket primitives the client consumes: a
// request/reply channel to the broker and a topic-filtered feed from the
// proxy.
package transport

//go:generate mockgen -source=interfaces.go -destination=../mock/transport_mock.go -package=mock

import "context"

// Requester is a strictly alternating request/reply channel. Send and
// Receive must be called in turn by a single goroutine.
type Requester interface {
	Send(payload []byte) error
	// Receive blocks until a reply arrives or ctx is done. On ctx expiry it
	// returns ctx.Err() and the reply, if any, is left unread.
	Receive(ctx context.Context) ([]byte, error)
	// Reset discards the current connection and any unread reply, and
	// reconnects.
	Reset() error
	Close() error
}

// TopicFilter adds and removes topic prefixes from the delivery filter.
type TopicFilter interface {
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Subscriber delivers broadcast items for every subscribed topic.
type Subscriber interface {
	TopicFilter
	// Receive blocks until the next (topic, payload) pair arrives or ctx is
	// done.
	Receive(ctx context.Context) (topic string, payload []byte, err error)
	Close() error
}
