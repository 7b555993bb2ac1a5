// Package subscription tracks the topics the client receives from the proxy
// and keeps the transport filter in step with that set.
package subscription

import (
	"sort"
	"sync"

	"github.com/deehdev/chatclient/internal/logger"
	"github.com/deehdev/chatclient/internal/transport"
)

// Wildcard is the empty prefix, which matches every topic.
const Wildcard = ""

// Registry is a set of topics. The transport filter is called once per
// actual change; re-subscribing or unsubscribing an absent topic does not
// reach the transport.
type Registry struct {
	filter transport.TopicFilter
	log    *logger.Logger

	mu     sync.Mutex
	topics map[string]struct{}
}

func New(filter transport.TopicFilter, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		filter: filter,
		log:    log.Component("subscription"),
		topics: make(map[string]struct{}),
	}
}

// Subscribe adds topic. If the transport rejects the filter change the set
// is left as it was.
func (r *Registry) Subscribe(topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[topic]; ok {
		return nil
	}
	if err := r.filter.Subscribe(topic); err != nil {
		return transport.Wrap("subscribe", err)
	}
	r.topics[topic] = struct{}{}
	r.log.Debug().Str("topic", topic).Msg("subscribed")
	return nil
}

// Unsubscribe removes topic.
func (r *Registry) Unsubscribe(topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[topic]; !ok {
		return nil
	}
	if err := r.filter.Unsubscribe(topic); err != nil {
		return transport.Wrap("unsubscribe", err)
	}
	delete(r.topics, topic)
	r.log.Debug().Str("topic", topic).Msg("unsubscribed")
	return nil
}

func (r *Registry) IsSubscribed(topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.topics[topic]
	return ok
}

// Topics returns the subscribed topics in sorted order.
func (r *Registry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
