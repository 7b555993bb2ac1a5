// Package protocol defines the envelopes exchanged with the broker and the
// proxy, and their MessagePack encoding.
package protocol

import (
	"time"
)

// StatusSuccess is the status value the broker sets on a successful reply.
const StatusSuccess = "sucesso"

// Envelope is the message format shared by requests, replies and broadcast
// events. Replies usually carry only Data and Clock; events carry Service,
// Data and Clock.
type Envelope struct {
	Service   string         `msgpack:"service,omitempty"`
	Data      map[string]any `msgpack:"data"`
	Timestamp string         `msgpack:"timestamp,omitempty"`
	Clock     int64          `msgpack:"clock"`
}

// NewRequest builds a request envelope stamped with clock and now.
func NewRequest(svc Service, data map[string]any, clock int64, now time.Time) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{
		Service:   svc.String(),
		Data:      data,
		Timestamp: FormatTimestamp(now),
		Clock:     clock,
	}
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// String returns Data[key] as a string. Missing keys and non-string values
// read as "".
func (e Envelope) String(key string) string {
	switch v := e.Data[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// StringList returns Data[key] as a list of strings, skipping elements that
// are not strings. A missing key reads as an empty list.
func (e Envelope) StringList(key string) []string {
	out := []string{}
	switch list := e.Data[key].(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case []byte:
				out = append(out, string(s))
			}
		}
	}
	return out
}

// Status returns data.status, or "" when absent.
func (e Envelope) Status() string {
	return e.String("status")
}

// Succeeded reports whether the reply carries the broker's success status.
func (e Envelope) Succeeded() bool {
	return e.Status() == StatusSuccess
}

// Failure returns the broker's error text, preferring description over
// message.
func (e Envelope) Failure() string {
	if d := e.String("description"); d != "" {
		return d
	}
	return e.String("message")
}
