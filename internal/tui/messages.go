package tui

import "github.com/deehdev/chatclient/internal/protocol"

type loginDoneMsg struct {
	user  string
	reply protocol.Envelope
	err   error
}

type channelsLoadedMsg struct {
	channels []string
	err      error
}

type publishDoneMsg struct {
	channel string
	text    string
	reply   protocol.Envelope
	err     error
}

// eventMsg carries one broadcast from the listener goroutine.
type eventMsg struct {
	topic string
	env   protocol.Envelope
}
