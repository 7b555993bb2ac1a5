// Package tui is the panel front end: a chat pane, a system pane for
// server coordination notices, a channel list and an input line.
//
// The panel follows every topic. Typing "<channel> <text>" follows the
// channel if needed and publishes to it.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/deehdev/chatclient/internal/client"
	"github.com/deehdev/chatclient/internal/protocol"
)

// Chat is the part of *client.Client the panel uses.
type Chat interface {
	Login(ctx context.Context, user string) (protocol.Envelope, error)
	Channels(ctx context.Context) ([]string, error)
	Publish(ctx context.Context, channel, text string) (protocol.Envelope, error)
	SubscribeTopic(topic string) error
	SubscribeAll() error
	IsSubscribed(topic string) bool
}

var _ Chat = (*client.Client)(nil)

type Options struct {
	// User to log in as; a tui_<hex> name is generated when empty.
	User          string
	BrokerAddress string
	ProxyAddress  string
}

type TUI struct {
	program *tea.Program
}

func New(ctx context.Context, chat Chat, opts Options, progOpts ...tea.ProgramOption) *TUI {
	if opts.User == "" {
		opts.User = GenerateName()
	}
	progOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)
	return &TUI{
		program: tea.NewProgram(newModel(ctx, chat, opts), progOpts...),
	}
}

// GenerateName returns a fresh tui_<8 hex> identity.
func GenerateName() string {
	id := uuid.New()
	return fmt.Sprintf("tui_%x", id[:4])
}

// Run blocks until the user quits or ctx is done.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Event hands a broadcast to the panel. It is safe to call from any
// goroutine.
func (t *TUI) Event(topic string, env protocol.Envelope) {
	t.program.Send(eventMsg{topic: topic, env: env})
}

// Quit stops a running panel.
func (t *TUI) Quit() {
	t.program.Quit()
}
