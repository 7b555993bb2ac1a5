package tui

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deehdev/chatclient/internal/protocol"
)

type fakeChat struct {
	subscribed map[string]bool
	loginReply protocol.Envelope
	channels   []string
	published  []string
	subErr     error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		subscribed: map[string]bool{},
		loginReply: protocol.Envelope{Data: map[string]any{"status": protocol.StatusSuccess}},
	}
}

func (f *fakeChat) Login(context.Context, string) (protocol.Envelope, error) {
	return f.loginReply, nil
}

func (f *fakeChat) Channels(context.Context) ([]string, error) { return f.channels, nil }

func (f *fakeChat) Publish(_ context.Context, channel, text string) (protocol.Envelope, error) {
	f.published = append(f.published, channel+":"+text)
	return protocol.Envelope{Data: map[string]any{"status": protocol.StatusSuccess}}, nil
}

func (f *fakeChat) SubscribeTopic(topic string) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.subscribed[topic] = true
	return nil
}

func (f *fakeChat) SubscribeAll() error {
	f.subscribed[""] = true
	return nil
}

func (f *fakeChat) IsSubscribed(topic string) bool { return f.subscribed[topic] }

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func loggedIn(t *testing.T, chat *fakeChat) model {
	t.Helper()
	m := newModel(context.Background(), chat, Options{User: "tui_cafe0001", BrokerAddress: "tcp://b:1", ProxyAddress: "tcp://p:2"})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	msg := m.cmdLogin()()
	m, cmd := update(t, m, msg)
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func TestLoginFlow(t *testing.T) {
	chat := newFakeChat()
	chat.channels = []string{"jogos", "geral"}

	m := loggedIn(t, chat)

	assert.Equal(t, "tui_cafe0001", m.user)
	assert.True(t, chat.subscribed[""])
	assert.Equal(t, []string{"geral", "jogos"}, m.channels)
	view := plain(m.View())
	assert.Contains(t, view, "logged in as tui_cafe0001")
	assert.Contains(t, view, "tcp://b:1")
}

func TestLoginRefused(t *testing.T) {
	chat := newFakeChat()
	chat.loginReply = protocol.Envelope{Data: map[string]any{"status": "erro", "description": "taken"}}

	m := newModel(context.Background(), chat, Options{User: "bob"})
	m, cmd := update(t, m, m.cmdLogin()())
	assert.Nil(t, cmd)
	assert.Empty(t, m.user)
	assert.Contains(t, strings.Join(m.messages, "\n"), "taken")
}

func TestSubmit_SubscribesAndPublishes(t *testing.T) {
	chat := newFakeChat()
	m := loggedIn(t, chat)

	m.input.SetValue("filmes alguém viu Tenet?")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, chat.subscribed["filmes"])
	assert.Empty(t, m.input.Value())

	m, _ = update(t, m, cmd())
	assert.Equal(t, []string{"filmes:alguém viu Tenet?"}, chat.published)
	assert.Contains(t, m.channels, "filmes")
	assert.Contains(t, plain(strings.Join(m.messages, "\n")), "(filmes) tui_cafe0001: alguém viu Tenet?")
}

func TestSubmit_Usage(t *testing.T) {
	chat := newFakeChat()
	m := loggedIn(t, chat)

	m.input.SetValue("filmes")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, chat.published)
	assert.Contains(t, strings.Join(m.messages, "\n"), "usage")
}

func TestSubmit_SubscribeFailure(t *testing.T) {
	chat := newFakeChat()
	chat.subErr = errors.New("socket closed")
	m := loggedIn(t, chat)

	m.input.SetValue("filmes oi")
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, chat.published)
}

func TestEvents(t *testing.T) {
	m := loggedIn(t, newFakeChat())

	m, _ = update(t, m, eventMsg{topic: TopicServers, env: protocol.Envelope{Data: map[string]any{"coordinator": "server-2"}}})
	m, _ = update(t, m, eventMsg{topic: TopicReplicate, env: protocol.Envelope{Data: map[string]any{"op": "publish"}}})
	m, _ = update(t, m, eventMsg{topic: "geral", env: protocol.Envelope{
		Service: "publish",
		Data:    map[string]any{"user": "bob", "channel": "geral", "message": "oi"},
	}})
	m, _ = update(t, m, eventMsg{topic: "tui_cafe0001", env: protocol.Envelope{
		Service: "message",
		Data:    map[string]any{"src": "bob", "message": "psst"},
	}})

	assert.Contains(t, m.system, "coordinator → server-2")
	assert.Contains(t, m.channels, "geral")

	log := plain(strings.Join(m.messages, "\n"))
	assert.Contains(t, log, "REP: map[op:publish]")
	assert.Contains(t, log, "[geral] bob: oi")
	assert.Contains(t, log, "[dm] bob: psst")
}

func TestQuitKey(t *testing.T) {
	m := newModel(context.Background(), newFakeChat(), Options{User: "x"})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestGenerateName(t *testing.T) {
	assert.Regexp(t, `^tui_[0-9a-f]{8}$`, GenerateName())
}
