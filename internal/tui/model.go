package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/deehdev/chatclient/internal/protocol"
)

// Topics the servers use among themselves; the panel shows them in the
// system pane rather than as chat.
const (
	TopicServers   = "servers"
	TopicReplicate = "replicate"
)

const (
	sidebarWidth = 32
	systemLines  = 8
	maxMessages  = 500
)

type model struct {
	ctx  context.Context
	chat Chat
	opts Options

	user     string
	messages []string
	system   []string
	channels []string

	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int
}

func newModel(ctx context.Context, chat Chat, opts Options) model {
	in := textinput.New()
	in.Placeholder = "<channel> <message>"
	in.Prompt = "> "
	in.Focus()

	m := model{
		ctx:      ctx,
		chat:     chat,
		opts:     opts,
		viewport: viewport.New(80, 20),
		input:    in,
	}
	m.addSystem(fmt.Sprintf("broker %s", opts.BrokerAddress))
	m.addSystem(fmt.Sprintf("proxy %s", opts.ProxyAddress))
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.cmdLogin())
}

func (m model) cmdLogin() tea.Cmd {
	user := m.opts.User
	return func() tea.Msg {
		if err := m.chat.SubscribeAll(); err != nil {
			return loginDoneMsg{user: user, err: fmt.Errorf("subscribe all: %w", err)}
		}
		reply, err := m.chat.Login(m.ctx, user)
		return loginDoneMsg{user: user, reply: reply, err: err}
	}
}

func (m model) cmdLoadChannels() tea.Cmd {
	return func() tea.Msg {
		channels, err := m.chat.Channels(m.ctx)
		return channelsLoadedMsg{channels: channels, err: err}
	}
}

func (m model) cmdPublish(channel, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.chat.Publish(m.ctx, channel, text)
		return publishDoneMsg{channel: channel, text: text, reply: reply, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.quit):
			return m, tea.Quit
		case key.Matches(msg, keys.enter):
			return m.submit()
		}

	case loginDoneMsg:
		if msg.err != nil {
			m.addError(fmt.Sprintf("login as %s: %v", msg.user, msg.err))
			return m, nil
		}
		if !msg.reply.Succeeded() {
			m.addError(fmt.Sprintf("login as %s refused: %s", msg.user, msg.reply.Failure()))
			return m, nil
		}
		m.user = msg.user
		m.addMessage(systemStyle.Render("logged in as " + msg.user))
		return m, m.cmdLoadChannels()

	case channelsLoadedMsg:
		if msg.err != nil {
			m.addError(fmt.Sprintf("channels: %v", msg.err))
			return m, nil
		}
		for _, ch := range msg.channels {
			m.addChannel(ch)
		}
		return m, nil

	case publishDoneMsg:
		if msg.err != nil {
			m.addError(fmt.Sprintf("publish to %s: %v", msg.channel, msg.err))
			return m, nil
		}
		if !msg.reply.Succeeded() {
			m.addError(fmt.Sprintf("publish to %s refused: %s", msg.channel, msg.reply.Failure()))
			return m, nil
		}
		m.addChannel(msg.channel)
		m.addMessage(selfStyle.Render(fmt.Sprintf("(%s) %s: %s", msg.channel, m.user, msg.text)))
		return m, nil

	case eventMsg:
		m.handleEvent(msg.topic, msg.env)
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit publishes "<channel> <text>", following the channel first.
func (m model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	channel, text, _ := strings.Cut(line, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		m.addError("usage: <channel> <message>")
		return m, nil
	}
	if m.user == "" {
		m.addError("not logged in yet")
		return m, nil
	}

	if !m.chat.IsSubscribed(channel) {
		if err := m.chat.SubscribeTopic(channel); err != nil {
			m.addError(fmt.Sprintf("subscribe %s: %v", channel, err))
			return m, nil
		}
		m.addMessage(systemStyle.Render("subscribed to channel " + channel))
	}
	return m, m.cmdPublish(channel, text)
}

func (m *model) handleEvent(topic string, env protocol.Envelope) {
	switch topic {
	case TopicReplicate:
		m.addMessage(systemStyle.Render(fmt.Sprintf("REP: %v", env.Data)))
		return
	case TopicServers:
		m.addSystem("coordinator → " + env.String("coordinator"))
		return
	}

	switch env.Service {
	case protocol.ServicePublish.String():
		channel := env.String("channel")
		if channel == "" {
			channel = topic
		}
		m.addChannel(channel)
		m.addMessage(fmt.Sprintf("[%s] %s: %s", channel, env.String("user"), env.String("message")))
	case protocol.ServiceMessage.String():
		m.addMessage(fmt.Sprintf("[dm] %s: %s", env.String("src"), env.String("message")))
	default:
		m.addMessage(fmt.Sprintf("[%s] %v", topic, env.Data))
	}
}

func (m *model) addMessage(line string) {
	m.messages = append(m.messages, line)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
	m.viewport.SetContent(strings.Join(m.messages, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) addError(line string) {
	m.addMessage(errorStyle.Render(line))
}

func (m *model) addSystem(line string) {
	m.system = append(m.system, line)
	if len(m.system) > systemLines {
		m.system = m.system[len(m.system)-systemLines:]
	}
}

func (m *model) addChannel(name string) {
	if name == "" || slices.Contains(m.channels, name) {
		return
	}
	m.channels = append(m.channels, name)
	slices.Sort(m.channels)
}

func (m *model) resize() {
	// borders take two columns and two rows per pane
	m.viewport.Width = max(m.width-sidebarWidth-4, 10)
	m.viewport.Height = max(m.height-5, 3)
	m.input.Width = max(m.width-4, 10)
	m.viewport.GotoBottom()
}

func (m model) View() string {
	messages := paneStyle.Render(m.viewport.View())

	sideHeight := max(m.viewport.Height, systemLines+4)
	system := paneStyle.Width(sidebarWidth - 2).Height(systemLines + 1).Render(
		titleStyle.Render("System") + "\n" + systemStyle.Render(strings.Join(m.system, "\n")))
	channels := paneStyle.Width(sidebarWidth - 2).Height(max(sideHeight-systemLines-3, 1)).Render(
		titleStyle.Render("Channels") + "\n" + strings.Join(m.channels, "\n"))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		messages,
		lipgloss.JoinVertical(lipgloss.Left, system, channels),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, paneStyle.Render(m.input.View()))
}
