// Package cli is the line-oriented chat front end: one command per line,
// replies and broadcasts printed as they arrive.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/deehdev/chatclient/internal/client"
	"github.com/deehdev/chatclient/internal/protocol"
	"github.com/deehdev/chatclient/internal/request"
)

// Chat is the part of *client.Client the command loop drives.
type Chat interface {
	Login(ctx context.Context, user string) (protocol.Envelope, error)
	Users(ctx context.Context) ([]string, error)
	Channels(ctx context.Context) ([]string, error)
	CreateChannel(ctx context.Context, name string) (protocol.Envelope, error)
	Publish(ctx context.Context, channel, text string) (protocol.Envelope, error)
	Message(ctx context.Context, dst, text string) (protocol.Envelope, error)
	Subscribe(ctx context.Context, topic string) (protocol.Envelope, error)
	Unsubscribe(ctx context.Context, topic string) (protocol.Envelope, error)
	CurrentUser() (string, bool)
	Clock() int64
}

var _ Chat = (*client.Client)(nil)

const help = `Commands:
  login <name>               log in
  users                      list users
  channels                   list channels
  channel <name>             create a channel
  publish <channel> <msg>    post to a channel
  message <user> <msg>       send a private message
  subscribe <topic>          follow a channel or topic
  unsubscribe <topic>        stop following a topic
  help                       show this text
  quit                       exit
`

type CLI struct {
	chat Chat

	mu  sync.Mutex
	out io.Writer
}

func New(chat Chat, out io.Writer) *CLI {
	return &CLI{chat: chat, out: out}
}

// Run executes commands read from in until quit, end of input or ctx is
// done. Input is read on a separate goroutine, since a blocked read cannot
// be interrupted.
func (c *CLI) Run(ctx context.Context, in io.Reader) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.printf("%s", help)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if c.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether it asked to quit.
func (c *CLI) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		c.printf("%s", help)
	case "login":
		c.login(ctx, args)
	case "users":
		list, err := c.chat.Users(ctx)
		c.printList(list, err, "no users registered")
	case "channels":
		list, err := c.chat.Channels(ctx)
		c.printList(list, err, "no channels created")
	case "channel":
		c.createChannel(ctx, args)
	case "publish":
		c.publish(ctx, args)
	case "message":
		c.message(ctx, args)
	case "subscribe", "unsubscribe":
		c.topic(ctx, cmd, args)
	default:
		c.printf("unknown command %q, type help\n", cmd)
	}
	return false
}

func (c *CLI) login(ctx context.Context, args []string) {
	if len(args) < 1 {
		c.printf("usage: login <name>\n")
		return
	}
	reply, err := c.chat.Login(ctx, args[0])
	if c.failed(err) {
		return
	}
	if !reply.Succeeded() {
		c.printf("login failed: %s\n", orDefault(reply.Failure(), "user already exists"))
		return
	}
	c.printf("logged in as %q, following private topic %s\n", args[0], args[0])
}

func (c *CLI) createChannel(ctx context.Context, args []string) {
	if len(args) < 1 {
		c.printf("usage: channel <name>\n")
		return
	}
	reply, err := c.chat.CreateChannel(ctx, args[0])
	if c.failed(err) {
		return
	}
	if !reply.Succeeded() {
		c.printf("create channel failed: %s\n", orDefault(reply.Failure(), "channel already exists"))
		return
	}
	c.printf("channel %q created\n", args[0])
}

func (c *CLI) publish(ctx context.Context, args []string) {
	if !c.loggedIn() {
		return
	}
	if len(args) < 2 {
		c.printf("usage: publish <channel> <msg>\n")
		return
	}
	reply, err := c.chat.Publish(ctx, args[0], strings.Join(args[1:], " "))
	if c.failed(err) {
		return
	}
	if !reply.Succeeded() {
		c.printf("publish failed: %s\n", orDefault(reply.Failure(), "unknown error"))
		return
	}
	c.printf("published to %q\n", args[0])
}

func (c *CLI) message(ctx context.Context, args []string) {
	if !c.loggedIn() {
		return
	}
	if len(args) < 2 {
		c.printf("usage: message <user> <msg>\n")
		return
	}
	reply, err := c.chat.Message(ctx, args[0], strings.Join(args[1:], " "))
	if c.failed(err) {
		return
	}
	if !reply.Succeeded() {
		c.printf("message failed: %s\n", orDefault(reply.Failure(), "unknown user"))
		return
	}
	c.printf("message sent to %q\n", args[0])
}

func (c *CLI) topic(ctx context.Context, cmd string, args []string) {
	if !c.loggedIn() {
		return
	}
	if len(args) < 1 {
		c.printf("usage: %s <topic>\n", cmd)
		return
	}

	call := c.chat.Subscribe
	verb := "subscribed to"
	if cmd == "unsubscribe" {
		call = c.chat.Unsubscribe
		verb = "unsubscribed from"
	}
	if _, err := call(ctx, args[0]); c.failed(err) {
		return
	}
	c.printf("%s %s\n", verb, args[0])
}

// Event renders one broadcast.
func (c *CLI) Event(topic string, env protocol.Envelope) {
	switch env.Service {
	case protocol.ServicePublish.String():
		c.printf("[#%s] %s: %s (clock=%d, local=%d)\n",
			orDefault(env.String("channel"), topic), env.String("user"), env.String("message"),
			env.Clock, c.chat.Clock())
	case protocol.ServiceMessage.String():
		c.printf("[dm] %s: %s (clock=%d, local=%d)\n",
			env.String("src"), env.String("message"), env.Clock, c.chat.Clock())
	default:
		c.printf("[%s] %s %v (clock=%d, local=%d)\n", topic, env.Service, env.Data, env.Clock, c.chat.Clock())
	}
}

func (c *CLI) loggedIn() bool {
	if _, ok := c.chat.CurrentUser(); !ok {
		c.printf("log in first\n")
		return false
	}
	return true
}

func (c *CLI) printList(list []string, err error, empty string) {
	if c.failed(err) {
		return
	}
	if len(list) == 0 {
		c.printf("%s\n", empty)
		return
	}
	for _, item := range list {
		c.printf(" - %s\n", item)
	}
}

// failed prints err, if any, and reports whether there was one.
func (c *CLI) failed(err error) bool {
	if err == nil {
		return false
	}
	var timeout *request.TimeoutError
	switch {
	case errors.Is(err, request.ErrBusy):
		c.printf("wait, the previous request is still in progress\n")
	case errors.As(err, &timeout):
		c.printf("timeout: the server did not answer %q within %s\n", timeout.Service.String(), timeout.After)
	case errors.Is(err, client.ErrNotLoggedIn):
		c.printf("log in first\n")
	default:
		c.printf("error: %v\n", err)
	}
	return true
}

func (c *CLI) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
