package config

import (
	"flag"
	"fmt"
	"io"
)

// ParseFlags parses args into a partial config. Unset flags stay zero so
// they do not shadow other sources.
//
// Flags:
//
//	-broker request/reply endpoint, e.g. tcp://localhost:5555
//	-proxy broadcast endpoint, e.g. tcp://localhost:5558
//	-request-timeout reply bound (e.g. 5s)
//	-poll-interval socket poll slice (e.g. 100ms)
//	-user identity to log in with
//	-require-subscription refuse to publish to unfollowed channels
//	-log-level debug, info, warn, error
//	-log-file log destination instead of stderr
//	-bot-min-delay / -bot-max-delay bot pause bounds
//	-bot-private-ratio share of bot turns spent on private messages
//	-c/-config json file path with configs
func ParseFlags(name string, args []string) (*Config, error) {
	cfg := new(Config)
	fs := newFlagSet(name, cfg)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}
	return cfg, nil
}

// Usage prints the accepted flags to w.
func Usage(name string, w io.Writer) {
	fs := newFlagSet(name, new(Config))
	fs.SetOutput(w)
	fmt.Fprintf(w, "Usage of %s:\n", name)
	fs.PrintDefaults()
}

func newFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&cfg.Transport.BrokerAddress, "broker", "", "Broker endpoint")
	fs.StringVar(&cfg.Transport.ProxyAddress, "proxy", "", "Proxy endpoint")
	fs.DurationVar(&cfg.Transport.RequestTimeout, "request-timeout", 0, "Reply timeout (e.g., 5s)")
	fs.DurationVar(&cfg.Transport.PollInterval, "poll-interval", 0, "Socket poll interval (e.g., 100ms)")
	fs.StringVar(&cfg.Session.User, "user", "", "User to log in as")
	fs.BoolVar(&cfg.Session.RequireSubscription, "require-subscription", false, "Publish only to subscribed channels")
	fs.StringVar(&cfg.Log.Level, "log-level", "", "Log level")
	fs.StringVar(&cfg.Log.File, "log-file", "", "Log file path")
	fs.DurationVar(&cfg.Bot.MinDelay, "bot-min-delay", 0, "Minimum bot pause")
	fs.DurationVar(&cfg.Bot.MaxDelay, "bot-max-delay", 0, "Maximum bot pause")
	fs.Float64Var(&cfg.Bot.PrivateRatio, "bot-private-ratio", 0, "Share of private bot messages")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")

	return fs
}
