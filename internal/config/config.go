package config

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

// Config is the merged configuration of a chat binary.
type Config struct {
	Transport Transport `envPrefix:"CHAT_"`
	Session   Session   `envPrefix:"CHAT_"`
	Log       Log       `envPrefix:"CHAT_LOG_"`
	Bot       Bot       `envPrefix:"CHAT_BOT_"`

	JSONFilePath string `env:"CHAT_CONFIG"`
}

// Transport holds the socket endpoints and timing.
type Transport struct {
	// BrokerAddress is the request/reply endpoint.
	BrokerAddress string `env:"BROKER_ADDR"`
	// ProxyAddress is the broadcast endpoint.
	ProxyAddress string `env:"PROXY_ADDR"`
	// RequestTimeout bounds the wait for a reply.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	// PollInterval bounds a single socket wait.
	PollInterval time.Duration `env:"POLL_INTERVAL"`
	Linger       time.Duration `env:"LINGER"`
}

type Session struct {
	// User logs in automatically at startup when set.
	User string `env:"USER"`
	// RequireSubscription refuses to publish to channels the client does
	// not follow.
	RequireSubscription bool `env:"REQUIRE_SUBSCRIPTION"`
}

type Log struct {
	Level string `env:"LEVEL"`
	// File receives log output instead of stderr.
	File string `env:"FILE"`
}

// Bot tunes the autonomous bot.
type Bot struct {
	MinDelay time.Duration `env:"MIN_DELAY"`
	MaxDelay time.Duration `env:"MAX_DELAY"`
	// PrivateRatio is the share of turns spent on private messages.
	PrivateRatio float64 `env:"PRIVATE_RATIO"`
}

const (
	DefaultBrokerAddress  = "tcp://broker:5555"
	DefaultProxyAddress   = "tcp://proxy:5558"
	DefaultRequestTimeout = 5 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

// Defaults returns the configuration used for every field no source sets.
func Defaults() *Config {
	return &Config{
		Transport: Transport{
			BrokerAddress:  DefaultBrokerAddress,
			ProxyAddress:   DefaultProxyAddress,
			RequestTimeout: DefaultRequestTimeout,
			PollInterval:   DefaultPollInterval,
		},
		Log: Log{Level: "info"},
		Bot: Bot{
			MinDelay:     3 * time.Second,
			MaxDelay:     6 * time.Second,
			PrivateRatio: 0.4,
		},
	}
}

// Load merges environment, args (without the program name) and the JSON
// file, applies defaults and validates the result.
func Load(name string, args []string) (*Config, error) {
	cfg, err := newConfigBuilder().
		withEnv().
		withFlags(name, args).
		withJSON().
		build()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) error {
	if err := mergo.Merge(cfg, Defaults()); err != nil {
		return fmt.Errorf("error applying defaults: %w", err)
	}
	return nil
}
