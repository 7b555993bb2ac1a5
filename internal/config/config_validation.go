package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

func (cfg *Config) validate() error {
	t := cfg.Transport
	if t.BrokerAddress == "" || t.ProxyAddress == "" {
		return fmt.Errorf("%w: broker and proxy addresses are required", ErrInvalidTransportConfig)
	}
	if t.RequestTimeout <= 0 || t.PollInterval <= 0 || t.Linger < 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidTransportConfig)
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogConfig, err)
	}

	b := cfg.Bot
	if b.MinDelay <= 0 || b.MaxDelay < b.MinDelay {
		return fmt.Errorf("%w: need 0 < min delay <= max delay", ErrInvalidBotConfig)
	}
	if b.PrivateRatio < 0 || b.PrivateRatio > 1 {
		return fmt.Errorf("%w: private ratio %.2f outside [0, 1]", ErrInvalidBotConfig, b.PrivateRatio)
	}

	return nil
}
