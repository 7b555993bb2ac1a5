package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// legacyEnv holds the older REQ_ADDR/SUB_ADDR variable names.
type legacyEnv struct {
	BrokerAddress string `env:"REQ_ADDR"`
	ProxyAddress  string `env:"SUB_ADDR"`
}

// parseEnv populates cfg from environment variables. The CHAT_* names win
// over the legacy ones.
func parseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}

	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	if cfg.Transport.BrokerAddress == "" {
		cfg.Transport.BrokerAddress = legacy.BrokerAddress
	}
	if cfg.Transport.ProxyAddress == "" {
		cfg.Transport.ProxyAddress = legacy.ProxyAddress
	}

	return nil
}
