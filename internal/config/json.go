package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type jsonConfig struct {
	Transport struct {
		BrokerAddress  string   `json:"broker_address"`
		ProxyAddress   string   `json:"proxy_address"`
		RequestTimeout Duration `json:"request_timeout"`
		PollInterval   Duration `json:"poll_interval"`
		Linger         Duration `json:"linger"`
	} `json:"transport,omitempty"`

	Session struct {
		User                string `json:"user"`
		RequireSubscription bool   `json:"require_subscription"`
	} `json:"session,omitempty"`

	Log struct {
		Level string `json:"level"`
		File  string `json:"file"`
	} `json:"log,omitempty"`

	Bot struct {
		MinDelay     Duration `json:"min_delay"`
		MaxDelay     Duration `json:"max_delay"`
		PrivateRatio float64  `json:"private_ratio"`
	} `json:"bot,omitempty"`
}

func parseJSON(jsonFilePath string) (*Config, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg jsonConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &Config{
		Transport: Transport{
			BrokerAddress:  jsonCfg.Transport.BrokerAddress,
			ProxyAddress:   jsonCfg.Transport.ProxyAddress,
			RequestTimeout: time.Duration(jsonCfg.Transport.RequestTimeout),
			PollInterval:   time.Duration(jsonCfg.Transport.PollInterval),
			Linger:         time.Duration(jsonCfg.Transport.Linger),
		},
		Session: Session{
			User:                jsonCfg.Session.User,
			RequireSubscription: jsonCfg.Session.RequireSubscription,
		},
		Log: Log{
			Level: jsonCfg.Log.Level,
			File:  jsonCfg.Log.File,
		},
		Bot: Bot{
			MinDelay:     time.Duration(jsonCfg.Bot.MinDelay),
			MaxDelay:     time.Duration(jsonCfg.Bot.MaxDelay),
			PrivateRatio: jsonCfg.Bot.PrivateRatio,
		},
	}

	return cfg, nil
}

// Duration is a time.Duration that unmarshals from "5s"-style strings or
// from nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
