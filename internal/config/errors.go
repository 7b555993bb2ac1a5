package config

import "errors"

// Validation errors returned by [Config.validate].
var (
	// ErrInvalidTransportConfig indicates a missing endpoint or a
	// non-positive timeout or poll interval.
	ErrInvalidTransportConfig = errors.New("invalid transport configuration")
	// ErrInvalidLogConfig indicates an unknown log level.
	ErrInvalidLogConfig = errors.New("invalid log configuration")
	// ErrInvalidBotConfig indicates inconsistent bot delays or a private
	// ratio outside [0, 1].
	ErrInvalidBotConfig = errors.New("invalid bot configuration")
)
