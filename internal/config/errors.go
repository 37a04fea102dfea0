package config

import "errors"

var (
	// ErrConfigFileRead is returned when an explicitly requested config file
	// cannot be read.
	ErrConfigFileRead = errors.New("cannot read config file")

	// ErrConfigInvalid is returned for any config file or merged-config
	// validation failure (spec.md §7: configuration error, exit 2).
	ErrConfigInvalid = errors.New("invalid config")
)
