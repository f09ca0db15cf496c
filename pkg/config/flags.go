package config

import (
	"errors"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Options are the command line flags of the feedpulse binary
type Options struct {
	ConfigPath string `short:"c" long:"config" env:"FEEDPULSE_CONFIG" default:"config.yaml" description:"Path to the YAML config file (optional)"`
	Seed       bool   `long:"seed" description:"Reseed the demo dataset on start when the store is empty"`
	Version    bool   `short:"v" long:"version" description:"Print the version and exit"`
}

// ErrHelp is returned when the caller asked for usage output
var ErrHelp = errors.New("help requested")

func ParseFlags(args []string) (*Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	return &opts, nil
}
