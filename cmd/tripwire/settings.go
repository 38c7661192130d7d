package main

import (
	"flag"
	"time"

	"github.com/banshee-data/tripwire/internal/config"
	"github.com/banshee-data/tripwire/internal/link"
	"github.com/banshee-data/tripwire/internal/serialmux"
)

// settings is the resolved runtime configuration.
type settings struct {
	SerialPort     string
	BaudRate       int
	ReadTimeout    time.Duration
	PollInterval   time.Duration
	SettleDelay    time.Duration
	ReopenInterval time.Duration
	Listen         string
	Fixture        string
	Verbose        bool
}

// explicitFlags returns the names of flags set on the command line.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// resolveSettings merges flags and the config file. A flag given on the
// command line wins; otherwise the config file value (or its default) is used.
func resolveSettings(cfg *config.Config, set map[string]bool) settings {
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := settings{
		SerialPort:     cfg.GetSerialPort(),
		BaudRate:       cfg.GetBaudRate(),
		ReadTimeout:    cfg.GetReadTimeout(),
		PollInterval:   cfg.GetPollInterval(),
		SettleDelay:    cfg.GetSettleDelay(),
		ReopenInterval: cfg.GetReopenInterval(),
		Listen:         cfg.GetListen(),
		Fixture:        cfg.GetFixture(),
		Verbose:        cfg.GetVerbose(),
	}

	if set["port"] || s.SerialPort == "" {
		s.SerialPort = *port
	}
	if set["baud"] {
		s.BaudRate = *baud
	}
	if set["read-timeout"] {
		s.ReadTimeout = *readTimeout
	}
	if set["poll-interval"] {
		s.PollInterval = *pollInterval
	}
	if set["settle"] {
		s.SettleDelay = *settle
	}
	if set["reopen-interval"] {
		s.ReopenInterval = *reopenInterval
	}
	if set["listen"] {
		s.Listen = *listen
	}
	if set["fixture"] || s.Fixture == "" {
		s.Fixture = *fixture
	}
	if set["verbose"] {
		s.Verbose = *verbose
	}
	return s
}

// linkConfig describes the serial link for link.Supervise.
func (s settings) linkConfig(tap *serialmux.Tap) link.Config {
	return link.Config{
		Path: s.SerialPort,
		Options: serialmux.PortOptions{
			BaudRate:    s.BaudRate,
			ReadTimeout: s.ReadTimeout,
		},
		Tap:            tap,
		SettleDelay:    s.SettleDelay,
		ReopenInterval: s.ReopenInterval,
	}
}
