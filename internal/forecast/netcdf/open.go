package netcdf

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/resilience"
)

// Options selects a local or remote forecast file. Exactly one of File and
// URL is set.
type Options struct {
	File   string
	URL    string
	Layout Layout

	// Remote download tuning. Zero values keep the client defaults.
	Timeout    time.Duration
	MaxRetries int
	MaxAge     time.Duration

	Logger zerolog.Logger
}

// Open builds the source opts describe. The registry is nil for local
// files and otherwise tracks the download client.
func Open(opts Options) (forecast.Source, *resilience.Registry, error) {
	switch {
	case opts.File != "" && opts.URL != "":
		return nil, nil, fmt.Errorf("forecast file and url are mutually exclusive")
	case opts.File != "":
		return NewFileSource(opts.File, opts.Layout), nil, nil
	case opts.URL == "":
		return nil, nil, fmt.Errorf("forecast file or url is required")
	}

	clientCfg := resilience.DefaultClientConfig("netcdf-remote")
	if opts.Timeout > 0 {
		clientCfg.Timeout = opts.Timeout
	}
	if opts.MaxRetries > 0 {
		clientCfg.MaxRetries = uint64(opts.MaxRetries)
	}
	client := resilience.NewClient(clientCfg)

	registry := resilience.NewRegistry()
	registry.Register(client)

	return NewRemoteSource(RemoteSourceConfig{
		URL:      opts.URL,
		Layout:   opts.Layout,
		Client:   client,
		Registry: registry,
		MaxAge:   opts.MaxAge,
		Logger:   opts.Logger,
	}), registry, nil
}
