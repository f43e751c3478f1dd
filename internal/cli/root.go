// Package cli implements the dosecast command line: offline forecast crops,
// dose computations and region crops against local files.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/breatheroute/dosecast/internal/config"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/forecast/netcdf"
	"github.com/breatheroute/dosecast/internal/telemetry"
)

// defaultLitersPerMinute is a resting adult's breathing rate.
const defaultLitersPerMinute = 8

// app carries state shared by every subcommand.
type app struct {
	configFile string
	verbose    bool

	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.ExposureMetrics
}

// NewRootCmd builds the dosecast command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dosecast",
		Short: "Estimate inhaled pollutant doses from gridded forecasts.",
		Long: "dosecast crops gridded air-quality forecasts, filters region boundaries\n" +
			"and integrates the dose inhaled at a point over a time window.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.startup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file (default: ./config.yaml when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(version),
		newCropCmd(a),
		newAccumulateCmd(a),
		newSeriesCmd(a),
		newRegionCmd(a),
	)
	return root
}

func (a *app) startup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := zerolog.WarnLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().
		Timestamp().
		Logger()

	a.metrics, err = telemetry.NewExposureMetrics()
	return err
}

// forecastService opens the forecast file, preferring file over the
// configured source.
func (a *app) forecastService(file string) (*forecast.Service, error) {
	opts := netcdf.Options{
		File: a.cfg.Forecast.File,
		URL:  a.cfg.Forecast.URL,
		Layout: netcdf.Layout{
			Variable:  a.cfg.Forecast.Variable,
			Longitude: a.cfg.Forecast.LongitudeVar,
			Latitude:  a.cfg.Forecast.LatitudeVar,
			Level:     a.cfg.Forecast.Level,
		},
		Timeout:    a.cfg.Forecast.Timeout,
		MaxRetries: a.cfg.Forecast.MaxRetries,
		MaxAge:     a.cfg.Forecast.MaxAge,
		Logger:     a.logger,
	}
	if file != "" {
		opts.File, opts.URL = file, ""
	}

	source, _, err := netcdf.Open(opts)
	if err != nil {
		return nil, err
	}
	return forecast.NewService(forecast.ServiceConfig{
		Source:          source,
		Logger:          a.logger,
		CacheTTL:        a.cfg.Forecast.CacheTTL,
		StaleIfErrorTTL: a.cfg.Forecast.StaleTTL,
	}), nil
}

// leadTimes returns the flag value, or the configured lead times.
func (a *app) leadTimes(flagged []int) []int {
	if len(flagged) > 0 {
		return flagged
	}
	return a.cfg.Forecast.LeadTimes
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dosecast",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dosecast %s\n", version)
		},
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
