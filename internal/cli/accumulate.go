package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/exposure"
	"github.com/breatheroute/dosecast/internal/forecast"
)

// pointFlags locate the exposure and the grids it is read from.
type pointFlags struct {
	file  string
	leads []int
	at    forecast.Coordinate
	box   boxFlags
}

func (p *pointFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "NetCDF forecast file (default: forecast.file)")
	cmd.Flags().IntSliceVar(&p.leads, "lead-times", nil, "lead-time hours to read (default: forecast.lead_times)")
	cmd.Flags().Float64Var(&p.at.Lon, "lon", 0, "longitude of the exposure")
	cmd.Flags().Float64Var(&p.at.Lat, "lat", 0, "latitude of the exposure")
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("lat")
	p.box.register(cmd.Flags())
}

func (p *pointFlags) table(cmd *cobra.Command, a *app) (forecast.Table, error) {
	bbox, err := p.box.resolve(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := a.forecastService(p.file)
	if err != nil {
		return nil, err
	}
	return svc.Table(cmd.Context(), a.leadTimes(p.leads), bbox)
}

func newAccumulateCmd(a *app) *cobra.Command {
	var (
		point           pointFlags
		intake          intakeFlags
		start, end, ref string
	)

	cmd := &cobra.Command{
		Use:     "accumulate",
		Short:   "Compute the dose inhaled at a point over a time window",
		Example: "  dosecast accumulate -f ENS_FORECAST.nc --lon 2.35 --lat 48.85 --start 2025-05-10T08:00:00Z --end 2025-05-10T09:30:00Z",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var dose float64
			defer func() { a.metrics.RecordComputation(cmd.Context(), "accumulate", dose, err) }()

			rate, err := intake.resolve(cmd)
			if err != nil {
				return err
			}
			window, err := parseWindow(start, end, ref)
			if err != nil {
				return err
			}
			if err := window.Validate(); err != nil {
				return err
			}

			out := models.AccumulateResponse{Unit: models.DoseUnit, Intake: rate.String(), LeadTimes: []int{}}
			if window.Duration() > 0 {
				table, err := point.table(cmd, a)
				if err != nil {
					return err
				}
				out.Dose, err = exposure.Accumulate(table, point.at, window, rate)
				if err != nil {
					return err
				}
				out.LeadTimes = table.LeadTimes()
			}
			dose = out.Dose

			a.logger.Debug().
				Str("window", window.String()).
				Str("at", point.at.String()).
				Float64("dose", out.Dose).
				Msg("dose computed")
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	point.register(cmd)
	intake.register(cmd.Flags())
	cmd.Flags().StringVar(&start, "start", "", "window start, RFC 3339")
	cmd.Flags().StringVar(&end, "end", "", "window end, RFC 3339")
	cmd.Flags().StringVar(&ref, "reference", "", "forecast reference time, RFC 3339 (default: midnight of the start day)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func parseWindow(start, end, ref string) (exposure.Window, error) {
	var (
		w   exposure.Window
		err error
	)
	if w.Start, err = parseTime("start", start); err != nil {
		return w, err
	}
	if w.End, err = parseTime("end", end); err != nil {
		return w, err
	}
	if ref != "" {
		if w.Reference, err = parseTime("reference", ref); err != nil {
			return w, err
		}
	}
	return w, nil
}

func newSeriesCmd(a *app) *cobra.Command {
	var (
		point  pointFlags
		intake intakeFlags
		start  string
		hours  int
	)

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the cumulative dose at every whole hour after start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var dose float64
			defer func() { a.metrics.RecordComputation(cmd.Context(), "series", dose, err) }()

			if hours < 0 {
				return fmt.Errorf("%w: --hours must not be negative", exposure.ErrInvalidWindow)
			}
			rate, err := intake.resolve(cmd)
			if err != nil {
				return err
			}
			from, err := parseTime("start", start)
			if err != nil {
				return err
			}
			table, err := point.table(cmd, a)
			if err != nil {
				return err
			}

			values, err := exposure.Series(table, point.at, from, hours, rate)
			if err != nil {
				return err
			}
			dose = values[len(values)-1]
			return writeJSON(cmd.OutOrStdout(), models.SeriesResponse{Values: values, Unit: models.DoseUnit})
		},
	}

	point.register(cmd)
	intake.register(cmd.Flags())
	cmd.Flags().StringVar(&start, "start", "", "series start, RFC 3339")
	cmd.Flags().IntVar(&hours, "hours", 12, "number of hours")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}
