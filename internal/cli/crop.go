package cli

import (
	"github.com/spf13/cobra"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/forecast"
)

func newCropCmd(a *app) *cobra.Command {
	var (
		file  string
		leads []int
		box   boxFlags
	)

	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Crop forecast grids to a bounding box",
		Long: "Crop the forecast grids for the given lead times to a bounding box and\n" +
			"print the flat table. Without limits the whole grid is printed.",
		Example: "  dosecast crop --file ENS_FORECAST.nc --lead-times 0,1,2 --north 54 --south 44 --west -4 --east 8",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bbox, err := box.resolve(cmd)
			if err != nil {
				return err
			}
			svc, err := a.forecastService(file)
			if err != nil {
				return err
			}

			table, err := svc.Table(cmd.Context(), a.leadTimes(leads), bbox)
			if err != nil {
				return err
			}
			if table == nil {
				table = forecast.Table{}
			}
			present := table.LeadTimes()
			if present == nil {
				present = []int{}
			}
			return writeJSON(cmd.OutOrStdout(), models.TableResponse{LeadTimes: present, Rows: table})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "NetCDF forecast file (default: forecast.file)")
	cmd.Flags().IntSliceVar(&leads, "lead-times", nil, "lead-time hours to read (default: forecast.lead_times)")
	box.register(cmd.Flags())
	return cmd
}
