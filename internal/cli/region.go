package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/region"
)

func newRegionCmd(a *app) *cobra.Command {
	var (
		boundaries string
		preset     string
		targetName string
		outDir     string
		box        boxFlags
	)

	cmd := &cobra.Command{
		Use:   "region",
		Short: "Keep the boundary features whose centroid lies inside a box",
		Long: "Filter a boundary feature collection to a bounding box or a named preset.\n" +
			"With --target-name the summary is written to that file under --out-dir;\n" +
			"otherwise it is printed.\n\nPresets: " + strings.Join(presetNames(), ", "),
		Example: "  dosecast region --boundaries communes.geojson --preset Paris --target-name paris.geo.json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bbox, err := box.resolve(cmd)
			if err != nil {
				return err
			}
			if preset != "" {
				if bbox != nil {
					return fmt.Errorf("%w: --preset and limits are exclusive", forecast.ErrInvalidBoundingBox)
				}
				p, ok := region.Presets[preset]
				if !ok {
					return fmt.Errorf("%w: unknown preset %q", forecast.ErrInvalidBoundingBox, preset)
				}
				bbox = &p
			}

			path := boundaries
			if path == "" {
				path = a.cfg.Region.BoundaryFile
			}
			if path == "" {
				return errors.New("no boundary file: set --boundaries or region.boundary_file")
			}
			collection, err := readCollection(path)
			if err != nil {
				return err
			}

			summary, err := region.CropRegion(collection, bbox, targetName)
			if err != nil {
				return err
			}
			if targetName == "" {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			return writeSummary(filepath.Join(outDir, targetName), summary)
		},
	}

	cmd.Flags().StringVarP(&boundaries, "boundaries", "b", "", "GeoJSON boundary collection (default: region.boundary_file)")
	cmd.Flags().StringVar(&preset, "preset", "", "named region instead of limits")
	cmd.Flags().StringVar(&targetName, "target-name", "", "file name to write the summary to")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory --target-name is written in")
	box.register(cmd.Flags())
	return cmd
}

func presetNames() []string {
	names := make([]string, 0, len(region.Presets))
	for name := range region.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readCollection(path string) (*region.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary file: %w", err)
	}
	defer f.Close()
	return region.DecodeCollection(f)
}

func writeSummary(path string, summary *region.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writeJSON(f, summary)
}
