package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/breatheroute/dosecast/internal/exposure"
	"github.com/breatheroute/dosecast/internal/forecast"
)

var edges = []string{"north", "south", "west", "east"}

// boxFlags are the four optional bounding box edges.
type boxFlags struct {
	box forecast.BoundingBox
}

func (b *boxFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&b.box.North, "north", 0, "northern latitude limit")
	fs.Float64Var(&b.box.South, "south", 0, "southern latitude limit")
	fs.Float64Var(&b.box.West, "west", 0, "western longitude limit")
	fs.Float64Var(&b.box.East, "east", 0, "eastern longitude limit")
}

// resolve returns nil when no edge is set. Setting only some edges is an
// invalid box.
func (b *boxFlags) resolve(cmd *cobra.Command) (*forecast.BoundingBox, error) {
	var set, missing []string
	for _, name := range edges {
		if cmd.Flags().Changed(name) {
			set = append(set, name)
		} else {
			missing = append(missing, name)
		}
	}
	if len(set) == 0 {
		return nil, nil
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing --%s", forecast.ErrInvalidBoundingBox, missing[0])
	}
	box := b.box
	if err := box.Validate(); err != nil {
		return nil, err
	}
	return &box, nil
}

// intakeFlags are the two mutually exclusive breathing rate units.
type intakeFlags struct {
	cubicMeters float64
	liters      float64
}

func (i *intakeFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&i.cubicMeters, "cubic-meters-per-minute", 0, "breathing rate in m3/min")
	fs.Float64Var(&i.liters, "liters-per-minute", 0,
		fmt.Sprintf("breathing rate in L/min (default %d when no rate is given)", defaultLitersPerMinute))
}

func (i *intakeFlags) resolve(cmd *cobra.Command) (exposure.IntakeRate, error) {
	var cubic, liters *float64
	if cmd.Flags().Changed("cubic-meters-per-minute") {
		cubic = &i.cubicMeters
	}
	if cmd.Flags().Changed("liters-per-minute") {
		liters = &i.liters
	}
	if cubic == nil && liters == nil {
		return exposure.LitersPerMinute(defaultLitersPerMinute), nil
	}
	return exposure.ParseIntakeRate(cubic, liters)
}

func parseTime(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s %q is not an RFC 3339 time", exposure.ErrInvalidWindow, flag, value)
	}
	return t, nil
}
