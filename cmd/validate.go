package cmd

import (
	"fmt"
	"os"

	"github.com/brendan-ward/geostiler/geos"
	"github.com/brendan-ward/geostiler/mvt"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var validateCmd = &cobra.Command{
	Use:   "validate [IN.feather]",
	Short: "Report invalid geometries in a GeoArrow file",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		invalid, err := validate(args[0], viper.GetString("geometry"))
		if err != nil {
			return err
		}
		if invalid > 0 {
			return errors.Newf("%d invalid geometries", invalid)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	validateCmd.Flags().String("geometry", "geometry", "WKB column name to validate")
}

// validate checks every geometry in infilename and returns the number of
// invalid geometries.
func validate(infilename string, geometryCol string) (int, error) {
	ctx, err := geos.NewContextHandle()
	if err != nil {
		return 0, err
	}
	defer ctx.Release()

	// input coordinates: nothing is clipped or projected
	geometries, err := mvt.ReadFeatherWKB(ctx, infilename, geometryCol)
	if err != nil {
		return 0, err
	}
	defer geometries.Release()

	bar := progressbar.NewOptions(geometries.Size(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(25),
		progressbar.OptionSetDescription(fmt.Sprintf("validating %s", infilename)),
	)
	defer bar.Finish()

	invalid := 0
	for i := 0; i < geometries.Size(); i++ {
		bar.Add(1)

		g := geometries.Get(i)
		if g == nil {
			continue
		}
		valid, err := g.IsValid()
		if err != nil {
			return invalid, errors.Wrapf(err, "could not validate geometry %d", i)
		}
		if valid {
			continue
		}
		invalid++

		// GEOS reports the reason as a notice
		reason, ok := g.LastNotification()
		if !ok {
			if reason, err = g.IsValidReason(); err != nil {
				return invalid, err
			}
		}
		log.Warn().Int("index", i).Str("reason", reason).Msg("invalid geometry")
	}

	return invalid, nil
}
