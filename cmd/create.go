package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brendan-ward/geostiler/geos"
	"github.com/brendan-ward/geostiler/mbtiles"
	"github.com/brendan-ward/geostiler/mvt"
	"github.com/brendan-ward/geostiler/tiles"
	"github.com/cockroachdb/errors"
	"github.com/gosuri/uiprogress"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type createOptions struct {
	minzoom     uint16
	maxzoom     uint16
	name        string
	layer       string
	description string
	geometryCol string
	idCol       string
	workers     int
	config      *tiles.EncodingConfig
}

var createCmd = &cobra.Command{
	Use:   "create [IN.feather] [OUT.mbtiles]",
	Short: "Create a MVT tileset from a GeoArrow file",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return errors.New("feather and mbtiles filenames are required")
		}
		if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
			return errors.Newf("input file '%s' does not exist", args[0])
		}
		if outDir := filepath.Dir(args[1]); outDir != "" {
			if _, err := os.Stat(outDir); errors.Is(err, os.ErrNotExist) {
				return errors.Newf("output directory '%s' does not exist", outDir)
			}
		}
		if filepath.Ext(args[1]) != ".mbtiles" {
			return errors.New("mbtiles filename must end in '.mbtiles'")
		}
		return nil
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := createOptionsFromConfig(args[0])
		if err != nil {
			return err
		}
		return create(cmd.Context(), args[0], args[1], opts)
	},
	SilenceUsage: true,
}

func init() {
	flags := createCmd.Flags()
	flags.Uint16P("minzoom", "Z", 0, "minimum zoom level")
	flags.Uint16P("maxzoom", "z", 0, "maximum zoom level")
	flags.StringP("layer", "l", "", "layer name (default is the input filename)")
	flags.StringP("name", "n", "", "tileset name (default is the layer name)")
	flags.String("description", "", "tileset description")
	flags.String("geometry", "geometry", "WKB column name to use as feature geometry")
	flags.String("id", "", "integer column name to use as feature ID, or "+mvt.AUTO_ID+" to number features")
	flags.IntP("workers", "w", 4, "number of workers to create tiles")
	flags.Uint16("extent", 4096, "extent of tile")
	flags.Uint16("buffer", 256, "number of pixels to buffer outside extent before clipping lines / polygons")
	flags.Uint8P("precision", "p", 1, "precision used to snap coordinates, in pixels; 0 disables snapping")
	flags.Uint8P("simplify", "s", 1, "simplification factor used to simplify lines / polygons, in pixels; 0 disables simplification")
}

func createOptionsFromConfig(infilename string) (*createOptions, error) {
	opts := &createOptions{
		minzoom:     uint16(viper.GetUint("minzoom")),
		maxzoom:     uint16(viper.GetUint("maxzoom")),
		name:        viper.GetString("name"),
		layer:       viper.GetString("layer"),
		description: viper.GetString("description"),
		geometryCol: viper.GetString("geometry"),
		idCol:       viper.GetString("id"),
		workers:     viper.GetInt("workers"),
		config: tiles.NewEncodingConfig(
			uint16(viper.GetUint("extent")),
			uint16(viper.GetUint("buffer")),
			uint8(viper.GetUint("precision")),
			uint8(viper.GetUint("simplify")),
		),
	}

	if err := tiles.ValidateZoomRange(opts.minzoom, opts.maxzoom); err != nil {
		return nil, err
	}
	if err := opts.config.Validate(); err != nil {
		return nil, err
	}
	if opts.workers < 1 {
		opts.workers = 1
	}
	if opts.layer == "" {
		opts.layer = strings.TrimSuffix(filepath.Base(infilename), filepath.Ext(infilename))
	}
	if opts.name == "" {
		opts.name = opts.layer
	}
	return opts, nil
}

// tileCount returns the number of tiles between minTile and maxTile,
// inclusive.
func tileCount(minTile, maxTile *tiles.TileID) int {
	return (int(maxTile.X) - int(minTile.X) + 1) * (int(maxTile.Y) - int(minTile.Y) + 1)
}

// produce sends every tile that intersects bounds, zoom by zoom, with a
// progress bar per zoom level.
func produce(ctx context.Context, minZoom uint16, maxZoom uint16, bounds [4]float64, queue chan<- *tiles.TileID) error {
	defer close(queue)

	progress := uiprogress.New()
	progress.SetOut(os.Stderr)
	progress.Start()
	defer progress.Stop()

	for zoom := minZoom; zoom <= maxZoom; zoom++ {
		z := zoom
		minTile, maxTile := tiles.TileRange(zoom, bounds)
		count := tileCount(minTile, maxTile)
		bar := progress.AddBar(count).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("zoom %2v (%8v/%8v)", z, b.Current(), count)
		})

		err := tiles.Tiles(minTile, maxTile, func(tile *tiles.TileID) error {
			select {
			case queue <- tile:
				bar.Incr()
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func create(ctx context.Context, infilename string, outfilename string, opts *createOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.With().Str("layer", opts.layer).Logger()

	geosCtx, err := geos.NewContextHandle(geos.WithLogger(logger))
	if err != nil {
		return err
	}
	defer geosCtx.Release()

	// coordinates projected to Mercator on read
	logger.Info().Str("path", infilename).Msg("reading features")
	features, err := mvt.ReadFeather(geosCtx, infilename, opts.geometryCol, opts.idCol)
	if err != nil {
		return err
	}
	defer features.Release()

	db, err := mbtiles.NewMBtilesWriter(outfilename, opts.workers)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Str("path", outfilename).Msg("could not close mbtiles")
		}
	}()

	mercatorBounds, err := features.Geometry().TotalBounds()
	if err != nil {
		return errors.Wrap(err, "could not calculate bounds of features")
	}

	err = db.WriteMetadata(&mbtiles.Metadata{
		Name:        opts.name,
		Description: opts.description,
		MinZoom:     opts.minzoom,
		MaxZoom:     opts.maxzoom,
		Bounds:      mvt.MercatorBoundsToGeoBounds(mercatorBounds),
		Layers:      []*mvt.LayerInfo{features.GetLayerInfo(opts.layer, opts.description, opts.minzoom, opts.maxzoom)},
	})
	if err != nil {
		return err
	}

	logger.Info().Int("features", features.Size()).Int("workers", opts.workers).Msg("creating tiles")

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan *tiles.TileID)

	g.Go(func() error {
		return produce(gctx, opts.minzoom, opts.maxzoom, mercatorBounds, queue)
	})

	for i := 0; i < opts.workers; i++ {
		g.Go(func() error {
			con, err := db.GetConnection(gctx)
			if err != nil {
				return err
			}
			defer db.CloseConnection(con)

			for tile := range queue {
				data, err := features.EncodeToLayer(opts.layer, tile, opts.config)
				if err != nil {
					return err
				}
				if data == nil {
					continue
				}
				if err = mbtiles.WriteTile(con, tile, data); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return err
	}

	logger.Info().Str("path", outfilename).Msg("done")
	return nil
}
