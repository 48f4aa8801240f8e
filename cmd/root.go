package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "geostiler",
	Short: "A Mapbox Vector Tile generator for GeoArrow files, built on GEOS",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger(viper.GetString("log-level"))
	},
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./geostiler.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads the config file and GEOSTILER_* environment variables.
// Flags set on the command line take precedence over both.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("geostiler")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GEOSTILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("path", viper.ConfigFileUsed()).Msg("using config file")
	} else if cfgFile != "" {
		log.Fatal().Err(err).Str("path", cfgFile).Msg("could not read config file")
	}
}

func initLogger(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "geostiler").Logger()
	return nil
}
