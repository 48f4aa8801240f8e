package main

import (
	"os"

	"github.com/brendan-ward/geostiler/cmd"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("geostiler failed")
		os.Exit(1)
	}
}
