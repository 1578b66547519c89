package main

import (
	"os"

	"github.com/mertcan/gradus/internal/pkg/logger"
	"github.com/mertcan/gradus/internal/server"
)

func main() {
	// NewServer orchestrates config loading, logger setup, the store driver,
	// migrations, dependency wiring, and the router.
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until a shutdown signal or a startup error.
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
	os.Exit(0)
}
