// Package common provides the shared dependencies of the CLI commands.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/logger"
)

// Deps bundles the dependencies every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCommandDeps loads the configuration and builds the logger.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}
