package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lox/search-relevance/internal/containers"
	"github.com/lox/search-relevance/internal/db"
	"github.com/lox/search-relevance/internal/settings"
)

// SetupLogger creates a stderr logger at the configured level
func SetupLogger(config CommonConfig) (*log.Logger, error) {
	logger := log.New(os.Stderr)

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	return logger, nil
}

// SetupDatabase opens the relevance database in the data directory
func SetupDatabase(config CommonConfig, logger *log.Logger) (*db.DB, error) {
	database, err := db.New(config.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return database, nil
}

// SetupRegistry loads the stored containers and then the settings file, if any.
// Containers in the file replace stored containers of the same name.
func SetupRegistry(ctx context.Context, config RegistryConfig, database *db.DB, logger *log.Logger) (*containers.Registry, error) {
	registry := containers.NewRegistry()

	err := registry.LoadFromStore(ctx, database, logger, containers.LoadOptions{
		Concurrency: config.Concurrency,
		Strict:      config.Strict,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stored containers: %w", err)
	}

	if config.SettingsFile != "" {
		f, err := settings.LoadFile(config.SettingsFile)
		if err != nil {
			return nil, err
		}
		if err := registry.LoadFromFile(f); err != nil {
			return nil, err
		}
		logger.Info("Loaded settings file", "path", config.SettingsFile, "containers", len(f.Containers))
	}

	return registry, nil
}
