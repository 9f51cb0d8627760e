// Package main is the entry point for the scoutctl CLI, a command line
// companion to the scholarscout server for running searches and working
// with stored search history.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/config"
	"github.com/okarvonen/scholarscout/internal/database"
	"github.com/okarvonen/scholarscout/internal/observability"
)

// rootCmd is the base command for the scoutctl CLI.
var rootCmd = &cobra.Command{
	Use:   "scoutctl",
	Short: "Command line interface for scholarscout",
	Long: `scoutctl runs article searches and inspects stored search history
without going through the HTTP API. It reads the same configuration as the
server, so it operates on the same blob store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (trace, debug, info, warn, error)")
}

// cliLogger builds a console logger honoring the --log-level flag.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return observability.NewLogger(observability.LoggingConfig{
		Level:  level,
		Format: "console",
		Output: "stderr",
	})
}

// openBlobStore opens the configured blob storage backend.
func openBlobStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (blobstore.Store, func(), error) {
	switch cfg.BlobStore.Backend {
	case config.BackendFile:
		return blobstore.NewFileStore(cfg.BlobStore.FileRoot, logger), func() {}, nil
	case config.BackendPostgres:
		db, err := database.New(ctx, &cfg.BlobStore.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return blobstore.NewPgStore(db.Pool(), logger), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown blobstore backend: %q", cfg.BlobStore.Backend)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
