// Package cli implements the staging maintenance command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"carbooking/internal/config"
	"carbooking/internal/database"
	"carbooking/internal/modules/staging"
	"carbooking/internal/pkg/logger"
	"carbooking/internal/stagingkv"
)

// Opener yields the staging store the commands act on and a release func.
type Opener func() (*staging.Store, func(), error)

type RootOptions struct {
	Format string // "text" | "json"
	open   Opener
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean staged reservations",
		Long: `Inspect and clean the staging store that keeps in-progress reservations
and wizard drafts between requests. The backend comes from STAGING_BACKEND.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newPurgeCommand(opts))

	return cmd
}

// OpenFromEnv opens the store the API server would use.
func OpenFromEnv() (*staging.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	lg, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	if cfg.StagingBackend == config.StagingSQL {
		db, err = database.ConnectWithLogger(cfg.DatabaseURL, lg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
	}

	kv, release, err := stagingkv.Open(cfg, db, lg)
	if err != nil {
		return nil, nil, err
	}
	return staging.NewStore(kv, lg.Named("staging")), func() {
		release()
		_ = lg.Sync()
	}, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
