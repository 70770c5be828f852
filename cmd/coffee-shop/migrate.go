package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/config"
	"github.com/upb/coffee-shop/repositories/sqlstore"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long: `migrate creates the drinks table if it does not exist.
With --reset the table is dropped first and every drink is lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), opts.cfg.Database, reset, opts.logger)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate the drinks table")
	return cmd
}

func runMigrate(ctx context.Context, cfg config.DatabaseConfig, reset bool, logger *zap.Logger) error {
	db, err := sqlstore.NewDB(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if reset {
		err = db.ResetSchema(ctx)
	} else {
		err = db.InitSchema(ctx)
	}
	if err != nil {
		return err
	}

	logger.Info("migration complete",
		zap.String("connection", cfg.LogString()),
		zap.Bool("reset", reset))
	return nil
}
