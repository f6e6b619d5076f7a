package main

import (
	"fmt"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := database.NewPool(ctx, app.cfg.Database, app.logger)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()

			if err := database.RunMigrations(ctx, pool, app.logger); err != nil {
				return err
			}

			if !seed {
				return nil
			}
			events := repository.NewEventRepository(pool)
			for _, f := range app.cfg.Events {
				if err := events.Upsert(ctx, f.Event()); err != nil {
					return fmt.Errorf("seed event %s: %w", f.ID, err)
				}
			}
			app.logger.Info("seeded events", zap.Int("count", len(app.cfg.Events)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Upsert the events listed in the config file")
	return cmd
}
