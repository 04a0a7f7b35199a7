package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/config"
	"github.com/example/shift-scheduler/internal/logging"
	"github.com/example/shift-scheduler/internal/persistence/sqlite"
)

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect the SQLite schema migrations",
	}
	cmd.AddCommand(newMigrateStatusCommand(flags))
	return cmd
}

type migrationRecord struct {
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	State       string `json:"state"`
	AppliedAt   string `json:"applied_at,omitempty"`
}

func newMigrateStatusCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations without applying any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Store != config.StoreSQLite {
				return fmt.Errorf("migrations apply to the sqlite store only, not %q", cfg.Store)
			}

			store, err := sqlite.Open(cfg.SQLiteDSN)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			ctx := logging.ContextWithLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
			status, err := store.MigrationStatus(ctx)
			if err != nil {
				return err
			}

			records := make([]migrationRecord, 0, len(status.Applied)+len(status.Pending))
			for _, applied := range status.Applied {
				records = append(records, migrationRecord{
					Version:   applied.Version,
					State:     "applied",
					AppliedAt: applied.AppliedAt.UTC().Format("2006-01-02 15:04:05"),
				})
			}
			for _, pending := range status.Pending {
				records = append(records, migrationRecord{
					Version:     pending.Version,
					Description: pending.Description,
					State:       "pending",
				})
			}

			if flags.json {
				return outputJSON(cmd.OutOrStdout(), records)
			}
			out := cmd.OutOrStdout()
			if len(status.Pending) == 0 {
				printSuccess(out, fmt.Sprintf("schema up to date at version %s", status.CurrentVersion))
			} else {
				printWarning(out, fmt.Sprintf("%d pending migration%s", len(status.Pending), plural(len(status.Pending), "", "s")))
			}
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{record.Version, record.State, record.AppliedAt, record.Description})
			}
			printTable(out, []string{"Version", "State", "Applied", "Description"}, rows)
			return nil
		},
	}
}
