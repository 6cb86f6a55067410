package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bher20/tariffcompare/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL schema with goose",
	Long: `Apply or roll back the embedded schema migrations for the sqlite and
postgres drivers. Set TARIFFCOMPARE_AUTO_MIGRATE=false when the schema is
managed this way.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !migrate.Managed(cfg.DBDriver) {
			return fmt.Errorf("driver %q has no SQL schema to migrate", cfg.DBDriver)
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return migrate.Up(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return migrate.Down(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := migrate.Status(cmd.Context(), cfg.DBDriver, cfg.DBDSN); err != nil {
			return err
		}
		v, err := migrate.Version(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
