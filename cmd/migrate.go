package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/database"
)

var migrateFlags struct {
	version uint
	force   int
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := database.Connect(cmd.Context(), cfg.Database(), logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		if cmd.Flags().Changed("version") {
			cfg.DatabaseMigrationVersion = int(migrateFlags.version)
		}
		if cmd.Flags().Changed("force") {
			cfg.DatabaseMigrationForce = migrateFlags.force
		}
		return migrateDatabase(conn, cfg, logger)
	},
}

func init() {
	migrateCmd.Flags().UintVar(&migrateFlags.version, "version", 0, "target version, 0 for latest")
	migrateCmd.Flags().IntVar(&migrateFlags.force, "force", 0, "force the schema to this version before migrating")
}
