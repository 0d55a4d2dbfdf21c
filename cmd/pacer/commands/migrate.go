package commands

import (
	"github.com/spf13/cobra"

	"github.com/pacerhq/pacer/db"
	"github.com/pacerhq/pacer/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Named("migrate")

		conn, err := db.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		return db.Migrate(conn, log)
	},
}
