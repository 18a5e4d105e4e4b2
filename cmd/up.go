package cmd

import (
	"errors"
	"fmt"

	"github.com/Pjt727/homeroom/projectpath"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Runs the up migrations",
	Long:  `Runs the up migrations and errors if there the up migrations cannot work`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closeLogs, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer closeLogs()
		if cfg.DBConn == "" {
			return errors.New("DB_CONN is not set")
		}

		m, err := migrate.New("file://"+projectpath.Root+"/migrations", cfg.DBConn)
		if err != nil {
			return fmt.Errorf("could not set up migrations: %w", err)
		}
		defer m.Close()

		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database already has every up migration")
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not run up migrations: %w", err)
		}
		logger.Info("Database has been synced with any up migrations")
		return nil
	},
}

func init() {
	appCmd.AddCommand(upCmd)
}
