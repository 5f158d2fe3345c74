package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cavebenin/emecef-pos/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down|version",
	Short:     "Migrations du schéma PostgreSQL",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	mg, err := postgres.NewMigrator(cfg.DB.ConnectionString())
	if err != nil {
		return err
	}
	defer mg.Close()

	switch args[0] {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down()
	}
	if err != nil {
		return err
	}

	v, dirty, err := mg.Version()
	if err != nil {
		return fmt.Errorf("version du schéma: %w", err)
	}
	log.Info().Str("action", args[0]).Uint("version", v).Bool("dirty", dirty).Msg("migrations")
	fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
	return nil
}
