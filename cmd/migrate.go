package cmd

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

const migrationsTable = "schema_migrations"

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect the goose migrations",
		RunE:  runMigration,
	}
	migrateRollback bool
	migrateStatus   bool
	migrateTo       int64
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print applied and pending migrations")
	migrateCmd.Flags().Int64Var(&migrateTo, "to", 0, "migrate up (or down with -r) to this version")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

// gooseArgs picks the goose command for the flags given.
func gooseArgs() (string, []string) {
	switch {
	case migrateStatus:
		return "status", nil
	case migrateRollback && migrateTo > 0:
		return "down-to", []string{fmt.Sprint(migrateTo)}
	case migrateRollback:
		return "down", nil
	case migrateTo > 0:
		return "up-to", []string{fmt.Sprint(migrateTo)}
	default:
		return "up", nil
	}
}

func runMigration(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("open migration db: %w", err)
	}
	defer db.Close()
	goose.SetTableName(migrationsTable)

	command, args := gooseArgs()
	if err := goose.RunContext(cmd.Context(), command, db, migrateDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
