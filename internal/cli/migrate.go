package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/laptrace/internal/tracedb"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Other commands migrate the database on open; migrate is for inspecting
the schema version and for recovery.`,
	}

	open := func() (*tracedb.DB, error) { return tracedb.Open(a.v.GetString(keyDB)) }
	status := func(cmd *cobra.Command, db *tracedb.DB) error {
		v, dirty, err := db.MigrateVersion()
		if err != nil {
			return err
		}
		latest, err := tracedb.LatestMigrationVersion()
		if err != nil {
			return err
		}
		cmd.Printf("version %d of %d (dirty: %v)\n", v, latest, dirty)
		if dirty {
			cmd.Printf("a migration failed part way; inspect the database, then run: laptrace migrate force <version>\n")
		}
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.MigrateUp(); err != nil {
					return err
				}
				return status(cmd, db)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.MigrateDown(); err != nil {
					return err
				}
				return status(cmd, db)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				return status(cmd, db)
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.MigrateForce(v); err != nil {
					return err
				}
				return status(cmd, db)
			},
		},
	)
	return cmd
}
