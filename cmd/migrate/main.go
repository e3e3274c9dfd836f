// Command migrate is C11's schema migrator CLI: apply migrations/*.sql
// forward, scaffold a new migration file, or drop-and-recreate the schema
// from scratch — a cobra.Command tree in the shape orbas1-Synnergy's
// cmd/cli subcommands use (one var per *cobra.Command, registered in
// init()), since the teacher carries no CLI framework of its own to
// generalize from here.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/ponziland/chainindexer/internal/config"
	"github.com/ponziland/chainindexer/internal/migrate"
)

var migrationsDir string

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply and manage chainindexer's Postgres schema migrations",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply every pending migration, forward-only",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeDB, err := openEngine()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := engine.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Scaffold a new empty migrations/NNNN_name.sql file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeDB, err := openEngine()
		if err != nil {
			return err
		}
		defer closeDB()
		m, err := engine.Add(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", m.Path)
		return nil
	},
}

var recreateCmd = &cobra.Command{
	Use:   "recreate",
	Short: "Drop and recreate the public schema, then reapply every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeDB, err := openEngine()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := engine.Recreate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("schema recreated and migrations applied")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "directory containing NNNN_name.sql migration files")
	rootCmd.AddCommand(migrateCmd, addCmd, recreateCmd)
}

func openEngine() (*migrate.Engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return migrate.New(db, migrationsDir), func() { _ = db.Close() }, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
