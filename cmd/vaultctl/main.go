// Command vaultctl is the operator CLI for the account vault database:
// schema migration, seed imports and a terminal view of the device board.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/accountvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/accountvault/internal/application"
	"github.com/ericfisherdev/accountvault/internal/config"
)

var (
	dbPath  string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Manage the account vault database",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ACCOUNTVAULT_DB_PATH or accountvault.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newMigrateCmd(), newDevicesCmd(), newImportCmd())
	return rootCmd
}

// vaultEnv is an opened database with the vault service wired on top.
type vaultEnv struct {
	db    *sqliteadapter.DB
	vault *application.VaultService
}

func (e *vaultEnv) Close() error {
	return e.db.Close()
}

// openVault loads configuration, opens the database (applying migrations) and
// wires the vault service.
func openVault(ctx context.Context) (*vaultEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := sqliteadapter.NewAccountRepo(db, cfg.SecretKey)
	return &vaultEnv{
		db:    db,
		vault: application.NewVaultService(store, slog.Default()),
	}, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			return printf(cmd.OutOrStdout(), "migrations applied to %s\n", env.db.Path())
		},
	}
}

func printf(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
