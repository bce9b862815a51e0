// Package cli implements the sitectl command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	pgadapter "github.com/ericfisherdev/sitepanel/internal/adapter/driven/postgres"
	sqliteadapter "github.com/ericfisherdev/sitepanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/sitepanel/internal/config"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Stores are the persistence ports used by sitectl commands.
type Stores struct {
	Customers driven.CustomerStore
	Contracts driven.ContractStore
	Close     func() error
}

// StoreOpener opens the configured stores; Stores.Close releases them.
type StoreOpener func(ctx context.Context) (*Stores, error)

// RootOptions holds global flags and injectable dependencies for all commands.
type RootOptions struct {
	Verbose bool
	Format  string

	// OpenStore defaults to the store configured by SITEPANEL_* env vars.
	OpenStore StoreOpener
}

// NewRootCommand creates the sitectl root command.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}
	if opts.OpenStore == nil {
		opts.OpenStore = openConfiguredStore
	}

	cmd := &cobra.Command{
		Use:   "sitectl",
		Short: "sitectl - sitepanel maintenance tools",
		Long:  "Maintenance tools for sitepanel: SimPro imports and folder match tuning.",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))

	return cmd
}

// logger returns a text logger on w, or a discarding one unless verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	if !o.Verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

// openConfiguredStore opens the local sqlite database, which always holds
// contracts, and Postgres for customers when SITEPANEL_DATABASE_URL is set.
func openConfiguredStore(ctx context.Context) (*Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	stores := &Stores{
		Customers: sqliteadapter.NewCustomerRepo(db),
		Contracts: sqliteadapter.NewContractRepo(db),
		Close:     db.Close,
	}
	if !cfg.HasPostgres() {
		return stores, nil
	}

	pg, err := pgadapter.Open(ctx, pgadapter.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := pgadapter.RunMigrations(pg); err != nil {
		_ = pg.Close()
		_ = db.Close()
		return nil, err
	}
	stores.Customers = pgadapter.NewCustomerRepo(pg)
	stores.Close = func() error {
		return errors.Join(pg.Close(), db.Close())
	}
	return stores, nil
}
