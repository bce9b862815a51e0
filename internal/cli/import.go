package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/sitepanel/internal/application"
	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

type importOptions struct {
	customers string
	contracts string
	dryRun    bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import SimPro customer and contract exports",
		Long: `Import a SimPro customer export and, optionally, a contract export.

Customers are upserted by their SimPro customer ID. Active contracts are
matched to customers by cleaned company name and roll up into contract
counts, total value and service tier; every matched contract is kept in the
local database. With --dry-run nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.customers, "customers", "", "customer export CSV (required)")
	cmd.Flags().StringVar(&opts.contracts, "contracts", "", "contract export CSV")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "report changes without writing")
	_ = cmd.MarkFlagRequired("customers")

	return cmd
}

func runImport(cmd *cobra.Command, rootOpts *RootOptions, opts *importOptions) error {
	customersFile, err := os.Open(opts.customers)
	if err != nil {
		return fmt.Errorf("open customers export: %w", err)
	}
	defer customersFile.Close()

	var contracts io.Reader
	if opts.contracts != "" {
		f, err := os.Open(opts.contracts)
		if err != nil {
			return fmt.Errorf("open contracts export: %w", err)
		}
		defer f.Close()
		contracts = f
	}

	stores, err := rootOpts.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	svc := application.NewImportService(stores.Customers, rootOpts.logger(cmd.ErrOrStderr()))
	if stores.Contracts != nil {
		svc.WithContracts(stores.Contracts)
	}
	summary, err := svc.Import(cmd.Context(), customersFile, contracts, opts.dryRun)
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		return printJSON(cmd.OutOrStdout(), summary)
	}
	return printImportSummary(cmd.OutOrStdout(), summary)
}

func printImportSummary(w io.Writer, s application.ImportSummary) error {
	if s.DryRun {
		fmt.Fprintln(w, "Dry run: no changes written.")
	}

	t := newTable(w)
	t.row("Customers", s.Customers)
	t.row("  created", s.Created)
	t.row("  updated", s.Updated)
	t.row("  unchanged", s.Unchanged)
	t.row("Contracts", s.Contracts)
	t.row("  active", s.ActiveContracts)
	t.row("  matched", s.MatchedContracts)
	t.row("  stored", s.StoredContracts)
	t.row("Active contract value", fmt.Sprintf("$%.2f", s.TotalContractValue))
	for _, tier := range []model.ServiceTier{model.ServiceTierGuardian, model.ServiceTierAssure, model.ServiceTierCore} {
		t.row("Tier "+string(tier), s.Tiers[tier])
	}
	if err := t.flush(); err != nil {
		return err
	}

	if len(s.Unmatched) == 0 {
		return nil
	}

	unmatched := make([]model.Contract, len(s.Unmatched))
	copy(unmatched, s.Unmatched)
	sort.SliceStable(unmatched, func(i, j int) bool { return unmatched[i].CustomerName < unmatched[j].CustomerName })

	fmt.Fprintf(w, "\nUnmatched active contracts (%d):\n", len(unmatched))
	t = newTable(w)
	t.row("CUSTOMER", "CONTRACT", "NUMBER", "VALUE")
	for _, c := range unmatched {
		t.row(c.CustomerName, c.Name, c.Number, fmt.Sprintf("$%.2f", c.Value))
	}
	return t.flush()
}
