package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/sitepanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// tempStore returns a StoreOpener over one migrated sqlite database shared
// by every command run in the test.
func tempStore(t *testing.T) (StoreOpener, *Stores) {
	t.Helper()

	db, err := sqliteadapter.NewDB(filepath.Join(t.TempDir(), "sitectl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqliteadapter.RunMigrations(db.Writer))

	stores := &Stores{
		Customers: sqliteadapter.NewCustomerRepo(db),
		Contracts: sqliteadapter.NewContractRepo(db),
		Close:     func() error { return nil },
	}
	return func(context.Context) (*Stores, error) { return stores, nil }, stores
}

func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	assert.Equal(t, "sitectl", cmd.Use)

	for _, name := range []string{"import", "match"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, nil, "--format", "xml", "match", "--name", "Acme", "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestImport(t *testing.T) {
	opener, stores := tempStore(t)
	opts := &RootOptions{OpenStore: opener}
	args := []string{"--format", "json", "import",
		"--customers", "testdata/customers.csv",
		"--contracts", "testdata/contracts.csv",
	}

	out, err := execute(t, opts, args...)
	require.NoError(t, err)

	var summary struct {
		Customers          int                       `json:"customers"`
		Created            int                       `json:"created"`
		Unchanged          int                       `json:"unchanged"`
		Contracts          int                       `json:"contracts"`
		StoredContracts    int                       `json:"stored_contracts"`
		TotalContractValue float64                   `json:"total_contract_value"`
		Tiers              map[model.ServiceTier]int `json:"tiers"`
		Unmatched          []map[string]any          `json:"unmatched"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Customers)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 4, summary.Contracts)
	assert.InDelta(t, 450000, summary.TotalContractValue, 0.001)
	assert.Len(t, summary.Unmatched, 1)
	assert.Equal(t, 3, summary.StoredContracts)

	acme, err := stores.Customers.GetByLegacyID(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "ASSURE", acme.String(model.FieldServiceTier))
	assert.Equal(t, "ops@acme.test", acme.String(model.FieldPrimaryContactEmail))
	assert.True(t, acme.Bool(model.FieldIsContractCustomer))

	contracts, err := stores.Contracts.ListByCustomer(context.Background(), acme.ID())
	require.NoError(t, err)
	assert.Len(t, contracts, 2)

	out, err = execute(t, opts, args...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 3, summary.Unchanged)

	contracts, err = stores.Contracts.ListByCustomer(context.Background(), acme.ID())
	require.NoError(t, err)
	assert.Len(t, contracts, 2)
}

func TestImport_TextDryRun(t *testing.T) {
	opener, stores := tempStore(t)
	opts := &RootOptions{OpenStore: opener}

	out, err := execute(t, opts, "import", "--customers", "testdata/customers.csv", "--contracts", "testdata/contracts.csv", "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: no changes written.")
	assert.Contains(t, out, "Unmatched active contracts (1)")
	assert.Contains(t, out, "Unknown Co")

	all, err := stores.Customers.List(context.Background(), model.CustomerFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImport_Errors(t *testing.T) {
	opener, _ := tempStore(t)
	opts := &RootOptions{OpenStore: opener}

	_, err := execute(t, opts, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers")

	_, err = execute(t, opts, "import", "--customers", "testdata/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open customers export")
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantAction model.FolderAction
		wantRanked []string
	}{
		{
			name:       "exact folder wins",
			args:       []string{"--name", "Acme Corp", "Acme Corp", "Acme Corporation Backups", "Unrelated LLC"},
			wantAction: model.FolderActionUseExisting,
			wantRanked: []string{"Acme Corp", "Acme Corporation Backups"},
		},
		{
			name:       "nothing similar",
			args:       []string{"--name", "Acme Corp", "Quarterly Reports"},
			wantAction: model.FolderActionCreateNew,
			wantRanked: []string{},
		},
		{
			name:       "tuned thresholds",
			args:       []string{"--name", "Acme Corp", "--config", "testdata/thresholds.yaml", "Acme Corporation Backups"},
			wantAction: model.FolderActionUseExisting,
			wantRanked: []string{"Acme Corporation Backups"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, nil, append([]string{"--format", "json", "match"}, tt.args...)...)
			require.NoError(t, err)

			var got MatchResult
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.wantAction, got.Action)
			names := make([]string, 0, len(got.Ranked))
			for _, c := range got.Ranked {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.wantRanked, names)
		})
	}
}

func TestMatch_Text(t *testing.T) {
	out, err := execute(t, nil, "match", "--name", "Acme Corp", "--alias", "North Campus", "Acme Corp", "Unrelated LLC")

	require.NoError(t, err)
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "Recommendation: use_existing (Acme Corp)")
}

func TestMatch_BadConfig(t *testing.T) {
	_, err := execute(t, nil, "match", "--name", "Acme", "--config", "testdata/missing.yaml", "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read thresholds")
}
