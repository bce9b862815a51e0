package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

func testContract(number, name string, status model.ContractStatus, start string) model.Contract {
	return model.Contract{
		CustomerName:      "Acme Corporation",
		Name:              name,
		Number:            number,
		Value:             1500,
		Status:            status,
		StartDate:         start,
		MatchedCustomerID: "101",
	}
}

func TestContractRepo_UpsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "cust-1", testContract("C-0", "Legacy", model.ContractStatusExpired, "2020-01-01")))
	require.NoError(t, repo.Upsert(ctx, "cust-1", testContract("C-1", "Annual PM", model.ContractStatusActive, "2024-01-15")))
	require.NoError(t, repo.Upsert(ctx, "cust-1", testContract("C-2", "Repairs", model.ContractStatusActive, "2025-03-01")))
	require.NoError(t, repo.Upsert(ctx, "cust-2", testContract("C-9", "Other", model.ContractStatusActive, "2024-01-01")))

	got, err := repo.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"C-2", "C-1", "C-0"}, []string{got[0].Number, got[1].Number, got[2].Number})
	assert.Equal(t, "cust-1", got[0].CustomerID)
	assert.Equal(t, "101", got[0].MatchedCustomerID)
	assert.Equal(t, model.ContractStatusActive, got[0].Status)
	assert.NotEmpty(t, got[0].ID)
}

func TestContractRepo_UpsertReplacesSameContract(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepo(db)
	ctx := context.Background()

	first := testContract("C-1", "Annual PM", model.ContractStatusActive, "2024-01-15")
	first.ID = "contract-a"
	require.NoError(t, repo.Upsert(ctx, "cust-1", first))

	second := first
	second.ID = "contract-b"
	second.Value = 2500
	second.Status = model.ContractStatusExpired
	second.Notes = "renewal pending"
	require.NoError(t, repo.Upsert(ctx, "cust-1", second))

	got, err := repo.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "contract-a", got[0].ID)
	assert.InDelta(t, 2500.0, got[0].Value, 0.001)
	assert.Equal(t, model.ContractStatusExpired, got[0].Status)
	assert.Equal(t, "renewal pending", got[0].Notes)
}

func TestContractRepo_ListEmpty(t *testing.T) {
	db := setupTestDB(t)

	got, err := NewContractRepo(db).ListByCustomer(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestContractRepo_DeleteCustomer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContractRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "cust-1", testContract("C-1", "Annual PM", model.ContractStatusActive, "")))
	require.NoError(t, repo.Upsert(ctx, "cust-2", testContract("C-2", "Support", model.ContractStatusActive, "")))

	require.NoError(t, repo.DeleteCustomer(ctx, "cust-1"))

	got, err := repo.ListByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = repo.ListByCustomer(ctx, "cust-2")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
