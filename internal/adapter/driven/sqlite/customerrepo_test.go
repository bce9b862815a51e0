package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

func newTestCustomerRepo(t *testing.T) *CustomerRepo {
	t.Helper()
	repo := NewCustomerRepo(setupTestDB(t))
	n := 0
	repo.newID = func() string {
		n++
		return fmt.Sprintf("cust-%d", n)
	}
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return repo
}

func TestCustomerRepo_CreateAndGet(t *testing.T) {
	repo := newTestCustomerRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, model.Record{
		"company_name":          "Acme Corp",
		"has_active_contracts":  true,
		"active_contract_count": 2,
		"contacts":              map[string]any{"night": "555-0000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cust-1", created.ID())
	assert.Equal(t, "2026-03-01T09:30:00Z", created.String(model.FieldCreatedAt))

	got, err := repo.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.String(model.FieldCompanyName))
	assert.True(t, got.Bool(model.FieldHasActiveContracts))
	assert.Equal(t, float64(2), got["active_contract_count"])
	assert.Equal(t, map[string]any{"night": "555-0000"}, got["contacts"])
}

func TestCustomerRepo_GetNotFound(t *testing.T) {
	repo := newTestCustomerRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, driven.ErrCustomerNotFound)
}

func TestCustomerRepo_UpdateMergesPatch(t *testing.T) {
	repo := newTestCustomerRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, model.Record{"company_name": "Acme", "contact_phone": "", "site_nickname": "North"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, "cust-1", model.Record{
		"id":            "hijack",
		"company_name":  "Acme Corp",
		"contact_phone": "555-1111",
	})
	require.NoError(t, err)
	assert.Equal(t, "cust-1", updated.ID())
	assert.Equal(t, "Acme Corp", updated.String(model.FieldCompanyName))
	assert.Equal(t, "555-1111", updated.String(model.FieldContactPhone))
	assert.Equal(t, "North", updated.String(model.FieldSiteNickname))

	got, err := repo.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestCustomerRepo_UpdateNotFound(t *testing.T) {
	repo := newTestCustomerRepo(t)

	_, err := repo.Update(context.Background(), "missing", model.Record{"company_name": "x"})
	assert.ErrorIs(t, err, driven.ErrCustomerNotFound)
}

func TestCustomerRepo_GetByLegacyID(t *testing.T) {
	repo := newTestCustomerRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, model.Record{"company_name": "Acme", "legacy_customer_id": "101"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Record{"company_name": "No Legacy"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Record{"company_name": "Also No Legacy"})
	require.NoError(t, err, "records without a legacy ID must not collide")

	got, err := repo.GetByLegacyID(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "cust-1", got.ID())

	_, err = repo.GetByLegacyID(ctx, "999")
	assert.ErrorIs(t, err, driven.ErrCustomerNotFound)

	_, err = repo.Create(ctx, model.Record{"company_name": "Dup", "legacy_customer_id": "101"})
	assert.Error(t, err)
}

func TestCustomerRepo_List(t *testing.T) {
	repo := newTestCustomerRepo(t)
	ctx := context.Background()

	for _, r := range []model.Record{
		{"company_name": "Globex", "service_tier": "GUARDIAN"},
		{"company_name": "acme corp", "service_tier": "CORE"},
		{"company_name": "Initech", "service_tier": "CORE", "site_nickname": "Acme Annex"},
		{"company_name": "100% Plumbing", "service_tier": "CORE"},
	} {
		_, err := repo.Create(ctx, r)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter model.CustomerFilter
		want   []string
	}{
		{name: "all ordered by name", filter: model.CustomerFilter{}, want: []string{"100% Plumbing", "acme corp", "Globex", "Initech"}},
		{name: "query matches name and nickname", filter: model.CustomerFilter{Query: "ACME"}, want: []string{"acme corp", "Initech"}},
		{name: "tier", filter: model.CustomerFilter{ServiceTier: model.ServiceTierGuardian}, want: []string{"Globex"}},
		{name: "limit", filter: model.CustomerFilter{Limit: 2}, want: []string{"100% Plumbing", "acme corp"}},
		{name: "percent is literal", filter: model.CustomerFilter{Query: "0%"}, want: []string{"100% Plumbing"}},
		{name: "no match", filter: model.CustomerFilter{Query: "zzz"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			names := []string{}
			for _, r := range got {
				names = append(names, r.String(model.FieldCompanyName))
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestCustomerRepo_Delete(t *testing.T) {
	repo := newTestCustomerRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, model.Record{"company_name": "Acme"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "cust-1"))

	_, err = repo.Get(ctx, "cust-1")
	assert.ErrorIs(t, err, driven.ErrCustomerNotFound)

	err = repo.Delete(ctx, "cust-1")
	assert.ErrorIs(t, err, driven.ErrCustomerNotFound)
}
