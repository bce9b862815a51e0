package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

func newTestFolderService(store *fakeCustomerStore, folders *fakeFolders) *FolderService {
	customers := NewCustomerService(store, nil, 0, nil)
	if folders == nil {
		return NewFolderService(customers, nil, nil, nil, nil)
	}
	return NewFolderService(customers, folders, folders, nil, nil)
}

func acmeCustomer() model.Record {
	return model.Record{
		"id":            "cust-1",
		"company_name":  "Acme Corp",
		"site_nickname": "Acme HQ",
		"service_tier":  "CORE",
	}
}

func TestFolderService_Recommend(t *testing.T) {
	folders := &fakeFolders{candidates: []model.FolderCandidate{
		{ID: "f1", Name: "Acme Corp"},
		{ID: "f2", Name: "Acme Corporation Backups"},
		{ID: "f3", Name: "Unrelated LLC"},
	}}
	svc := newTestFolderService(newFakeCustomerStore(acmeCustomer()), folders)

	got, err := svc.Recommend(context.Background(), "cust-1")

	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", folders.searchedFor)
	assert.Equal(t, []string{"Acme HQ"}, folders.aliases)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "f1", got.Candidates[0].ID)
	assert.Equal(t, model.FolderActionUseExisting, got.Recommendation.Action)
	require.NotNil(t, got.Recommendation.Primary)
	assert.Equal(t, "f1", got.Recommendation.Primary.ID)
}

func TestFolderService_RecommendDegrades(t *testing.T) {
	tests := []struct {
		name    string
		folders *fakeFolders
		reason  string
	}{
		{name: "search error", folders: &fakeFolders{searchErr: errBackend}, reason: ReasonSearchUnavailable},
		{name: "no searcher", folders: nil, reason: ReasonSearchUnavailable},
		{name: "no results", folders: &fakeFolders{}, reason: ReasonNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestFolderService(newFakeCustomerStore(acmeCustomer()), tt.folders)

			got, err := svc.Recommend(context.Background(), "cust-1")

			require.NoError(t, err)
			assert.Empty(t, got.Candidates)
			assert.Equal(t, model.FolderActionCreateNew, got.Recommendation.Action)
			assert.Empty(t, got.Recommendation.Alternatives)
			assert.Equal(t, tt.reason, got.Recommendation.Reason)
		})
	}
}

func TestFolderService_ApplyUseExisting(t *testing.T) {
	store := newFakeCustomerStore(acmeCustomer())
	svc := newTestFolderService(store, &fakeFolders{})

	got, err := svc.Apply(context.Background(), "cust-1", FolderDecision{
		Action:   model.FolderActionUseExisting,
		FolderID: "f1",
	})

	require.NoError(t, err)
	assert.Nil(t, got.Structure)
	assert.Len(t, got.Changes, 2)
	require.Len(t, store.updates, 1)
	assert.Equal(t, model.Record{
		"drive_folder_id":  "f1",
		"drive_folder_url": "https://drive.google.com/drive/folders/f1",
	}, store.updates[0])
	assert.Equal(t, "f1", got.Record.String(model.FieldDriveFolderID))
}

func TestFolderService_ApplyCreateNew(t *testing.T) {
	store := newFakeCustomerStore(acmeCustomer())
	folders := &fakeFolders{}
	svc := newTestFolderService(store, folders)

	got, err := svc.Apply(context.Background(), "cust-1", FolderDecision{Action: model.FolderActionCreateNew})

	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Corp"}, folders.created)
	require.NotNil(t, got.Structure)
	assert.Equal(t, "new-Acme Corp", got.Record.String(model.FieldDriveFolderID))
	assert.Empty(t, got.Record.String(model.FieldDriveLinkedFolderID))
}

func TestFolderService_ApplyLinkBoth(t *testing.T) {
	store := newFakeCustomerStore(acmeCustomer())
	svc := newTestFolderService(store, &fakeFolders{})

	got, err := svc.Apply(context.Background(), "cust-1", FolderDecision{
		Action:   model.FolderActionLinkBoth,
		FolderID: "f2",
	})

	require.NoError(t, err)
	assert.Equal(t, "new-Acme Corp", got.Record.String(model.FieldDriveFolderID))
	assert.Equal(t, "f2", got.Record.String(model.FieldDriveLinkedFolderID))
}

func TestFolderService_ApplyErrors(t *testing.T) {
	tests := []struct {
		name       string
		folders    *fakeFolders
		decision   FolderDecision
		validation bool
		wantErr    error
	}{
		{
			name:       "use existing without folder",
			folders:    &fakeFolders{},
			decision:   FolderDecision{Action: model.FolderActionUseExisting},
			validation: true,
		},
		{
			name:       "link both without folder",
			folders:    &fakeFolders{},
			decision:   FolderDecision{Action: model.FolderActionLinkBoth},
			validation: true,
		},
		{
			name:       "unknown action",
			folders:    &fakeFolders{},
			decision:   FolderDecision{Action: "merge"},
			validation: true,
		},
		{
			name:     "no creator",
			folders:  nil,
			decision: FolderDecision{Action: model.FolderActionCreateNew},
			wantErr:  ErrFolderCreationUnavailable,
		},
		{
			name:     "creator fails",
			folders:  &fakeFolders{createErr: errBackend},
			decision: FolderDecision{Action: model.FolderActionCreateNew},
			wantErr:  errBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeCustomerStore(acmeCustomer())
			svc := newTestFolderService(store, tt.folders)

			_, err := svc.Apply(context.Background(), "cust-1", tt.decision)

			require.Error(t, err)
			if tt.validation {
				assert.True(t, IsValidation(err))
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, store.updates)
		})
	}
}

func TestTargetFor(t *testing.T) {
	got := TargetFor(model.Record{
		"company_name":  "Acme Corp",
		"site_address":  "1 Main St",
		"site_nickname": "",
	})

	assert.Equal(t, MatchTarget{Name: "Acme Corp", Aliases: []string{"1 Main St"}}, got)
}

func TestFolderService_SetThresholdsPersistsAndApplies(t *testing.T) {
	kv := newMemoryKV()
	folders := &fakeFolders{candidates: []model.FolderCandidate{{ID: "f2", Name: "Acme Corporation Backups"}}}
	svc := newTestFolderService(newFakeCustomerStore(acmeCustomer()), folders).WithSettings(kv)
	ctx := context.Background()

	before, err := svc.Recommend(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, model.FolderActionCreateNew, before.Recommendation.Action)

	th := DefaultMatchThresholds()
	th.High = 0.85
	require.NoError(t, svc.SetThresholds(ctx, th))
	assert.Contains(t, kv.data, thresholdsSettingKey)

	after, err := svc.Recommend(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, model.FolderActionUseExisting, after.Recommendation.Action)

	reloaded := newTestFolderService(newFakeCustomerStore(acmeCustomer()), folders).WithSettings(kv)
	require.NoError(t, reloaded.LoadThresholds(ctx))
	assert.Equal(t, th, reloaded.Thresholds())
}

func TestFolderService_SetThresholdsRejectsInvalid(t *testing.T) {
	kv := newMemoryKV()
	svc := newTestFolderService(newFakeCustomerStore(), nil).WithSettings(kv)
	th := DefaultMatchThresholds()
	th.Medium = 0.95

	err := svc.SetThresholds(context.Background(), th)

	assert.True(t, IsValidation(err))
	assert.Empty(t, kv.data)
	assert.Equal(t, DefaultMatchThresholds(), svc.Thresholds())
}

func TestFolderService_LoadThresholdsWithoutSettings(t *testing.T) {
	svc := newTestFolderService(newFakeCustomerStore(), nil)

	require.NoError(t, svc.LoadThresholds(context.Background()))
	assert.Equal(t, DefaultMatchThresholds(), svc.Thresholds())
}
