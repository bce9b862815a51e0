package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// memoryKV is an in-memory driven.KeyValueStore.
type memoryKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	loadErr error
	saves   int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryKV) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// fakeCustomerStore is an in-memory driven.CustomerStore that records calls.
type fakeCustomerStore struct {
	mu        sync.Mutex
	records   map[string]model.Record
	nextID    int
	createErr error
	updateErr error
	creates   []model.Record
	updates   []model.Record
	// block, when non-nil, is received from before Create/Update return.
	block chan struct{}
}

var _ driven.CustomerStore = (*fakeCustomerStore)(nil)

func newFakeCustomerStore(records ...model.Record) *fakeCustomerStore {
	s := &fakeCustomerStore{records: make(map[string]model.Record)}
	for _, r := range records {
		s.records[r.ID()] = r.Clone()
	}
	return s
}

func (s *fakeCustomerStore) Create(_ context.Context, record model.Record) (model.Record, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, record.Clone())
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	stored := record.Clone()
	stored.Set(model.FieldID, fmt.Sprintf("cust-%d", s.nextID))
	s.records[stored.ID()] = stored
	return stored.Clone(), nil
}

func (s *fakeCustomerStore) Update(_ context.Context, id string, patch model.Record) (model.Record, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, patch.Clone())
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	stored, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("update customer %s: %w", id, driven.ErrCustomerNotFound)
	}
	stored.Merge(patch)
	return stored.Clone(), nil
}

func (s *fakeCustomerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *fakeCustomerStore) Get(_ context.Context, id string) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get customer %s: %w", id, driven.ErrCustomerNotFound)
	}
	return r.Clone(), nil
}

func (s *fakeCustomerStore) GetByLegacyID(_ context.Context, legacyID string) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.String(model.FieldLegacyCustomerID) == legacyID {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("get customer by legacy id %s: %w", legacyID, driven.ErrCustomerNotFound)
}

func (s *fakeCustomerStore) List(_ context.Context, filter model.CustomerFilter) ([]model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Record
	for _, r := range s.records {
		if filter.Query != "" && !strings.Contains(strings.ToLower(r.String(model.FieldCompanyName)), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// fakeFolders implements FolderSearcher and FolderCreator.
type fakeFolders struct {
	candidates  []model.FolderCandidate
	searchErr   error
	createErr   error
	searchedFor string
	aliases     []string
	created     []string
}

func (f *fakeFolders) Search(_ context.Context, name string, aliases []string) ([]model.FolderCandidate, error) {
	f.searchedFor = name
	f.aliases = aliases
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.candidates, nil
}

func (f *fakeFolders) CreateStructured(_ context.Context, name string, _ map[string]string) (model.FolderStructure, error) {
	if f.createErr != nil {
		return model.FolderStructure{}, f.createErr
	}
	f.created = append(f.created, name)
	return model.FolderStructure{
		MainFolderID:  "new-" + name,
		MainFolderURL: "https://drive.google.com/drive/folders/new-" + name,
		Subfolders:    map[string]string{"Backups": "sub-1"},
	}, nil
}

var errBackend = errors.New("backend unavailable")

// fakeContractStore is an in-memory driven.ContractStore keyed like the
// sqlite table: customer, number and name.
type fakeContractStore struct {
	mu        sync.Mutex
	contracts map[string]map[string]model.Contract
	upserts   int
}

var _ driven.ContractStore = (*fakeContractStore)(nil)

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{contracts: make(map[string]map[string]model.Contract)}
}

func (s *fakeContractStore) Upsert(_ context.Context, customerID string, c model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.contracts[customerID] == nil {
		s.contracts[customerID] = make(map[string]model.Contract)
	}
	c.CustomerID = customerID
	s.contracts[customerID][c.Number+"\x00"+c.Name] = c
	return nil
}

func (s *fakeContractStore) ListByCustomer(_ context.Context, customerID string) ([]model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Contract{}
	for _, c := range s.contracts[customerID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *fakeContractStore) DeleteCustomer(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contracts, customerID)
	return nil
}
