// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// DefaultWizardSteps is the number of steps of the customer wizard:
// company, contacts, site access, review.
const DefaultWizardSteps = 4

// EditResult is the outcome of an edit: the change-set and, unless nothing
// changed or the edit was a dry run, the stored record.
type EditResult struct {
	Changes []model.ChangeEntry
	Record  model.Record
	Applied bool
}

// CustomerService validates customer records, maintains derived fields and
// submits only changed fields to the CustomerStore.
type CustomerService struct {
	store   driven.CustomerStore
	drafts  *DraftStore
	changes *ChangeSetCalculator
	steps   int
	logger  *slog.Logger
}

// NewCustomerService creates a CustomerService. steps <= 0 selects DefaultWizardSteps.
func NewCustomerService(store driven.CustomerStore, drafts *DraftStore, steps int, logger *slog.Logger) *CustomerService {
	if steps <= 0 {
		steps = DefaultWizardSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerService{
		store:   store,
		drafts:  drafts,
		changes: NewCustomerChangeSetCalculator(),
		steps:   steps,
		logger:  logger,
	}
}

// ValidateCustomer checks required customer fields. Edit mode also requires
// the record ID.
func ValidateCustomer(r model.Record, mode WizardMode) error {
	var invalid []string
	if mode == WizardModeEdit && r.ID() == "" {
		invalid = append(invalid, string(model.FieldID))
	}
	if strings.TrimSpace(r.String(model.FieldCompanyName)) == "" {
		invalid = append(invalid, string(model.FieldCompanyName))
	}
	if email := strings.TrimSpace(r.String(model.FieldPrimaryContactEmail)); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			invalid = append(invalid, string(model.FieldPrimaryContactEmail))
		}
	}
	if tier := r.String(model.FieldServiceTier); tier != "" {
		switch model.ServiceTier(tier) {
		case model.ServiceTierCore, model.ServiceTierAssure, model.ServiceTierGuardian:
		default:
			invalid = append(invalid, string(model.FieldServiceTier))
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}
	return nil
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, id string) (model.Record, error) {
	return s.store.Get(ctx, id)
}

// List returns customers matching filter.
func (s *CustomerService) List(ctx context.Context, filter model.CustomerFilter) ([]model.Record, error) {
	return s.store.List(ctx, filter)
}

// Delete removes a customer.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Create validates and stores a new customer with defaults for unset
// boolean and tier fields.
func (s *CustomerService) Create(ctx context.Context, record model.Record) (model.Record, error) {
	if err := ValidateCustomer(record, WizardModeNew); err != nil {
		return nil, err
	}

	r := record.Clone()
	delete(r, string(model.FieldID))
	for _, f := range []model.Field{model.FieldHasActiveContracts, model.FieldIsContractCustomer} {
		if _, ok := r.Get(f); !ok {
			r.Set(f, false)
		}
	}
	if r.String(model.FieldServiceTier) == "" {
		r.Set(model.FieldServiceTier, string(model.ServiceTierCore))
	}
	r.Set(model.FieldCompanyNameCleaned, CleanCompanyName(r.String(model.FieldCompanyName)))

	created, err := s.store.Create(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.logger.Info("customer created", "id", created.ID(), "company", created.String(model.FieldCompanyName))
	return created, nil
}

// Update applies patch as-is, refreshing derived fields. It is the submit
// path of edit wizards, which already reduced the patch to changed fields.
func (s *CustomerService) Update(ctx context.Context, id string, patch model.Record) (model.Record, error) {
	p := patch.Clone()
	delete(p, string(model.FieldID))
	if _, ok := p.Get(model.FieldCompanyName); ok {
		p.Set(model.FieldCompanyNameCleaned, CleanCompanyName(p.String(model.FieldCompanyName)))
	}

	updated, err := s.store.Update(ctx, id, p)
	if err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}
	s.logger.Info("customer updated", "id", id, "fields", len(patch))
	return updated, nil
}

// Edit merges fields over the stored customer, computes the change-set and,
// unless dryRun is set or nothing changed, submits only the changed fields.
func (s *CustomerService) Edit(ctx context.Context, id string, fields model.Record, dryRun bool) (EditResult, error) {
	original, err := s.store.Get(ctx, id)
	if err != nil {
		return EditResult{}, err
	}

	candidate := original.Clone()
	candidate.Merge(fields)
	candidate.Set(model.FieldID, id)

	if err := ValidateCustomer(candidate, WizardModeEdit); err != nil {
		return EditResult{}, err
	}

	changes := s.changes.Compute(original, candidate)
	if len(changes) == 0 || dryRun {
		return EditResult{Changes: changes, Record: original}, nil
	}

	updated, err := s.Update(ctx, id, BuildPatch(candidate, changes))
	if err != nil {
		return EditResult{Changes: changes}, err
	}
	return EditResult{Changes: changes, Record: updated, Applied: true}, nil
}

// OpenWizard opens a customer wizard. An empty customerID opens a new-record
// wizard drafted under draftKey; otherwise the customer is loaded and edited.
func (s *CustomerService) OpenWizard(ctx context.Context, draftKey, customerID string) (*Wizard, error) {
	cfg := WizardConfig{
		DraftKey: draftKey,
		Steps:    s.steps,
		Drafts:   s.drafts,
		Changes:  s.changes,
		Store:    s,
		Validate: ValidateCustomer,
		Logger:   s.logger,
	}

	if customerID != "" {
		original, err := s.store.Get(ctx, customerID)
		if err != nil {
			return nil, err
		}
		cfg.Original = original
	}

	return NewWizard(ctx, cfg)
}
