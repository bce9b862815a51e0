package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// WizardMode distinguishes creating a record from editing an existing one.
type WizardMode string

const (
	WizardModeNew  WizardMode = "new"
	WizardModeEdit WizardMode = "edit"
)

// SubmitOutcome describes what a wizard submission did.
type SubmitOutcome string

const (
	OutcomeCreated           SubmitOutcome = "created"
	OutcomeUpdated           SubmitOutcome = "updated"
	OutcomeNoChanges         SubmitOutcome = "no_changes"
	OutcomeNeedsConfirmation SubmitOutcome = "needs_confirmation"
)

// SubmitResult is returned by a successful (or short-circuited) submission.
// Record is the stored record for created/updated outcomes.
type SubmitResult struct {
	Outcome SubmitOutcome
	Record  model.Record
	Changes []model.ChangeEntry
}

// RecordSubmitter is the backend a wizard submits to.
type RecordSubmitter interface {
	Create(ctx context.Context, record model.Record) (model.Record, error)
	Update(ctx context.Context, id string, patch model.Record) (model.Record, error)
}

// WizardConfig configures a Wizard. Original selects edit mode when non-nil.
type WizardConfig struct {
	DraftKey string
	Steps    int
	Original model.Record
	Drafts   *DraftStore
	Changes  *ChangeSetCalculator
	Store    RecordSubmitter
	Validate func(model.Record, WizardMode) error
	Logger   *slog.Logger
}

// Wizard sequences a fixed number of steps over one evolving record. In new
// mode the record is drafted on every step change and restored on open; in
// edit mode drafts are never restored, so a stale edit cannot resurface over
// a freshly fetched record. The record is only mutated locally until a
// submission succeeds.
type Wizard struct {
	mu         sync.Mutex
	draftKey   string
	steps      int
	current    int
	mode       WizardMode
	original   model.Record
	record     model.Record
	restored   bool
	submitting bool
	closed     bool

	drafts   *DraftStore
	changes  *ChangeSetCalculator
	store    RecordSubmitter
	validate func(model.Record, WizardMode) error
	logger   *slog.Logger
}

// NewWizard opens a wizard at step 1, restoring a saved draft in new mode.
func NewWizard(ctx context.Context, cfg WizardConfig) (*Wizard, error) {
	if cfg.Steps < 1 {
		return nil, errors.New("wizard needs at least one step")
	}
	if cfg.Store == nil {
		return nil, errors.New("wizard needs a record submitter")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	changes := cfg.Changes
	if changes == nil {
		changes = NewCustomerChangeSetCalculator()
	}

	w := &Wizard{
		draftKey: cfg.DraftKey,
		steps:    cfg.Steps,
		current:  1,
		mode:     WizardModeNew,
		record:   model.Record{},
		drafts:   cfg.Drafts,
		changes:  changes,
		store:    cfg.Store,
		validate: cfg.Validate,
		logger:   logger,
	}

	if cfg.Original != nil {
		if cfg.Original.ID() == "" {
			return nil, &ValidationError{Fields: []string{string(model.FieldID)}}
		}
		w.mode = WizardModeEdit
		w.original = cfg.Original.Clone()
		w.record = cfg.Original.Clone()
		return w, nil
	}

	if w.drafts != nil && w.draftKey != "" {
		if draft, ok := w.drafts.Restore(ctx, w.draftKey); ok {
			w.record = draft.Payload
			w.current = min(max(draft.Step, 1), w.steps)
			w.restored = true
			logger.Info("wizard draft restored", "key", w.draftKey, "step", w.current)
		}
	}

	return w, nil
}

// Step returns the current step (1-based).
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Steps returns the number of steps.
func (w *Wizard) Steps() int {
	return w.steps
}

// Mode returns whether the wizard creates or edits a record.
func (w *Wizard) Mode() WizardMode {
	return w.mode
}

// DraftKey returns the key the wizard drafts under.
func (w *Wizard) DraftKey() string {
	return w.draftKey
}

// Restored reports whether the wizard opened from a saved draft.
func (w *Wizard) Restored() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restored
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Closed reports whether the wizard was submitted or discarded.
func (w *Wizard) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Record returns a copy of the in-progress record.
func (w *Wizard) Record() model.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.record.Clone()
}

// Update merges form input into the in-progress record.
func (w *Wizard) Update(fields model.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkIdle(); err != nil {
		return err
	}
	w.record.Merge(fields)
	return nil
}

// Next advances one step. At the last step it is a no-op.
func (w *Wizard) Next(ctx context.Context) (int, error) {
	return w.move(ctx, 1)
}

// Previous goes back one step. At the first step it is a no-op.
func (w *Wizard) Previous(ctx context.Context) (int, error) {
	return w.move(ctx, -1)
}

func (w *Wizard) move(ctx context.Context, delta int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkIdle(); err != nil {
		return w.current, err
	}

	target := w.current + delta
	if target < 1 || target > w.steps {
		return w.current, nil
	}
	w.current = target

	if w.mode == WizardModeNew && w.drafts != nil && w.draftKey != "" {
		w.drafts.Save(ctx, w.draftKey, w.record, w.current)
	}
	return w.current, nil
}

// Review returns the change-set between the original and in-progress record.
// In new mode every filled tracked field is reported as added.
func (w *Wizard) Review() []model.ChangeEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changes.Compute(w.original, w.record)
}

// Submit sends the record to the backend. It is only allowed from the last
// step. In edit mode an empty change-set short-circuits to OutcomeNoChanges
// and a non-empty one requires confirm, otherwise OutcomeNeedsConfirmation is
// returned with the changes for review. Backend errors are returned as-is and
// leave the wizard open at its current step.
func (w *Wizard) Submit(ctx context.Context, confirm bool) (SubmitResult, error) {
	w.mu.Lock()
	if err := w.checkIdle(); err != nil {
		w.mu.Unlock()
		return SubmitResult{}, err
	}
	if w.current != w.steps {
		w.mu.Unlock()
		return SubmitResult{}, ErrNotFinalStep
	}

	record := w.record.Clone()
	if w.validate != nil {
		if err := w.validate(record, w.mode); err != nil {
			w.mu.Unlock()
			return SubmitResult{}, err
		}
	}

	var changes []model.ChangeEntry
	id := w.original.ID()
	if w.mode == WizardModeEdit {
		changes = w.changes.Compute(w.original, record)
		if len(changes) == 0 {
			w.mu.Unlock()
			return SubmitResult{Outcome: OutcomeNoChanges}, nil
		}
		if !confirm {
			w.mu.Unlock()
			return SubmitResult{Outcome: OutcomeNeedsConfirmation, Changes: changes}, nil
		}
	}

	w.submitting = true
	w.mu.Unlock()

	var stored model.Record
	var err error
	if w.mode == WizardModeEdit {
		stored, err = w.store.Update(ctx, id, BuildPatch(record, changes))
	} else {
		stored, err = w.store.Create(ctx, record)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		w.logger.Warn("wizard submission failed", "mode", w.mode, "step", w.current, "error", err)
		return SubmitResult{}, err
	}

	w.closed = true
	if w.mode == WizardModeEdit {
		return SubmitResult{Outcome: OutcomeUpdated, Record: stored, Changes: changes}, nil
	}

	if w.drafts != nil && w.draftKey != "" {
		w.drafts.Clear(ctx, w.draftKey)
	}
	return SubmitResult{Outcome: OutcomeCreated, Record: stored}, nil
}

// Discard closes the wizard and deletes its draft.
func (w *Wizard) Discard(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmitInFlight
	}
	w.closed = true
	if w.drafts != nil && w.draftKey != "" {
		w.drafts.Clear(ctx, w.draftKey)
	}
	return nil
}

// checkIdle must be called with mu held.
func (w *Wizard) checkIdle() error {
	if w.submitting {
		return ErrSubmitInFlight
	}
	if w.closed {
		return ErrWizardClosed
	}
	return nil
}
