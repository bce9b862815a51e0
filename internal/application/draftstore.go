package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// draftEnvelope is the serialized form of a draft.
type draftEnvelope struct {
	Step    int          `json:"step"`
	Payload model.Record `json:"payload"`
	SavedAt time.Time    `json:"saved_at"`
}

// DraftStore stashes in-progress form input so a user can resume after a
// reload or crash. Losing a draft only costs re-entry, so no method ever
// returns an error: storage and encoding failures are logged and dropped.
type DraftStore struct {
	kv     driven.KeyValueStore
	logger *slog.Logger
	now    func() time.Time
}

// NewDraftStore creates a DraftStore over the given key-value port.
func NewDraftStore(kv driven.KeyValueStore, logger *slog.Logger) *DraftStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftStore{kv: kv, logger: logger, now: time.Now}
}

// Save overwrites the draft stored under key. Steps are 1-based; a save with
// step < 1 is logged and dropped, leaving any previous draft in place.
func (s *DraftStore) Save(ctx context.Context, key string, payload model.Record, step int) {
	if step < 1 {
		s.logger.Warn("draft not saved: invalid step", "key", key, "step", step)
		return
	}
	if payload == nil {
		payload = model.Record{}
	}

	data, err := json.Marshal(draftEnvelope{Step: step, Payload: payload, SavedAt: s.now().UTC()})
	if err != nil {
		s.logger.Warn("draft not saved: encode failed", "key", key, "error", err)
		return
	}

	if err := s.kv.Save(ctx, key, data); err != nil {
		s.logger.Warn("draft not saved: storage failed", "key", key, "error", err)
	}
}

// Restore returns the most recently saved draft under key. It reports false
// when no draft exists, the store is unavailable, or the stored bytes are
// corrupt.
func (s *DraftStore) Restore(ctx context.Context, key string) (*model.DraftState, bool) {
	data, ok, err := s.kv.Load(ctx, key)
	if err != nil {
		s.logger.Warn("draft not restored: storage failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var env draftEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("discarding corrupt draft", "key", key, "error", err)
		return nil, false
	}
	if env.Step < 1 {
		s.logger.Warn("discarding corrupt draft", "key", key, "step", env.Step)
		return nil, false
	}
	if env.Payload == nil {
		env.Payload = model.Record{}
	}

	return &model.DraftState{
		Key:     key,
		Payload: env.Payload,
		Step:    env.Step,
		SavedAt: env.SavedAt,
	}, true
}

// Clear deletes the draft under key.
func (s *DraftStore) Clear(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.Warn("draft not cleared", "key", key, "error", err)
	}
}
