package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

const driveFolderURLPrefix = "https://drive.google.com/drive/folders/"

// thresholdsSettingKey is the settings key holding tuned match thresholds.
const thresholdsSettingKey = "folder_match_thresholds"

// FolderDecision is the user's choice after reviewing a recommendation.
// FolderID names the existing folder for use_existing and link_both.
type FolderDecision struct {
	Action    model.FolderAction `json:"action"`
	FolderID  string             `json:"folder_id,omitempty"`
	FolderURL string             `json:"folder_url,omitempty"`
}

// FolderRecommendation is a ranked candidate list with its recommendation.
type FolderRecommendation struct {
	CustomerID     string                    `json:"customer_id"`
	Candidates     []model.FolderCandidate   `json:"candidates"`
	Recommendation model.MatchRecommendation `json:"recommendation"`
}

// FolderResult is the outcome of applying a FolderDecision.
type FolderResult struct {
	Record    model.Record           `json:"record"`
	Changes   []model.ChangeEntry    `json:"changes"`
	Structure *model.FolderStructure `json:"structure,omitempty"`
}

// FolderService links customers to storage folders. Either port may be nil:
// without a searcher every recommendation is SearchUnavailable, and without
// a creator only existing folders can be linked.
type FolderService struct {
	customers *CustomerService
	searcher  driven.FolderSearcher
	creator   driven.FolderCreator
	settings  driven.KeyValueStore
	logger    *slog.Logger

	mu      sync.RWMutex
	matcher *FolderMatcher
}

// NewFolderService creates a FolderService.
func NewFolderService(
	customers *CustomerService,
	searcher driven.FolderSearcher,
	creator driven.FolderCreator,
	matcher *FolderMatcher,
	logger *slog.Logger,
) *FolderService {
	if matcher == nil {
		matcher = NewFolderMatcher(DefaultMatchThresholds())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderService{
		customers: customers,
		searcher:  searcher,
		creator:   creator,
		matcher:   matcher,
		logger:    logger,
	}
}

// WithSettings persists tuned thresholds in kv.
func (s *FolderService) WithSettings(kv driven.KeyValueStore) *FolderService {
	s.settings = kv
	return s
}

// Thresholds returns the thresholds currently used for matching.
func (s *FolderService) Thresholds() MatchThresholds {
	return s.currentMatcher().Thresholds()
}

// SetThresholds validates t, persists it when a settings store is
// configured and uses it for subsequent recommendations.
func (s *FolderService) SetThresholds(ctx context.Context, t MatchThresholds) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", &ValidationError{Fields: []string{"thresholds"}}, err)
	}

	if s.settings != nil {
		data, err := yaml.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode match thresholds: %w", err)
		}
		if err := s.settings.Save(ctx, thresholdsSettingKey, data); err != nil {
			return fmt.Errorf("save match thresholds: %w", err)
		}
	}

	s.mu.Lock()
	s.matcher = NewFolderMatcher(t)
	s.mu.Unlock()
	s.logger.Info("folder match thresholds updated", "high", t.High, "medium", t.Medium, "minimum", t.Minimum)
	return nil
}

// LoadThresholds replaces the current thresholds with persisted ones, if any.
func (s *FolderService) LoadThresholds(ctx context.Context) error {
	if s.settings == nil {
		return nil
	}
	data, ok, err := s.settings.Load(ctx, thresholdsSettingKey)
	if err != nil {
		return fmt.Errorf("load match thresholds: %w", err)
	}
	if !ok {
		return nil
	}

	t, err := ParseMatchThresholds(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.matcher = NewFolderMatcher(t)
	s.mu.Unlock()
	return nil
}

func (s *FolderService) currentMatcher() *FolderMatcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher
}

// TargetFor builds the match target of a customer: its company name, with
// the site nickname and site address as aliases.
func TargetFor(customer model.Record) MatchTarget {
	target := MatchTarget{Name: customer.String(model.FieldCompanyName)}
	for _, f := range []model.Field{model.FieldSiteNickname, model.FieldSiteAddress} {
		if v := customer.String(f); v != "" {
			target.Aliases = append(target.Aliases, v)
		}
	}
	return target
}

// Recommend searches for folders matching the customer and ranks them.
// Search failures degrade to a create-new recommendation rather than an error.
func (s *FolderService) Recommend(ctx context.Context, customerID string) (FolderRecommendation, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return FolderRecommendation{}, err
	}

	out := FolderRecommendation{CustomerID: customerID, Candidates: []model.FolderCandidate{}}
	if s.searcher == nil {
		out.Recommendation = SearchUnavailable()
		return out, nil
	}

	target := TargetFor(customer)
	raw, err := s.searcher.Search(ctx, target.Name, target.Aliases)
	if err != nil {
		s.logger.Warn("folder search failed", "customer_id", customerID, "error", err)
		out.Recommendation = SearchUnavailable()
		return out, nil
	}

	ranked, rec := s.currentMatcher().Match(target, raw)
	if ranked != nil {
		out.Candidates = ranked
	}
	out.Recommendation = rec
	s.logger.Info("folder recommendation",
		"customer_id", customerID,
		"candidates", len(ranked),
		"action", rec.Action,
	)
	return out, nil
}

// Apply carries out a folder decision and persists the folder reference on
// the customer. Only the changed folder fields are sent to the store.
func (s *FolderService) Apply(ctx context.Context, customerID string, d FolderDecision) (FolderResult, error) {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return FolderResult{}, err
	}

	fields := model.Record{}
	var structure *model.FolderStructure

	switch d.Action {
	case model.FolderActionUseExisting:
		if d.FolderID == "" {
			return FolderResult{}, &ValidationError{Fields: []string{"folder_id"}}
		}
		fields.Set(model.FieldDriveFolderID, d.FolderID)
		fields.Set(model.FieldDriveFolderURL, folderURL(d))

	case model.FolderActionCreateNew, model.FolderActionLinkBoth:
		if d.Action == model.FolderActionLinkBoth && d.FolderID == "" {
			return FolderResult{}, &ValidationError{Fields: []string{"folder_id"}}
		}
		if s.creator == nil {
			return FolderResult{}, ErrFolderCreationUnavailable
		}
		created, err := s.creator.CreateStructured(ctx, customer.String(model.FieldCompanyName), folderMetadata(customer))
		if err != nil {
			return FolderResult{}, fmt.Errorf("create folder for customer %s: %w", customerID, err)
		}
		structure = &created
		fields.Set(model.FieldDriveFolderID, created.MainFolderID)
		fields.Set(model.FieldDriveFolderURL, created.MainFolderURL)
		if d.Action == model.FolderActionLinkBoth {
			fields.Set(model.FieldDriveLinkedFolderID, d.FolderID)
		}

	default:
		return FolderResult{}, &ValidationError{Fields: []string{"action"}}
	}

	edit, err := s.customers.Edit(ctx, customerID, fields, false)
	if err != nil {
		return FolderResult{Structure: structure}, err
	}
	s.logger.Info("customer folder linked",
		"customer_id", customerID,
		"action", d.Action,
		"folder_id", fields.String(model.FieldDriveFolderID),
	)

	return FolderResult{Record: edit.Record, Changes: edit.Changes, Structure: structure}, nil
}

func folderURL(d FolderDecision) string {
	if d.FolderURL != "" {
		return d.FolderURL
	}
	return driveFolderURLPrefix + d.FolderID
}

func folderMetadata(customer model.Record) map[string]string {
	meta := map[string]string{"customer_id": customer.ID()}
	for _, f := range []model.Field{model.FieldLegacyCustomerID, model.FieldServiceTier, model.FieldSiteAddress} {
		if v := customer.String(f); v != "" {
			meta[string(f)] = v
		}
	}
	return meta
}
