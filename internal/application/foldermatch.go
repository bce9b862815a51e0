package application

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// Recommendation reasons. Exactly one is chosen per recommendation.
const (
	ReasonHighConfidence    = "An existing folder closely matches this customer; use it."
	ReasonAmbiguous         = "Several existing folders match equally well; choose one, link both, or create a new folder."
	ReasonWeakMatch         = "Only weak folder matches were found; review them or create a new folder."
	ReasonNoMatch           = "No existing folder matches this customer; create a new folder."
	ReasonSearchUnavailable = "Folder search is unavailable; create a new folder."
)

// maxFuzzyScore keeps fuzzy matches strictly below an exact match.
const maxFuzzyScore = 0.99

// MatchThresholds are the tunable cutoffs of the folder matcher.
type MatchThresholds struct {
	// Minimum is the score below which a candidate is discarded.
	Minimum float64 `yaml:"minimum" json:"minimum"`
	// Medium and High are the lower bounds of the confidence bands.
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
	// AskUser is the score at which a candidate is worth offering to the user.
	AskUser float64 `yaml:"ask_user" json:"ask_user"`
	// LeaderDelta is the score gap under which the top two candidates tie.
	LeaderDelta float64 `yaml:"leader_delta" json:"leader_delta"`
	// AliasExact is the score for a folder named exactly like an alias.
	AliasExact float64 `yaml:"alias_exact" json:"alias_exact"`
	// ContainFloor and ContainCeil bound whole-word containment scores.
	ContainFloor float64 `yaml:"contain_floor" json:"contain_floor"`
	ContainCeil  float64 `yaml:"contain_ceil" json:"contain_ceil"`
	// MinContainRunes is the shortest string eligible for containment matching.
	MinContainRunes int `yaml:"min_contain_runes" json:"min_contain_runes"`
}

// DefaultMatchThresholds returns the production thresholds.
func DefaultMatchThresholds() MatchThresholds {
	return MatchThresholds{
		Minimum:         0.60,
		Medium:          0.70,
		High:            0.90,
		AskUser:         0.70,
		LeaderDelta:     0.05,
		AliasExact:      0.95,
		ContainFloor:    0.75,
		ContainCeil:     0.95,
		MinContainRunes: 4,
	}
}

// Validate checks that the bands are ordered and within [0,1].
func (t MatchThresholds) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"minimum", t.Minimum}, {"medium", t.Medium}, {"high", t.High},
		{"ask_user", t.AskUser}, {"leader_delta", t.LeaderDelta}, {"alias_exact", t.AliasExact},
		{"contain_floor", t.ContainFloor}, {"contain_ceil", t.ContainCeil},
	} {
		if err := inUnit(c.name, c.v); err != nil {
			return err
		}
	}
	if t.Minimum > t.Medium || t.Medium > t.High {
		return errors.New("thresholds must satisfy minimum <= medium <= high")
	}
	if t.ContainFloor > t.ContainCeil || t.ContainCeil >= 1 {
		return errors.New("thresholds must satisfy contain_floor <= contain_ceil < 1")
	}
	if t.AliasExact >= 1 {
		return errors.New("alias_exact must be below 1")
	}
	if t.MinContainRunes < 1 {
		return errors.New("min_contain_runes must be >= 1")
	}
	return nil
}

// ParseMatchThresholds overlays YAML onto the defaults and validates the result.
func ParseMatchThresholds(data []byte) (MatchThresholds, error) {
	t := DefaultMatchThresholds()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return MatchThresholds{}, fmt.Errorf("parse match thresholds: %w", err)
	}
	if err := t.Validate(); err != nil {
		return MatchThresholds{}, fmt.Errorf("invalid match thresholds: %w", err)
	}
	return t, nil
}

// MatchTarget is the name folders are matched against, plus alternate names
// such as a site nickname or address.
type MatchTarget struct {
	Name    string
	Aliases []string
}

// FolderMatcher scores folder candidates against a target name and turns the
// ranking into a recommendation. It is stateless and deterministic.
type FolderMatcher struct {
	t MatchThresholds
}

// NewFolderMatcher creates a matcher with the given thresholds.
func NewFolderMatcher(t MatchThresholds) *FolderMatcher {
	return &FolderMatcher{t: t}
}

// Thresholds returns the matcher's thresholds.
func (m *FolderMatcher) Thresholds() MatchThresholds {
	return m.t
}

// compared is one name the folder is compared with.
type compared struct {
	literal string
	canon   string
	core    string
	tokens  []string
	alias   bool
}

// Score rates every raw candidate against target, drops those below the
// minimum threshold and returns the rest ranked best first.
func (m *FolderMatcher) Score(target MatchTarget, raw []model.FolderCandidate) []model.FolderCandidate {
	names := m.comparedNames(target)
	if len(names) == 0 {
		return []model.FolderCandidate{}
	}

	scored := make([]model.FolderCandidate, 0, len(raw))
	for _, c := range raw {
		score, kind := m.scoreFolder(c.Name, names)
		if score < m.t.Minimum || score == 0 {
			continue
		}
		c.MatchScore = score
		c.MatchType = kind
		c.Confidence = m.confidence(score)
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return lessCandidate(scored[i], scored[j])
	})

	return scored
}

// Recommend turns a ranked candidate list (as returned by Score) into a
// single recommendation.
func (m *FolderMatcher) Recommend(ranked []model.FolderCandidate) model.MatchRecommendation {
	if len(ranked) == 0 {
		return model.MatchRecommendation{
			Action:       model.FolderActionCreateNew,
			Alternatives: []model.FolderCandidate{},
			Reason:       ReasonNoMatch,
		}
	}

	top := ranked[0]

	if len(ranked) > 1 {
		second := ranked[1]
		if top.MatchScore >= m.t.AskUser && second.MatchScore >= m.t.AskUser &&
			top.MatchScore-second.MatchScore < m.t.LeaderDelta {
			return model.MatchRecommendation{
				Action:           model.FolderActionCreateNew,
				Alternatives:     m.askable(ranked, -1),
				Reason:           ReasonAmbiguous,
				LinkBothEligible: true,
			}
		}
	}

	if top.Confidence == model.ConfidenceHigh {
		primary := top
		return model.MatchRecommendation{
			Action:       model.FolderActionUseExisting,
			Primary:      &primary,
			Alternatives: m.askable(ranked, 0),
			Reason:       ReasonHighConfidence,
		}
	}

	alternatives := make([]model.FolderCandidate, len(ranked))
	copy(alternatives, ranked)
	return model.MatchRecommendation{
		Action:           model.FolderActionCreateNew,
		Alternatives:     alternatives,
		Reason:           ReasonWeakMatch,
		LinkBothEligible: true,
	}
}

// Match scores raw candidates and returns the ranking with its recommendation.
func (m *FolderMatcher) Match(target MatchTarget, raw []model.FolderCandidate) ([]model.FolderCandidate, model.MatchRecommendation) {
	ranked := m.Score(target, raw)
	return ranked, m.Recommend(ranked)
}

// SearchUnavailable is the recommendation used when candidates could not be
// fetched at all.
func SearchUnavailable() model.MatchRecommendation {
	return model.MatchRecommendation{
		Action:       model.FolderActionCreateNew,
		Alternatives: []model.FolderCandidate{},
		Reason:       ReasonSearchUnavailable,
	}
}

// askable returns candidates scoring at least AskUser, skipping index skip.
func (m *FolderMatcher) askable(ranked []model.FolderCandidate, skip int) []model.FolderCandidate {
	out := []model.FolderCandidate{}
	for i, c := range ranked {
		if i == skip || c.MatchScore < m.t.AskUser {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *FolderMatcher) comparedNames(target MatchTarget) []compared {
	var names []compared
	seen := make(map[string]bool)

	add := func(raw string, alias bool) {
		raw = strings.TrimSpace(raw)
		tokens := canonicalTokens(raw)
		canon := strings.Join(tokens, " ")
		if canon == "" || seen[canon] {
			return
		}
		seen[canon] = true
		names = append(names, compared{
			literal: literalName(raw),
			canon:   canon,
			core:    stripLegalSuffixes(canon),
			tokens:  tokens,
			alias:   alias,
		})
	}

	add(target.Name, false)
	for _, a := range target.Aliases {
		add(a, true)
	}
	return names
}

// scoreFolder returns the best score of folder over all compared names.
// Earlier names win ties, so the primary name beats aliases.
func (m *FolderMatcher) scoreFolder(folder string, names []compared) (float64, model.MatchType) {
	folder = strings.TrimSpace(folder)
	folderTokens := canonicalTokens(folder)
	folderCanon := strings.Join(folderTokens, " ")
	if folderCanon == "" {
		return 0, ""
	}

	f := compared{
		literal: literalName(folder),
		canon:   folderCanon,
		core:    stripLegalSuffixes(folderCanon),
		tokens:  folderTokens,
	}

	var best float64
	var bestKind model.MatchType

	for _, n := range names {
		score, kind := m.scoreAgainst(f, n)
		if score > best {
			best, bestKind = score, kind
		}
	}
	return best, bestKind
}

// scoreAgainst rates folder f against one compared name. Only a literal
// case-insensitive match scores 1.0; names that are equal once canonicalised
// (parentheticals dropped, abbreviations expanded) score at the top of the
// containment band. A side made of legal suffixes alone ("Corp", "LLC")
// never matches by containment or edit distance.
func (m *FolderMatcher) scoreAgainst(f, n compared) (float64, model.MatchType) {
	if strings.EqualFold(f.literal, n.literal) {
		if n.alias {
			return m.t.AliasExact, model.MatchContainsAlias
		}
		return 1.0, model.MatchExact
	}
	if f.core == "" || n.core == "" {
		return 0, ""
	}
	if f.canon == n.canon {
		if n.alias {
			return m.t.ContainCeil, model.MatchContainsAlias
		}
		return m.t.ContainCeil, model.MatchPartial
	}

	folderLen := utf8.RuneCountInString(f.canon)
	nameLen := utf8.RuneCountInString(n.canon)

	switch {
	case nameLen >= m.t.MinContainRunes && containsTokens(f.tokens, n.tokens):
		return m.containScore(nameLen, folderLen), model.MatchPartial
	case folderLen >= m.t.MinContainRunes && containsTokens(n.tokens, f.tokens):
		return m.containScore(folderLen, nameLen), model.MatchContainsAlias
	}

	longest := max(folderLen, nameLen)
	distance := levenshtein.ComputeDistance(f.canon, n.canon)
	similarity := 1 - float64(distance)/float64(longest)
	return math.Min(similarity, maxFuzzyScore), model.MatchFuzzy
}

// literalName collapses runs of whitespace so "Acme  Corp" equals "Acme Corp".
func literalName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (m *FolderMatcher) containScore(shorter, longer int) float64 {
	ratio := float64(shorter) / float64(longer)
	return m.t.ContainFloor + (m.t.ContainCeil-m.t.ContainFloor)*ratio
}

func (m *FolderMatcher) confidence(score float64) model.Confidence {
	switch {
	case score >= m.t.High:
		return model.ConfidenceHigh
	case score >= m.t.Medium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// lessCandidate orders by score desc, most recently modified first (unknown
// last), then name and ID ascending.
func lessCandidate(a, b model.FolderCandidate) bool {
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	switch {
	case a.LastModified != nil && b.LastModified != nil:
		if !a.LastModified.Equal(*b.LastModified) {
			return a.LastModified.After(*b.LastModified)
		}
	case a.LastModified != nil:
		return true
	case b.LastModified != nil:
		return false
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}
