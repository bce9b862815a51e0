package model

import "time"

// MatchType describes how a folder name matched the target.
type MatchType string

const (
	MatchExact         MatchType = "exact"
	MatchPartial       MatchType = "partial"
	MatchFuzzy         MatchType = "fuzzy"
	MatchContainsAlias MatchType = "contains_alias"
)

// Confidence is a threshold band over a match score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FolderAction is the recommended (or chosen) way to associate a folder.
type FolderAction string

const (
	FolderActionUseExisting FolderAction = "use_existing"
	FolderActionCreateNew   FolderAction = "create_new"
	FolderActionLinkBoth    FolderAction = "link_both"
)

// FolderCandidate is a possible pre-existing folder for a customer. Search
// adapters fill the descriptive fields; the matcher fills MatchScore,
// MatchType and Confidence.
type FolderCandidate struct {
	ID           string
	Name         string
	Path         string
	URL          string
	ParentType   string
	LastModified *time.Time
	FileCount    *int

	MatchScore float64
	MatchType  MatchType
	Confidence Confidence
}

// MatchRecommendation is the matcher's advice for one target name.
type MatchRecommendation struct {
	Action           FolderAction
	Primary          *FolderCandidate
	Alternatives     []FolderCandidate
	Reason           string
	LinkBothEligible bool
}

// FolderStructure describes a newly created customer folder tree.
type FolderStructure struct {
	MainFolderID  string
	MainFolderURL string
	Subfolders    map[string]string // subfolder name -> folder ID
}
