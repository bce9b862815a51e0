package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/sitepanel/internal/application"
	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// validationResponse names the offending fields of a 400 response.
type validationResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

// ChangeResponse is one entry of a change review.
type ChangeResponse struct {
	Field      string `json:"field"`
	Label      string `json:"label"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
	Kind       string `json:"kind"`
	DisplayOld string `json:"display_old"`
	DisplayNew string `json:"display_new"`
}

// EditResponse is the result of PATCH /customers/{id}.
type EditResponse struct {
	DryRun  bool             `json:"dry_run"`
	Applied bool             `json:"applied"`
	Changes []ChangeResponse `json:"changes"`
	Record  model.Record     `json:"record,omitempty"`
}

// CandidateResponse is a scored folder candidate.
type CandidateResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Path         string  `json:"path,omitempty"`
	URL          string  `json:"url,omitempty"`
	ParentType   string  `json:"parent_type,omitempty"`
	LastModified string  `json:"last_modified,omitempty"`
	FileCount    *int    `json:"file_count,omitempty"`
	MatchScore   float64 `json:"match_score"`
	MatchType    string  `json:"match_type"`
	Confidence   string  `json:"confidence"`
}

// RecommendationResponse is the matcher's advice.
type RecommendationResponse struct {
	Action           string              `json:"action"`
	Primary          *CandidateResponse  `json:"primary"`
	Alternatives     []CandidateResponse `json:"alternatives"`
	Reason           string              `json:"reason"`
	LinkBothEligible bool                `json:"link_both_eligible"`
}

// FolderRecommendationResponse is the body of the folder recommendation endpoint.
type FolderRecommendationResponse struct {
	CustomerID     string                 `json:"customer_id"`
	Candidates     []CandidateResponse    `json:"candidates"`
	Recommendation RecommendationResponse `json:"recommendation"`
}

// FolderStructureResponse describes a created folder tree.
type FolderStructureResponse struct {
	MainFolderID  string            `json:"main_folder_id"`
	MainFolderURL string            `json:"main_folder_url"`
	Subfolders    map[string]string `json:"subfolders"`
}

// FolderResultResponse is the body of a successful folder decision.
type FolderResultResponse struct {
	Record    model.Record             `json:"record"`
	Changes   []ChangeResponse         `json:"changes"`
	Structure *FolderStructureResponse `json:"structure,omitempty"`
}

// ContractResponse is one imported service contract.
type ContractResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Number    string  `json:"number"`
	Value     float64 `json:"value"`
	Status    string  `json:"status"`
	StartDate string  `json:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty"`
	Email     string  `json:"email,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// CredentialsResponse maps group -> key -> plaintext value.
type CredentialsResponse map[string]map[string]string

// WizardResponse is the state of a live wizard.
type WizardResponse struct {
	ID       string           `json:"id"`
	Mode     string           `json:"mode"`
	Step     int              `json:"step"`
	Steps    int              `json:"steps"`
	DraftKey string           `json:"draft_key,omitempty"`
	Restored bool             `json:"restored"`
	Closed   bool             `json:"closed"`
	Record   model.Record     `json:"record"`
	Changes  []ChangeResponse `json:"changes"`
}

// SubmitResponse is the outcome of a wizard submission.
type SubmitResponse struct {
	Outcome string           `json:"outcome"`
	Record  model.Record     `json:"record,omitempty"`
	Changes []ChangeResponse `json:"changes"`
}

// toCustomerResponse returns the customer record with access notes rendered
// to sanitized HTML.
func toCustomerResponse(r model.Record) model.Record {
	out := r.Clone()
	if notes := r.String(model.FieldAccessNotes); notes != "" {
		out["access_notes_html"] = RenderMarkdown(notes)
	}
	return out
}

func toChangeResponses(changes []model.ChangeEntry) []ChangeResponse {
	resp := make([]ChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, ChangeResponse{
			Field:      string(c.Field),
			Label:      c.Label,
			OldValue:   c.OldValue,
			NewValue:   c.NewValue,
			Kind:       string(c.Kind),
			DisplayOld: c.DisplayOld(),
			DisplayNew: c.DisplayNew(),
		})
	}
	return resp
}

func toEditResponse(result application.EditResult, dryRun bool) EditResponse {
	resp := EditResponse{
		DryRun:  dryRun,
		Applied: result.Applied,
		Changes: toChangeResponses(result.Changes),
	}
	if result.Record != nil {
		resp.Record = toCustomerResponse(result.Record)
	}
	return resp
}

func toCandidateResponse(c model.FolderCandidate) CandidateResponse {
	resp := CandidateResponse{
		ID:         c.ID,
		Name:       c.Name,
		Path:       c.Path,
		URL:        c.URL,
		ParentType: c.ParentType,
		FileCount:  c.FileCount,
		MatchScore: c.MatchScore,
		MatchType:  string(c.MatchType),
		Confidence: string(c.Confidence),
	}
	if c.LastModified != nil {
		resp.LastModified = c.LastModified.UTC().Format(time.RFC3339)
	}
	return resp
}

func toCandidateResponses(cs []model.FolderCandidate) []CandidateResponse {
	resp := make([]CandidateResponse, 0, len(cs))
	for _, c := range cs {
		resp = append(resp, toCandidateResponse(c))
	}
	return resp
}

func toRecommendationResponse(rec application.FolderRecommendation) FolderRecommendationResponse {
	advice := RecommendationResponse{
		Action:           string(rec.Recommendation.Action),
		Alternatives:     toCandidateResponses(rec.Recommendation.Alternatives),
		Reason:           rec.Recommendation.Reason,
		LinkBothEligible: rec.Recommendation.LinkBothEligible,
	}
	if rec.Recommendation.Primary != nil {
		p := toCandidateResponse(*rec.Recommendation.Primary)
		advice.Primary = &p
	}
	return FolderRecommendationResponse{
		CustomerID:     rec.CustomerID,
		Candidates:     toCandidateResponses(rec.Candidates),
		Recommendation: advice,
	}
}

func toFolderResultResponse(result application.FolderResult) FolderResultResponse {
	resp := FolderResultResponse{
		Record:  toCustomerResponse(result.Record),
		Changes: toChangeResponses(result.Changes),
	}
	if s := result.Structure; s != nil {
		subfolders := s.Subfolders
		if subfolders == nil {
			subfolders = map[string]string{}
		}
		resp.Structure = &FolderStructureResponse{
			MainFolderID:  s.MainFolderID,
			MainFolderURL: s.MainFolderURL,
			Subfolders:    subfolders,
		}
	}
	return resp
}

func toContractResponses(contracts []model.Contract) []ContractResponse {
	resp := make([]ContractResponse, 0, len(contracts))
	for _, c := range contracts {
		resp = append(resp, ContractResponse{
			ID:        c.ID,
			Name:      c.Name,
			Number:    c.Number,
			Value:     c.Value,
			Status:    string(c.Status),
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
			Email:     c.Email,
			Notes:     c.Notes,
		})
	}
	return resp
}

func toCredentialsResponse(creds []model.Credential) CredentialsResponse {
	resp := CredentialsResponse{}
	for _, c := range creds {
		group := string(c.Group)
		if resp[group] == nil {
			resp[group] = map[string]string{}
		}
		resp[group][c.Key] = c.Value
	}
	return resp
}

func toWizardResponse(id string, w *application.Wizard) WizardResponse {
	return WizardResponse{
		ID:       id,
		Mode:     string(w.Mode()),
		Step:     w.Step(),
		Steps:    w.Steps(),
		DraftKey: w.DraftKey(),
		Restored: w.Restored(),
		Closed:   w.Closed(),
		Record:   w.Record(),
		Changes:  toChangeResponses(w.Review()),
	}
}

func toSubmitResponse(result application.SubmitResult) SubmitResponse {
	resp := SubmitResponse{
		Outcome: string(result.Outcome),
		Changes: toChangeResponses(result.Changes),
	}
	if result.Record != nil {
		resp.Record = toCustomerResponse(result.Record)
	}
	return resp
}
