package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/sitepanel/internal/application"
)

// RecommendFolder searches for existing folders matching the customer and
// returns the ranked candidates with a recommended action. Search failures
// still answer 200 with a create_new recommendation.
func (h *Handler) RecommendFolder(w http.ResponseWriter, r *http.Request) {
	if !h.foldersConfigured(w) {
		return
	}

	rec, err := h.folders.Recommend(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "recommend folder", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecommendationResponse(rec))
}

// ApplyFolder carries out the user's folder decision.
func (h *Handler) ApplyFolder(w http.ResponseWriter, r *http.Request) {
	if !h.foldersConfigured(w) {
		return
	}

	var decision application.FolderDecision
	if !decodeBody(w, r, &decision) {
		return
	}

	result, err := h.folders.Apply(r.Context(), r.PathValue("id"), decision)
	if err != nil {
		h.writeServiceError(w, "apply folder decision", err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResultResponse(result))
}

// GetThresholds returns the active folder match thresholds.
func (h *Handler) GetThresholds(w http.ResponseWriter, _ *http.Request) {
	if !h.foldersConfigured(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.folders.Thresholds())
}

// SetThresholds validates, persists and activates new match thresholds.
func (h *Handler) SetThresholds(w http.ResponseWriter, r *http.Request) {
	if !h.foldersConfigured(w) {
		return
	}

	t := h.folders.Thresholds()
	if !decodeBody(w, r, &t) {
		return
	}
	if err := h.folders.SetThresholds(r.Context(), t); err != nil {
		h.writeServiceError(w, "set thresholds", err)
		return
	}
	writeJSON(w, http.StatusOK, h.folders.Thresholds())
}

func (h *Handler) foldersConfigured(w http.ResponseWriter) bool {
	if h.folders == nil {
		writeError(w, http.StatusServiceUnavailable, "folder linking is not configured")
		return false
	}
	return true
}
