package httphandler

import (
	"context"
	"net/http"

	"github.com/ericfisherdev/sitepanel/internal/application"
	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// OpenWizardRequest is the JSON body for opening a wizard. An empty
// CustomerID opens a new-record wizard drafted under DraftKey.
type OpenWizardRequest struct {
	DraftKey   string `json:"draft_key"`
	CustomerID string `json:"customer_id"`
}

// SubmitWizardRequest is the JSON body for submitting a wizard.
type SubmitWizardRequest struct {
	Confirm bool `json:"confirm"`
}

// OpenWizard opens a customer wizard and registers it under a new session ID.
func (h *Handler) OpenWizard(w http.ResponseWriter, r *http.Request) {
	var req OpenWizardRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	wiz, err := h.customers.OpenWizard(r.Context(), req.DraftKey, req.CustomerID)
	if err != nil {
		h.writeServiceError(w, "open wizard", err)
		return
	}
	id := h.wizards.Add(wiz)
	writeJSON(w, http.StatusCreated, toWizardResponse(id, wiz))
}

// GetWizard returns the wizard state with its pending change review.
func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wiz, err := h.wizards.Get(id)
	if err != nil {
		h.writeServiceError(w, "get wizard", err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardResponse(id, wiz))
}

// UpdateWizard merges field updates into the in-progress record.
func (h *Handler) UpdateWizard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wiz, err := h.wizards.Get(id)
	if err != nil {
		h.writeServiceError(w, "get wizard", err)
		return
	}

	var fields model.Record
	if !decodeBody(w, r, &fields) {
		return
	}
	if err := wiz.Update(fields); err != nil {
		h.writeServiceError(w, "update wizard", err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardResponse(id, wiz))
}

// NextStep advances the wizard one step.
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	h.moveStep(w, r, (*application.Wizard).Next)
}

// PreviousStep moves the wizard back one step.
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	h.moveStep(w, r, (*application.Wizard).Previous)
}

func (h *Handler) moveStep(
	w http.ResponseWriter,
	r *http.Request,
	move func(*application.Wizard, context.Context) (int, error),
) {
	id := r.PathValue("id")
	wiz, err := h.wizards.Get(id)
	if err != nil {
		h.writeServiceError(w, "get wizard", err)
		return
	}
	if _, err := move(wiz, r.Context()); err != nil {
		h.writeServiceError(w, "move wizard", err)
		return
	}
	writeJSON(w, http.StatusOK, toWizardResponse(id, wiz))
}

// SubmitWizard submits the wizard from its final step. A successful create
// or update closes the wizard and removes the session.
func (h *Handler) SubmitWizard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wiz, err := h.wizards.Get(id)
	if err != nil {
		h.writeServiceError(w, "get wizard", err)
		return
	}

	var req SubmitWizardRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := wiz.Submit(r.Context(), req.Confirm)
	if err != nil {
		h.writeServiceError(w, "submit wizard", err)
		return
	}

	status := http.StatusOK
	switch result.Outcome {
	case application.OutcomeCreated:
		status = http.StatusCreated
		h.wizards.Remove(id)
	case application.OutcomeUpdated:
		h.wizards.Remove(id)
	case application.OutcomeNoChanges, application.OutcomeNeedsConfirmation:
		// wizard stays open
	}
	writeJSON(w, status, toSubmitResponse(result))
}

// DiscardWizard closes the wizard, deletes its draft and forgets the session.
func (h *Handler) DiscardWizard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wiz, err := h.wizards.Get(id)
	if err != nil {
		h.writeServiceError(w, "get wizard", err)
		return
	}
	if err := wiz.Discard(r.Context()); err != nil {
		h.writeServiceError(w, "discard wizard", err)
		return
	}
	h.wizards.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}
