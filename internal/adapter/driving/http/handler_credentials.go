package httphandler

import (
	"net/http"
	"strings"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// ListCredentials returns every decrypted credential of a customer grouped by
// credential group.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	id, ok := h.credentialCustomer(w, r)
	if !ok {
		return
	}

	creds, err := h.credentials.List(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "list credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialsResponse(creds))
}

// SetCredentials stores the key/value pairs of the request body under one
// group. Existing keys not named in the body are left untouched.
func (h *Handler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	group, ok := credentialGroup(w, r)
	if !ok {
		return
	}
	id, ok := h.credentialCustomer(w, r)
	if !ok {
		return
	}

	var values map[string]string
	if !decodeBody(w, r, &values) {
		return
	}
	for key := range values {
		if strings.TrimSpace(key) == "" {
			writeError(w, http.StatusBadRequest, "credential key must not be empty")
			return
		}
	}

	for key, value := range values {
		if err := h.credentials.Set(r.Context(), id, group, key, value); err != nil {
			h.writeServiceError(w, "set credential", err)
			return
		}
	}

	stored, err := h.credentials.ListGroup(r.Context(), id, group)
	if err != nil {
		h.writeServiceError(w, "list credential group", err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// DeleteCredential removes one credential key.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	group, ok := credentialGroup(w, r)
	if !ok {
		return
	}
	id, ok := h.credentialCustomer(w, r)
	if !ok {
		return
	}

	if err := h.credentials.Delete(r.Context(), id, group, r.PathValue("key")); err != nil {
		h.writeServiceError(w, "delete credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// credentialCustomer resolves the customer in the path. Credentials carry no
// foreign key, so the customer is checked here.
func (h *Handler) credentialCustomer(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.credentials == nil {
		writeError(w, http.StatusServiceUnavailable, driven.ErrEncryptionKeyNotSet.Error())
		return "", false
	}
	id := r.PathValue("id")
	if _, err := h.customers.Get(r.Context(), id); err != nil {
		h.writeServiceError(w, "get customer", err)
		return "", false
	}
	return id, true
}

func credentialGroup(w http.ResponseWriter, r *http.Request) (model.CredentialGroup, bool) {
	group := model.CredentialGroup(r.PathValue("group"))
	if !group.Valid() {
		writeError(w, http.StatusBadRequest, "unknown credential group")
		return "", false
	}
	return group, true
}
