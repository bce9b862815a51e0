package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/sitepanel/internal/application"
	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	customers   *application.CustomerService
	folders     *application.FolderService
	credentials driven.CredentialStore
	contracts   driven.ContractStore
	wizards     *application.WizardRegistry
	health      *application.HealthService
	logger      *slog.Logger
}

// NewHandler creates a Handler. folders, credentials and health may be nil;
// the matching endpoints then answer 503.
func NewHandler(
	customers *application.CustomerService,
	folders *application.FolderService,
	credentials driven.CredentialStore,
	wizards *application.WizardRegistry,
	health *application.HealthService,
	logger *slog.Logger,
) *Handler {
	if wizards == nil {
		wizards = application.NewWizardRegistry()
	}
	return &Handler{
		customers:   customers,
		folders:     folders,
		credentials: credentials,
		wizards:     wizards,
		health:      health,
		logger:      logger,
	}
}

// WithContracts serves imported contracts from cs. Without it the contracts
// endpoint answers 503.
func (h *Handler) WithContracts(cs driven.ContractStore) *Handler {
	h.contracts = cs
	return h
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/customers", h.ListCustomers)
	mux.HandleFunc("POST /api/v1/customers", h.CreateCustomer)
	mux.HandleFunc("GET /api/v1/customers/{id}", h.GetCustomer)
	mux.HandleFunc("PATCH /api/v1/customers/{id}", h.EditCustomer)
	mux.HandleFunc("DELETE /api/v1/customers/{id}", h.DeleteCustomer)

	mux.HandleFunc("GET /api/v1/customers/{id}/contracts", h.ListContracts)

	mux.HandleFunc("GET /api/v1/customers/{id}/credentials", h.ListCredentials)
	mux.HandleFunc("PUT /api/v1/customers/{id}/credentials/{group}", h.SetCredentials)
	mux.HandleFunc("DELETE /api/v1/customers/{id}/credentials/{group}/{key}", h.DeleteCredential)

	mux.HandleFunc("GET /api/v1/customers/{id}/folder/recommendation", h.RecommendFolder)
	mux.HandleFunc("POST /api/v1/customers/{id}/folder", h.ApplyFolder)
	mux.HandleFunc("GET /api/v1/settings/match-thresholds", h.GetThresholds)
	mux.HandleFunc("PUT /api/v1/settings/match-thresholds", h.SetThresholds)

	mux.HandleFunc("POST /api/v1/wizards", h.OpenWizard)
	mux.HandleFunc("GET /api/v1/wizards/{id}", h.GetWizard)
	mux.HandleFunc("PATCH /api/v1/wizards/{id}", h.UpdateWizard)
	mux.HandleFunc("POST /api/v1/wizards/{id}/next", h.NextStep)
	mux.HandleFunc("POST /api/v1/wizards/{id}/previous", h.PreviousStep)
	mux.HandleFunc("POST /api/v1/wizards/{id}/submit", h.SubmitWizard)
	mux.HandleFunc("DELETE /api/v1/wizards/{id}", h.DiscardWizard)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// Health reports the aggregated component health. A down service answers 503
// so container health checks fail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, application.HealthReport{
			Status:     application.HealthOK,
			Components: []application.ComponentHealth{},
			Wizards:    h.wizards.Len(),
		})
		return
	}

	report := h.health.Report(r.Context())
	status := http.StatusOK
	if report.Status == application.HealthDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// ListCustomers returns customers filtered by ?q=, ?tier= and ?limit=.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	filter := model.CustomerFilter{
		Query:       strings.TrimSpace(r.URL.Query().Get("q")),
		ServiceTier: model.ServiceTier(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("tier")))),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	customers, err := h.customers.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, "list customers", err)
		return
	}

	resp := make([]model.Record, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, toCustomerResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCustomer returns a single customer.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// CreateCustomer validates and stores a new customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var record model.Record
	if !decodeBody(w, r, &record) {
		return
	}

	created, err := h.customers.Create(r.Context(), record)
	if err != nil {
		h.writeServiceError(w, "create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerResponse(created))
}

// EditCustomer applies a partial update. Only changed fields are sent to the
// store; ?dry_run=true returns the change-set without storing anything.
func (h *Handler) EditCustomer(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dry_run")
			return
		}
		dryRun = v
	}

	var fields model.Record
	if !decodeBody(w, r, &fields) {
		return
	}

	result, err := h.customers.Edit(r.Context(), r.PathValue("id"), fields, dryRun)
	if err != nil {
		h.writeServiceError(w, "edit customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toEditResponse(result, dryRun))
}

// DeleteCustomer removes a customer together with its stored credentials
// and contracts.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.customers.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "delete customer", err)
		return
	}
	if h.credentials != nil {
		if err := h.credentials.DeleteCustomer(r.Context(), id); err != nil {
			h.logger.Warn("credential cleanup failed", "customer_id", id, "error", err)
		}
	}
	if h.contracts != nil {
		if err := h.contracts.DeleteCustomer(r.Context(), id); err != nil {
			h.logger.Warn("contract cleanup failed", "customer_id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContracts returns the SimPro contracts imported for a customer.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	if h.contracts == nil {
		writeError(w, http.StatusServiceUnavailable, "contract history is not configured")
		return
	}
	id := r.PathValue("id")
	if _, err := h.customers.Get(r.Context(), id); err != nil {
		h.writeServiceError(w, "get customer", err)
		return
	}

	contracts, err := h.contracts.ListByCustomer(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponses(contracts))
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps application and port errors onto HTTP statuses.
// Unrecognized errors are logged and reported as a generic 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *application.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: ve.Error(), Fields: ve.Fields})
	case errors.Is(err, driven.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer not found")
	case errors.Is(err, application.ErrWizardNotFound):
		writeError(w, http.StatusNotFound, "wizard not found")
	case errors.Is(err, application.ErrSubmitInFlight),
		errors.Is(err, application.ErrNotFinalStep),
		errors.Is(err, application.ErrWizardClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet),
		errors.Is(err, application.ErrFolderCreationUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
