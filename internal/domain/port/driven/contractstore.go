package driven

import (
	"context"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// ContractStore persists the service contracts an import matched to
// customers. A contract is identified by its customer, number and name.
type ContractStore interface {
	// Upsert stores c under customerID, replacing a stored contract with the
	// same number and name. A replaced contract keeps its original ID.
	Upsert(ctx context.Context, customerID string, c model.Contract) error

	// ListByCustomer returns a customer's contracts, active ones first, then
	// by start date, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]model.Contract, error)

	// DeleteCustomer removes every contract of a customer.
	DeleteCustomer(ctx context.Context, customerID string) error
}
