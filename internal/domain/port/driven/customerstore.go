package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// ErrCustomerNotFound indicates the requested customer does not exist.
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerStore is the backend record service for customer/site records.
// Create assigns the id and timestamps and returns the stored record.
// Update merges patch into the stored record; only the fields present in
// patch are touched. Get and Update return ErrCustomerNotFound for unknown ids.
type CustomerStore interface {
	Create(ctx context.Context, record model.Record) (model.Record, error)
	Update(ctx context.Context, id string, patch model.Record) (model.Record, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (model.Record, error)
	GetByLegacyID(ctx context.Context, legacyID string) (model.Record, error)
	List(ctx context.Context, filter model.CustomerFilter) ([]model.Record, error)
}
