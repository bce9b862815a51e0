package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// SITEPANEL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set SITEPANEL_SECRET_KEY")

// CredentialStore defines the driven port for encrypted site credential
// persistence. The adapter layer is responsible for encryption/decryption;
// this interface operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces one credential value for a customer's group.
	Set(ctx context.Context, customerID string, group model.CredentialGroup, key, plaintext string) error

	// Get retrieves a single plaintext credential. Returns ("", nil) if it does not exist.
	Get(ctx context.Context, customerID string, group model.CredentialGroup, key string) (string, error)

	// ListGroup returns key -> plaintext for one group of a customer.
	ListGroup(ctx context.Context, customerID string, group model.CredentialGroup) (map[string]string, error)

	// List returns every credential stored for a customer, ordered by group then key.
	List(ctx context.Context, customerID string) ([]model.Credential, error)

	// Delete removes one credential. Deleting a missing credential is not an error.
	Delete(ctx context.Context, customerID string, group model.CredentialGroup, key string) error

	// DeleteCustomer removes every credential of a customer.
	DeleteCustomer(ctx context.Context, customerID string) error
}
