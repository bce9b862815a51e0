package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

var _ driven.ContractStore = (*ContractRepo)(nil)

// ContractRepo stores imported SimPro contracts. Like credentials, rows
// reference customers by ID without a foreign key, since customers may live
// in Postgres.
type ContractRepo struct {
	db *DB
}

// NewContractRepo creates a ContractRepo.
func NewContractRepo(db *DB) *ContractRepo {
	return &ContractRepo{db: db}
}

// Upsert inserts c or refreshes the stored contract with the same customer,
// number and name.
func (r *ContractRepo) Upsert(ctx context.Context, customerID string, c model.Contract) error {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}

	const query = `INSERT INTO contracts (
			id, customer_id, legacy_customer_id, customer_name, name, number,
			value, status, start_date, end_date, email, notes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(customer_id, number, name) DO UPDATE SET
			legacy_customer_id = excluded.legacy_customer_id,
			customer_name      = excluded.customer_name,
			value              = excluded.value,
			status             = excluded.status,
			start_date         = excluded.start_date,
			end_date           = excluded.end_date,
			email              = excluded.email,
			notes              = excluded.notes,
			updated_at         = excluded.updated_at`
	_, err := r.db.Writer.ExecContext(ctx, query,
		id, customerID, c.MatchedCustomerID, c.CustomerName, c.Name, c.Number,
		c.Value, string(c.Status), c.StartDate, c.EndDate, c.Email, c.Notes,
	)
	if err != nil {
		return fmt.Errorf("upsert contract %q for %s: %w", c.Number, customerID, err)
	}
	return nil
}

// ListByCustomer returns the contracts of one customer.
func (r *ContractRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Contract, error) {
	const query = `SELECT id, customer_id, legacy_customer_id, customer_name, name, number,
			value, status, start_date, end_date, email, notes
		FROM contracts WHERE customer_id = ?
		ORDER BY status = 'active' DESC, start_date DESC, number, name`

	rows, err := r.db.Reader.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list contracts for %s: %w", customerID, err)
	}
	defer rows.Close()

	contracts := []model.Contract{}
	for rows.Next() {
		var c model.Contract
		var status string
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.MatchedCustomerID, &c.CustomerName, &c.Name, &c.Number,
			&c.Value, &status, &c.StartDate, &c.EndDate, &c.Email, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		c.Status = model.ContractStatus(status)
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return contracts, nil
}

// DeleteCustomer removes every contract of a customer.
func (r *ContractRepo) DeleteCustomer(ctx context.Context, customerID string) error {
	const query = `DELETE FROM contracts WHERE customer_id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, customerID); err != nil {
		return fmt.Errorf("delete contracts for %s: %w", customerID, err)
	}
	return nil
}
