package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CustomerStore = (*CustomerRepo)(nil)

// CustomerRepo stores customer records in a jsonb column. Lookup columns
// are generated from the document, and updates merge patches server-side
// with the jsonb || operator.
type CustomerRepo struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewCustomerRepo creates a CustomerRepo.
func NewCustomerRepo(db *sql.DB) *CustomerRepo {
	return &CustomerRepo{db: db, now: time.Now, newID: uuid.NewString}
}

// Create assigns an ID and timestamps and inserts the record.
func (r *CustomerRepo) Create(ctx context.Context, record model.Record) (model.Record, error) {
	rec := record.Clone()
	if rec == nil {
		rec = model.Record{}
	}
	now := r.now().UTC()
	ts := now.Format(time.RFC3339)
	rec.Set(model.FieldID, r.newID())
	rec.Set(model.FieldCreatedAt, ts)
	rec.Set(model.FieldUpdatedAt, ts)

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode customer: %w", err)
	}

	const query = `INSERT INTO customers (id, data, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $3)
		RETURNING data`
	var stored []byte
	if err := r.db.QueryRowContext(ctx, query, rec.ID(), string(data), now).Scan(&stored); err != nil {
		return nil, fmt.Errorf("insert customer %q: %w", rec.String(model.FieldCompanyName), err)
	}
	return decodeRecord(stored)
}

// Update merges patch into the stored document. The id and created_at
// fields cannot be patched.
func (r *CustomerRepo) Update(ctx context.Context, id string, patch model.Record) (model.Record, error) {
	p := patch.Clone()
	if p == nil {
		p = model.Record{}
	}
	delete(p, string(model.FieldID))
	delete(p, string(model.FieldCreatedAt))
	now := r.now().UTC()
	p.Set(model.FieldUpdatedAt, now.Format(time.RFC3339))

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode customer patch %s: %w", id, err)
	}

	const query = `UPDATE customers
		SET data = data || $2::jsonb, updated_at = $3
		WHERE id = $1
		RETURNING data`
	var stored []byte
	err = r.db.QueryRowContext(ctx, query, id, string(data), now).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update customer %s: %w", id, driven.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}
	return decodeRecord(stored)
}

// Delete removes a customer. Returns driven.ErrCustomerNotFound if no row matched.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete customer %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete customer %s: %w", id, driven.ErrCustomerNotFound)
	}
	return nil
}

// Get returns the customer with the given ID.
func (r *CustomerRepo) Get(ctx context.Context, id string) (model.Record, error) {
	return r.getOne(ctx, `SELECT data FROM customers WHERE id = $1`, id)
}

// GetByLegacyID returns the customer imported with the given SimPro ID.
func (r *CustomerRepo) GetByLegacyID(ctx context.Context, legacyID string) (model.Record, error) {
	return r.getOne(ctx, `SELECT data FROM customers WHERE legacy_customer_id = $1`, legacyID)
}

func (r *CustomerRepo) getOne(ctx context.Context, query, arg string) (model.Record, error) {
	var stored []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get customer %s: %w", arg, driven.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", arg, err)
	}
	return decodeRecord(stored)
}

// List returns customers matching filter ordered by company name.
func (r *CustomerRepo) List(ctx context.Context, filter model.CustomerFilter) ([]model.Record, error) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		p := next("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf("(company_name ILIKE %s OR data->>'site_nickname' ILIKE %s)", p, p))
	}
	if filter.ServiceTier != "" {
		where = append(where, "service_tier = "+next(string(filter.ServiceTier)))
	}

	query := `SELECT data FROM customers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY lower(company_name), id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []model.Record{}
	for rows.Next() {
		var stored []byte
		if err := rows.Scan(&stored); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		rec, err := decodeRecord(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func decodeRecord(data []byte) (model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if rec == nil {
		rec = model.Record{}
	}
	return rec, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
