package sqlite

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

// CustomerRepo stores customer records as JSON documents. The columns
// outside data are copies used for lookups, filtering and ordering.
type CustomerRepo struct {
	db    *DB
	now   func() time.Time
	newID func() string
}

// NewCustomerRepo creates a CustomerRepo backed by the given DB.
func NewCustomerRepo(db *DB) *CustomerRepo {
	return &CustomerRepo{db: db, now: time.Now, newID: uuid.NewString}
}

// Create assigns an ID and timestamps and inserts the record.
func (r *CustomerRepo) Create(ctx context.Context, record model.Record) (model.Record, error) {
	rec := record.Clone()
	if rec == nil {
		rec = model.Record{}
	}
	ts := r.now().UTC().Format(time.RFC3339)
	rec.Set(model.FieldID, r.newID())
	rec.Set(model.FieldCreatedAt, ts)
	rec.Set(model.FieldUpdatedAt, ts)

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode customer: %w", err)
	}

	const query = `INSERT INTO customers (id, legacy_customer_id, company_name, service_tier, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		rec.ID(),
		legacyID(rec),
		rec.String(model.FieldCompanyName),
		rec.String(model.FieldServiceTier),
		string(data),
		ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert customer %q: %w", rec.String(model.FieldCompanyName), err)
	}

	return decodeRecord(data)
}

// Update merges patch into the stored document inside a transaction. The
// id and created_at fields cannot be patched.
func (r *CustomerRepo) Update(ctx context.Context, id string, patch model.Record) (model.Record, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT data FROM customers WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update customer %s: %w", id, driven.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load customer %s: %w", id, err)
	}

	rec, err := decodeRecord([]byte(raw))
	if err != nil {
		return nil, err
	}

	p := patch.Clone()
	delete(p, string(model.FieldID))
	delete(p, string(model.FieldCreatedAt))
	rec.Merge(p)
	ts := r.now().UTC().Format(time.RFC3339)
	rec.Set(model.FieldUpdatedAt, ts)

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode customer %s: %w", id, err)
	}

	const query = `UPDATE customers
		SET legacy_customer_id = ?, company_name = ?, service_tier = ?, data = ?, updated_at = ?
		WHERE id = ?`
	_, err = tx.ExecContext(ctx, query,
		legacyID(rec),
		rec.String(model.FieldCompanyName),
		rec.String(model.FieldServiceTier),
		string(data),
		ts,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit customer %s: %w", id, err)
	}
	return decodeRecord(data)
}

// Delete removes a customer. Returns driven.ErrCustomerNotFound if no row matched.
func (r *CustomerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
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
	return r.getOne(ctx, `SELECT data FROM customers WHERE id = ?`, id)
}

// GetByLegacyID returns the customer imported with the given SimPro ID.
func (r *CustomerRepo) GetByLegacyID(ctx context.Context, legacy string) (model.Record, error) {
	return r.getOne(ctx, `SELECT data FROM customers WHERE legacy_customer_id = ?`, legacy)
}

func (r *CustomerRepo) getOne(ctx context.Context, query, arg string) (model.Record, error) {
	var raw string
	err := r.db.Reader.QueryRowContext(ctx, query, arg).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get customer %s: %w", arg, driven.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", arg, err)
	}
	return decodeRecord([]byte(raw))
}

// List returns customers matching filter ordered by company name.
func (r *CustomerRepo) List(ctx context.Context, filter model.CustomerFilter) ([]model.Record, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = append(where, `(company_name LIKE ? ESCAPE '\' OR json_extract(data, '$.site_nickname') LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.ServiceTier != "" {
		where = append(where, `service_tier = ?`)
		args = append(args, string(filter.ServiceTier))
	}

	query := `SELECT data FROM customers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY company_name COLLATE NOCASE, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	out := []model.Record{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		rec, err := decodeRecord([]byte(raw))
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

// legacyID returns the legacy ID column value; empty IDs are stored as NULL
// so the unique index ignores them.
func legacyID(rec model.Record) sql.NullString {
	v := rec.String(model.FieldLegacyCustomerID)
	return sql.NullString{String: v, Valid: v != ""}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
