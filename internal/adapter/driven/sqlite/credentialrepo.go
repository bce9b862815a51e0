package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo stores per-customer site credentials (BMS, Windows and
// remote-access logins). Values are sealed with AES-256-GCM before write
// and opened after read; group and key names are stored in the clear.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes, or nil
// to disable credential storage (reads and writes then return
// driven.ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Set stores or replaces one credential value.
func (r *CredentialRepo) Set(ctx context.Context, customerID string, group model.CredentialGroup, key, plaintext string) error {
	if !group.Valid() {
		return fmt.Errorf("set credential: unknown group %q", group)
	}

	encrypted, err := r.encrypt(plaintext)
	if err != nil {
		return err
	}

	const query = `INSERT INTO credentials (customer_id, grp, name, value, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(customer_id, grp, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, customerID, string(group), key, encrypted); err != nil {
		return fmt.Errorf("set credential %s/%s for %s: %w", group, key, customerID, err)
	}
	return nil
}

// Get returns one plaintext credential, or ("", nil) if it does not exist.
func (r *CredentialRepo) Get(ctx context.Context, customerID string, group model.CredentialGroup, key string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM credentials WHERE customer_id = ? AND grp = ? AND name = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, customerID, string(group), key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s for %s: %w", group, key, customerID, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s/%s: %w", group, key, err)
	}
	return plaintext, nil
}

// ListGroup returns key -> plaintext for one credential group of a customer.
func (r *CredentialRepo) ListGroup(ctx context.Context, customerID string, group model.CredentialGroup) (map[string]string, error) {
	creds, err := r.list(ctx,
		`SELECT id, customer_id, grp, name, value, updated_at FROM credentials
		 WHERE customer_id = ? AND grp = ? ORDER BY name`,
		customerID, string(group))
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(creds))
	for _, c := range creds {
		out[c.Key] = c.Value
	}
	return out, nil
}

// List returns every credential of a customer ordered by group then key.
func (r *CredentialRepo) List(ctx context.Context, customerID string) ([]model.Credential, error) {
	return r.list(ctx,
		`SELECT id, customer_id, grp, name, value, updated_at FROM credentials
		 WHERE customer_id = ? ORDER BY grp, name`,
		customerID)
}

func (r *CredentialRepo) list(ctx context.Context, query string, args ...any) ([]model.Credential, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		var cred model.Credential
		var group, encrypted, updatedAt string
		if err := rows.Scan(&cred.ID, &cred.CustomerID, &group, &cred.Key, &encrypted, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		cred.Group = model.CredentialGroup(group)

		cred.Value, err = r.decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential %s/%s: %w", group, cred.Key, err)
		}

		cred.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at for credential %s/%s: %w", group, cred.Key, err)
		}

		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Delete removes one credential. Deleting a missing credential is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, customerID string, group model.CredentialGroup, key string) error {
	const query = `DELETE FROM credentials WHERE customer_id = ? AND grp = ? AND name = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, customerID, string(group), key); err != nil {
		return fmt.Errorf("delete credential %s/%s for %s: %w", group, key, customerID, err)
	}
	return nil
}

// DeleteCustomer removes every credential of a customer.
func (r *CredentialRepo) DeleteCustomer(ctx context.Context, customerID string) error {
	const query = `DELETE FROM credentials WHERE customer_id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, customerID); err != nil {
		return fmt.Errorf("delete credentials for %s: %w", customerID, err)
	}
	return nil
}

// encrypt seals plaintext with AES-256-GCM and returns base64(nonce || ciphertext || tag).
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt opens a value produced by encrypt.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}
	return string(plaintext), nil
}

func (r *CredentialRepo) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// parseTime accepts the timestamp layouts SQLite and the driver produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
