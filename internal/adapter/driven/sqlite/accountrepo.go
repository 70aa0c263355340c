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

	"github.com/ericfisherdev/accountvault/internal/domain/model"
	"github.com/ericfisherdev/accountvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
// Password and 2FA secret are encrypted with AES-256-GCM before write and
// decrypted after read.
type AccountRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewAccountRepo creates a new AccountRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable secret storage. Without a key, writes carrying secrets
// return ErrEncryptionKeyNotSet and reads leave secrets blank.
func NewAccountRepo(db *DB, key []byte) *AccountRepo {
	return &AccountRepo{db: db, key: key}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a model.Account) error {
	password, secret, err := r.encryptSecrets(a)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO accounts (id, platform, handle, username, password, two_factor_secret, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Writer.ExecContext(ctx, query,
		a.ID, a.Platform, a.Handle, a.Username, password, secret, a.Notes, formatTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create account %q: %w", a.Handle, err)
	}
	return nil
}

// Update replaces every field of an existing account. Without a key the stored
// password and 2FA secret are left untouched, since keyless reads return them
// blank.
func (r *AccountRepo) Update(ctx context.Context, a model.Account) error {
	if r.key == nil {
		return r.updateKeepingSecrets(ctx, a)
	}

	password, secret, err := r.encryptSecrets(a)
	if err != nil {
		return err
	}

	const query = `
		UPDATE accounts
		SET platform = ?, handle = ?, username = ?, password = ?, two_factor_secret = ?, notes = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query,
		a.Platform, a.Handle, a.Username, password, secret, a.Notes, formatTime(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account %s: %w", a.ID, err)
	}

	return requireAffected(result, a.ID)
}

func (r *AccountRepo) updateKeepingSecrets(ctx context.Context, a model.Account) error {
	if a.HasSecrets() {
		return driven.ErrEncryptionKeyNotSet
	}

	const query = `
		UPDATE accounts
		SET platform = ?, handle = ?, username = ?, notes = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query,
		a.Platform, a.Handle, a.Username, a.Notes, formatTime(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account %s: %w", a.ID, err)
	}

	return requireAffected(result, a.ID)
}

// Get retrieves one account by ID.
func (r *AccountRepo) Get(ctx context.Context, id string) (model.Account, error) {
	const query = `
		SELECT id, platform, handle, username, password, two_factor_secret, notes, updated_at
		FROM accounts WHERE id = ?`

	a, err := r.scanAccount(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, driven.ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

// ListAll returns all accounts ordered by handle.
func (r *AccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	const query = `
		SELECT id, platform, handle, username, password, two_factor_secret, notes, updated_at
		FROM accounts ORDER BY handle COLLATE NOCASE, id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0)
	for rows.Next() {
		a, err := r.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Delete removes an account by ID.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM accounts WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}

	return requireAffected(result, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AccountRepo) scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	var password, secret, updatedAt string

	if err := row.Scan(&a.ID, &a.Platform, &a.Handle, &a.Username, &password, &secret, &a.Notes, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("scan account: %w", err)
	}

	var err error
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return model.Account{}, fmt.Errorf("parse updated_at for account %s: %w", a.ID, err)
	}

	// Without a key the secrets stay blank; the rest of the account is usable.
	if r.key == nil {
		return a, nil
	}

	if a.Password, err = r.decrypt(password); err != nil {
		return model.Account{}, fmt.Errorf("decrypt password for account %s: %w", a.ID, err)
	}
	if a.TwoFactorSecret, err = r.decrypt(secret); err != nil {
		return model.Account{}, fmt.Errorf("decrypt 2fa secret for account %s: %w", a.ID, err)
	}
	return a, nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, driven.ErrAccountNotFound)
	}
	return nil
}

// encryptSecrets returns the stored form of the account's password and 2FA
// secret. Empty secrets are stored as empty strings.
func (r *AccountRepo) encryptSecrets(a model.Account) (string, string, error) {
	if r.key == nil {
		if a.HasSecrets() {
			return "", "", driven.ErrEncryptionKeyNotSet
		}
		return "", "", nil
	}

	password, err := r.encrypt(a.Password)
	if err != nil {
		return "", "", err
	}
	secret, err := r.encrypt(a.TwoFactorSecret)
	if err != nil {
		return "", "", err
	}
	return password, secret, nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *AccountRepo) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *AccountRepo) decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.gcm()
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

func (r *AccountRepo) gcm() (cipher.AEAD, error) {
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
