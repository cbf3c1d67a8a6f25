package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/accountvault/internal/dbx"
	"github.com/atinyakov/accountvault/internal/models"
	"github.com/lib/pq"
)

// PostgresVaultRepository implements the vault record store against PostgreSQL.
type PostgresVaultRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB  *sql.DB
	now clock
}

// NewPostgresVaultRepository creates a PostgresVaultRepository using the provided *sql.DB.
// db must be a valid connection to a migrated PostgreSQL instance.
func NewPostgresVaultRepository(db *sql.DB) *PostgresVaultRepository {
	return &PostgresVaultRepository{DB: db, now: systemClock}
}

// Create inserts a new entry with a generated id and created_at == updated_at.
// The row is committed before Create returns.
func (r *PostgresVaultRepository) Create(ctx context.Context, f models.EntryFields) (models.VaultEntry, error) {
	e := newEntry(f, r.now())

	err := dbx.WithTx(ctx, r.DB, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, ciphertext, nonce, salt, title, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ID, e.Ciphertext, e.Nonce, e.Salt, e.Title, e.Tags, e.CreatedAt, e.UpdatedAt)
		return err
	})
	if err != nil {
		return models.VaultEntry{}, fmt.Errorf("create entry: %w", mapPQError(err))
	}
	return e, nil
}

// List returns every entry, newest first.
func (r *PostgresVaultRepository) List(ctx context.Context) ([]models.VaultEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM accounts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.VaultEntry, 0)
	for rows.Next() {
		e, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Get fetches a single entry by id. It returns models.ErrNotFound if no row matches.
func (r *PostgresVaultRepository) Get(ctx context.Context, id string) (models.VaultEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM accounts WHERE id = $1
	`, id)
	e, err := scanPostgresEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultEntry{}, models.ErrNotFound
	}
	if err != nil {
		return models.VaultEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// Update replaces the mutable fields of the entry and refreshes updated_at.
// updated_at never moves backwards, even if the server clock does.
// It returns models.ErrNotFound if no row matches id.
func (r *PostgresVaultRepository) Update(ctx context.Context, id string, f models.EntryFields) (models.VaultEntry, error) {
	var e models.VaultEntry
	err := dbx.WithTx(ctx, r.DB, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE accounts
			   SET ciphertext = $2, nonce = $3, salt = $4, title = $5, tags = $6,
			       updated_at = GREATEST($7, updated_at)
			 WHERE id = $1
			RETURNING `+entryColumns+`
		`, id, f.Ciphertext, f.Nonce, f.Salt, f.Title, f.Tags, r.now())
		var err error
		e, err = scanPostgresEntry(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultEntry{}, models.ErrNotFound
	}
	if err != nil {
		return models.VaultEntry{}, fmt.Errorf("update entry: %w", mapPQError(err))
	}
	return e, nil
}

// Delete removes the entry with the given id. Deleting an absent id is not an error.
func (r *PostgresVaultRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (r *PostgresVaultRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func scanPostgresEntry(s rowScanner) (models.VaultEntry, error) {
	var e models.VaultEntry
	err := s.Scan(&e.ID, &e.Ciphertext, &e.Nonce, &e.Salt, &e.Title, &e.Tags, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return models.VaultEntry{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

// mapPQError translates PostgreSQL error codes into domain errors.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "22001": // string_data_right_truncation
		return fmt.Errorf("%w: %s", models.ErrFieldTooLong, pqErr.Message)
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", models.ErrDuplicateID, pqErr.Message)
	}
	return err
}
