package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/accountvault/internal/dbx"
	"github.com/atinyakov/accountvault/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so that text ordering equals time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteVaultRepository implements the vault record store against SQLite.
// It is meant for local development and tests.
type SQLiteVaultRepository struct {
	DB  *sql.DB
	now clock
}

// NewSQLiteVaultRepository creates a SQLiteVaultRepository over a migrated database.
func NewSQLiteVaultRepository(db *sql.DB) *SQLiteVaultRepository {
	return &SQLiteVaultRepository{DB: db, now: systemClock}
}

func (r *SQLiteVaultRepository) Create(ctx context.Context, f models.EntryFields) (models.VaultEntry, error) {
	e := newEntry(f, r.now())

	err := dbx.WithTx(ctx, r.DB, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, ciphertext, nonce, salt, title, tags, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.Ciphertext, e.Nonce, e.Salt, e.Title, e.Tags,
			formatSQLiteTime(e.CreatedAt), formatSQLiteTime(e.UpdatedAt))
		return err
	})
	if err != nil {
		return models.VaultEntry{}, fmt.Errorf("create entry: %w", mapSQLiteError(err))
	}
	return e, nil
}

// List returns every entry, newest first; entries created in the same
// instant are returned latest insert first.
func (r *SQLiteVaultRepository) List(ctx context.Context) ([]models.VaultEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM accounts ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.VaultEntry, 0)
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
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

func (r *SQLiteVaultRepository) Get(ctx context.Context, id string) (models.VaultEntry, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM accounts WHERE id = ?`, id)
	e, err := scanSQLiteEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultEntry{}, models.ErrNotFound
	}
	if err != nil {
		return models.VaultEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteVaultRepository) Update(ctx context.Context, id string, f models.EntryFields) (models.VaultEntry, error) {
	var e models.VaultEntry
	err := dbx.WithTx(ctx, r.DB, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE accounts
			   SET ciphertext = ?, nonce = ?, salt = ?, title = ?, tags = ?,
			       updated_at = MAX(?, updated_at)
			 WHERE id = ?
			RETURNING `+entryColumns,
			f.Ciphertext, f.Nonce, f.Salt, f.Title, f.Tags, formatSQLiteTime(r.now()), id)
		var err error
		e, err = scanSQLiteEntry(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultEntry{}, models.ErrNotFound
	}
	if err != nil {
		return models.VaultEntry{}, fmt.Errorf("update entry: %w", mapSQLiteError(err))
	}
	return e, nil
}

func (r *SQLiteVaultRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (r *SQLiteVaultRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

func scanSQLiteEntry(s rowScanner) (models.VaultEntry, error) {
	var (
		e                models.VaultEntry
		created, updated string
	)
	if err := s.Scan(&e.ID, &e.Ciphertext, &e.Nonce, &e.Salt, &e.Title, &e.Tags, &created, &updated); err != nil {
		return models.VaultEntry{}, err
	}

	var err error
	if e.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return models.VaultEntry{}, fmt.Errorf("created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated); err != nil {
		return models.VaultEntry{}, fmt.Errorf("updated_at: %w", err)
	}
	return e, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// mapSQLiteError translates constraint failures into domain errors.
func mapSQLiteError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	code := sqliteErr.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	msg := sqliteErr.Error()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_CHECK || strings.Contains(msg, "CHECK constraint"):
		return fmt.Errorf("%w: %s", models.ErrFieldTooLong, msg)
	case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		strings.Contains(msg, "UNIQUE constraint"):
		return fmt.Errorf("%w: %s", models.ErrDuplicateID, msg)
	}
	return err
}
