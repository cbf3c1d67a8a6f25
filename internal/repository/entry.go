// Package repository provides persistence implementations of the vault
// record store over PostgreSQL and SQLite.
package repository

import (
	"time"

	"github.com/atinyakov/accountvault/internal/models"
	"github.com/google/uuid"
)

// entryColumns is the select list shared by every read, in scan order.
const entryColumns = `id, ciphertext, nonce, salt, title, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// clock returns the current server time in the precision every backend can round-trip.
type clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// newEntry builds the row for an insert: a fresh id and created_at == updated_at.
func newEntry(f models.EntryFields, now time.Time) models.VaultEntry {
	return models.VaultEntry{
		ID:         uuid.NewString(),
		Ciphertext: f.Ciphertext,
		Nonce:      f.Nonce,
		Salt:       f.Salt,
		Title:      f.Title,
		Tags:       f.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
