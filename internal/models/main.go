// Package models defines the core data structures for vault entries.
package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no vault entry exists for the requested id.
	ErrNotFound = errors.New("vault entry not found")
	// ErrFieldTooLong is returned when a bounded field exceeds its column size.
	ErrFieldTooLong = errors.New("field value too long")
	// ErrDuplicateID is returned when an insert collides with an existing id.
	ErrDuplicateID = errors.New("duplicate vault entry id")
)

// Column size limits of the accounts table.
const (
	MaxNonceLen = 64
	MaxSaltLen  = 64
	MaxLabelLen = 255
)

// VaultEntry is one stored, client-encrypted credential record.
// The server never interprets Ciphertext, Nonce or Salt.
type VaultEntry struct {
	// ID is the server-assigned UUID of the entry.
	ID string `json:"id"`
	// Ciphertext is the opaque encrypted payload.
	Ciphertext string `json:"ciphertext"`
	// Nonce is the opaque nonce used by the client cipher.
	Nonce string `json:"nonce"`
	// Salt is the opaque key-derivation salt.
	Salt string `json:"salt"`
	// Title is an optional, non-sensitive display label.
	Title *string `json:"title"`
	// Tags is an optional, non-sensitive free-form label string.
	Tags *string `json:"tags"`
	// CreatedAt is set once at insert.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryFields holds the mutable part of a VaultEntry, used by create and update.
type EntryFields struct {
	Ciphertext string
	Nonce      string
	Salt       string
	Title      *string
	Tags       *string
}

// Fields returns the mutable fields of e.
func (e VaultEntry) Fields() EntryFields {
	return EntryFields{
		Ciphertext: e.Ciphertext,
		Nonce:      e.Nonce,
		Salt:       e.Salt,
		Title:      e.Title,
		Tags:       e.Tags,
	}
}
