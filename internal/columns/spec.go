// Package columns maps vault entries onto the ordered columns of the
// spreadsheet mirror and keeps the mirror's header row in line with them.
package columns

import "strings"

// Canonical VaultEntry keys, seeded into every projection.
const (
	KeyID         = "id"
	KeyCiphertext = "ciphertext"
	KeyNonce      = "nonce"
	KeySalt       = "salt"
	KeyTitle      = "title"
	KeyTags       = "tags"
	KeyCreatedAt  = "created_at"
	KeyUpdatedAt  = "updated_at"
)

// Column pairs a projection source key with the header shown in the mirror.
type Column struct {
	Key    string `json:"key"`
	Header string `json:"header"`
}

// Spec is the ordered list of mirror columns.
type Spec []Column

// DefaultSpec returns the eight canonical columns, each headed by its own key.
func DefaultSpec() Spec {
	keys := []string{KeyID, KeyCiphertext, KeyNonce, KeySalt, KeyTitle, KeyTags, KeyCreatedAt, KeyUpdatedAt}
	spec := make(Spec, 0, len(keys))
	for _, k := range keys {
		spec = append(spec, Column{Key: k, Header: k})
	}
	return spec
}

// ParseSpec parses a comma-separated list of "key|Header" or bare "key"
// entries. Whitespace around entries, keys and headers is trimmed, empty
// entries are skipped, and only the first "|" separates key from header.
// A blank raw string, or one with no usable entries, yields DefaultSpec.
func ParseSpec(raw string) Spec {
	var spec Spec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, header, found := strings.Cut(part, "|")
		key = strings.TrimSpace(key)
		if found {
			header = strings.TrimSpace(header)
		} else {
			header = key
		}
		spec = append(spec, Column{Key: key, Header: header})
	}
	if len(spec) == 0 {
		return DefaultSpec()
	}
	return spec
}

// Headers returns the configured header row.
func (s Spec) Headers() []string {
	headers := make([]string, len(s))
	for i, c := range s {
		headers[i] = c.Header
	}
	return headers
}

// String renders the spec back in its "key|Header" configuration form.
func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		if c.Key == c.Header {
			parts[i] = c.Key
			continue
		}
		parts[i] = c.Key + "|" + c.Header
	}
	return strings.Join(parts, ",")
}
