package columns

import (
	"fmt"
	"maps"
	"time"
	_ "time/tzdata"

	"github.com/atinyakov/accountvault/internal/models"
	"github.com/ncruces/go-strftime"
)

// Defaults for mirror timestamp rendering.
const (
	DefaultTimeZone   = "UTC"
	DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"
)

// Layouts accepted by FormatTimestamp. The first group carries an offset;
// the second is interpreted as UTC.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
)

// Projector turns a vault entry plus caller metadata into one mirror row.
type Projector struct {
	spec   Spec
	loc    *time.Location
	layout string
}

// NewProjector builds a Projector. A nil loc means UTC and an empty layout
// means DefaultTimeFormat.
func NewProjector(spec Spec, loc *time.Location, layout string) *Projector {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = DefaultTimeFormat
	}
	return &Projector{spec: spec, loc: loc, layout: layout}
}

// LoadLocation resolves an IANA zone name; "" resolves to UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// Spec returns the configured columns.
func (p *Projector) Spec() Spec {
	return p.spec
}

// Location returns the display time zone.
func (p *Projector) Location() *time.Location {
	return p.loc
}

// Layout returns the strftime display format.
func (p *Projector) Layout() string {
	return p.layout
}

// Project returns one value per configured column, in column order.
// Values start from the canonical entry fields and are then overridden by
// meta, so a metadata key that matches a canonical field wins. Keys found in
// neither source project to "". Timestamp columns are rendered with
// FormatTimestamp.
func (p *Projector) Project(e models.VaultEntry, meta map[string]string) []string {
	src := map[string]string{
		KeyID:         e.ID,
		KeyCiphertext: e.Ciphertext,
		KeyNonce:      e.Nonce,
		KeySalt:       e.Salt,
		KeyTitle:      deref(e.Title),
		KeyTags:       deref(e.Tags),
		KeyCreatedAt:  isoTime(e.CreatedAt),
		KeyUpdatedAt:  isoTime(e.UpdatedAt),
	}
	maps.Copy(src, meta)

	row := make([]string, len(p.spec))
	for i, c := range p.spec {
		v := src[c.Key]
		if c.Key == KeyCreatedAt || c.Key == KeyUpdatedAt {
			v = p.FormatTimestamp(v)
		}
		row[i] = v
	}
	return row
}

// FormatTimestamp converts an ISO-8601 timestamp into the display zone and
// format. Input without an offset is taken as UTC. Input that cannot be
// parsed is returned unchanged.
func (p *Projector) FormatTimestamp(raw string) string {
	if raw == "" {
		return ""
	}
	t, ok := parseTimestamp(raw)
	if !ok {
		return raw
	}
	return strftime.Format(p.layout, t.In(p.loc))
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
