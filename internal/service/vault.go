// Package service holds the vault business logic. It persists entries through
// a repository and mirrors newly created ones to the spreadsheet backup.
package service

import (
	"context"
	"time"

	"github.com/atinyakov/accountvault/internal/mirror"
	"github.com/atinyakov/accountvault/internal/models"
	"go.uber.org/zap"
)

// DefaultMirrorTimeout bounds a single mirror append when none is configured.
const DefaultMirrorTimeout = 15 * time.Second

// VaultRepository defines the persistence operations needed by the VaultService.
type VaultRepository interface {
	// Create assigns an id and timestamps and stores the entry.
	Create(ctx context.Context, f models.EntryFields) (models.VaultEntry, error)
	// List returns every entry, newest first.
	List(ctx context.Context) ([]models.VaultEntry, error)
	// Get returns one entry or models.ErrNotFound.
	Get(ctx context.Context, id string) (models.VaultEntry, error)
	// Update replaces the mutable fields or returns models.ErrNotFound.
	Update(ctx context.Context, id string, f models.EntryFields) (models.VaultEntry, error)
	// Delete removes the entry; an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Mirror is the best-effort backup sink.
type Mirror interface {
	Append(ctx context.Context, e models.VaultEntry, meta map[string]string) mirror.Result
	Status(ctx context.Context) mirror.Status
	Probe(ctx context.Context) mirror.ProbeResult
}

// VaultService coordinates the primary store and the mirror.
type VaultService struct {
	// repo is the authoritative store.
	repo VaultRepository
	// mirror receives a copy of every created entry.
	mirror Mirror
	// mirrorTimeout bounds one append, independent of the caller's deadline.
	mirrorTimeout time.Duration
	log           *zap.Logger
}

// NewVaultService constructs a VaultService. A non-positive mirrorTimeout
// falls back to DefaultMirrorTimeout.
func NewVaultService(repo VaultRepository, m Mirror, mirrorTimeout time.Duration, log *zap.Logger) *VaultService {
	if mirrorTimeout <= 0 {
		mirrorTimeout = DefaultMirrorTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VaultService{repo: repo, mirror: m, mirrorTimeout: mirrorTimeout, log: log}
}

// Create persists a new entry and then mirrors it. The returned entry and
// error depend only on the primary store; a mirror failure is logged and
// dropped.
func (s *VaultService) Create(ctx context.Context, f models.EntryFields, meta map[string]string) (models.VaultEntry, error) {
	e, err := s.repo.Create(ctx, f)
	if err != nil {
		return models.VaultEntry{}, err
	}

	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mirrorTimeout)
	defer cancel()
	if res := s.mirror.Append(mctx, e, meta); !res.OK {
		s.log.Warn("mirror append failed",
			zap.String("id", e.ID),
			zap.Error(res.Err()))
	}
	return e, nil
}

// List returns all entries, newest first.
func (s *VaultService) List(ctx context.Context) ([]models.VaultEntry, error) {
	return s.repo.List(ctx)
}

// Get returns a single entry.
func (s *VaultService) Get(ctx context.Context, id string) (models.VaultEntry, error) {
	return s.repo.Get(ctx, id)
}

// Update replaces the mutable fields of an entry. Updates are not mirrored.
func (s *VaultService) Update(ctx context.Context, id string, f models.EntryFields) (models.VaultEntry, error) {
	return s.repo.Update(ctx, id, f)
}

// Delete removes an entry. Deletes are not mirrored.
func (s *VaultService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Ping reports whether the primary store is reachable.
func (s *VaultService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// MirrorStatus reports the mirror's configuration and resolution state.
func (s *VaultService) MirrorStatus(ctx context.Context) mirror.Status {
	return s.mirror.Status(ctx)
}

// MirrorProbe writes a sentinel row to the mirror.
func (s *VaultService) MirrorProbe(ctx context.Context) mirror.ProbeResult {
	return s.mirror.Probe(ctx)
}
