// Package remote defines the shared store cooperating instances reconcile
// through, with Redis and PostgreSQL backends plus an in-memory one for tests.
// The remote side never carries machine-local file paths; records travel
// stripped of them.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"certhub/internal/domain"
	"certhub/internal/platform/metrics"
)

// ErrNotFound is returned when a record, artifact, user or config document
// does not exist remotely.
var ErrNotFound = errors.New("remote: not found")

// MaxArtifactSize caps uploaded documents. Oversized artifacts are skipped,
// not failed: the record still syncs and the file stays available locally.
const MaxArtifactSize = 900 << 10

// Store is the shared state all instances cooperate through.
type Store interface {
	// Records. Upsert replaces wholesale; at most one record exists per key.
	UpsertRecord(ctx context.Context, rec domain.IssuanceRecord) error
	GetRecord(ctx context.Context, key domain.RecordKey) (domain.IssuanceRecord, error)
	DeleteRecord(ctx context.Context, key domain.RecordKey) error
	ListRecords(ctx context.Context) ([]domain.IssuanceRecord, error)

	// Artifacts, stored by record key. PutArtifact silently skips buffers over
	// MaxArtifactSize.
	PutArtifact(ctx context.Context, key domain.RecordKey, data []byte) error
	GetArtifact(ctx context.Context, key domain.RecordKey) ([]byte, error)
	DeleteArtifact(ctx context.Context, key domain.RecordKey) error

	// Sweep control. TryMarkSweep records that this instance ran the expiry
	// sweep for the given day and reports whether it was first to do so.
	GetControlFlag(ctx context.Context) (domain.ControlFlag, error)
	TryMarkSweep(ctx context.Context, flag domain.ControlFlag) (bool, error)

	// Mail settings, shared across instances. SaveMailConfigIfAbsent seeds the
	// shared copy from a local one without overwriting concurrent edits.
	GetMailConfig(ctx context.Context) (domain.MailConfig, error)
	SaveMailConfig(ctx context.Context, cfg domain.MailConfig) error
	SaveMailConfigIfAbsent(ctx context.Context, cfg domain.MailConfig) (bool, error)

	// Users back the authentication service.
	GetUser(ctx context.Context, username string) (domain.User, error)
	SaveUser(ctx context.Context, u domain.User) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]domain.User, error)

	Health(ctx context.Context) error
	Close() error
}

// oversized reports and records an artifact skipped for size.
func oversized(log *slog.Logger, key domain.RecordKey, size int) bool {
	if size <= MaxArtifactSize {
		return false
	}
	metrics.ArtifactUploadsSkipped.Inc()
	log.Warn("artifact exceeds remote size cap, keeping local only",
		"key", key.String(), "size", size, "cap", MaxArtifactSize)
	return true
}

// sweepGraceTTL bounds how long per-day sweep markers live in backends that
// support expiry. Two days covers every timezone straddle.
const sweepGraceTTL = 48 * time.Hour
