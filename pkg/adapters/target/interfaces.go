package target

import (
	"context"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// CatalogReader provides read-only access to the managed engine's catalogs.
// Any read failure for a single object is reported as an error for that
// object and never aborts an analysis run.
type CatalogReader interface {
	// ListObjects returns a metadata snapshot of the tables in scope.
	ListObjects(ctx context.Context, scope models.ScopeFilter) ([]models.TargetObject, error)

	// GetObject re-reads a single object's current metadata (existence,
	// size, tablespace). Used for execution preconditions and the
	// post-execution integrity check.
	GetObject(ctx context.Context, ref models.ObjectRef) (*models.TargetObject, error)

	// GetActivity returns write-activity counters for an object, or nil
	// when the engine has recorded none. Absence is not an error.
	GetActivity(ctx context.Context, ref models.ObjectRef) (*models.ActivityStats, error)

	// ListPartitions returns the partitions of a table, each with its own
	// tablespace. Empty for non-partitioned tables.
	ListPartitions(ctx context.Context, owner, table string) ([]models.TargetObject, error)

	// ListIndexes returns the indexes of a table, each with its own
	// tablespace.
	ListIndexes(ctx context.Context, owner, table string) ([]models.TargetObject, error)

	// TablespaceFreeBytes returns the free space currently available in a
	// tablespace.
	TablespaceFreeBytes(ctx context.Context, tablespace string) (int64, error)

	// ProbeLock checks for a conflicting lock on the object without
	// waiting. Returns true if a lock is held.
	ProbeLock(ctx context.Context, ref models.ObjectRef) (bool, error)

	// Close releases the catalog connection.
	Close() error
}

// PlatformProber exposes the independent environment signals the platform
// capability resolver votes on. Each method either returns the raw probe
// value or an error, in which case that signal is inconclusive.
type PlatformProber interface {
	// StorageVendor identifies the storage backing the database, e.g.
	// "EXADATA", "ZFSSA" or "OTHER".
	StorageVendor(ctx context.Context) (string, error)

	// EditionBanner returns the engine's edition banner string.
	EditionBanner(ctx context.Context) (string, error)

	// CompressionOption reports whether the engine advertises columnar
	// compression support.
	CompressionOption(ctx context.Context) (bool, error)
}

// DDLExecutor executes DDL statements against the managed engine. Execution
// of one statement is atomic from the coordinator's perspective: an issued
// statement is never interrupted mid-flight.
type DDLExecutor interface {
	Exec(ctx context.Context, stmt string) error
	Close() error
}
