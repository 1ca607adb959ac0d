package oracle

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/retry"
)

// Adapter implements the target interfaces for Oracle. A single database/sql
// pool serves catalog reads, platform probes and DDL execution.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ target.CatalogReader  = (*Adapter)(nil)
	_ target.PlatformProber = (*Adapter)(nil)
	_ target.DDLExecutor    = (*Adapter)(nil)
)

// New opens a connection to the managed Oracle database.
// If logger is nil, a no-op logger is used.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open target connection: %w", err)
	}

	// Listener hiccups during startup are common on managed hosts; retry
	// the initial ping before giving up.
	if err := retry.DoIfRetryable(ctx, nil, func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping target database: %w", err)
	}

	return &Adapter{db: db, logger: logger.Named("oracle-target")}, nil
}

// Exec runs one DDL statement. DDL commits implicitly in Oracle; there is no
// transaction to manage here.
func (a *Adapter) Exec(ctx context.Context, stmt string) error {
	a.logger.Debug("Executing DDL", zap.String("statement", stmt))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ddl execution failed: %w", err)
	}
	return nil
}

// Close releases the target connection pool.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// segmentType maps an object kind to its dba_segments segment_type value.
func segmentType(kind models.ObjectKind) (string, bool) {
	switch kind {
	case models.KindTable:
		return "TABLE", true
	case models.KindPartition:
		return "TABLE PARTITION", true
	case models.KindIndex:
		return "INDEX", true
	case models.KindLOB:
		return "LOBSEGMENT", true
	default:
		return "", false
	}
}
