package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// Statement is one DDL statement together with its reversal hint. The
// rollback text is produced alongside the statement, not inferred after the
// fact, so the coordinator can reverse a partially-applied unit without
// re-deriving anything.
type Statement struct {
	SQL         string `json:"sql"`
	Rollback    string `json:"rollback"`
	Description string `json:"description"`
}

// Plan is the ordered statement list for one unit of work.
type Plan struct {
	Ref        models.ObjectRef `json:"ref"`
	Tablespace string           `json:"tablespace"`
	SizeBytes  int64            `json:"size_bytes"`
	Statements []Statement      `json:"statements"`
}

// DDLText renders the whole plan as a single audit string.
func (p *Plan) DDLText() string {
	parts := make([]string, len(p.Statements))
	for i, s := range p.Statements {
		parts[i] = s.SQL
	}
	return strings.Join(parts, ";\n")
}

// DDLBuilder renders the statements needed to apply a compression type to a
// unit of work. Every statement looks up and re-asserts the object's current
// tablespace: compression must never relocate data, and spelling the
// tablespace out is what guarantees it.
type DDLBuilder struct {
	catalog target.CatalogReader
	logger  *zap.Logger
}

// NewDDLBuilder creates a DDLBuilder over the given catalog.
func NewDDLBuilder(catalog target.CatalogReader, logger *zap.Logger) *DDLBuilder {
	return &DDLBuilder{catalog: catalog, logger: logger.Named("ddl-builder")}
}

// Build produces the plan for one execution request. A partitioned table
// yields one MOVE per partition, each carrying that partition's own current
// tablespace; a multi-partition object is never compressed by a single
// statement assuming a uniform tablespace. A plain table move also rebuilds
// the table's indexes, which go unusable after MOVE, again one statement per
// index with its own tablespace.
func (b *DDLBuilder) Build(ctx context.Context, req models.ExecutionRequest) (*Plan, error) {
	if !req.RequestedType.Valid() {
		return nil, fmt.Errorf("unknown compression type %q", req.RequestedType)
	}

	obj, err := b.catalog.GetObject(ctx, req.Ref)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Ref: req.Ref, Tablespace: obj.Tablespace, SizeBytes: obj.SizeBytes}

	switch req.Ref.Kind {
	case models.KindTable:
		if err := b.buildTable(ctx, req, plan); err != nil {
			return nil, err
		}
	case models.KindPartition:
		plan.Statements = append(plan.Statements, movePartition(req, req.Ref.PartitionName, obj.Tablespace))
	case models.KindIndex:
		plan.Statements = append(plan.Statements, rebuildIndex(req, req.Ref.Owner, req.Ref.Name, obj.Tablespace))
	case models.KindLOB:
		plan.Statements = append(plan.Statements, moveLOB(req, obj.Tablespace))
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedKind, req.Ref.Kind)
	}

	b.logger.Debug("Built execution plan",
		zap.String("object", req.Ref.String()),
		zap.Int("statements", len(plan.Statements)))
	return plan, nil
}

func (b *DDLBuilder) buildTable(ctx context.Context, req models.ExecutionRequest, plan *Plan) error {
	partitions, err := b.catalog.ListPartitions(ctx, req.Ref.Owner, req.Ref.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMetadataUnavailable, err)
	}

	if len(partitions) > 0 {
		for _, p := range partitions {
			plan.Statements = append(plan.Statements, movePartition(req, p.Ref.PartitionName, p.Tablespace))
		}
	} else {
		plan.Statements = append(plan.Statements, moveTable(req, plan.Tablespace))
	}

	// MOVE leaves the table's indexes unusable; rebuild each one in its
	// own current tablespace.
	indexes, err := b.catalog.ListIndexes(ctx, req.Ref.Owner, req.Ref.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMetadataUnavailable, err)
	}
	for _, idx := range indexes {
		if idx.Tablespace == "" {
			return fmt.Errorf("%w: index %s.%s has no tablespace", apperrors.ErrMetadataUnavailable, idx.Ref.Owner, idx.Ref.Name)
		}
		plan.Statements = append(plan.Statements, rebuildIndex(req, idx.Ref.Owner, idx.Ref.Name, idx.Tablespace))
	}

	return nil
}

func moveTable(req models.ExecutionRequest, tablespace string) Statement {
	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s.%s MOVE TABLESPACE %s %s%s",
			req.Ref.Owner, req.Ref.Name, tablespace,
			tableCompressClause(req.RequestedType), hints(req)),
		Rollback: fmt.Sprintf("ALTER TABLE %s.%s MOVE TABLESPACE %s NOCOMPRESS",
			req.Ref.Owner, req.Ref.Name, tablespace),
		Description: fmt.Sprintf("move table %s.%s in place with %s",
			req.Ref.Owner, req.Ref.Name, req.RequestedType),
	}
}

func movePartition(req models.ExecutionRequest, partition, tablespace string) Statement {
	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s.%s MOVE PARTITION %s TABLESPACE %s %s%s",
			req.Ref.Owner, req.Ref.Name, partition, tablespace,
			tableCompressClause(req.RequestedType), hints(req)),
		Rollback: fmt.Sprintf("ALTER TABLE %s.%s MOVE PARTITION %s TABLESPACE %s NOCOMPRESS",
			req.Ref.Owner, req.Ref.Name, partition, tablespace),
		Description: fmt.Sprintf("move partition %s of %s.%s in place with %s",
			partition, req.Ref.Owner, req.Ref.Name, req.RequestedType),
	}
}

func rebuildIndex(req models.ExecutionRequest, owner, index, tablespace string) Statement {
	return Statement{
		SQL: fmt.Sprintf("ALTER INDEX %s.%s REBUILD TABLESPACE %s %s%s",
			owner, index, tablespace,
			indexCompressClause(req.RequestedType), hints(req)),
		Rollback: fmt.Sprintf("ALTER INDEX %s.%s REBUILD TABLESPACE %s NOCOMPRESS",
			owner, index, tablespace),
		Description: fmt.Sprintf("rebuild index %s.%s in place", owner, index),
	}
}

// moveLOB compresses a securefile LOB segment. The ref's sub-object field
// names the LOB column. ONLINE and PARALLEL are not valid on LOB moves and
// are never emitted.
func moveLOB(req models.ExecutionRequest, tablespace string) Statement {
	column := req.Ref.PartitionName
	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s.%s MOVE LOB (%s) STORE AS (TABLESPACE %s %s)",
			req.Ref.Owner, req.Ref.Name, column, tablespace,
			lobCompressClause(req.RequestedType)),
		Rollback: fmt.Sprintf("ALTER TABLE %s.%s MOVE LOB (%s) STORE AS (TABLESPACE %s NOCOMPRESS)",
			req.Ref.Owner, req.Ref.Name, column, tablespace),
		Description: fmt.Sprintf("move LOB %s of %s.%s in place with %s",
			column, req.Ref.Owner, req.Ref.Name, req.RequestedType),
	}
}

func tableCompressClause(t models.CompressionType) string {
	switch t {
	case models.CompressionNone:
		return "NOCOMPRESS"
	case models.CompressionOLTP:
		return "ROW STORE COMPRESS ADVANCED"
	default:
		return "COMPRESS FOR " + string(t)
	}
}

// indexCompressClause maps compression tiers onto index compression, which
// has its own two-level syntax.
func indexCompressClause(t models.CompressionType) string {
	switch t {
	case models.CompressionNone:
		return "NOCOMPRESS"
	case models.CompressionArchiveLow, models.CompressionArchiveHigh:
		return "COMPRESS ADVANCED HIGH"
	default:
		return "COMPRESS ADVANCED LOW"
	}
}

// lobCompressClause maps compression tiers onto securefile LOB compression.
func lobCompressClause(t models.CompressionType) string {
	switch t {
	case models.CompressionNone:
		return "NOCOMPRESS"
	case models.CompressionOLTP:
		return "COMPRESS LOW"
	case models.CompressionQueryLow, models.CompressionQueryHigh:
		return "COMPRESS MEDIUM"
	default:
		return "COMPRESS HIGH"
	}
}

// hints renders the ONLINE and PARALLEL clauses where the object kind
// supports them.
func hints(req models.ExecutionRequest) string {
	var sb strings.Builder
	if req.Online {
		sb.WriteString(" ONLINE")
	}
	if req.Parallel > 1 {
		fmt.Fprintf(&sb, " PARALLEL %d", req.Parallel)
	}
	return sb.String()
}
