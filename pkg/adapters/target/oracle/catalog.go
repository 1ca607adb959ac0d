package oracle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// tableSegmentTypes are the dba_segments rows that make up a table's
// storage. A partitioned table has no 'TABLE' segment at all, only one
// segment per (sub)partition, so a table's size is always the sum over
// these types.
const tableSegmentTypes = "('TABLE', 'TABLE PARTITION', 'TABLE SUBPARTITION')"

// listObjectsQuery builds the catalog snapshot query. It drives from
// dba_tables rather than dba_segments so partitioned tables, whose rows in
// dba_segments carry the partition names, still surface under the table's
// own name. dba_tables.tablespace_name is NULL for a partitioned table; the
// segment minimum stands in for it.
func listObjectsQuery(scope models.ScopeFilter) (string, []any) {
	conditions := []string{}
	args := []any{}
	argIdx := 1

	if len(scope.Owners) > 0 {
		placeholders := make([]string, len(scope.Owners))
		for i, owner := range scope.Owners {
			placeholders[i] = fmt.Sprintf(":%d", argIdx)
			args = append(args, strings.ToUpper(owner))
			argIdx++
		}
		conditions = append(conditions, fmt.Sprintf("t.owner IN (%s)", strings.Join(placeholders, ", ")))
	} else {
		conditions = append(conditions, "t.owner NOT IN ('SYS', 'SYSTEM', 'OUTLN', 'XDB')")
	}

	if scope.NameLike != "" {
		conditions = append(conditions, fmt.Sprintf("t.table_name LIKE :%d", argIdx))
		args = append(args, strings.ToUpper(scope.NameLike))
		argIdx++
	}

	having := ""
	if scope.MinSizeBytes > 0 {
		having = fmt.Sprintf("\n\t\tHAVING SUM(s.bytes) >= :%d", argIdx)
		args = append(args, scope.MinSizeBytes)
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT t.owner, t.table_name,
		       NVL(t.tablespace_name, MIN(s.tablespace_name)),
		       SUM(s.bytes),
		       NVL(t.compress_for, 'NONE'), NVL(t.num_rows, 0)
		FROM dba_tables t
		JOIN dba_segments s
		  ON s.owner = t.owner AND s.segment_name = t.table_name
		 AND s.segment_type IN %s
		WHERE %s
		GROUP BY t.owner, t.table_name, t.tablespace_name, t.compress_for, t.num_rows%s
		ORDER BY SUM(s.bytes) DESC`,
		tableSegmentTypes, strings.Join(conditions, " AND "), having)

	return query, args
}

// ListObjects snapshots the tables in scope from dba_tables/dba_segments.
func (a *Adapter) ListObjects(ctx context.Context, scope models.ScopeFilter) ([]models.TargetObject, error) {
	query, args := listObjectsQuery(scope)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	var objects []models.TargetObject
	for rows.Next() {
		var obj models.TargetObject
		var compressFor string
		obj.Ref.Kind = models.KindTable
		if err := rows.Scan(&obj.Ref.Owner, &obj.Ref.Name, &obj.Tablespace,
			&obj.SizeBytes, &compressFor, &obj.NumRows); err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		obj.CurrentCompression = models.CompressionType(compressFor)
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate object rows: %w", err)
	}

	return objects, nil
}

// tableObjectQuery aggregates a table's segments whatever its partitioning:
// a heap table contributes its single 'TABLE' segment, a partitioned table
// the sum of its partition segments. COUNT(*) distinguishes a missing table
// from a zero-byte one.
const tableObjectQuery = `
		SELECT MIN(tablespace_name), NVL(SUM(bytes), 0), COUNT(*)
		FROM dba_segments
		WHERE owner = :1 AND segment_name = :2
		  AND segment_type IN ` + tableSegmentTypes

// GetObject re-reads one object's current metadata from dba_segments.
func (a *Adapter) GetObject(ctx context.Context, ref models.ObjectRef) (*models.TargetObject, error) {
	if ref.Kind == models.KindTable {
		return a.getTableObject(ctx, ref)
	}

	segType, ok := segmentType(ref.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedKind, ref.Kind)
	}

	conditions := []string{"owner = :1", "segment_name = :2", "segment_type = :3"}
	args := []any{ref.Owner, ref.Name, segType}
	if ref.PartitionName != "" {
		conditions = append(conditions, "partition_name = :4")
		args = append(args, ref.PartitionName)
	}

	query := fmt.Sprintf(`
		SELECT tablespace_name, bytes
		FROM dba_segments
		WHERE %s`, strings.Join(conditions, " AND "))

	obj := &models.TargetObject{Ref: ref}
	err := a.db.QueryRowContext(ctx, query, args...).Scan(&obj.Tablespace, &obj.SizeBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMetadataUnavailable, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read segment metadata for %s: %w", ref, err)
	}

	return obj, nil
}

func (a *Adapter) getTableObject(ctx context.Context, ref models.ObjectRef) (*models.TargetObject, error) {
	obj := &models.TargetObject{Ref: ref}
	var tablespace sql.NullString
	var segments int
	err := a.db.QueryRowContext(ctx, tableObjectQuery, ref.Owner, ref.Name).Scan(
		&tablespace, &obj.SizeBytes, &segments)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment metadata for %s: %w", ref, err)
	}
	if segments == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMetadataUnavailable, ref)
	}
	obj.Tablespace = tablespace.String

	return obj, nil
}

// GetActivity reads write counters from dba_tab_modifications. Returns nil
// when the engine has recorded no modifications for the object.
func (a *Adapter) GetActivity(ctx context.Context, ref models.ObjectRef) (*models.ActivityStats, error) {
	query := `
		SELECT NVL(inserts, 0), NVL(updates, 0), NVL(deletes, 0), timestamp
		FROM dba_tab_modifications
		WHERE table_owner = :1 AND table_name = :2
		  AND NVL(partition_name, '-') = NVL(:3, '-')`

	var part any
	if ref.PartitionName != "" {
		part = ref.PartitionName
	}

	stats := &models.ActivityStats{Ref: ref}
	err := a.db.QueryRowContext(ctx, query, ref.Owner, ref.Name, part).Scan(
		&stats.Inserts, &stats.Updates, &stats.Deletes, &stats.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read activity for %s: %w", ref, err)
	}

	return stats, nil
}

// ListPartitions returns a table's partitions, each with its own tablespace.
func (a *Adapter) ListPartitions(ctx context.Context, owner, table string) ([]models.TargetObject, error) {
	query := `
		SELECT p.partition_name, s.tablespace_name, s.bytes
		FROM dba_tab_partitions p
		JOIN dba_segments s
		  ON s.owner = p.table_owner AND s.segment_name = p.table_name
		 AND s.partition_name = p.partition_name AND s.segment_type = 'TABLE PARTITION'
		WHERE p.table_owner = :1 AND p.table_name = :2
		ORDER BY p.partition_position`

	rows, err := a.db.QueryContext(ctx, query, owner, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s.%s: %w", owner, table, err)
	}
	defer rows.Close()

	var partitions []models.TargetObject
	for rows.Next() {
		obj := models.TargetObject{
			Ref: models.ObjectRef{Owner: owner, Name: table, Kind: models.KindPartition},
		}
		if err := rows.Scan(&obj.Ref.PartitionName, &obj.Tablespace, &obj.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		partitions = append(partitions, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partition rows: %w", err)
	}

	return partitions, nil
}

// ListIndexes returns a table's indexes, each with its own tablespace.
func (a *Adapter) ListIndexes(ctx context.Context, owner, table string) ([]models.TargetObject, error) {
	query := `
		SELECT i.index_name, i.tablespace_name, NVL(s.bytes, 0)
		FROM dba_indexes i
		LEFT JOIN dba_segments s
		  ON s.owner = i.owner AND s.segment_name = i.index_name AND s.segment_type = 'INDEX'
		WHERE i.table_owner = :1 AND i.table_name = :2
		  AND i.index_type != 'LOB'`

	rows, err := a.db.QueryContext(ctx, query, owner, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes of %s.%s: %w", owner, table, err)
	}
	defer rows.Close()

	var indexes []models.TargetObject
	for rows.Next() {
		obj := models.TargetObject{
			Ref: models.ObjectRef{Owner: owner, Kind: models.KindIndex},
		}
		var ts sql.NullString
		if err := rows.Scan(&obj.Ref.Name, &ts, &obj.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		obj.Tablespace = ts.String
		indexes = append(indexes, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate index rows: %w", err)
	}

	return indexes, nil
}

// TablespaceFreeBytes sums the free extents in a tablespace.
func (a *Adapter) TablespaceFreeBytes(ctx context.Context, tablespace string) (int64, error) {
	var free int64
	err := a.db.QueryRowContext(ctx,
		`SELECT NVL(SUM(bytes), 0) FROM dba_free_space WHERE tablespace_name = :1`,
		tablespace).Scan(&free)
	if err != nil {
		return 0, fmt.Errorf("failed to read free space of %s: %w", tablespace, err)
	}
	return free, nil
}

// ProbeLock checks v$locked_object for the target without waiting.
func (a *Adapter) ProbeLock(ctx context.Context, ref models.ObjectRef) (bool, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM v$locked_object lo
		JOIN dba_objects o ON o.object_id = lo.object_id
		WHERE o.owner = :1 AND o.object_name = :2`,
		ref.Owner, ref.Name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("lock probe failed for %s: %w", ref, err)
	}

	if count > 0 {
		a.logger.Debug("Conflicting lock detected",
			zap.String("object", ref.String()),
			zap.Int("lock_count", count))
	}
	return count > 0, nil
}
