package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

func TestDDLBuilder_PlainTable(t *testing.T) {
	catalog := newMockCatalog()
	catalog.addObject(models.TargetObject{
		Ref:        models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable},
		SizeBytes:  10 << 30,
		Tablespace: "SALES_DATA",
	})
	builder := NewDDLBuilder(catalog, zap.NewNop())

	plan, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable},
		RequestedType: models.CompressionQueryHigh,
	})

	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t, "SALES_DATA", plan.Tablespace)
	assert.Equal(t,
		"ALTER TABLE SALES.ORDERS MOVE TABLESPACE SALES_DATA COMPRESS FOR QUERY HIGH",
		plan.Statements[0].SQL)
	assert.Equal(t,
		"ALTER TABLE SALES.ORDERS MOVE TABLESPACE SALES_DATA NOCOMPRESS",
		plan.Statements[0].Rollback)
}

func TestDDLBuilder_PartitionedTable(t *testing.T) {
	// A partitioned table yields one MOVE per partition, each re-asserting
	// that partition's own tablespace, plus one rebuild per index.
	catalog := newMockCatalog()
	catalog.addObject(models.TargetObject{
		Ref:        models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable},
		SizeBytes:  200 << 30,
		Tablespace: "SALES_DATA",
	})
	catalog.partitions["SALES.ORDERS"] = []models.TargetObject{
		{Ref: models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindPartition, PartitionName: "P2024"}, Tablespace: "TS_2024"},
		{Ref: models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindPartition, PartitionName: "P2025"}, Tablespace: "TS_2025"},
	}
	catalog.indexes["SALES.ORDERS"] = []models.TargetObject{
		{Ref: models.ObjectRef{Owner: "SALES", Name: "ORDERS_PK", Kind: models.KindIndex}, Tablespace: "SALES_IDX"},
	}
	builder := NewDDLBuilder(catalog, zap.NewNop())

	plan, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable},
		RequestedType: models.CompressionArchiveLow,
	})

	require.NoError(t, err)
	require.Len(t, plan.Statements, 3)
	assert.Contains(t, plan.Statements[0].SQL, "MOVE PARTITION P2024 TABLESPACE TS_2024")
	assert.Contains(t, plan.Statements[1].SQL, "MOVE PARTITION P2025 TABLESPACE TS_2025")
	assert.Contains(t, plan.Statements[2].SQL, "ALTER INDEX SALES.ORDERS_PK REBUILD TABLESPACE SALES_IDX")
	for _, stmt := range plan.Statements {
		assert.NotEmpty(t, stmt.Rollback, "every statement carries a reversal hint")
	}
}

func TestDDLBuilder_SinglePartition(t *testing.T) {
	catalog := newMockCatalog()
	ref := models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindPartition, PartitionName: "P2019"}
	catalog.addObject(models.TargetObject{Ref: ref, SizeBytes: 40 << 30, Tablespace: "TS_2019"})
	builder := NewDDLBuilder(catalog, zap.NewNop())

	plan, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           ref,
		RequestedType: models.CompressionArchiveHigh,
	})

	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t,
		"ALTER TABLE SALES.ORDERS MOVE PARTITION P2019 TABLESPACE TS_2019 COMPRESS FOR ARCHIVE HIGH",
		plan.Statements[0].SQL)
}

func TestDDLBuilder_OnlineAndParallelHints(t *testing.T) {
	catalog := newMockCatalog()
	ref := models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable}
	catalog.addObject(models.TargetObject{Ref: ref, SizeBytes: 1 << 30, Tablespace: "SALES_DATA"})
	builder := NewDDLBuilder(catalog, zap.NewNop())

	plan, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           ref,
		RequestedType: models.CompressionOLTP,
		Online:        true,
		Parallel:      8,
	})

	require.NoError(t, err)
	assert.Contains(t, plan.Statements[0].SQL, "ROW STORE COMPRESS ADVANCED ONLINE PARALLEL 8")
	assert.NotContains(t, plan.Statements[0].Rollback, "ONLINE",
		"reversal statements stay plain")
}

func TestDDLBuilder_LOB(t *testing.T) {
	catalog := newMockCatalog()
	ref := models.ObjectRef{Owner: "DOCS", Name: "ATTACHMENTS", Kind: models.KindLOB, PartitionName: "PAYLOAD"}
	catalog.addObject(models.TargetObject{Ref: ref, SizeBytes: 80 << 30, Tablespace: "LOB_DATA"})
	builder := NewDDLBuilder(catalog, zap.NewNop())

	plan, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           ref,
		RequestedType: models.CompressionArchiveHigh,
		Online:        true,
	})

	require.NoError(t, err)
	require.Len(t, plan.Statements, 1)
	assert.Equal(t,
		"ALTER TABLE DOCS.ATTACHMENTS MOVE LOB (PAYLOAD) STORE AS (TABLESPACE LOB_DATA COMPRESS HIGH)",
		plan.Statements[0].SQL)
	assert.NotContains(t, plan.Statements[0].SQL, "ONLINE",
		"ONLINE is invalid on LOB moves and must not leak in")
}

func TestDDLBuilder_IndexMissingTablespace(t *testing.T) {
	catalog := newMockCatalog()
	ref := models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable}
	catalog.addObject(models.TargetObject{Ref: ref, SizeBytes: 1 << 30, Tablespace: "SALES_DATA"})
	catalog.indexes["SALES.ORDERS"] = []models.TargetObject{
		{Ref: models.ObjectRef{Owner: "SALES", Name: "ORDERS_IX1", Kind: models.KindIndex}},
	}
	builder := NewDDLBuilder(catalog, zap.NewNop())

	_, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           ref,
		RequestedType: models.CompressionOLTP,
	})

	assert.ErrorIs(t, err, apperrors.ErrMetadataUnavailable,
		"a plan is never built with a defaulted tablespace")
}

func TestDDLBuilder_UnknownType(t *testing.T) {
	builder := NewDDLBuilder(newMockCatalog(), zap.NewNop())

	_, err := builder.Build(context.Background(), models.ExecutionRequest{
		Ref:           models.ObjectRef{Owner: "X", Name: "Y", Kind: models.KindTable},
		RequestedType: "BROTLI",
	})

	assert.Error(t, err)
}
