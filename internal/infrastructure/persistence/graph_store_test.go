package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupGraphTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every pooled connection would get its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newGraphTestStore(t *testing.T) *GormGraphStore {
	t.Helper()
	return NewGormGraphStore(setupGraphTestDB(t))
}

func content(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func ids(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Ref.ID
	}
	return out
}

var (
	product1 = graph.Ref(graph.NodeProduct, "P1")
	variant1 = graph.Ref(graph.NodeVariant, "V1")
	variant2 = graph.Ref(graph.NodeVariant, "V2")
	catRoot  = graph.Ref(graph.NodeCategory, "C1")
	catMid   = graph.Ref(graph.NodeCategory, "C2")
	catLeaf  = graph.Ref(graph.NodeCategory, "C3")
)

func TestGormGraphStore_UpsertNode(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)

	t.Run("inserts then replaces content", func(t *testing.T) {
		require.NoError(t, store.UpsertNode(ctx, product1, content(t, map[string]string{"name": "Mug"})))
		require.NoError(t, store.UpsertNode(ctx, product1, content(t, map[string]string{"name": "Cup"})))

		node, err := store.GetNode(ctx, product1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Cup"}`, string(node.Content))
		assert.False(t, node.UpdatedAt.IsZero())

		all, err := store.NodesOf(ctx, graph.NodeProduct)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		err := store.UpsertNode(ctx, product1, json.RawMessage("{"))
		assert.ErrorIs(t, err, shared.ErrStorage)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		err := store.UpsertNode(ctx, graph.Ref("collection", "X"), content(t, 1))
		assert.ErrorIs(t, err, graph.ErrUnknownNodeKind)
		assert.ErrorIs(t, err, shared.ErrStorage)
	})
}

func TestGormGraphStore_GetNode_NotFound(t *testing.T) {
	store := newGraphTestStore(t)
	_, err := store.GetNode(context.Background(), product1)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestGormGraphStore_UnknownKindsAreStorageErrors(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)
	collection := graph.Ref("collection", "X")
	parents := graph.EdgeKind("parents")

	_, getErr := store.GetNode(ctx, collection)
	_, nodesErr := store.NodesOf(ctx, collection.Kind)
	_, relatedErr := store.Related(ctx, catRoot, parents, graph.Both)

	tests := []struct {
		name     string
		err      error
		sentinel error
		op       string
	}{
		{"get node", getErr, graph.ErrUnknownNodeKind, "graph.get_node"},
		{"delete node", store.DeleteNode(ctx, collection), graph.ErrUnknownNodeKind, "graph.delete_node"},
		{"nodes of", nodesErr, graph.ErrUnknownNodeKind, "graph.nodes_of"},
		{"clear edges", store.ClearEdges(ctx, parents, catRoot, graph.Both), graph.ErrUnknownEdgeKind, "graph.clear_edges"},
		{"relate", store.Relate(ctx, catRoot, parents, catMid), graph.ErrUnknownEdgeKind, "graph.relate"},
		{"related", relatedErr, graph.ErrUnknownEdgeKind, "graph.related"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, tt.err, shared.ErrStorage)
			var se *shared.SyncError
			require.ErrorAs(t, tt.err, &se)
			assert.Equal(t, tt.op, se.Op)
		})
	}
}

func TestGormGraphStore_NodesOf_OrderedByID(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)
	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, store.UpsertNode(ctx, graph.Ref(graph.NodeShippingZone, id), content(t, id)))
	}

	nodes, err := store.NodesOf(ctx, graph.NodeShippingZone)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(nodes))
}

func TestGormGraphStore_Relate(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)

	t.Run("validates endpoint kinds", func(t *testing.T) {
		err := store.Relate(ctx, product1, graph.EdgeVaries, variant1)
		assert.ErrorIs(t, err, graph.ErrEndpointMismatch)
		assert.ErrorIs(t, err, shared.ErrStorage)
	})

	t.Run("does not deduplicate", func(t *testing.T) {
		require.NoError(t, store.UpsertNode(ctx, product1, content(t, "p")))
		require.NoError(t, store.UpsertNode(ctx, variant1, content(t, "v")))
		require.NoError(t, store.Relate(ctx, variant1, graph.EdgeVaries, product1))
		require.NoError(t, store.Relate(ctx, variant1, graph.EdgeVaries, product1))

		related, err := store.Related(ctx, variant1, graph.EdgeVaries, graph.Out)
		require.NoError(t, err)
		assert.Equal(t, []string{"P1", "P1"}, ids(related))
	})
}

func TestGormGraphStore_Related(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)

	for _, ref := range []graph.NodeRef{product1, variant1, variant2, catRoot, catMid, catLeaf} {
		require.NoError(t, store.UpsertNode(ctx, ref, content(t, ref.ID)))
	}
	require.NoError(t, store.Relate(ctx, variant2, graph.EdgeVaries, product1))
	require.NoError(t, store.Relate(ctx, variant1, graph.EdgeVaries, product1))
	require.NoError(t, store.Relate(ctx, catRoot, graph.EdgeAncestorOf, catMid))
	require.NoError(t, store.Relate(ctx, catMid, graph.EdgeAncestorOf, catLeaf))
	require.NoError(t, store.Relate(ctx, catRoot, graph.EdgeAncestorOf, catLeaf))

	t.Run("in direction follows insertion order", func(t *testing.T) {
		variants, err := store.Related(ctx, product1, graph.EdgeVaries, graph.In)
		require.NoError(t, err)
		assert.Equal(t, []string{"V2", "V1"}, ids(variants))
		assert.Equal(t, graph.NodeVariant, variants[0].Ref.Kind)
	})

	t.Run("ancestors of a leaf", func(t *testing.T) {
		ancestors, err := store.Related(ctx, catLeaf, graph.EdgeAncestorOf, graph.In)
		require.NoError(t, err)
		assert.Equal(t, []string{"C2", "C1"}, ids(ancestors))
	})

	t.Run("both directions", func(t *testing.T) {
		neighbours, err := store.Related(ctx, catMid, graph.EdgeAncestorOf, graph.Both)
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C3"}, ids(neighbours))
	})

	t.Run("wrong side for kind", func(t *testing.T) {
		_, err := store.Related(ctx, product1, graph.EdgeVaries, graph.Out)
		assert.ErrorIs(t, err, graph.ErrEndpointMismatch)
		assert.ErrorIs(t, err, shared.ErrStorage)
	})

	t.Run("skips edges to missing nodes", func(t *testing.T) {
		ghost := graph.Ref(graph.NodeVariant, "ghost")
		require.NoError(t, store.Relate(ctx, ghost, graph.EdgeVaries, product1))

		variants, err := store.Related(ctx, product1, graph.EdgeVaries, graph.In)
		require.NoError(t, err)
		assert.Equal(t, []string{"V2", "V1"}, ids(variants))
	})
}

func TestGormGraphStore_ClearEdges(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)
	for _, ref := range []graph.NodeRef{catRoot, catMid, catLeaf} {
		require.NoError(t, store.UpsertNode(ctx, ref, content(t, ref.ID)))
	}
	require.NoError(t, store.Relate(ctx, catRoot, graph.EdgeAncestorOf, catMid))
	require.NoError(t, store.Relate(ctx, catMid, graph.EdgeAncestorOf, catLeaf))

	require.NoError(t, store.ClearEdges(ctx, graph.EdgeAncestorOf, catMid, graph.In))

	parents, err := store.Related(ctx, catMid, graph.EdgeAncestorOf, graph.In)
	require.NoError(t, err)
	assert.Empty(t, parents)

	children, err := store.Related(ctx, catMid, graph.EdgeAncestorOf, graph.Out)
	require.NoError(t, err)
	assert.Equal(t, []string{"C3"}, ids(children), "out edges survive an in clear")

	require.NoError(t, store.ClearEdges(ctx, graph.EdgeAncestorOf, catMid, graph.Both))
	children, err = store.Related(ctx, catMid, graph.EdgeAncestorOf, graph.Out)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestGormGraphStore_DeleteNode_CascadesEdges(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)
	for _, ref := range []graph.NodeRef{product1, variant1, catLeaf} {
		require.NoError(t, store.UpsertNode(ctx, ref, content(t, ref.ID)))
	}
	require.NoError(t, store.Relate(ctx, variant1, graph.EdgeVaries, product1))
	require.NoError(t, store.Relate(ctx, catLeaf, graph.EdgeCategorises, product1))

	require.NoError(t, store.DeleteNode(ctx, product1))

	_, err := store.GetNode(ctx, product1)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	var remaining int64
	require.NoError(t, store.db.Table("varies").Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, store.db.Table("categorises").Count(&remaining).Error)
	assert.Zero(t, remaining)

	// the other endpoints stay
	_, err = store.GetNode(ctx, variant1)
	assert.NoError(t, err)
}

func TestGormGraphStore_SchemaVersion(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, graph.SchemaVersion, version)
	assert.NoError(t, EnsureSchemaVersion(ctx, store))

	// running the migration twice keeps a single version row
	require.NoError(t, AutoMigrate(store.db))
	var rows int64
	require.NoError(t, store.db.Model(&SchemaModel{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, store.db.Where("1 = 1").Delete(&SchemaModel{}).Error)
	assert.ErrorIs(t, EnsureSchemaVersion(ctx, store), ErrSchemaVersionMismatch)
}

func TestGormGraphStore_Issues(t *testing.T) {
	ctx := context.Background()
	store := newGraphTestStore(t)

	first := []graph.Issue{
		{Kind: "DATA_INTEGRITY", Message: "product P1 has no variants"},
		{Kind: "DATA_INTEGRITY", Message: "product P2 has no category"},
	}
	require.NoError(t, store.RecordIssues(ctx, first))

	issues, err := store.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "product P1 has no variants", issues[0].Message)
	assert.NotEqual(t, issues[0].ID, issues[1].ID)

	require.NoError(t, store.RecordIssues(ctx, []graph.Issue{{Kind: "CONFIGURATION", Message: "no zones"}}))
	issues, err = store.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "CONFIGURATION", issues[0].Kind)

	require.NoError(t, store.RecordIssues(ctx, nil))
	issues, err = store.Issues(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

// newMockGraphStore creates a GormGraphStore with a mocked SQL connection
func newMockGraphStore(t *testing.T) (*GormGraphStore, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormGraphStore(gormDB), mock, mockDB
}

func TestGormGraphStore_StorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert failure is a storage error", func(t *testing.T) {
		store, mock, mockDB := newMockGraphStore(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "product"`).WillReturnError(errors.New("disk full"))

		err := store.UpsertNode(ctx, product1, json.RawMessage(`{}`))
		require.ErrorIs(t, err, shared.ErrStorage)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nodes of failure is a storage error", func(t *testing.T) {
		store, mock, mockDB := newMockGraphStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "variant" ORDER BY id`).WillReturnError(errors.New("connection reset"))

		_, err := store.NodesOf(ctx, graph.NodeVariant)
		require.ErrorIs(t, err, shared.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete rolls back on edge failure", func(t *testing.T) {
		store, mock, mockDB := newMockGraphStore(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "varies" WHERE from_id = \$1`).
			WithArgs("V1").
			WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err := store.DeleteNode(ctx, variant1)
		require.ErrorIs(t, err, shared.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
