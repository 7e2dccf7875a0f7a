package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/feedsync/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	names, err := List()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_graph_schema", names[0])
}

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	names, err := List()
	require.NoError(t, err)

	for _, name := range names {
		up, err := fs.ReadFile(migrations.FS, name+".up.sql")
		require.NoError(t, err)
		down, err := fs.ReadFile(migrations.FS, name+".down.sql")
		require.NoError(t, err, "missing down migration for %s", name)

		assert.NotEmpty(t, strings.TrimSpace(string(up)))
		assert.NotEmpty(t, strings.TrimSpace(string(down)))
	}
}

func TestGraphSchemaMigration_CreatesEveryTable(t *testing.T) {
	up, err := fs.ReadFile(migrations.FS, "000001_graph_schema.up.sql")
	require.NoError(t, err)

	for _, table := range []string{
		"product", "variant", "category", "shipping_zone",
		"varies", "categorises", "ancestor_of", "graph_schema", "issue",
	} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestEmbeddedSource(t *testing.T) {
	src, err := embeddedSource()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}
