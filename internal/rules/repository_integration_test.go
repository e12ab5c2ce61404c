//go:build integration

package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/internal/testinfra"
	"soxguard/pkg/migrations"
)

func assertRoundTrip(t *testing.T, repo interface {
	Repository
	Writer
}) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Integrations)
	assert.Empty(t, empty.Mappings)

	require.NoError(t, repo.Replace(ctx, testDefinitions()))

	defs, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, defs.Integrations, 3)
	assert.Equal(t, "int15-3-1", defs.Integrations[0].ID)
	assert.Equal(t, "int15-3-2", defs.Integrations[1].ID)
	require.Len(t, defs.Integrations[1].Rules, 3)
	assert.Equal(t, "confirmationIds[0].value", defs.Integrations[1].Rules[0].Field)
	assert.Equal(t, "value.size() == 6", defs.Integrations[1].Rules[0].Predicate)
	assert.Equal(t, "nights", defs.Integrations[1].Rules[2].Field)
	assert.Empty(t, defs.Integrations[2].Rules)

	require.Len(t, defs.Mappings, 1)
	require.Len(t, defs.Mappings[0].Fields, 2)
	assert.Equal(t, "trimmed", defs.Mappings[0].Fields[0].Compare)
	assert.Equal(t, "guestName", defs.Mappings[0].Fields[1].Destination)
	assert.True(t, defs.Mappings[0].Fields[1].Required)

	snap := compileTestSnapshot(t, defs)
	reverse, err := snap.GetMapping("int15-3-1", "int15-3-2")
	require.NoError(t, err)
	assert.Len(t, reverse, 2)

	require.NoError(t, repo.Replace(ctx, Definitions{Integrations: []IntegrationDefinition{{ID: "solo"}}}))
	defs, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, defs.Integrations, 1)
	assert.Empty(t, defs.Mappings)
}

func TestPostgresRepository(t *testing.T) {
	db := testinfra.Postgres(t, Migrate)

	require.NoError(t, Migrate(db), "migrations are idempotent")
	assertRoundTrip(t, NewPostgresRepository(db))
}

func TestMongoRepository(t *testing.T) {
	db := testinfra.Mongo(t)

	require.NoError(t, migrations.EnsureRuleCollections(context.Background(), db))
	require.NoError(t, migrations.EnsureRuleCollections(context.Background(), db))
	assertRoundTrip(t, NewMongoRepository(db))
}
