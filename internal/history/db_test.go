package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory history store.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	seed := []Entry{
		{Tool: "list_accounts", Backend: "suiteql", Statement: "SELECT a.id AS Id FROM account a", Rows: 120, Duration: 340 * time.Millisecond, CreatedAt: base},
		{Tool: "search_invoices", Backend: "search", Statement: `{"type":"invoice"}`, Rows: 3, CreatedAt: base.Add(time.Minute)},
		{Tool: "list_accounts", Backend: "suiteql", Statement: "SELECT COUNT(*) AS Count FROM account a", Error: "HTTP 400", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range seed {
		stored, err := db.Record(ctx, e)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
	}

	all, err := db.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "SELECT COUNT(*) AS Count FROM account a", all[0].Statement)
	assert.Equal(t, "HTTP 400", all[0].Error)
	assert.Equal(t, base.Add(2*time.Minute), all[0].CreatedAt)
	assert.Equal(t, 340*time.Millisecond, all[2].Duration)
	assert.Equal(t, 120, all[2].Rows)

	accounts, err := db.Recent(ctx, "list_accounts", 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "list_accounts", accounts[0].Tool)
	assert.Equal(t, "suiteql", accounts[0].Backend)
}

func TestRecent_Empty(t *testing.T) {
	db := setupTestDB(t)
	entries, err := db.Recent(context.Background(), "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecord_DefaultsTimestamp(t *testing.T) {
	db := setupTestDB(t)
	before := time.Now().UTC().Add(-time.Second)
	e, err := db.Record(context.Background(), Entry{Tool: "t", Backend: "suiteql", Statement: "SELECT 1"})
	require.NoError(t, err)
	assert.True(t, e.CreatedAt.After(before))
}
