// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN_EscapesPath(t *testing.T) {
	dsn := sqliteDSN("/var/lib/astro?mode=memory#x%41/journal.db", 2*time.Second)

	assert.True(t, strings.HasPrefix(dsn, "file:/var/lib/astro%3Fmode=memory%23x%2541/journal.db?"), dsn)
	assert.Equal(t, 1, strings.Count(dsn, "?"), dsn)
	assert.NotContains(t, dsn, "#")
	assert.Contains(t, dsn, "_pragma=busy_timeout(2000)")

	rel := sqliteDSN("journal.db", time.Second)
	assert.True(t, strings.HasPrefix(rel, "file:journal.db?"), rel)
}

func TestOpenSQLite_PathWithURISyntax(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data?mode=memory#frag%20")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "journal.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, SQLiteConfig{Path: path, Retain: 10})
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, entry(1, "ios", "confirmed")))
	require.NoError(t, s.Close())

	// The database lives at the literal path, not an in-memory or truncated one.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	s, err = OpenSQLite(ctx, SQLiteConfig{Path: path, Retain: 10})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
}
