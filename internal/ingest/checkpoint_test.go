package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundtrip(t *testing.T) {
	cp, err := OpenCheckpoint(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	defer cp.Close()

	repo := "owner/repo"

	seen, err := cp.Seen(repo, 42)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cp.Mark(repo, 42))

	seen, err = cp.Seen(repo, 42)
	require.NoError(t, err)
	assert.True(t, seen)

	// Other PRs and other repositories are unaffected.
	seen, err = cp.Seen(repo, 43)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = cp.Seen("other/repo", 42)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestCheckpointReset(t *testing.T) {
	cp, err := OpenCheckpoint(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	defer cp.Close()

	require.NoError(t, cp.Mark("owner/repo", 1))
	require.NoError(t, cp.Mark("other/repo", 1))
	require.NoError(t, cp.Reset("owner/repo"))

	seen, err := cp.Seen("owner/repo", 1)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = cp.Seen("other/repo", 1)
	require.NoError(t, err)
	assert.True(t, seen)

	// Resetting an unknown repo is a no-op.
	assert.NoError(t, cp.Reset("never/seen"))
}
