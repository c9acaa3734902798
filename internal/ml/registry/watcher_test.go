package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/testsupport"
	"vetml/pkg/logger"
)

func TestWatcherMarksDirty(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "dog"), 0o755))

	w, err := NewWatcher([]string{base, filepath.Join(t.TempDir(), "absent")}, logger.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.False(t, w.Dirty())

	testsupport.WriteFile(t, filepath.Join(base, "dog", "model.json"), "{}")
	require.Eventually(t, w.Dirty, 2*time.Second, 10*time.Millisecond)

	// Dirty clears the flag
	assert.False(t, w.Dirty())

	w.MarkDirty()
	assert.True(t, w.Dirty())
}

func TestWatcherFollowsNewSpeciesDirs(t *testing.T) {
	base := t.TempDir()

	w, err := NewWatcher([]string{base}, logger.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.Mkdir(filepath.Join(base, "cat"), 0o755))
	require.Eventually(t, w.Dirty, 2*time.Second, 10*time.Millisecond)

	// give Run a moment to add the new directory
	time.Sleep(50 * time.Millisecond)
	testsupport.WriteFile(t, filepath.Join(base, "cat", "feature_names.txt"), "Age (years)\n")
	require.Eventually(t, w.Dirty, 2*time.Second, 10*time.Millisecond)
}
