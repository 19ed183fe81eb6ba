package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewton/constraint/pkg/adapters/fs"
	"github.com/gonewton/constraint/pkg/core"
)

func nextEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "event channel closed early")
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
		return core.Event{}
	}
}

func waitForWatcher(t *testing.T, repo *fs.Repository, expected bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		state, ok := repo.State().(fs.RepositoryState)
		if ok && state.WatcherActive == expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher state = %v", expected)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatch(t *testing.T) {
	repo, root := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	existing := newConstraint(t, core.TypeMust, "security", "All passwords must be hashed")
	require.NoError(t, repo.Write(ctx, existing))

	events, err := repo.Watch(ctx)
	require.NoError(t, err)
	waitForWatcher(t, repo, true)

	t.Run("Modify Of Existing Record", func(t *testing.T) {
		existing.References = "OWASP"
		require.NoError(t, repo.Write(ctx, existing))

		e := nextEvent(t, events)
		assert.Equal(t, core.EventModify, e.Type)
		assert.Equal(t, existing.ID, e.ID)
		assert.Equal(t, "security", e.Category)
		assert.NoError(t, e.Err)
		assert.Equal(t, "OWASP", e.Constraint.References)
	})

	t.Run("Create In New Category", func(t *testing.T) {
		c := newConstraint(t, core.TypeShould, "performance", "Cache responses")
		require.NoError(t, repo.Write(ctx, c))

		e := nextEvent(t, events)
		assert.Equal(t, core.EventCreate, e.Type)
		assert.Equal(t, c.ID, e.ID)
		assert.Equal(t, "performance", e.Category)
	})

	t.Run("Unloadable Record Carries Error", func(t *testing.T) {
		path := filepath.Join(root, "security", "nt-000001.jsonl")
		require.NoError(t, os.WriteFile(path, []byte(`{"version": 999}`), 0o644))

		e := nextEvent(t, events)
		assert.Equal(t, "nt-000001", e.ID)
		assert.ErrorIs(t, e.Err, core.ErrUnknownVersion)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "security", existing.ID))

		e := nextEvent(t, events)
		assert.Equal(t, core.EventDelete, e.Type)
		assert.Equal(t, existing.ID, e.ID)
	})

	cancel()
	waitForWatcher(t, repo, false)

	// The channel is closed once the loop exits.
	for range events {
	}
}

func TestWatch_CancelledContext(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Watch(ctx)
	assert.Error(t, err)
}
