package activity

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/storage"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

func newRecorderStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecorderPersistsEvents(t *testing.T) {
	store := newRecorderStore(t)

	recorder := NewRecorder(store, 10)
	recorder.Start()

	recorder.Record(EventNodeAdded, "node-1", "worker w1 enrolled", nil)
	recorder.Record(EventNodeProvisioned, "node-1", "worker w1 joined the cluster", map[string]string{
		"swarm_node_id": "abc",
	})

	recorder.Close()

	events, err := store.ListActivity(0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Most recent first
	assert.Equal(t, EventNodeProvisioned, events[0].Type)
	assert.Equal(t, EventNodeAdded, events[1].Type)
	assert.Equal(t, "node-1", events[0].NodeID)
	assert.NotEmpty(t, events[0].ID)
	assert.WithinDuration(t, time.Now(), events[0].Timestamp, time.Minute)
}

func TestRecorderCloseDrainsBuffer(t *testing.T) {
	store := newRecorderStore(t)

	recorder := NewRecorder(store, 50)
	recorder.Start()

	for i := 0; i < 20; i++ {
		recorder.Record(EventNodeStatusChanged, "node-1", "status change", nil)
	}
	recorder.Close()

	events, err := store.ListActivity(0)
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestRecorderNeverBlocksWhenFull(t *testing.T) {
	store := newRecorderStore(t)

	// Tiny buffer, loop not started: Record must still return.
	recorder := NewRecorder(store, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			recorder.Record(EventAlertFired, "node-1", "alert", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}
