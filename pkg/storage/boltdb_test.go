package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/flotilla-sh/flotilla/pkg/security"
	"github.com/flotilla-sh/flotilla/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	sm, err := security.NewSecretsManagerFromPassword("test-passphrase")
	require.NoError(t, err)

	store, err := NewBoltStore(t.TempDir(), sm)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNodeCRUD(t *testing.T) {
	store := newTestStore(t)

	node := &types.WorkerNode{
		ID:        "node-1",
		Name:      "w1",
		IPAddress: "10.0.0.5",
		SSHPort:   22,
		SSHUser:   "root",
		Status:    types.NodeStatusProvisioning,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, store.CreateNode(node))

	got, err := store.GetNode("node-1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.Name)
	assert.Equal(t, types.NodeStatusProvisioning, got.Status)

	// Update
	got.Status = types.NodeStatusActive
	got.SwarmNodeID = "swarm-abc"
	require.NoError(t, store.UpdateNode(got))

	updated, err := store.GetNode("node-1")
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusActive, updated.Status)
	assert.Equal(t, "swarm-abc", updated.SwarmNodeID)

	// List
	nodes, err := store.ListNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	// Delete
	require.NoError(t, store.DeleteNode("node-1"))
	_, err = store.GetNode("node-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetNodeNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetNode("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsRoundtrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetSetting("swarm.initialized", "true", false))
	require.NoError(t, store.SetSetting("swarm.worker_token", "SWMTKN-1-secret", true))

	value, err := store.GetSetting("swarm.initialized")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	token, err := store.GetSetting("swarm.worker_token")
	require.NoError(t, err)
	assert.Equal(t, "SWMTKN-1-secret", token)

	_, err = store.GetSetting("missing.key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSensitiveSettingEncryptedAtRest(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetSetting("swarm.manager_token", "SWMTKN-1-manager", true))

	// Read the raw record back to confirm the plaintext is not stored
	var raw []byte
	err := store.db.View(func(tx *bolt.Tx) error {
		raw = append(raw, tx.Bucket(bucketSettings).Get([]byte("swarm.manager_token"))...)
		return nil
	})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SWMTKN-1-manager")
}

func TestSensitiveSettingWithoutCipher(t *testing.T) {
	store, err := NewBoltStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = store.SetSetting("swarm.worker_token", "secret", true)
	assert.Error(t, err)

	// Non-sensitive settings still work
	require.NoError(t, store.SetSetting("swarm.initialized", "true", false))
}

func TestAdministratorCRUD(t *testing.T) {
	store := newTestStore(t)

	admin := &types.Administrator{
		ID:         "admin-1",
		Name:       "ops",
		WebhookURL: "https://hooks.example.com/ops",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateAdministrator(admin))

	got, err := store.GetAdministrator("admin-1")
	require.NoError(t, err)
	assert.Equal(t, "ops", got.Name)

	admins, err := store.ListAdministrators()
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	require.NoError(t, store.DeleteAdministrator("admin-1"))
	_, err = store.GetAdministrator("admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityOrderAndLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		event := &types.ActivityEvent{
			ID:        string(rune('a' + i)),
			Type:      "node.added",
			Message:   "event",
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, store.AppendActivity(event))
	}

	events, err := store.ListActivity(3)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Most recent first
	assert.Equal(t, "e", events[0].ID)
	assert.Equal(t, "d", events[1].ID)
	assert.Equal(t, "c", events[2].ID)

	all, err := store.ListActivity(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
