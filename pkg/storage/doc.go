/*
Package storage provides BoltDB-backed state persistence for Flotilla's
fleet data.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions for node records, the
settings singleton, administrator recipients, and the activity log. All
data is serialized as JSON and stored in separate buckets.

# Bucket Structure

	flotilla.db
	├── nodes            WorkerNode records keyed by node ID
	├── settings         key/value settings; sensitive values encrypted
	├── administrators   alert recipients keyed by admin ID
	└── activity         append-only audit events, sequence-keyed

# Sensitive Settings

SetSetting(key, value, sensitive=true) routes the value through the
injected Cipher before it touches disk, so swarm join tokens are never
stored in plaintext. GetSetting transparently decrypts on the way out.
A store opened without a cipher refuses sensitive reads and writes.

# Usage

	store, err := storage.NewBoltStore(dataDir, secretsManager)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.SetSetting("swarm.worker_token", token, true)

Reads of missing records return errors wrapping storage.ErrNotFound so
callers can map them to their own not-found semantics.
*/
package storage
