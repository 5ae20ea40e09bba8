package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/flotilla-sh/flotilla/pkg/types"
)

var (
	// Bucket names
	bucketNodes    = []byte("nodes")
	bucketSettings = []byte("settings")
	bucketAdmins   = []byte("administrators")
	bucketActivity = []byte("activity")
)

// settingRecord is the stored form of a settings value. Sensitive
// values hold base64 ciphertext produced by the Cipher.
type settingRecord struct {
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db     *bolt.DB
	cipher Cipher
}

// NewBoltStore creates a new BoltDB-backed store. The cipher is used
// for sensitive settings values and may be nil when no sensitive
// settings will be written or read.
func NewBoltStore(dataDir string, cipher Cipher) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "flotilla.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNodes,
			bucketSettings,
			bucketAdmins,
			bucketActivity,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, cipher: cipher}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Node operations
func (s *BoltStore) CreateNode(node *types.WorkerNode) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put([]byte(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id string) (*types.WorkerNode, error) {
	var node types.WorkerNode
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.WorkerNode, error) {
	var nodes []*types.WorkerNode
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.WorkerNode
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(node *types.WorkerNode) error {
	return s.CreateNode(node) // Same as create (upsert)
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.Delete([]byte(id))
	})
}

// Settings operations
func (s *BoltStore) SetSetting(key, value string, sensitive bool) error {
	if sensitive {
		if s.cipher == nil {
			return fmt.Errorf("cannot store sensitive setting %s: no cipher configured", key)
		}
		encrypted, err := s.cipher.EncryptString(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		value = encrypted
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		data, err := json.Marshal(settingRecord{Value: value, Sensitive: sensitive})
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) GetSetting(key string) (string, error) {
	var rec settingRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("setting %s: %w", key, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return "", err
	}

	if rec.Sensitive {
		if s.cipher == nil {
			return "", fmt.Errorf("cannot read sensitive setting %s: no cipher configured", key)
		}
		plaintext, err := s.cipher.DecryptString(rec.Value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt setting %s: %w", key, err)
		}
		return plaintext, nil
	}
	return rec.Value, nil
}

// Administrator operations
func (s *BoltStore) CreateAdministrator(admin *types.Administrator) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAdmins)
		data, err := json.Marshal(admin)
		if err != nil {
			return err
		}
		return b.Put([]byte(admin.ID), data)
	})
}

func (s *BoltStore) GetAdministrator(id string) (*types.Administrator, error) {
	var admin types.Administrator
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAdmins)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("administrator %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &admin)
	})
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *BoltStore) ListAdministrators() ([]*types.Administrator, error) {
	var admins []*types.Administrator
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAdmins)
		return b.ForEach(func(k, v []byte) error {
			var admin types.Administrator
			if err := json.Unmarshal(v, &admin); err != nil {
				return err
			}
			admins = append(admins, &admin)
			return nil
		})
	})
	return admins, err
}

func (s *BoltStore) DeleteAdministrator(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAdmins)
		return b.Delete([]byte(id))
	})
}

// Activity operations. Keys are zero-padded bucket sequence numbers so
// a reverse cursor walk yields most-recent-first ordering.
func (s *BoltStore) AppendActivity(event *types.ActivityEvent) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketActivity)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return b.Put([]byte(fmt.Sprintf("%020d", seq)), data)
	})
}

func (s *BoltStore) ListActivity(limit int) ([]*types.ActivityEvent, error) {
	var events []*types.ActivityEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketActivity).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(events) >= limit {
				break
			}
			var event types.ActivityEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			events = append(events, &event)
		}
		return nil
	})
	return events, err
}
