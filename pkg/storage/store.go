package storage

import (
	"errors"

	"github.com/flotilla-sh/flotilla/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Cipher encrypts sensitive setting values at rest. Implemented by
// security.SecretsManager.
type Cipher interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(ciphertext string) (string, error)
}

// Store defines the interface for fleet state storage
// This is implemented by BoltDB-backed storage
type Store interface {
	// Nodes
	CreateNode(node *types.WorkerNode) error
	GetNode(id string) (*types.WorkerNode, error)
	ListNodes() ([]*types.WorkerNode, error)
	UpdateNode(node *types.WorkerNode) error
	DeleteNode(id string) error

	// Settings (singleton configuration; sensitive values are
	// encrypted through the injected Cipher)
	SetSetting(key, value string, sensitive bool) error
	GetSetting(key string) (string, error)

	// Administrators (alert recipients)
	CreateAdministrator(admin *types.Administrator) error
	GetAdministrator(id string) (*types.Administrator, error)
	ListAdministrators() ([]*types.Administrator, error)
	DeleteAdministrator(id string) error

	// Activity log (append-only audit trail)
	AppendActivity(event *types.ActivityEvent) error
	ListActivity(limit int) ([]*types.ActivityEvent, error)

	// Utility
	Close() error
}
