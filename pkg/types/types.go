package types

import (
	"time"
)

// WorkerNode represents a machine enrolled in the fleet. One record exists
// per physical or virtual machine, persisted for the lifetime of the node.
type WorkerNode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	SSHPort   int    `json:"ssh_port"`
	SSHUser   string `json:"ssh_user"`

	// SSHKeyEncrypted holds the node's SSH private key as AES-256-GCM
	// ciphertext. It is decrypted only transiently for remote execution
	// and never logged or persisted in plaintext.
	SSHKeyEncrypted []byte `json:"ssh_key_encrypted,omitempty"`

	// SwarmNodeID links the record to the control-plane node once the
	// join has been confirmed. Empty means "not yet matched".
	SwarmNodeID string `json:"swarm_node_id,omitempty"`

	Status NodeStatus `json:"status"`

	// Capacity and usage are derived from the control plane and
	// overwritten on every sweep. Over-commit (used > capacity) is
	// representable and must be tolerated by consumers.
	CapacityCPU   float64 `json:"capacity_cpu"`
	CapacityRAMMB int64   `json:"capacity_ram_mb"`
	UsedCPU       float64 `json:"used_cpu"`
	UsedRAMMB     int64   `json:"used_ram_mb"`

	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`

	// Metadata is a best-effort descriptive bag (hostname, address,
	// availability, containers, last_error). Never required for
	// correctness.
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeStatus represents the lifecycle state of a worker node
type NodeStatus string

const (
	NodeStatusProvisioning NodeStatus = "provisioning"
	NodeStatusActive       NodeStatus = "active"
	NodeStatusDraining     NodeStatus = "draining"
	NodeStatusDown         NodeStatus = "down"
	NodeStatusUnreachable  NodeStatus = "unreachable"
)

// Metadata keys populated by the reconciler
const (
	MetaHostname     = "hostname"
	MetaAddress      = "address"
	MetaAvailability = "availability"
	MetaContainers   = "containers"
	MetaLastError    = "last_error"
)

// NodeSpec is the operator-supplied input for enrolling a new node
type NodeSpec struct {
	Name          string `json:"name" yaml:"name"`
	IPAddress     string `json:"ip_address" yaml:"ip_address"`
	SSHPort       int    `json:"ssh_port" yaml:"ssh_port"`
	SSHUser       string `json:"ssh_user" yaml:"ssh_user"`
	SSHPrivateKey []byte `json:"ssh_private_key,omitempty" yaml:"ssh_private_key,omitempty"`
	AutoProvision bool   `json:"auto_provision" yaml:"auto_provision"`
}

// SwarmBootstrap is the singleton cluster bootstrap state owned by the
// settings store. Worker and manager tokens are write-once secrets.
type SwarmBootstrap struct {
	Initialized  bool   `json:"initialized"`
	ManagerAddr  string `json:"manager_addr"`
	WorkerToken  string `json:"worker_token"`
	ManagerToken string `json:"manager_token"`
}

// Administrator is an alert recipient
type Administrator struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	WebhookURL string    `json:"webhook_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResourceFigures is a capacity/used/available triplet for one resource
type ResourceFigures struct {
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Available float64 `json:"available"`
}

// NodeStatusReport is the API-facing projection of a node's state
type NodeStatusReport struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	IPAddress       string          `json:"ip_address"`
	Status          NodeStatus      `json:"status"`
	CPU             ResourceFigures `json:"cpu"`
	MemoryMB        ResourceFigures `json:"memory_mb"`
	Containers      int             `json:"containers"`
	LastHeartbeatAt time.Time       `json:"last_heartbeat_at"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// ActivityEvent is an audit record emitted by fleet operations
type ActivityEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	NodeID    string            `json:"node_id,omitempty"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
