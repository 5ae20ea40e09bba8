package swarm

import (
	"context"
)

// Node is the control-plane view of a cluster member
type Node struct {
	ID           string
	Hostname     string
	Addr         string
	State        string // raw engine state: ready, down, disconnected, unknown
	Availability string // active, pause, drain
	NanoCPUs     int64
	MemoryBytes  int64
}

// Task is a workload instance placed on a node
type Task struct {
	ID        string
	ServiceID string
	NodeID    string
	State     string
}

// ServiceResources holds a workload service's declared CPU/RAM
// footprint. Limits and reservations are reported separately; callers
// choose which to count.
type ServiceResources struct {
	LimitNanoCPUs       int64
	LimitMemoryBytes    int64
	ReservedNanoCPUs    int64
	ReservedMemoryBytes int64
}

// JoinTokens are the cluster's current join secrets
type JoinTokens struct {
	Worker  string
	Manager string
}

// Client issues inspect/list/update/remove operations against the
// cluster control plane. Implemented by DockerClient; faked in tests.
type Client interface {
	// Ping verifies the control plane is reachable
	Ping(ctx context.Context) error

	// InitCluster initializes the control plane in manager mode and
	// returns the manager's node ID
	InitCluster(ctx context.Context, advertiseAddr, listenAddr string) (string, error)

	// JoinTokens returns the current worker and manager join tokens
	JoinTokens(ctx context.Context) (JoinTokens, error)

	// ListNodes returns all cluster members
	ListNodes(ctx context.Context) ([]Node, error)

	// InspectNode returns one cluster member by control-plane ID
	InspectNode(ctx context.Context, id string) (Node, error)

	// DrainNode marks a node's availability as drain so the control
	// plane migrates its tasks away
	DrainNode(ctx context.Context, id string) error

	// RemoveNode removes a node from the cluster
	RemoveNode(ctx context.Context, id string, force bool) error

	// RunningTasks lists the tasks currently running on a node
	RunningTasks(ctx context.Context, nodeID string) ([]Task, error)

	// ServiceResources returns the declared resource footprint of a
	// workload service
	ServiceResources(ctx context.Context, serviceID string) (ServiceResources, error)

	// EnsureOverlayNetwork creates the shared overlay network if it
	// does not already exist
	EnsureOverlayNetwork(ctx context.Context, name string) error
}
