package swarm

import (
	"context"
	"fmt"
	"strings"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/flotilla-sh/flotilla/pkg/log"
)

// DockerClient implements Client against the Docker Engine API
type DockerClient struct {
	cli    *client.Client
	logger zerolog.Logger
}

// NewDockerClient connects to the Docker Engine at host. An empty host
// falls back to the environment (DOCKER_HOST or the default socket).
func NewDockerClient(host string) (*DockerClient, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerClient{cli: cli, logger: log.WithComponent("swarm")}, nil
}

// Close releases the underlying HTTP client
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// Ping verifies the control plane is reachable
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("control plane unreachable: %w", err)
	}
	return nil
}

// InitCluster initializes swarm mode with this engine as the first manager
func (d *DockerClient) InitCluster(ctx context.Context, advertiseAddr, listenAddr string) (string, error) {
	nodeID, err := d.cli.SwarmInit(ctx, swarmtypes.InitRequest{
		ListenAddr:    listenAddr,
		AdvertiseAddr: advertiseAddr,
	})
	if err != nil {
		return "", fmt.Errorf("swarm init failed: %w", err)
	}
	return nodeID, nil
}

// JoinTokens returns the current worker and manager join tokens
func (d *DockerClient) JoinTokens(ctx context.Context) (JoinTokens, error) {
	sw, err := d.cli.SwarmInspect(ctx)
	if err != nil {
		return JoinTokens{}, fmt.Errorf("swarm inspect failed: %w", err)
	}
	return JoinTokens{
		Worker:  sw.JoinTokens.Worker,
		Manager: sw.JoinTokens.Manager,
	}, nil
}

// ListNodes returns all cluster members
func (d *DockerClient) ListNodes(ctx context.Context) ([]Node, error) {
	raw, err := d.cli.NodeList(ctx, dockertypes.NodeListOptions{})
	if err != nil {
		return nil, fmt.Errorf("node list failed: %w", err)
	}

	nodes := make([]Node, 0, len(raw))
	for _, n := range raw {
		nodes = append(nodes, nodeFromSwarm(n))
	}
	return nodes, nil
}

// InspectNode returns one cluster member by control-plane ID
func (d *DockerClient) InspectNode(ctx context.Context, id string) (Node, error) {
	n, _, err := d.cli.NodeInspectWithRaw(ctx, id)
	if err != nil {
		return Node{}, fmt.Errorf("node inspect %s failed: %w", id, err)
	}
	return nodeFromSwarm(n), nil
}

// DrainNode marks a node's availability as drain
func (d *DockerClient) DrainNode(ctx context.Context, id string) error {
	n, _, err := d.cli.NodeInspectWithRaw(ctx, id)
	if err != nil {
		return fmt.Errorf("node inspect %s failed: %w", id, err)
	}

	spec := n.Spec
	spec.Availability = swarmtypes.NodeAvailabilityDrain

	if err := d.cli.NodeUpdate(ctx, id, n.Version, spec); err != nil {
		return fmt.Errorf("node update %s failed: %w", id, err)
	}
	return nil
}

// RemoveNode removes a node from the cluster
func (d *DockerClient) RemoveNode(ctx context.Context, id string, force bool) error {
	if err := d.cli.NodeRemove(ctx, id, dockertypes.NodeRemoveOptions{Force: force}); err != nil {
		return fmt.Errorf("node remove %s failed: %w", id, err)
	}
	return nil
}

// RunningTasks lists the tasks currently running on a node
func (d *DockerClient) RunningTasks(ctx context.Context, nodeID string) ([]Task, error) {
	args := filters.NewArgs()
	args.Add("node", nodeID)
	args.Add("desired-state", "running")

	raw, err := d.cli.TaskList(ctx, dockertypes.TaskListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("task list for node %s failed: %w", nodeID, err)
	}

	tasks := make([]Task, 0, len(raw))
	for _, t := range raw {
		// The desired-state filter still returns tasks that are
		// starting or shutting down; count only running ones.
		if t.Status.State != swarmtypes.TaskStateRunning {
			continue
		}
		tasks = append(tasks, Task{
			ID:        t.ID,
			ServiceID: t.ServiceID,
			NodeID:    t.NodeID,
			State:     string(t.Status.State),
		})
	}
	return tasks, nil
}

// ServiceResources returns the declared resource footprint of a service
func (d *DockerClient) ServiceResources(ctx context.Context, serviceID string) (ServiceResources, error) {
	svc, _, err := d.cli.ServiceInspectWithRaw(ctx, serviceID, dockertypes.ServiceInspectOptions{})
	if err != nil {
		return ServiceResources{}, fmt.Errorf("service inspect %s failed: %w", serviceID, err)
	}
	return resourcesFromSpec(svc.Spec.TaskTemplate.Resources), nil
}

// EnsureOverlayNetwork creates the shared overlay network if missing
func (d *DockerClient) EnsureOverlayNetwork(ctx context.Context, name string) error {
	_, err := d.cli.NetworkCreate(ctx, name, dockertypes.NetworkCreate{
		Driver:     "overlay",
		Attachable: true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			d.logger.Debug().Str("network", name).Msg("overlay network already exists")
			return nil
		}
		return fmt.Errorf("network create %s failed: %w", name, err)
	}
	return nil
}

// nodeFromSwarm maps an engine node descriptor to our view
func nodeFromSwarm(n swarmtypes.Node) Node {
	return Node{
		ID:           n.ID,
		Hostname:     n.Description.Hostname,
		Addr:         n.Status.Addr,
		State:        string(n.Status.State),
		Availability: string(n.Spec.Availability),
		NanoCPUs:     n.Description.Resources.NanoCPUs,
		MemoryBytes:  n.Description.Resources.MemoryBytes,
	}
}

// resourcesFromSpec flattens a service's resource requirements
func resourcesFromSpec(r *swarmtypes.ResourceRequirements) ServiceResources {
	var res ServiceResources
	if r == nil {
		return res
	}
	if r.Limits != nil {
		res.LimitNanoCPUs = r.Limits.NanoCPUs
		res.LimitMemoryBytes = r.Limits.MemoryBytes
	}
	if r.Reservations != nil {
		res.ReservedNanoCPUs = r.Reservations.NanoCPUs
		res.ReservedMemoryBytes = r.Reservations.MemoryBytes
	}
	return res
}
