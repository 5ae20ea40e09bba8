package fleet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/flotilla-sh/flotilla/pkg/activity"
	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/notify"
	"github.com/flotilla-sh/flotilla/pkg/retry"
	"github.com/flotilla-sh/flotilla/pkg/swarm"
	"github.com/flotilla-sh/flotilla/pkg/types"
)

// nodeMetrics is one node's reconciled control-plane view
type nodeMetrics struct {
	hostname      string
	addr          string
	state         string
	availability  string
	capacityCPU   float64
	capacityRAMMB int64
	usedCPU       float64
	usedRAMMB     int64
	runningTasks  int
}

// syncNodeMetadata matches a freshly-joined node against the control
// plane, polling up to attempts times. On match it captures the node's
// capacity, links the control-plane ID, and promotes the record to
// active.
func (m *Manager) syncNodeMetadata(ctx context.Context, node *types.WorkerNode, attempts int) error {
	var matched swarm.Node

	err := retry.Do(ctx, func() error {
		nodes, err := m.swarm.ListNodes(ctx)
		if err != nil {
			return err
		}
		found, ok := matchNode(nodes, node)
		if !ok {
			return fmt.Errorf("node %s not yet visible in the cluster", node.Name)
		}
		matched = found
		return nil
	},
		retry.WithMaxAttempts(attempts),
		retry.WithDelay(m.opts.MatchDelay),
		retry.WithClock(m.clock),
	)
	if err != nil {
		return &MatchError{NodeName: node.Name, Attempts: attempts}
	}

	node.SwarmNodeID = matched.ID
	node.Status = types.NodeStatusActive
	node.CapacityCPU = round2(float64(matched.NanoCPUs) / 1e9)
	node.CapacityRAMMB = bytesToMB(matched.MemoryBytes)
	node.LastHeartbeatAt = m.clock.Now().UTC()
	node.UpdatedAt = node.LastHeartbeatAt
	if node.Metadata == nil {
		node.Metadata = make(map[string]string)
	}
	node.Metadata[types.MetaHostname] = matched.Hostname
	node.Metadata[types.MetaAddress] = matched.Addr
	delete(node.Metadata, types.MetaLastError)

	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("failed to persist matched node %s: %w", node.ID, err)
	}

	logger := log.WithNodeID(node.ID)
	logger.Info().
		Str("swarm_node_id", matched.ID).
		Float64("capacity_cpu", node.CapacityCPU).
		Int64("capacity_ram_mb", node.CapacityRAMMB).
		Msg("node matched against control plane")
	return nil
}

// matchNode finds the control-plane record for a worker by exact
// hostname or by address prefix
func matchNode(nodes []swarm.Node, node *types.WorkerNode) (swarm.Node, bool) {
	for _, cp := range nodes {
		if cp.Hostname != "" && cp.Hostname == node.Name {
			return cp, true
		}
		if node.IPAddress != "" && strings.HasPrefix(cp.Addr, node.IPAddress) {
			return cp, true
		}
	}
	return swarm.Node{}, false
}

// collectNodeMetrics queries the node descriptor and aggregates
// declared usage across its running tasks through the per-sweep cache
func (m *Manager) collectNodeMetrics(ctx context.Context, swarmNodeID string, cache *usageCache) (nodeMetrics, error) {
	desc, err := m.swarm.InspectNode(ctx, swarmNodeID)
	if err != nil {
		return nodeMetrics{}, err
	}

	tasks, err := m.swarm.RunningTasks(ctx, swarmNodeID)
	if err != nil {
		return nodeMetrics{}, err
	}

	var usedNanoCPUs, usedBytes int64
	for _, task := range tasks {
		usage := cache.lookup(ctx, task.ServiceID)
		usedNanoCPUs += usage.NanoCPUs
		usedBytes += usage.MemoryBytes
	}

	return nodeMetrics{
		hostname:      desc.Hostname,
		addr:          desc.Addr,
		state:         desc.State,
		availability:  desc.Availability,
		capacityCPU:   round2(float64(desc.NanoCPUs) / 1e9),
		capacityRAMMB: bytesToMB(desc.MemoryBytes),
		usedCPU:       round2(float64(usedNanoCPUs) / 1e9),
		usedRAMMB:     bytesToMB(usedBytes),
		runningTasks:  len(tasks),
	}, nil
}

// mapSwarmStatus normalizes the raw control-plane state and availability
// into the node status enum. A down node is down regardless of its
// availability; otherwise a drained availability classifies as draining
// even while the engine still reports the node ready. Every input maps
// to exactly one output; unrecognized states fall back to the node's
// prior status, or unreachable when no prior status exists.
func mapSwarmStatus(rawState, availability string, prev types.NodeStatus) types.NodeStatus {
	switch strings.ToLower(rawState) {
	case "down", "disconnected":
		return types.NodeStatusDown
	}

	switch strings.ToLower(availability) {
	case "drain", "draining":
		return types.NodeStatusDraining
	}

	switch strings.ToLower(rawState) {
	case "ready", "active":
		return types.NodeStatusActive
	case "drain", "draining":
		return types.NodeStatusDraining
	default:
		if prev != "" {
			return prev
		}
		return types.NodeStatusUnreachable
	}
}

// evaluateAlertConditions fires down/unreachable alerts on status
// transitions and resource alerts while utilization sits at or above
// the threshold. Delivery throttling is the emitter's concern.
func (m *Manager) evaluateAlertConditions(ctx context.Context, node *types.WorkerNode, newStatus types.NodeStatus, metrics nodeMetrics) {
	// Transition alerts: fire once per status change, not per poll
	if newStatus != node.Status {
		switch newStatus {
		case types.NodeStatusDown:
			m.emitAlert(ctx, node, notify.AlertDown,
				fmt.Sprintf("worker node %s is down", node.Name),
				map[string]string{"previous_status": string(node.Status)})
		case types.NodeStatusUnreachable:
			m.emitAlert(ctx, node, notify.AlertUnreachable,
				fmt.Sprintf("worker node %s is unreachable", node.Name),
				map[string]string{"previous_status": string(node.Status)})
		}
	}

	if newStatus != types.NodeStatusActive {
		return
	}

	// Resource alerts: checked every sweep; a zero-capacity node can
	// never trip the ratio
	cpuRatio := utilization(metrics.usedCPU, metrics.capacityCPU)
	ramRatio := utilization(float64(metrics.usedRAMMB), float64(metrics.capacityRAMMB))

	if cpuRatio >= m.opts.CPUThreshold || ramRatio >= m.opts.MemoryThreshold {
		m.emitAlert(ctx, node, notify.AlertResource,
			fmt.Sprintf("worker node %s utilization high: cpu %.0f%%, memory %.0f%%",
				node.Name, cpuRatio*100, ramRatio*100),
			map[string]string{
				"cpu_ratio":    strconv.FormatFloat(cpuRatio, 'f', 2, 64),
				"memory_ratio": strconv.FormatFloat(ramRatio, 'f', 2, 64),
			})
	}
}

func utilization(used, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return used / capacity
}

// reconcileNode refreshes one matched node from the control plane:
// capacity, aggregated usage, status classification, and alerting.
func (m *Manager) reconcileNode(ctx context.Context, node *types.WorkerNode, cache *usageCache) error {
	metrics, err := m.collectNodeMetrics(ctx, node.SwarmNodeID, cache)
	if err != nil {
		return err
	}

	newStatus := mapSwarmStatus(metrics.state, metrics.availability, node.Status)

	// Alert against the previously-persisted status before it is
	// overwritten below
	m.evaluateAlertConditions(ctx, node, newStatus, metrics)

	if newStatus != node.Status {
		m.record(activity.EventNodeStatusChanged, node.ID,
			fmt.Sprintf("node %s status %s -> %s", node.Name, node.Status, newStatus),
			map[string]string{"from": string(node.Status), "to": string(newStatus)})
	}

	node.Status = newStatus
	node.CapacityCPU = metrics.capacityCPU
	node.CapacityRAMMB = metrics.capacityRAMMB
	node.UsedCPU = metrics.usedCPU
	node.UsedRAMMB = metrics.usedRAMMB
	node.LastHeartbeatAt = m.clock.Now().UTC()
	node.UpdatedAt = node.LastHeartbeatAt
	if node.Metadata == nil {
		node.Metadata = make(map[string]string)
	}
	node.Metadata[types.MetaHostname] = metrics.hostname
	node.Metadata[types.MetaAddress] = metrics.addr
	node.Metadata[types.MetaAvailability] = metrics.availability
	node.Metadata[types.MetaContainers] = strconv.Itoa(metrics.runningTasks)
	delete(node.Metadata, types.MetaLastError)

	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("failed to persist node %s: %w", node.ID, err)
	}

	m.observeNodeGauges(node)
	return nil
}
