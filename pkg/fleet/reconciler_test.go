package fleet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flotilla-sh/flotilla/pkg/swarm"
	"github.com/flotilla-sh/flotilla/pkg/types"
)

func TestMapSwarmStatus(t *testing.T) {
	tests := []struct {
		raw          string
		availability string
		prev         types.NodeStatus
		want         types.NodeStatus
	}{
		{"ready", "active", types.NodeStatusProvisioning, types.NodeStatusActive},
		{"Ready", "active", types.NodeStatusProvisioning, types.NodeStatusActive},
		{"active", "", "", types.NodeStatusActive},
		// The engine reports drained nodes as ready; availability is
		// what carries the drain
		{"ready", "drain", types.NodeStatusActive, types.NodeStatusDraining},
		{"ready", "DRAIN", types.NodeStatusActive, types.NodeStatusDraining},
		{"drain", "", types.NodeStatusActive, types.NodeStatusDraining},
		{"draining", "", types.NodeStatusActive, types.NodeStatusDraining},
		// A dead node is down even while still marked drained
		{"down", "drain", types.NodeStatusDraining, types.NodeStatusDown},
		{"down", "active", types.NodeStatusActive, types.NodeStatusDown},
		{"DISCONNECTED", "active", types.NodeStatusActive, types.NodeStatusDown},
		{"unknown", "active", types.NodeStatusActive, types.NodeStatusActive},
		{"unknown", "active", "", types.NodeStatusUnreachable},
		{"", "", types.NodeStatusDown, types.NodeStatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.raw+"/"+tt.availability+"/"+string(tt.prev), func(t *testing.T) {
			assert.Equal(t, tt.want, mapSwarmStatus(tt.raw, tt.availability, tt.prev))
		})
	}
}

func TestMatchNode(t *testing.T) {
	cpNodes := []swarm.Node{
		{ID: "a", Hostname: "worker-1", Addr: "10.0.0.5:2377"},
		{ID: "b", Hostname: "worker-2", Addr: "10.0.0.6:2377"},
	}

	t.Run("by hostname", func(t *testing.T) {
		got, ok := matchNode(cpNodes, &types.WorkerNode{Name: "worker-2", IPAddress: "192.168.0.1"})
		assert.True(t, ok)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("by address prefix", func(t *testing.T) {
		got, ok := matchNode(cpNodes, &types.WorkerNode{Name: "renamed-host", IPAddress: "10.0.0.5"})
		assert.True(t, ok)
		assert.Equal(t, "a", got.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := matchNode(cpNodes, &types.WorkerNode{Name: "worker-9", IPAddress: "10.0.0.9"})
		assert.False(t, ok)
	})
}

func TestEffectiveUsagePrefersLimits(t *testing.T) {
	tests := []struct {
		name string
		in   swarm.ServiceResources
		want serviceUsage
	}{
		{
			"limits win",
			swarm.ServiceResources{LimitNanoCPUs: 2e9, LimitMemoryBytes: 1 << 30, ReservedNanoCPUs: 1e9, ReservedMemoryBytes: 1 << 29},
			serviceUsage{NanoCPUs: 2e9, MemoryBytes: 1 << 30},
		},
		{
			"fallback per resource",
			swarm.ServiceResources{LimitNanoCPUs: 2e9, ReservedMemoryBytes: 1 << 29},
			serviceUsage{NanoCPUs: 2e9, MemoryBytes: 1 << 29},
		},
		{
			"nothing declared",
			swarm.ServiceResources{},
			serviceUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, effectiveUsage(tt.in))
		})
	}
}

func TestUsageCacheCachesFailuresAsZero(t *testing.T) {
	fs := newFakeSwarm()
	fs.serviceErr = errors.New("service gone")
	cache := newUsageCache(fs)
	ctx := context.Background()

	assert.Equal(t, serviceUsage{}, cache.lookup(ctx, "svc-gone"))
	assert.Equal(t, serviceUsage{}, cache.lookup(ctx, "svc-gone"))
	assert.Equal(t, 1, fs.serviceCalls["svc-gone"], "failed lookups must also be cached")
}

func TestUtilization(t *testing.T) {
	assert.Equal(t, 0.95, utilization(3.8, 4))
	assert.Zero(t, utilization(3.8, 0), "zero capacity never alerts")
	assert.Zero(t, utilization(0, 4))
}
