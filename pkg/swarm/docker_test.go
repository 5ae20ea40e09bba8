package swarm

import (
	"testing"

	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/stretchr/testify/assert"
)

func TestNodeFromSwarm(t *testing.T) {
	n := swarmtypes.Node{
		ID: "abc123",
		Spec: swarmtypes.NodeSpec{
			Availability: swarmtypes.NodeAvailabilityActive,
		},
		Description: swarmtypes.NodeDescription{
			Hostname: "worker-1",
			Resources: swarmtypes.Resources{
				NanoCPUs:    4e9,
				MemoryBytes: 8 * 1024 * 1024 * 1024,
			},
		},
		Status: swarmtypes.NodeStatus{
			State: swarmtypes.NodeStateReady,
			Addr:  "10.0.0.5",
		},
	}

	got := nodeFromSwarm(n)

	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, "worker-1", got.Hostname)
	assert.Equal(t, "10.0.0.5", got.Addr)
	assert.Equal(t, "ready", got.State)
	assert.Equal(t, "active", got.Availability)
	assert.Equal(t, int64(4e9), got.NanoCPUs)
	assert.Equal(t, int64(8*1024*1024*1024), got.MemoryBytes)
}

func TestResourcesFromSpec(t *testing.T) {
	tests := []struct {
		name string
		in   *swarmtypes.ResourceRequirements
		want ServiceResources
	}{
		{
			name: "nil requirements",
			in:   nil,
			want: ServiceResources{},
		},
		{
			name: "limits only",
			in: &swarmtypes.ResourceRequirements{
				Limits: &swarmtypes.Limit{NanoCPUs: 5e8, MemoryBytes: 256 << 20},
			},
			want: ServiceResources{LimitNanoCPUs: 5e8, LimitMemoryBytes: 256 << 20},
		},
		{
			name: "reservations only",
			in: &swarmtypes.ResourceRequirements{
				Reservations: &swarmtypes.Resources{NanoCPUs: 25e7, MemoryBytes: 128 << 20},
			},
			want: ServiceResources{ReservedNanoCPUs: 25e7, ReservedMemoryBytes: 128 << 20},
		},
		{
			name: "both",
			in: &swarmtypes.ResourceRequirements{
				Limits:       &swarmtypes.Limit{NanoCPUs: 1e9, MemoryBytes: 512 << 20},
				Reservations: &swarmtypes.Resources{NanoCPUs: 5e8, MemoryBytes: 256 << 20},
			},
			want: ServiceResources{
				LimitNanoCPUs:       1e9,
				LimitMemoryBytes:    512 << 20,
				ReservedNanoCPUs:    5e8,
				ReservedMemoryBytes: 256 << 20,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resourcesFromSpec(tt.in))
		})
	}
}
