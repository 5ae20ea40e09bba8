package fleet

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/swarm"
)

// serviceUsage is a workload service's effective per-task footprint
type serviceUsage struct {
	NanoCPUs    int64
	MemoryBytes int64
}

// usageCache memoizes service resource lookups within one
// reconciliation sweep. A fresh cache is created per sweep and
// discarded with it; entries never cross sweeps.
type usageCache struct {
	client swarm.Client
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]serviceUsage
}

func newUsageCache(client swarm.Client) *usageCache {
	return &usageCache{
		client:  client,
		logger:  log.WithComponent("reconciler"),
		entries: make(map[string]serviceUsage),
	}
}

// lookup returns the service's declared footprint, hitting the control
// plane at most once per service per sweep. An inspection failure is
// logged and cached as zero usage so the sweep proceeds.
func (c *usageCache) lookup(ctx context.Context, serviceID string) serviceUsage {
	c.mu.Lock()
	if usage, ok := c.entries[serviceID]; ok {
		c.mu.Unlock()
		return usage
	}
	c.mu.Unlock()

	var usage serviceUsage
	res, err := c.client.ServiceResources(ctx, serviceID)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("service_id", serviceID).
			Msg("service inspect failed, counting zero usage")
	} else {
		usage = effectiveUsage(res)
	}

	c.mu.Lock()
	c.entries[serviceID] = usage
	c.mu.Unlock()
	return usage
}

// effectiveUsage prefers hard limits and falls back to reservations,
// per resource independently
func effectiveUsage(res swarm.ServiceResources) serviceUsage {
	usage := serviceUsage{
		NanoCPUs:    res.LimitNanoCPUs,
		MemoryBytes: res.LimitMemoryBytes,
	}
	if usage.NanoCPUs == 0 {
		usage.NanoCPUs = res.ReservedNanoCPUs
	}
	if usage.MemoryBytes == 0 {
		usage.MemoryBytes = res.ReservedMemoryBytes
	}
	return usage
}

// round2 rounds to two decimal places for CPU core figures
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// bytesToMB converts bytes to whole megabytes
func bytesToMB(b int64) int64 {
	return int64(math.Round(float64(b) / (1024 * 1024)))
}
