/*
Package metrics provides Prometheus instrumentation for the fleet
manager.

# Metrics

Fleet state (gauges, refreshed on every sweep):

	flotilla_nodes_total{status}           nodes by lifecycle status
	flotilla_node_cpu_capacity_cores{node} per-node CPU capacity
	flotilla_node_cpu_used_cores{node}     per-node CPU usage
	flotilla_node_memory_capacity_mb{node} per-node memory capacity
	flotilla_node_memory_used_mb{node}     per-node memory usage

Sweeps:

	flotilla_sweeps_total                  reconciliation sweeps run
	flotilla_sweep_duration_seconds        sweep duration histogram
	flotilla_node_sync_failures_total      per-node reconcile failures

Provisioning:

	flotilla_provision_duration_seconds    end-to-end provision latency
	flotilla_provisions_total{outcome}     attempts by success/failure

Alerts:

	flotilla_alerts_fired_total{type}      alerts actually delivered
	flotilla_alerts_suppressed_total{type} alerts absorbed by cooldown

# Timer Pattern

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.SweepDuration)
		metrics.SweepsTotal.Inc()
	}()

All metrics register at package init; the /metrics endpoint is exposed
through Handler() by the api package.
*/
package metrics
