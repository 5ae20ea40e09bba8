/*
Package types defines the core data structures used throughout Flotilla.

This package contains the domain model for the worker node fleet: node
records, the cluster bootstrap singleton, alert recipients, activity
events, and the API-facing status projection. All other packages import
types for state management and reporting.

# Core Types

Fleet model:
  - WorkerNode: persisted record for one machine (identity, SSH
    credentials, cluster linkage, capacity/usage snapshot, metadata)
  - NodeStatus: provisioning, active, draining, down, unreachable
  - NodeSpec: operator input for enrolling a new node

Cluster state:
  - SwarmBootstrap: singleton bootstrap state (initialized flag,
    manager address, join tokens)

Reporting:
  - NodeStatusReport: read-only projection with CPU/memory triplets
    and synthesized warnings
  - ActivityEvent: audit record for fleet operations
  - Administrator: alert recipient

# Status Lifecycle

	provisioning ──► active ──► draining ──► (removed)
	      │             │
	      ▼             ▼
	     down      unreachable

A node without a SwarmNodeID can only be provisioning or down; the
active, draining, and unreachable states require a confirmed
control-plane match.

All types serialize as JSON for bbolt persistence; NodeSpec additionally
carries YAML tags for `flotilla node add -f` spec files.
*/
package types
