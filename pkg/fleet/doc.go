// Package fleet implements the worker node fleet manager: cluster
// bootstrap, node enrollment and SSH provisioning, the periodic
// reconciliation sweep, status projection, and alert emission.
//
// The Manager facade owns the node lifecycle. Nodes move through
// provisioning, active, draining, down, and unreachable; every
// transition is persisted before the next step runs, so a crash at any
// point leaves a record that the sweep or a re-provision can recover.
package fleet
