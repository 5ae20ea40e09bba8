package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/flotilla-sh/flotilla/pkg/activity"
	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/metrics"
	"github.com/flotilla-sh/flotilla/pkg/notify"
	"github.com/flotilla-sh/flotilla/pkg/security"
	"github.com/flotilla-sh/flotilla/pkg/sshexec"
	"github.com/flotilla-sh/flotilla/pkg/storage"
	"github.com/flotilla-sh/flotilla/pkg/swarm"
	"github.com/flotilla-sh/flotilla/pkg/types"
)

// Settings keys for the cluster bootstrap singleton
const (
	settingInitialized  = "swarm.initialized"
	settingManagerAddr  = "swarm.manager_addr"
	settingWorkerToken  = "swarm.worker_token"
	settingManagerToken = "swarm.manager_token"
)

// ActivityRecorder is the fire-and-forget audit sink consumed by the
// manager. Satisfied by activity.Recorder; may be nil.
type ActivityRecorder interface {
	Record(eventType, nodeID, message string, metadata map[string]string)
}

// Options tunes fleet manager behavior. Zero values fall back to
// defaults in NewManager.
type Options struct {
	// AdvertiseAddr is the manager address workers join through;
	// empty means autodetect from the local interfaces.
	AdvertiseAddr string
	// ListenAddr is the control-plane listen address for cluster init.
	ListenAddr string
	// OverlayNetwork is the shared overlay network created at bootstrap.
	OverlayNetwork string
	// ScriptPath locates the worker setup script artifact.
	ScriptPath string

	// MatchAttempts bounds metadata-sync polling after a join.
	MatchAttempts int
	// MatchDelay is the fixed wait between match attempts.
	MatchDelay time.Duration
	// DrainGrace is the task-migration wait between drain and removal.
	DrainGrace time.Duration

	// AlertCooldown suppresses repeated alerts per (node, type).
	AlertCooldown time.Duration
	// RecipientCacheTTL bounds administrator list lookups.
	RecipientCacheTTL time.Duration
	// NotifyTimeout bounds each alert delivery.
	NotifyTimeout time.Duration
	// CPUThreshold and MemoryThreshold are utilization alert ratios.
	CPUThreshold    float64
	MemoryThreshold float64
}

func (o *Options) applyDefaults() {
	if o.ListenAddr == "" {
		o.ListenAddr = "0.0.0.0:2377"
	}
	if o.OverlayNetwork == "" {
		o.OverlayNetwork = "flotilla-overlay"
	}
	if o.MatchAttempts == 0 {
		o.MatchAttempts = 6
	}
	if o.MatchDelay == 0 {
		o.MatchDelay = 5 * time.Second
	}
	if o.DrainGrace == 0 {
		o.DrainGrace = 5 * time.Second
	}
	if o.CPUThreshold == 0 {
		o.CPUThreshold = 0.90
	}
	if o.MemoryThreshold == 0 {
		o.MemoryThreshold = 0.90
	}
}

// Deps wires the manager's collaborators
type Deps struct {
	Store    storage.Store
	Swarm    swarm.Client
	Runner   sshexec.Runner
	Secrets  *security.SecretsManager
	Notifier notify.Notifier
	Recorder ActivityRecorder
	Clock    clockwork.Clock
}

// Manager is the fleet facade: cluster bootstrap, node lifecycle,
// status projection, and the reconciliation sweep.
type Manager struct {
	store   storage.Store
	swarm   swarm.Client
	runner  sshexec.Runner
	secrets *security.SecretsManager
	alerts  *AlertEmitter

	recorder ActivityRecorder
	clock    clockwork.Clock
	script   *scriptSource
	opts     Options
	logger   zerolog.Logger
}

// NewManager creates a fleet manager
func NewManager(deps Deps, opts Options) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Swarm == nil {
		return nil, fmt.Errorf("swarm client is required")
	}

	opts.applyDefaults()

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Manager{
		store:    deps.Store,
		swarm:    deps.Swarm,
		runner:   deps.Runner,
		secrets:  deps.Secrets,
		recorder: deps.Recorder,
		clock:    clock,
		script:   newScriptSource(opts.ScriptPath),
		alerts: NewAlertEmitter(deps.Store, deps.Notifier,
			opts.AlertCooldown, opts.RecipientCacheTTL, opts.NotifyTimeout, clock),
		opts:   opts,
		logger: log.WithComponent("fleet"),
	}, nil
}

// BootstrapCluster initializes the control plane in manager mode and
// persists the join tokens. Idempotent: once initialized, the stored
// state is returned without side effects.
func (m *Manager) BootstrapCluster(ctx context.Context) (*types.SwarmBootstrap, error) {
	state, err := m.loadBootstrap()
	if err != nil {
		return nil, &BootstrapError{Step: "load settings", Err: err}
	}
	if state.Initialized {
		return state, nil
	}

	advertiseAddr := m.opts.AdvertiseAddr
	if advertiseAddr == "" {
		advertiseAddr, err = discoverAdvertiseAddr()
		if err != nil {
			return nil, &BootstrapError{Step: "address discovery", Err: err}
		}
	}

	if _, err := m.swarm.InitCluster(ctx, advertiseAddr, m.opts.ListenAddr); err != nil {
		return nil, &BootstrapError{Step: "cluster init", Err: err}
	}

	tokens, err := m.swarm.JoinTokens(ctx)
	if err != nil {
		return nil, &BootstrapError{Step: "join tokens", Err: err}
	}

	managerAddr := fmt.Sprintf("%s:2377", advertiseAddr)
	if err := m.store.SetSetting(settingManagerAddr, managerAddr, false); err != nil {
		return nil, &BootstrapError{Step: "persist settings", Err: err}
	}
	if err := m.store.SetSetting(settingWorkerToken, tokens.Worker, true); err != nil {
		return nil, &BootstrapError{Step: "persist settings", Err: err}
	}
	if err := m.store.SetSetting(settingManagerToken, tokens.Manager, true); err != nil {
		return nil, &BootstrapError{Step: "persist settings", Err: err}
	}
	if err := m.store.SetSetting(settingInitialized, "true", false); err != nil {
		return nil, &BootstrapError{Step: "persist settings", Err: err}
	}

	// Best effort: an existing network is fine, and a failed creation
	// must not fail the bootstrap
	if err := m.swarm.EnsureOverlayNetwork(ctx, m.opts.OverlayNetwork); err != nil {
		m.logger.Warn().Err(err).
			Str("network", m.opts.OverlayNetwork).
			Msg("overlay network creation failed")
	}

	m.record(activity.EventClusterBootstrapped, "",
		fmt.Sprintf("cluster initialized, manager at %s", managerAddr), nil)
	m.logger.Info().Str("manager_addr", managerAddr).Msg("cluster bootstrapped")

	return &types.SwarmBootstrap{
		Initialized:  true,
		ManagerAddr:  managerAddr,
		WorkerToken:  tokens.Worker,
		ManagerToken: tokens.Manager,
	}, nil
}

// ClusterInfo returns the persisted bootstrap state without side
// effects
func (m *Manager) ClusterInfo() (*types.SwarmBootstrap, error) {
	return m.loadBootstrap()
}

// loadBootstrap reads the bootstrap singleton from settings
func (m *Manager) loadBootstrap() (*types.SwarmBootstrap, error) {
	initialized, err := m.store.GetSetting(settingInitialized)
	if errors.Is(err, storage.ErrNotFound) {
		return &types.SwarmBootstrap{}, nil
	}
	if err != nil {
		return nil, err
	}
	if initialized != "true" {
		return &types.SwarmBootstrap{}, nil
	}

	managerAddr, err := m.store.GetSetting(settingManagerAddr)
	if err != nil {
		return nil, err
	}
	workerToken, err := m.store.GetSetting(settingWorkerToken)
	if err != nil {
		return nil, err
	}
	managerToken, err := m.store.GetSetting(settingManagerToken)
	if err != nil {
		return nil, err
	}

	return &types.SwarmBootstrap{
		Initialized:  true,
		ManagerAddr:  managerAddr,
		WorkerToken:  workerToken,
		ManagerToken: managerToken,
	}, nil
}

// AddWorkerNode enrolls a new node. The record is created before any
// provisioning runs, so a failed provision leaves a retryable row; the
// new node id is returned alongside any provisioning error.
func (m *Manager) AddWorkerNode(ctx context.Context, spec types.NodeSpec) (string, error) {
	if spec.Name == "" {
		return "", &ValidationError{Msg: "node name is required"}
	}
	if spec.IPAddress == "" {
		return "", &ValidationError{Msg: "node IP address is required"}
	}
	if spec.AutoProvision && len(spec.SSHPrivateKey) == 0 {
		return "", &ValidationError{Msg: "an SSH private key is required for auto-provisioning"}
	}

	var encryptedKey []byte
	if len(spec.SSHPrivateKey) > 0 {
		if m.secrets == nil {
			return "", &CredentialError{Err: fmt.Errorf("no secrets manager configured")}
		}
		var err error
		encryptedKey, err = m.secrets.Encrypt(spec.SSHPrivateKey)
		if err != nil {
			return "", &CredentialError{Err: err}
		}
	}

	sshPort := spec.SSHPort
	if sshPort == 0 {
		sshPort = 22
	}
	sshUser := spec.SSHUser
	if sshUser == "" {
		sshUser = "root"
	}

	now := m.clock.Now().UTC()
	node := &types.WorkerNode{
		ID:              uuid.New().String(),
		Name:            spec.Name,
		IPAddress:       spec.IPAddress,
		SSHPort:         sshPort,
		SSHUser:         sshUser,
		SSHKeyEncrypted: encryptedKey,
		Status:          types.NodeStatusProvisioning,
		Metadata:        make(map[string]string),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := m.store.CreateNode(node); err != nil {
		return "", fmt.Errorf("failed to create node record: %w", err)
	}

	m.record(activity.EventNodeAdded, node.ID,
		fmt.Sprintf("worker node %s enrolled at %s", node.Name, node.IPAddress), nil)
	m.logger.Info().Str("node_id", node.ID).Str("name", node.Name).Msg("worker node added")

	if spec.AutoProvision {
		if err := m.ProvisionNode(ctx, node.ID); err != nil {
			// The record exists and can be re-provisioned; surface
			// the failure with the id
			return node.ID, err
		}
	}

	return node.ID, nil
}

// ProvisionNode installs and joins a node over SSH, then matches it
// against the control plane. Any failure forces the node to status
// down before the error is returned.
func (m *Manager) ProvisionNode(ctx context.Context, nodeID string) error {
	node, err := m.getNode(nodeID)
	if err != nil {
		return err
	}

	timer := metrics.NewTimer()

	provisionErr := func() error {
		state, err := m.loadBootstrap()
		if err != nil {
			return fmt.Errorf("failed to load bootstrap state: %w", err)
		}
		if !state.Initialized {
			return &PreconditionError{Msg: "cluster is not bootstrapped; run cluster init first"}
		}

		if len(node.SSHKeyEncrypted) == 0 {
			return &CredentialError{NodeID: node.ID}
		}
		if m.secrets == nil {
			return &CredentialError{NodeID: node.ID, Err: fmt.Errorf("no secrets manager configured")}
		}
		privateKey, err := m.secrets.Decrypt(node.SSHKeyEncrypted)
		if err != nil {
			return &CredentialError{NodeID: node.ID, Err: err}
		}

		node.Status = types.NodeStatusProvisioning
		node.UpdatedAt = m.clock.Now().UTC()
		if err := m.store.UpdateNode(node); err != nil {
			return fmt.Errorf("failed to persist provisioning status: %w", err)
		}

		commands, err := m.script.render(state.ManagerAddr, state.WorkerToken)
		if err != nil {
			return err
		}

		target := sshexec.Target{
			Host:       node.IPAddress,
			Port:       node.SSHPort,
			User:       node.SSHUser,
			PrivateKey: privateKey,
		}
		if err := m.runner.RunCommands(ctx, target, commands); err != nil {
			return fmt.Errorf("remote setup on %s failed: %w", node.IPAddress, err)
		}

		return m.syncNodeMetadata(ctx, node, m.opts.MatchAttempts)
	}()

	if provisionErr != nil {
		// Never leave a node silently stuck in provisioning
		node.Status = types.NodeStatusDown
		if node.Metadata == nil {
			node.Metadata = make(map[string]string)
		}
		node.Metadata[types.MetaLastError] = provisionErr.Error()
		node.UpdatedAt = m.clock.Now().UTC()
		if err := m.store.UpdateNode(node); err != nil {
			m.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to persist down status")
		}

		metrics.ProvisionsTotal.WithLabelValues("failure").Inc()
		m.record(activity.EventNodeProvisionFailed, node.ID,
			fmt.Sprintf("provisioning of %s failed: %v", node.Name, provisionErr), nil)
		return fmt.Errorf("provisioning node %s: %w", node.Name, provisionErr)
	}

	timer.ObserveDuration(metrics.ProvisionDuration)
	metrics.ProvisionsTotal.WithLabelValues("success").Inc()
	m.record(activity.EventNodeProvisioned, node.ID,
		fmt.Sprintf("worker node %s joined the cluster", node.Name),
		map[string]string{"swarm_node_id": node.SwarmNodeID})
	return nil
}

// RemoveNode drains a joined node out of the cluster and deletes its
// record. The DB deletion happens last so a mid-drain failure leaves a
// recoverable record.
func (m *Manager) RemoveNode(ctx context.Context, nodeID string) error {
	node, err := m.getNode(nodeID)
	if err != nil {
		return err
	}

	node.Status = types.NodeStatusDraining
	node.UpdatedAt = m.clock.Now().UTC()
	if err := m.store.UpdateNode(node); err != nil {
		return fmt.Errorf("failed to persist draining status: %w", err)
	}

	if node.SwarmNodeID != "" {
		if err := m.swarm.DrainNode(ctx, node.SwarmNodeID); err != nil {
			return &RemovalError{NodeID: node.ID, Step: "drain", Err: err}
		}

		// Grace period for task migration off the node
		if m.opts.DrainGrace > 0 {
			select {
			case <-ctx.Done():
				return &RemovalError{NodeID: node.ID, Step: "drain wait", Err: ctx.Err()}
			case <-m.clock.After(m.opts.DrainGrace):
			}
		}

		if err := m.swarm.RemoveNode(ctx, node.SwarmNodeID, true); err != nil {
			return &RemovalError{NodeID: node.ID, Step: "remove", Err: err}
		}
	}

	if err := m.store.DeleteNode(node.ID); err != nil {
		return &RemovalError{NodeID: node.ID, Step: "delete record", Err: err}
	}

	m.record(activity.EventNodeRemoved, node.ID,
		fmt.Sprintf("worker node %s removed from the fleet", node.Name), nil)
	m.logger.Info().Str("node_id", node.ID).Str("name", node.Name).Msg("worker node removed")
	return nil
}

// NodeStatuses projects all nodes into the API-facing report shape.
// Results are eventually-consistent snapshots: a concurrent sweep may
// be updating a node while it is read here.
func (m *Manager) NodeStatuses(ctx context.Context) ([]types.NodeStatusReport, error) {
	nodes, err := m.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	reports := make([]types.NodeStatusReport, 0, len(nodes))
	for _, node := range nodes {
		reports = append(reports, buildStatusReport(node, m.opts.CPUThreshold, m.opts.MemoryThreshold))
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports, nil
}

// UpdateNodeResources runs one reconciliation sweep across the fleet.
// Per-node failures are contained: an unreachable node is marked as
// such with its error recorded, and the sweep continues. A fresh usage
// cache is created per sweep and shared across its nodes.
func (m *Manager) UpdateNodeResources(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.SweepDuration)
		metrics.SweepsTotal.Inc()
	}()

	nodes, err := m.store.ListNodes()
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	cache := newUsageCache(m.swarm)
	statusCounts := make(map[types.NodeStatus]int)

	for _, node := range nodes {
		if node.SwarmNodeID == "" {
			// Possibly still joining: best-effort single-shot match
			if err := m.syncNodeMetadata(ctx, node, 1); err != nil {
				m.logger.Debug().Err(err).
					Str("node_id", node.ID).
					Msg("unmatched node still not visible")
			}
			statusCounts[node.Status]++
			continue
		}

		if err := m.reconcileNode(ctx, node, cache); err != nil {
			m.handleSweepFailure(ctx, node, err)
		}
		statusCounts[node.Status]++
	}

	for _, status := range []types.NodeStatus{
		types.NodeStatusProvisioning,
		types.NodeStatusActive,
		types.NodeStatusDraining,
		types.NodeStatusDown,
		types.NodeStatusUnreachable,
	} {
		metrics.NodesTotal.WithLabelValues(string(status)).Set(float64(statusCounts[status]))
	}

	return nil
}

// handleSweepFailure contains one node's reconcile failure: the node is
// forced to unreachable with the error recorded, the transition alert
// fires, and the sweep moves on.
func (m *Manager) handleSweepFailure(ctx context.Context, node *types.WorkerNode, reconcileErr error) {
	metrics.NodeSyncFailures.Inc()
	m.logger.Error().Err(reconcileErr).
		Str("node_id", node.ID).
		Str("name", node.Name).
		Msg("node reconcile failed")

	if node.Status != types.NodeStatusUnreachable {
		m.emitAlert(ctx, node, notify.AlertUnreachable,
			fmt.Sprintf("worker node %s is unreachable: %v", node.Name, reconcileErr),
			map[string]string{"previous_status": string(node.Status)})
	}

	node.Status = types.NodeStatusUnreachable
	if node.Metadata == nil {
		node.Metadata = make(map[string]string)
	}
	node.Metadata[types.MetaLastError] = reconcileErr.Error()
	node.UpdatedAt = m.clock.Now().UTC()

	if err := m.store.UpdateNode(node); err != nil {
		m.logger.Error().Err(err).Str("node_id", node.ID).Msg("failed to persist unreachable status")
	}
}

// emitAlert routes through the emitter; the audit event is recorded
// only for alerts that actually went out
func (m *Manager) emitAlert(ctx context.Context, node *types.WorkerNode, alertType notify.AlertType, message string, metadata map[string]string) {
	if m.alerts.Emit(ctx, node, alertType, message, metadata) {
		m.record(activity.EventAlertFired, node.ID, message,
			map[string]string{"type": string(alertType)})
	}
}

func (m *Manager) record(eventType, nodeID, message string, metadata map[string]string) {
	if m.recorder != nil {
		m.recorder.Record(eventType, nodeID, message, metadata)
	}
}

// observeNodeGauges exports one node's capacity and usage figures
func (m *Manager) observeNodeGauges(node *types.WorkerNode) {
	metrics.NodeCPUCapacity.WithLabelValues(node.Name).Set(node.CapacityCPU)
	metrics.NodeCPUUsed.WithLabelValues(node.Name).Set(node.UsedCPU)
	metrics.NodeMemoryCapacity.WithLabelValues(node.Name).Set(float64(node.CapacityRAMMB))
	metrics.NodeMemoryUsed.WithLabelValues(node.Name).Set(float64(node.UsedRAMMB))
}

func (m *Manager) getNode(nodeID string) (*types.WorkerNode, error) {
	node, err := m.store.GetNode(nodeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &NotFoundError{Resource: "node", ID: nodeID}
		}
		return nil, fmt.Errorf("failed to load node %s: %w", nodeID, err)
	}
	return node, nil
}

// buildStatusReport computes the capacity/used/available triplets and
// warning list for one node
func buildStatusReport(node *types.WorkerNode, cpuThreshold, memThreshold float64) types.NodeStatusReport {
	report := types.NodeStatusReport{
		ID:        node.ID,
		Name:      node.Name,
		IPAddress: node.IPAddress,
		Status:    node.Status,
		CPU: types.ResourceFigures{
			Total:     node.CapacityCPU,
			Used:      node.UsedCPU,
			Available: availReal(node.CapacityCPU, node.UsedCPU),
		},
		MemoryMB: types.ResourceFigures{
			Total:     float64(node.CapacityRAMMB),
			Used:      float64(node.UsedRAMMB),
			Available: availReal(float64(node.CapacityRAMMB), float64(node.UsedRAMMB)),
		},
		LastHeartbeatAt: node.LastHeartbeatAt,
	}

	if containers, ok := node.Metadata[types.MetaContainers]; ok {
		fmt.Sscanf(containers, "%d", &report.Containers)
	}

	if node.Status == types.NodeStatusUnreachable {
		report.Warnings = append(report.Warnings, "node is unreachable")
	}
	if utilization(node.UsedCPU, node.CapacityCPU) >= cpuThreshold {
		report.Warnings = append(report.Warnings, "cpu utilization above threshold")
	}
	if utilization(float64(node.UsedRAMMB), float64(node.CapacityRAMMB)) >= memThreshold {
		report.Warnings = append(report.Warnings, "memory utilization above threshold")
	}
	if lastErr, ok := node.Metadata[types.MetaLastError]; ok && lastErr != "" {
		report.Warnings = append(report.Warnings, fmt.Sprintf("last error: %s", lastErr))
	}

	return report
}

// availReal clamps available capacity at zero; over-commit is
// representable in used figures but never as negative availability
func availReal(capacity, used float64) float64 {
	if avail := capacity - used; avail > 0 {
		return avail
	}
	return 0
}
