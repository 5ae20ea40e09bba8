package activity

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/storage"
	"github.com/flotilla-sh/flotilla/pkg/types"
)

// Event types recorded by the fleet
const (
	EventClusterBootstrapped = "cluster.bootstrapped"
	EventNodeAdded           = "node.added"
	EventNodeProvisioned     = "node.provisioned"
	EventNodeProvisionFailed = "node.provision_failed"
	EventNodeRemoved         = "node.removed"
	EventNodeStatusChanged   = "node.status_changed"
	EventAlertFired          = "alert.fired"
)

// Recorder persists activity events in the background. Recording never
// blocks the caller: events overflow into the void when the buffer is
// full, and persistence errors are logged locally only.
type Recorder struct {
	store   storage.Store
	eventCh chan *types.ActivityEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  zerolog.Logger
}

// NewRecorder creates a recorder with the given buffer size. A zero or
// negative buffer defaults to 100 events.
func NewRecorder(store storage.Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 100
	}
	return &Recorder{
		store:   store,
		eventCh: make(chan *types.ActivityEvent, buffer),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		logger:  log.WithComponent("activity"),
	}
}

// Start begins the background persistence loop
func (r *Recorder) Start() {
	go r.run()
}

// Record enqueues an event. It never blocks and never fails; a full
// buffer drops the event with a local log line.
func (r *Recorder) Record(eventType, nodeID, message string, metadata map[string]string) {
	event := &types.ActivityEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		NodeID:    nodeID,
		Message:   message,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	select {
	case r.eventCh <- event:
	default:
		r.logger.Warn().Str("type", eventType).Msg("activity buffer full, event dropped")
	}
}

// Close stops the loop after draining buffered events
func (r *Recorder) Close() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Recorder) run() {
	for {
		select {
		case event := <-r.eventCh:
			r.persist(event)
		case <-r.stopCh:
			// Drain whatever is still buffered before exiting
			for {
				select {
				case event := <-r.eventCh:
					r.persist(event)
				default:
					close(r.doneCh)
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(event *types.ActivityEvent) {
	if err := r.store.AppendActivity(event); err != nil {
		r.logger.Error().Err(err).Str("type", event.Type).Msg("failed to persist activity event")
	}
}
