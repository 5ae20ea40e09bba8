package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/flotilla-sh/flotilla/pkg/log"
	"github.com/flotilla-sh/flotilla/pkg/metrics"
	"github.com/flotilla-sh/flotilla/pkg/notify"
	"github.com/flotilla-sh/flotilla/pkg/storage"
	"github.com/flotilla-sh/flotilla/pkg/types"
)

// AlertEmitter fans out node alerts to the administrator list.
// Delivery is fire-and-forget: the emitter never returns an error, and
// one recipient's failure does not affect the others. Repeated alerts
// for the same (node, type) pair are suppressed within the cooldown
// window.
type AlertEmitter struct {
	store         storage.Store
	notifier      notify.Notifier
	clock         clockwork.Clock
	cooldown      time.Duration
	recipientTTL  time.Duration
	notifyTimeout time.Duration
	logger        zerolog.Logger

	mu           sync.Mutex
	lastFired    map[string]time.Time
	recipients   []types.Administrator
	recipientsAt time.Time
}

// NewAlertEmitter creates an emitter. Zero durations fall back to the
// defaults: 15m cooldown, 5m recipient cache, 10s delivery timeout.
func NewAlertEmitter(store storage.Store, notifier notify.Notifier, cooldown, recipientTTL, notifyTimeout time.Duration, clock clockwork.Clock) *AlertEmitter {
	if cooldown == 0 {
		cooldown = 15 * time.Minute
	}
	if recipientTTL == 0 {
		recipientTTL = 5 * time.Minute
	}
	if notifyTimeout == 0 {
		notifyTimeout = 10 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AlertEmitter{
		store:         store,
		notifier:      notifier,
		clock:         clock,
		cooldown:      cooldown,
		recipientTTL:  recipientTTL,
		notifyTimeout: notifyTimeout,
		logger:        log.WithComponent("alerts"),
		lastFired:     make(map[string]time.Time),
	}
}

// Emit delivers one alert to all administrators unless the same
// (node, type) pair fired within the cooldown window. It reports
// whether delivery was attempted: a suppressed or recipient-less alert
// returns false and leaves the cooldown window untouched in the latter
// case, so the first alert after an administrator is added still goes
// out.
func (e *AlertEmitter) Emit(ctx context.Context, node *types.WorkerNode, alertType notify.AlertType, message string, metadata map[string]string) bool {
	key := node.ID + "/" + string(alertType)
	now := e.clock.Now()

	e.mu.Lock()
	if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
		e.mu.Unlock()
		metrics.AlertsSuppressed.WithLabelValues(string(alertType)).Inc()
		e.logger.Debug().
			Str("node_id", node.ID).
			Str("type", string(alertType)).
			Msg("alert suppressed by cooldown")
		return false
	}
	e.mu.Unlock()

	recipients := e.recipientList()
	if len(recipients) == 0 {
		e.logger.Warn().
			Str("node_id", node.ID).
			Str("type", string(alertType)).
			Msg("no administrators configured, alert dropped")
		return false
	}

	e.mu.Lock()
	e.lastFired[key] = now
	e.mu.Unlock()

	severity := notify.SeverityError
	if alertType == notify.AlertResource {
		severity = notify.SeverityWarning
	}

	alert := notify.Alert{
		NodeID:    node.ID,
		NodeName:  node.Name,
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Metadata:  metadata,
		Timestamp: now.UTC(),
	}

	metrics.AlertsFired.WithLabelValues(string(alertType)).Inc()

	// Deliver to all recipients concurrently; join, log failures,
	// never propagate.
	var wg sync.WaitGroup
	for _, recipient := range recipients {
		wg.Add(1)
		go func(recipient types.Administrator) {
			defer wg.Done()

			deliverCtx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
			defer cancel()

			if err := e.notifier.Notify(deliverCtx, recipient, alert); err != nil {
				e.logger.Error().Err(err).
					Str("node_id", node.ID).
					Str("recipient", recipient.ID).
					Str("type", string(alertType)).
					Msg("alert delivery failed")
			}
		}(recipient)
	}
	wg.Wait()
	return true
}

// recipientList returns the administrator list, cached to bound
// repeated store lookups during frequent sweeps
func (e *AlertEmitter) recipientList() []types.Administrator {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recipients != nil && now.Sub(e.recipientsAt) < e.recipientTTL {
		return e.recipients
	}

	admins, err := e.store.ListAdministrators()
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to list administrators")
		// serve the stale list rather than nothing
		return e.recipients
	}

	list := make([]types.Administrator, 0, len(admins))
	for _, admin := range admins {
		list = append(list, *admin)
	}
	if len(list) == 0 {
		// Never cache an empty list: the first administrator added
		// should receive the very next alert.
		e.recipients = nil
		return nil
	}
	e.recipients = list
	e.recipientsAt = now
	return e.recipients
}
