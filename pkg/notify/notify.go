package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flotilla-sh/flotilla/pkg/types"
)

// Severity classifies an alert for the receiving side
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AlertType identifies the condition that fired
type AlertType string

const (
	AlertDown        AlertType = "down"
	AlertUnreachable AlertType = "unreachable"
	AlertResource    AlertType = "resource"
)

// Alert is one notification about a worker node
type Alert struct {
	NodeID    string            `json:"node_id"`
	NodeName  string            `json:"node_name"`
	Type      AlertType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Notifier delivers one alert to one recipient. Implemented by
// WebhookNotifier; faked in tests.
type Notifier interface {
	Notify(ctx context.Context, recipient types.Administrator, alert Alert) error
}

// WebhookNotifier posts alerts as JSON to each recipient's webhook URL
type WebhookNotifier struct {
	client *http.Client
}

// NewWebhookNotifier creates a notifier with the given per-delivery
// timeout. A zero timeout defaults to 10 seconds.
func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts the alert to the recipient's webhook URL
func (n *WebhookNotifier) Notify(ctx context.Context, recipient types.Administrator, alert Alert) error {
	if recipient.WebhookURL == "" {
		return fmt.Errorf("administrator %s has no webhook URL", recipient.ID)
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery to %s failed: %w", recipient.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery to %s returned status %d", recipient.ID, resp.StatusCode)
	}
	return nil
}
