package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-sh/flotilla/pkg/types"
)

func TestWebhookNotifierDelivers(t *testing.T) {
	var received Alert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(5 * time.Second)
	alert := Alert{
		NodeID:    "node-1",
		NodeName:  "w1",
		Type:      AlertResource,
		Severity:  SeverityWarning,
		Message:   "cpu utilization at 95%",
		Timestamp: time.Now().UTC(),
	}

	err := notifier.Notify(context.Background(), types.Administrator{
		ID:         "admin-1",
		WebhookURL: server.URL,
	}, alert)

	require.NoError(t, err)
	assert.Equal(t, "node-1", received.NodeID)
	assert.Equal(t, AlertResource, received.Type)
	assert.Equal(t, SeverityWarning, received.Severity)
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(5 * time.Second)
	err := notifier.Notify(context.Background(), types.Administrator{
		ID:         "admin-1",
		WebhookURL: server.URL,
	}, Alert{Type: AlertDown, Severity: SeverityError})

	assert.ErrorContains(t, err, "status 500")
}

func TestWebhookNotifierMissingURL(t *testing.T) {
	notifier := NewWebhookNotifier(0)
	err := notifier.Notify(context.Background(), types.Administrator{ID: "admin-1"}, Alert{})
	assert.ErrorContains(t, err, "no webhook URL")
}
