package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mbd888/bridgewatch/internal/logging"
	"github.com/mbd888/bridgewatch/internal/metrics"
	"github.com/mbd888/bridgewatch/internal/retry"
)

// webhookSeverities limits webhook noise to findings worth paging on.
var webhookSeverities = map[string]bool{
	"high":     true,
	"critical": true,
}

// WebhookNotifier POSTs high and critical alerts to a configured URL.
// Delivery is best-effort and asynchronous; failures are logged and dropped.
// The URL may be swapped at runtime via SetURL.
type WebhookNotifier struct {
	mu     sync.RWMutex
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// URL returns the currently configured webhook URL.
func (w *WebhookNotifier) URL() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.url
}

// SetURL replaces the webhook URL. An empty URL disables delivery.
func (w *WebhookNotifier) SetURL(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.url = url
}

// NotifyAlert implements Notifier.
func (w *WebhookNotifier) NotifyAlert(ctx context.Context, alert *Alert) {
	url := w.URL()
	if url == "" || !webhookSeverities[alert.Severity] {
		return
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return
	}

	logger := logging.L(ctx)
	go func() {
		// Delivery outlives the scan request; give it its own deadline.
		deliverCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := retry.Do(deliverCtx, 3, 500*time.Millisecond, func() error {
			return w.post(deliverCtx, url, body)
		})
		if err != nil {
			metrics.AlertWebhooksTotal.WithLabelValues("failed").Inc()
			logger.Warn("alert webhook delivery failed", "alert_id", alert.ID, "error", err)
			return
		}
		metrics.AlertWebhooksTotal.WithLabelValues("delivered").Inc()
	}()
}

func (w *WebhookNotifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The receiver rejected the payload; retrying won't help.
		return retry.Permanent(fmt.Errorf("webhook rejected with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
