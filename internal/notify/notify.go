// Package notify pushes operationally significant state changes to an
// external webhook. Delivery is best-effort: failures are logged and
// swallowed, never escalated into the pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/internal/retry"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// Payload is the JSON body delivered to the configured webhook.
type Payload struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	System    string         `json:"system"`
	Context   map[string]any `json:"context"`
}

// Notifier delivers notifications at or above a configured minimum level.
// It satisfies the monitor's Sink interface; Notify never blocks the caller.
type Notifier struct {
	settings models.NotificationSettings
	client   *http.Client
	wg       sync.WaitGroup
}

// New creates a notifier from the given settings.
func New(settings models.NotificationSettings) *Notifier {
	timeout := settings.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}
}

// Notify delivers a notification asynchronously if notifications are
// enabled, a webhook is configured, and the level meets the minimum.
func (n *Notifier) Notify(level models.NotificationLevel, title, message string, context map[string]any) {
	if !n.settings.IsEnabled() || n.settings.WebhookURL == "" {
		return
	}
	if !level.AtLeast(n.settings.MinLevel) {
		logger.L().Debug("Notification below minimum level, skipped", "level", level, "title", title)
		return
	}
	if context == nil {
		context = map[string]any{}
	}

	payload := Payload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Title:     title,
		Message:   message,
		System:    "agentic-drop-zone",
		Context:   context,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(payload)
	}()
}

// Close waits for in-flight deliveries to drain.
func (n *Notifier) Close() {
	n.wg.Wait()
}

func (n *Notifier) deliver(payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.L().Error("Failed to marshal notification payload", "title", payload.Title, "error", err)
		return
	}

	op := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.settings.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	}

	err = retry.Do(context.Background(), "notification_delivery", n.settings.RetryPolicy, op)
	if err != nil {
		logger.L().Error("Failed to deliver notification", "title", payload.Title, "level", payload.Level, "error", err)
		return
	}
	logger.L().Info("Notification delivered", "title", payload.Title, "level", payload.Level)
}
