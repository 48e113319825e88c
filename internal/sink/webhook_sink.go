// File: internal/sink/webhook_sink.go
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// WebhookSink posts alert payloads to a configured endpoint. It forwards
// trades from watch-list entries flagged alert_on_trade, plus every scored
// token. Delivery runs in its own goroutine per event so a slow endpoint
// never stalls a pipeline, with capped exponential retry.
type WebhookSink struct {
	config     *config.AlertsConfig
	httpClient *http.Client
	logger     *logrus.Entry
}

// WebhookPayload defines the alert payload structure
type WebhookPayload struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Data      interface{} `json:"data"`
	Version   string      `json:"version"`
}

// NewWebhookSink creates a webhook alert sink
func NewWebhookSink(cfg *config.AlertsConfig) *WebhookSink {
	return &WebhookSink{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: utils.GetLogger().WithField("component", "webhook_sink"),
	}
}

func (ws *WebhookSink) OnTokenDiscovered(e *models.TokenDiscovered) {
	// Discovery alone is not alert-worthy; the score decides.
}

func (ws *WebhookSink) OnTokenScored(e *models.TokenScored) {
	go ws.deliver("token_scored", e)
}

func (ws *WebhookSink) OnWalletTrade(e *models.WalletTradeObserved) {
	if !e.Entry.AlertOnTrade {
		return
	}
	go ws.deliver("wallet_trade", e)
}

func (ws *WebhookSink) OnWalletUpdated(e *models.WalletUpdated) {
	// Stats churn on every trade; the trade alert already covers it.
}

// deliver posts one payload with retry. Failures are logged and dropped;
// alerting is best-effort and never feeds back into the pipelines.
func (ws *WebhookSink) deliver(eventType string, data interface{}) {
	payload := &WebhookPayload{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    "token-sentinel",
		Data:      data,
		Version:   "1.0",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		ws.logger.WithError(err).Error("Failed to marshal alert payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.config.Timeout*time.Duration(ws.config.RetryAttempts+1))
	defer cancel()

	delay := ws.config.RetryDelay
	for attempt := 1; attempt <= ws.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return
			}
		}

		if err := ws.post(ctx, body); err == nil {
			return
		} else if attempt == ws.config.RetryAttempts {
			ws.logger.WithError(err).WithFields(logrus.Fields{
				"type":     eventType,
				"attempts": attempt,
			}).Warn("Alert delivery failed")
		}
	}
}

// post sends a single webhook request
func (ws *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeInternal, "Failed to create alert request", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Token-Sentinel/1.0")
	req.Header.Set("X-Timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	if requestID, err := utils.GenerateID(); err == nil {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Failed to send alert", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewAppError(utils.ErrCodeExternal,
			"Alert endpoint returned non-success status",
			fmt.Sprintf("status: %d", resp.StatusCode))
	}

	return nil
}
