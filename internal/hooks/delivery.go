/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/model"
)

const (
	maxResponseBody = 500
	drainLimit      = 64 << 10
)

// Engine sends signed webhook requests and records their terminal result.
type Engine struct {
	store       DeliveryStore
	client      *http.Client
	userAgent   string
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
}

type EngineOption func(*Engine)

// WithHTTPClient replaces the default client. Its Timeout bounds every attempt.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *Engine) { e.client = client }
}

// WithRetryDelay overrides the fixed delay between attempts.
func WithRetryDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.retryDelay = d }
}

func NewEngine(store DeliveryStore, cfg config.WebhookConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		client:      &http.Client{Timeout: cfg.Timeout()},
		userAgent:   cfg.UserAgent,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxAttempts < 1 {
		e.maxAttempts = 1
	}
	return e
}

// Deliver posts payload to the subscription, retrying failed attempts with a
// constant delay until one succeeds or the attempt ceiling is reached. The
// outcome is recorded once: one counter is incremented whatever the number of
// attempts.
func (e *Engine) Deliver(ctx context.Context, webhook model.Webhook, eventType string, payload interface{}) DeliveryOutcome {
	ctx, span := otel.Tracer("hooks").Start(ctx, "Delivering webhook")
	defer span.End()
	span.SetAttributes(attribute.String("webhook.id", webhook.ID), attribute.String("webhook.event", eventType))

	fields := logrus.Fields{"webhook_id": webhook.ID, "event_type": eventType, "url": webhook.URL}

	var outcome DeliveryOutcome
	body, err := CanonicalJSON(payload)
	if err != nil {
		outcome = DeliveryOutcome{WebhookID: webhook.ID, EventType: eventType, Attempt: 1, ErrorClass: ErrorClassRequest, Error: err.Error()}
	} else {
		attempt := 0
		op := func() error {
			attempt++
			outcome = e.attempt(ctx, webhook, eventType, body)
			outcome.Attempt = attempt
			if outcome.Success {
				return nil
			}

			logrus.WithFields(fields).WithFields(logrus.Fields{
				"attempt":     attempt,
				"status_code": outcome.StatusCode,
				"error_class": outcome.ErrorClass,
			}).Warn("webhook attempt failed")

			attemptErr := errors.New(outcome.Error)
			if outcome.ErrorClass == ErrorClassRequest {
				return backoff.Permanent(attemptErr)
			}
			return attemptErr
		}

		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(e.retryDelay), uint64(e.maxAttempts-1)), ctx)
		_ = backoff.Retry(op, policy)
	}

	e.record(ctx, webhook.ID, outcome.Success, fields)

	if outcome.Success {
		logrus.WithFields(fields).WithField("attempt", outcome.Attempt).Info("webhook delivered")
	} else {
		span.SetAttributes(attribute.String("webhook.error_class", string(outcome.ErrorClass)))
		logrus.WithFields(fields).WithField("attempts", outcome.Attempt).Error("webhook delivery exhausted retries")
	}
	return outcome
}

func (e *Engine) record(ctx context.Context, webhookID string, success bool, fields logrus.Fields) {
	// Recording must survive a worker shutdown that cancelled ctx.
	recordCtx := context.WithoutCancel(ctx)
	if err := e.store.RecordWebhookOutcome(recordCtx, webhookID, success, e.now().UTC()); err != nil {
		logrus.WithFields(fields).WithError(err).Error("failed to record webhook outcome")
	}
}

// Test sends a synthetic payload once and returns the outcome without touching statistics.
func (e *Engine) Test(ctx context.Context, webhook model.Webhook) DeliveryOutcome {
	payload := map[string]interface{}{
		"event":      TestEventType,
		"webhook_id": webhook.ID,
		"timestamp":  e.now().UTC().Format(time.RFC3339),
		"data": map[string]interface{}{
			"message": "This is a test webhook call",
			"test":    true,
		},
	}

	body, err := CanonicalJSON(payload)
	if err != nil {
		return DeliveryOutcome{WebhookID: webhook.ID, EventType: TestEventType, Attempt: 1, ErrorClass: ErrorClassRequest, Error: err.Error()}
	}

	outcome := e.attempt(ctx, webhook, TestEventType, body)
	outcome.Attempt = 1
	return outcome
}

func (e *Engine) newRequest(ctx context.Context, webhook model.Webhook, eventType string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderID, webhook.ID)
	req.Header.Set("User-Agent", e.userAgent)

	for key, value := range webhook.Headers {
		req.Header.Set(key, value)
	}

	if webhook.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(webhook.Secret, body))
	}
	return req, nil
}

// attempt performs exactly one HTTP exchange and classifies it.
func (e *Engine) attempt(ctx context.Context, webhook model.Webhook, eventType string, body []byte) DeliveryOutcome {
	outcome := DeliveryOutcome{WebhookID: webhook.ID, EventType: eventType}

	req, err := e.newRequest(ctx, webhook, eventType, body)
	if err != nil {
		outcome.ErrorClass = ErrorClassRequest
		outcome.Error = err.Error()
		return outcome
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	outcome.ResponseTimeMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		outcome.ErrorClass = classifyError(err)
		outcome.Error = err.Error()
		return outcome
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close response body")
		}
	}()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	outcome.StatusCode = resp.StatusCode
	outcome.ResponseBody = string(respBody)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		outcome.Success = true
		return outcome
	}

	outcome.ErrorClass = ErrorClassHTTPStatus
	outcome.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return outcome
}

func classifyError(err error) ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassConnection
}
