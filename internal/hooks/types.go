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
	"context"
	"encoding/json"
	"time"

	"github.com/acmeproducts/skuflow/model"
)

// TaskTypeDelivery is the asynq task type carrying one webhook delivery.
const TaskTypeDelivery = "webhook:deliver"

// Request headers set on every delivery.
const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderID        = "X-Webhook-ID"
	HeaderSignature = "X-Webhook-Signature"
)

// TestEventType is sent by the synchronous test delivery.
const TestEventType = "test"

// ErrorClass tells apart the ways a delivery attempt can fail.
type ErrorClass string

const (
	ErrorClassTimeout    ErrorClass = "timeout"
	ErrorClassConnection ErrorClass = "connection"
	ErrorClassHTTPStatus ErrorClass = "http_status"
	ErrorClassRequest    ErrorClass = "request" // the request could not be built
)

// DeliveryOutcome describes the last attempt of a delivery. Attempt is the
// 1-based number of that attempt, so it also counts the attempts made.
type DeliveryOutcome struct {
	WebhookID      string     `json:"webhook_id"`
	EventType      string     `json:"event_type"`
	Attempt        int        `json:"attempt"`
	Success        bool       `json:"success"`
	StatusCode     int        `json:"status_code,omitempty"`
	ErrorClass     ErrorClass `json:"error_class,omitempty"`
	Error          string     `json:"error,omitempty"`
	ResponseTimeMs float64    `json:"response_time_ms"`
	ResponseBody   string     `json:"response_body,omitempty"`
}

// Subscription is the view of a webhook that is cached and queued. It never
// holds the signing secret; Signed only says whether one must be loaded from
// the store at delivery time.
type Subscription struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	URL       string            `json:"url"`
	EventType string            `json:"event_type"`
	Enabled   bool              `json:"enabled"`
	Signed    bool              `json:"signed"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// NewSubscription strips the secret off a stored webhook.
func NewSubscription(webhook model.Webhook) Subscription {
	return Subscription{
		ID:        webhook.ID,
		Name:      webhook.Name,
		URL:       webhook.URL,
		EventType: webhook.EventType,
		Enabled:   webhook.Enabled,
		Signed:    webhook.Secret != "",
		Headers:   webhook.Headers,
	}
}

// Webhook turns the subscription back into a deliverable webhook signed with secret.
func (s Subscription) Webhook(secret string) model.Webhook {
	return model.Webhook{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		EventType: s.EventType,
		Enabled:   s.Enabled,
		Secret:    secret,
		Headers:   s.Headers,
	}
}

// DeliveryTask is the unit handed to the queue by the dispatcher. It carries a
// snapshot of the subscription taken at dispatch time.
type DeliveryTask struct {
	Webhook   Subscription    `json:"webhook"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// Submitter schedules a delivery task and returns a handle for it.
type Submitter interface {
	SubmitDelivery(ctx context.Context, task DeliveryTask) (string, error)
}

// Lookup resolves the subscriptions currently enabled for an event type.
type Lookup interface {
	EnabledFor(ctx context.Context, eventType string) ([]Subscription, error)
}

// WebhookStore is the part of the datasource the registry reads from.
type WebhookStore interface {
	GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]model.Webhook, error)
}

// OutcomeRecorder persists the terminal result of a delivery.
type OutcomeRecorder interface {
	RecordWebhookOutcome(ctx context.Context, id string, success bool, at time.Time) error
}

// DeliveryStore is what the engine needs from the datasource: a place to
// record outcomes and the stored webhook to read signing secrets from.
type DeliveryStore interface {
	OutcomeRecorder
	GetWebhookByID(ctx context.Context, id string) (*model.Webhook, error)
}
