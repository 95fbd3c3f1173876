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

package model

import "time"

// Event types a webhook can subscribe to.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
	EventCSVCompleted   = "csv.completed"
)

// EventTypes lists every event type a subscription may use.
var EventTypes = []string{
	EventProductCreated,
	EventProductUpdated,
	EventProductDeleted,
	EventCSVCompleted,
}

// IsValidEventType reports whether eventType is one of EventTypes.
func IsValidEventType(eventType string) bool {
	for _, e := range EventTypes {
		if e == eventType {
			return true
		}
	}
	return false
}

// Webhook is a subscriber endpoint interested in a single event type.
// LastTriggeredAt, SuccessCount and FailureCount are only written by delivery.
type Webhook struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	EventType       string            `json:"event_type"`
	Enabled         bool              `json:"enabled"`
	Secret          string            `json:"secret,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	LastTriggeredAt *time.Time        `json:"last_triggered_at,omitempty"`
	SuccessCount    int64             `json:"success_count"`
	FailureCount    int64             `json:"failure_count"`
}

// WebhookUpdate lists the definition fields an admin update may touch.
type WebhookUpdate struct {
	Name      *string            `json:"name,omitempty"`
	URL       *string            `json:"url,omitempty"`
	EventType *string            `json:"event_type,omitempty"`
	Enabled   *bool              `json:"enabled,omitempty"`
	Secret    *string            `json:"secret,omitempty"`
	Headers   *map[string]string `json:"headers,omitempty"`
}

// Apply returns a copy of w with the non-nil fields of u written over it.
// Statistics are never touched.
func (u WebhookUpdate) Apply(w Webhook) Webhook {
	if u.Name != nil {
		w.Name = *u.Name
	}
	if u.URL != nil {
		w.URL = *u.URL
	}
	if u.EventType != nil {
		w.EventType = *u.EventType
	}
	if u.Enabled != nil {
		w.Enabled = *u.Enabled
	}
	if u.Secret != nil {
		w.Secret = *u.Secret
	}
	if u.Headers != nil {
		w.Headers = *u.Headers
	}
	return w
}
