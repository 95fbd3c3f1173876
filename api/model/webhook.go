package model

import (
	"time"

	"github.com/acmeproducts/skuflow/model"
)

type CreateWebhook struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	EventType string            `json:"event_type"`
	Enabled   *bool             `json:"enabled"`
	Secret    string            `json:"secret"`
	Headers   map[string]string `json:"headers"`
}

type UpdateWebhook struct {
	Name      *string            `json:"name"`
	URL       *string            `json:"url"`
	EventType *string            `json:"event_type"`
	Enabled   *bool              `json:"enabled"`
	Secret    *string            `json:"secret"`
	Headers   *map[string]string `json:"headers"`
}

// WebhookResponse is a subscription as returned by the API. The secret is
// never echoed back, only whether one is set.
type WebhookResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	EventType       string            `json:"event_type"`
	Enabled         bool              `json:"enabled"`
	HasSecret       bool              `json:"has_secret"`
	Headers         map[string]string `json:"headers,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	LastTriggeredAt *time.Time        `json:"last_triggered_at"`
	SuccessCount    int64             `json:"success_count"`
	FailureCount    int64             `json:"failure_count"`
}

func (w *CreateWebhook) ToWebhook() model.Webhook {
	enabled := true
	if w.Enabled != nil {
		enabled = *w.Enabled
	}
	return model.Webhook{
		Name:      w.Name,
		URL:       w.URL,
		EventType: w.EventType,
		Enabled:   enabled,
		Secret:    w.Secret,
		Headers:   w.Headers,
	}
}

func (w *UpdateWebhook) ToWebhookUpdate() model.WebhookUpdate {
	return model.WebhookUpdate{
		Name:      w.Name,
		URL:       w.URL,
		EventType: w.EventType,
		Enabled:   w.Enabled,
		Secret:    w.Secret,
		Headers:   w.Headers,
	}
}

func NewWebhookResponse(w model.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:              w.ID,
		Name:            w.Name,
		URL:             w.URL,
		EventType:       w.EventType,
		Enabled:         w.Enabled,
		HasSecret:       w.Secret != "",
		Headers:         w.Headers,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		LastTriggeredAt: w.LastTriggeredAt,
		SuccessCount:    w.SuccessCount,
		FailureCount:    w.FailureCount,
	}
}

func NewWebhookResponses(webhooks []model.Webhook) []WebhookResponse {
	out := make([]WebhookResponse, 0, len(webhooks))
	for _, w := range webhooks {
		out = append(out, NewWebhookResponse(w))
	}
	return out
}

// WebhookTestResult is the answer to a synchronous test delivery.
type WebhookTestResult struct {
	Success        bool    `json:"success"`
	StatusCode     int     `json:"status_code,omitempty"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	Error          string  `json:"error,omitempty"`
	ResponseBody   string  `json:"response_body,omitempty"`
}
