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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/acmeproducts/skuflow/internal/apierror"
	"github.com/acmeproducts/skuflow/model"
)

const webhookSelect = `
	SELECT id, name, url, event_type, enabled, secret, headers, created_at, updated_at,
		last_triggered_at, success_count, failure_count
	FROM skuflow.webhooks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhook(row rowScanner) (model.Webhook, error) {
	w := model.Webhook{}
	var secret sql.NullString
	var headersJSON []byte
	err := row.Scan(&w.ID, &w.Name, &w.URL, &w.EventType, &w.Enabled, &secret, &headersJSON,
		&w.CreatedAt, &w.UpdatedAt, &w.LastTriggeredAt, &w.SuccessCount, &w.FailureCount)
	if err != nil {
		return w, err
	}

	w.Secret = secret.String
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &w.Headers); err != nil {
			return w, fmt.Errorf("failed to unmarshal webhook headers: %w", err)
		}
	}
	return w, nil
}

func marshalHeaders(headers map[string]string) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	return json.Marshal(headers)
}

func nullableSecret(secret string) sql.NullString {
	return sql.NullString{String: secret, Valid: secret != ""}
}

func (d Datasource) CreateWebhook(ctx context.Context, w model.Webhook) (model.Webhook, error) {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Saving webhook to db")
	defer span.End()

	headersJSON, err := marshalHeaders(w.Headers)
	if err != nil {
		return model.Webhook{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal headers", err)
	}

	w.ID = model.GenerateUUIDWithSuffix("wh")
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	w.SuccessCount, w.FailureCount, w.LastTriggeredAt = 0, 0, nil

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO skuflow.webhooks (id, name, url, event_type, enabled, secret, headers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, w.ID, w.Name, w.URL, w.EventType, w.Enabled, nullableSecret(w.Secret), headersJSON, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return model.Webhook{}, mapWriteError(err, "Webhook with this ID already exists", "Failed to create webhook")
	}

	return w, nil
}

func (d Datasource) GetWebhookByID(ctx context.Context, id string) (*model.Webhook, error) {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Fetching webhook from db")
	defer span.End()

	w, err := scanWebhook(d.Conn.QueryRowContext(ctx, webhookSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Webhook with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve webhook", err)
	}

	return &w, nil
}

func (d Datasource) GetAllWebhooks(ctx context.Context, limit, offset int) ([]model.Webhook, error) {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Listing webhooks from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, webhookSelect+` ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve webhooks", err)
	}
	return collectWebhooks(rows)
}

// GetEnabledWebhooksByEvent returns the enabled subscriptions for an event type as they are right now.
func (d Datasource) GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]model.Webhook, error) {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Fetching enabled webhooks by event")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, webhookSelect+` WHERE event_type = $1 AND enabled = TRUE ORDER BY created_at`, eventType)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve webhooks", err)
	}
	return collectWebhooks(rows)
}

func collectWebhooks(rows *sql.Rows) ([]model.Webhook, error) {
	defer rows.Close()

	webhooks := []model.Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan webhook data", err)
		}
		webhooks = append(webhooks, w)
	}

	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over webhooks", err)
	}

	return webhooks, nil
}

// UpdateWebhook rewrites the definition fields of a subscription. Delivery statistics are left alone.
func (d Datasource) UpdateWebhook(ctx context.Context, w *model.Webhook) error {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Updating webhook in db")
	defer span.End()

	headersJSON, err := marshalHeaders(w.Headers)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal headers", err)
	}

	w.UpdatedAt = time.Now().UTC()
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE skuflow.webhooks
		SET name = $2, url = $3, event_type = $4, enabled = $5, secret = $6, headers = $7, updated_at = $8
		WHERE id = $1
	`, w.ID, w.Name, w.URL, w.EventType, w.Enabled, nullableSecret(w.Secret), headersJSON, w.UpdatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update webhook", err)
	}

	return expectOneRow(result, fmt.Sprintf("Webhook with ID '%s' not found", w.ID))
}

func (d Datasource) DeleteWebhook(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Deleting webhook from db")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `DELETE FROM skuflow.webhooks WHERE id = $1`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete webhook", err)
	}

	return expectOneRow(result, fmt.Sprintf("Webhook with ID '%s' not found", id))
}

// RecordWebhookOutcome bumps exactly one counter in place and stamps last_triggered_at.
func (d Datasource) RecordWebhookOutcome(ctx context.Context, id string, success bool, at time.Time) error {
	ctx, span := otel.Tracer("Webhooks").Start(ctx, "Recording webhook outcome")
	defer span.End()

	query := `
		UPDATE skuflow.webhooks
		SET failure_count = failure_count + 1, last_triggered_at = $2
		WHERE id = $1`
	if success {
		query = `
		UPDATE skuflow.webhooks
		SET success_count = success_count + 1, last_triggered_at = $2
		WHERE id = $1`
	}

	if _, err := d.Conn.ExecContext(ctx, query, id, at); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record webhook outcome", err)
	}
	return nil
}
