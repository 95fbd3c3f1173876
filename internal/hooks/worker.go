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
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/model"
)

// ProcessDeliveryTask runs one queued delivery to its terminal result.
// The retry loop lives in Deliver, so the task itself never asks the queue to retry.
func (e *Engine) ProcessDeliveryTask(ctx context.Context, task *asynq.Task) error {
	var deliveryTask DeliveryTask
	if err := json.Unmarshal(task.Payload(), &deliveryTask); err != nil {
		return fmt.Errorf("failed to unmarshal delivery task payload: %v: %w", err, asynq.SkipRetry)
	}

	fields := logrus.Fields{
		"webhook_id": deliveryTask.Webhook.ID,
		"event_type": deliveryTask.EventType,
	}
	logrus.WithFields(fields).Info("Processing queued webhook delivery")

	webhook, err := e.resolve(ctx, deliveryTask.Webhook)
	if err != nil {
		// A signed subscription is never sent unsigned.
		logrus.WithFields(fields).WithError(err).Error("failed to load webhook secret")
		e.record(ctx, deliveryTask.Webhook.ID, false, fields)
		return nil
	}

	e.Deliver(ctx, webhook, deliveryTask.EventType, deliveryTask.Payload)
	return nil
}

// resolve reattaches the signing secret, which is read from the store by id
// and never travels through the queue.
func (e *Engine) resolve(ctx context.Context, subscription Subscription) (model.Webhook, error) {
	if !subscription.Signed {
		return subscription.Webhook(""), nil
	}

	stored, err := e.store.GetWebhookByID(ctx, subscription.ID)
	if err != nil {
		return model.Webhook{}, err
	}
	if stored.Secret == "" {
		return model.Webhook{}, fmt.Errorf("webhook %s no longer has a secret", subscription.ID)
	}
	return subscription.Webhook(stored.Secret), nil
}
