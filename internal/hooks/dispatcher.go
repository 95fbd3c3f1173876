package hooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/model"
)

// Dispatcher fans an event out to every enabled subscription of its type.
type Dispatcher struct {
	lookup    Lookup
	submitter Submitter
}

func NewDispatcher(lookup Lookup, submitter Submitter) *Dispatcher {
	return &Dispatcher{lookup: lookup, submitter: submitter}
}

// Dispatch schedules one delivery per matching subscription and returns how many
// were scheduled. It returns as soon as scheduling is done and never contacts a
// subscriber itself. A failed submission does not stop the remaining ones.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload interface{}) (int, error) {
	if !model.IsValidEventType(eventType) {
		return 0, fmt.Errorf("unknown event type %q", eventType)
	}

	body, err := CanonicalJSON(payload)
	if err != nil {
		return 0, err
	}

	webhooks, err := d.lookup.EnabledFor(ctx, eventType)
	if err != nil {
		return 0, fmt.Errorf("failed to look up webhooks for %s: %w", eventType, err)
	}

	scheduled := 0
	var errs []error
	for _, webhook := range webhooks {
		if !webhook.Enabled || webhook.EventType != eventType {
			continue
		}

		handle, err := d.submitter.SubmitDelivery(ctx, DeliveryTask{Webhook: webhook, EventType: eventType, Payload: body})
		if err != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", webhook.ID, err))
			continue
		}
		scheduled++

		logrus.WithFields(logrus.Fields{
			"webhook_id": webhook.ID,
			"event_type": eventType,
			"task_id":    handle,
		}).Debug("webhook delivery scheduled")
	}

	return scheduled, errors.Join(errs...)
}
