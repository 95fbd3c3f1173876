package skuflow

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/model"
)

var webhookTracer = otel.Tracer("skuflow.webhooks")

// CreateWebhook registers a subscription. Statistics always start at zero.
func (s *Skuflow) CreateWebhook(ctx context.Context, webhook model.Webhook) (model.Webhook, error) {
	ctx, span := webhookTracer.Start(ctx, "Create Webhook")
	defer span.End()

	created, err := s.datasource.CreateWebhook(ctx, webhook)
	if err != nil {
		span.RecordError(err)
		return model.Webhook{}, err
	}

	s.invalidateRegistry(ctx, created.EventType)
	return created, nil
}

func (s *Skuflow) GetWebhook(ctx context.Context, id string) (*model.Webhook, error) {
	ctx, span := webhookTracer.Start(ctx, "Get Webhook")
	defer span.End()

	return s.datasource.GetWebhookByID(ctx, id)
}

func (s *Skuflow) GetAllWebhooks(ctx context.Context, limit, offset int) ([]model.Webhook, error) {
	ctx, span := webhookTracer.Start(ctx, "Get All Webhooks")
	defer span.End()

	return s.datasource.GetAllWebhooks(ctx, limit, offset)
}

// UpdateWebhook changes definition fields only; delivery statistics are kept.
// Deliveries already scheduled carry their own copy and are not affected.
func (s *Skuflow) UpdateWebhook(ctx context.Context, id string, update model.WebhookUpdate) (*model.Webhook, error) {
	ctx, span := webhookTracer.Start(ctx, "Update Webhook")
	defer span.End()

	existing, err := s.datasource.GetWebhookByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	updated := update.Apply(*existing)
	if err := s.datasource.UpdateWebhook(ctx, &updated); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.invalidateRegistry(ctx, existing.EventType, updated.EventType)
	return &updated, nil
}

func (s *Skuflow) DeleteWebhook(ctx context.Context, id string) error {
	ctx, span := webhookTracer.Start(ctx, "Delete Webhook")
	defer span.End()

	existing, err := s.datasource.GetWebhookByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.datasource.DeleteWebhook(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	s.invalidateRegistry(ctx, existing.EventType)
	return nil
}

// TestWebhook sends one synchronous test delivery to a stored subscription.
// The result is returned to the caller and never counted in the statistics.
func (s *Skuflow) TestWebhook(ctx context.Context, id string) (hooks.DeliveryOutcome, error) {
	ctx, span := webhookTracer.Start(ctx, "Test Webhook")
	defer span.End()

	webhook, err := s.datasource.GetWebhookByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return hooks.DeliveryOutcome{}, err
	}

	return s.webhooks.Test(ctx, *webhook), nil
}

// invalidateRegistry drops cached subscription lookups after an admin write.
// A failure only delays visibility until the cache entry expires.
func (s *Skuflow) invalidateRegistry(ctx context.Context, eventTypes ...string) {
	if err := s.registry.Invalidate(ctx, eventTypes...); err != nil {
		logrus.WithField("event_types", eventTypes).WithError(err).Warn("failed to invalidate webhook registry")
	}
}
