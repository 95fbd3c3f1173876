package hooks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/acmeproducts/skuflow/internal/cache"
)

const registryKeyPrefix = "webhooks:enabled:"

// Registry answers "who is subscribed to this event" from the store, with a
// short-lived Redis cache in front. Admin writes call Invalidate.
type Registry struct {
	store WebhookStore
	cache cache.Cache
	ttl   time.Duration
}

// NewRegistry builds a registry. A nil cache makes every lookup hit the store.
func NewRegistry(store WebhookStore, c cache.Cache, ttl time.Duration) *Registry {
	return &Registry{store: store, cache: c, ttl: ttl}
}

func registryKey(eventType string) string {
	return registryKeyPrefix + eventType
}

// EnabledFor returns the enabled subscriptions for eventType. Only the
// secret-free Subscription view is written to the cache.
func (r *Registry) EnabledFor(ctx context.Context, eventType string) ([]Subscription, error) {
	if r.cache != nil {
		var cached []Subscription
		found, err := r.cache.Get(ctx, registryKey(eventType), &cached)
		if err != nil {
			logrus.WithError(err).WithField("event_type", eventType).Warn("webhook registry cache read failed")
		} else if found {
			return cached, nil
		}
	}

	webhooks, err := r.store.GetEnabledWebhooksByEvent(ctx, eventType)
	if err != nil {
		return nil, err
	}

	subscriptions := make([]Subscription, 0, len(webhooks))
	for _, webhook := range webhooks {
		subscriptions = append(subscriptions, NewSubscription(webhook))
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, registryKey(eventType), subscriptions, r.ttl); err != nil {
			logrus.WithError(err).WithField("event_type", eventType).Warn("webhook registry cache write failed")
		}
	}
	return subscriptions, nil
}

// Invalidate drops the cached lookups for the given event types.
func (r *Registry) Invalidate(ctx context.Context, eventTypes ...string) error {
	if r.cache == nil {
		return nil
	}
	for _, eventType := range eventTypes {
		if err := r.cache.Delete(ctx, registryKey(eventType)); err != nil {
			return err
		}
	}
	return nil
}
