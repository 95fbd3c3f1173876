package skuflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/database/mocks"
	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/model"
)

type recordingBroker struct {
	mu     sync.Mutex
	events map[string][]model.ProgressEvent
}

func (r *recordingBroker) Publish(_ context.Context, jobID string, event model.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string][]model.ProgressEvent)
	}
	r.events[jobID] = append(r.events[jobID], event)
	return nil
}

func (r *recordingBroker) Subscribe(context.Context, string) (<-chan model.ProgressEvent, func() error, error) {
	ch := make(chan model.ProgressEvent)
	close(ch)
	return ch, func() error { return nil }, nil
}

func (r *recordingBroker) eventsFor(jobID string) []model.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ProgressEvent(nil), r.events[jobID]...)
}

type captureSubmitter struct {
	mu    sync.Mutex
	tasks []hooks.DeliveryTask
}

func (c *captureSubmitter) SubmitDelivery(_ context.Context, task hooks.DeliveryTask) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
	return task.Webhook.ID, nil
}

func (c *captureSubmitter) submitted() []hooks.DeliveryTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hooks.DeliveryTask(nil), c.tasks...)
}

type testHarness struct {
	skuflow   *Skuflow
	ds        *mocks.MockDataSource
	broker    *recordingBroker
	submitter *captureSubmitter
}

func testConfig(t *testing.T) *config.Configuration {
	return &config.Configuration{
		ProjectName: "Skuflow",
		DataSource:  config.DataSourceConfig{Dns: "postgres://localhost:5432/skuflow"},
		Redis:       config.RedisConfig{Dns: "localhost:6379"},
		Queue: config.QueueConfig{
			ImportQueue:         "imports",
			WebhookQueue:        "webhooks",
			ImportMaxRetry:      3,
			ImportRetryDelaySec: 10,
		},
		Import: config.ImportConfig{
			UploadDir:          t.TempDir(),
			BatchSize:          1000,
			InvalidPricePolicy: config.PricePolicyZero,
		},
		Webhook: config.WebhookConfig{
			TimeoutSec:    1,
			MaxAttempts:   3,
			RetryDelaySec: 1,
			UserAgent:     "AcmeProductManager/1.0",
		},
	}
}

// newTestSkuflow builds a Skuflow over a mock datasource. Webhook lookups go
// straight to the mock and deliveries are captured instead of queued.
func newTestSkuflow(t *testing.T, cfg *config.Configuration) *testHarness {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}

	ds := new(mocks.MockDataSource)
	broker := &recordingBroker{}
	submitter := &captureSubmitter{}
	registry := hooks.NewRegistry(ds, nil, time.Minute)

	return &testHarness{
		skuflow: &Skuflow{
			config:     cfg,
			datasource: ds,
			progress:   broker,
			registry:   registry,
			dispatcher: hooks.NewDispatcher(registry, submitter),
			webhooks:   hooks.NewEngine(ds, cfg.Webhook, hooks.WithRetryDelay(time.Millisecond)),
		},
		ds:        ds,
		broker:    broker,
		submitter: submitter,
	}
}

// noSubscribers makes every event lookup return no webhooks.
func (h *testHarness) noSubscribers() {
	h.ds.On("GetEnabledWebhooksByEvent", mock.Anything, mock.Anything).Return([]model.Webhook{}, nil).Maybe()
}
