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

package skuflow

import (
	"context"
	"embed"

	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/database"
	"github.com/acmeproducts/skuflow/internal/cache"
	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/internal/progress"
	redis_db "github.com/acmeproducts/skuflow/internal/redis-db"
	"github.com/acmeproducts/skuflow/model"
)

// Skuflow ties the product store, the job queue, progress publishing and
// webhook fan-out together. API handlers and workers both go through it.
type Skuflow struct {
	config     *config.Configuration
	datasource database.IDataSource
	queue      *Queue
	progress   progress.Broker
	registry   *hooks.Registry
	dispatcher *hooks.Dispatcher
	webhooks   *hooks.Engine
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewSkuflow initializes a new instance of Skuflow with the provided datasource.
// It fetches the configuration, connects to Redis and builds the queue and the
// webhook machinery on top of it.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Skuflow: A pointer to the newly created Skuflow instance.
// - error: An error if any of the initialization steps fail.
func NewSkuflow(db database.IDataSource) (*Skuflow, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient(configuration.Redis.Dns, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueue(configuration)
	if err != nil {
		return nil, err
	}

	registry := hooks.NewRegistry(db, cache.NewCache(redisClient.Client()), configuration.Webhook.RegistryCacheTTL())

	return &Skuflow{
		config:     configuration,
		datasource: db,
		queue:      queue,
		progress:   progress.NewPublisher(redisClient.Client()),
		registry:   registry,
		dispatcher: hooks.NewDispatcher(registry, queue),
		webhooks:   hooks.NewEngine(db, configuration.Webhook),
	}, nil
}

// Config returns the configuration the instance was built with.
func (s *Skuflow) Config() *config.Configuration {
	return s.config
}

// Queue exposes the task queue, mainly for the worker command.
func (s *Skuflow) Queue() *Queue {
	return s.queue
}

// WebhookEngine returns the engine that runs queued deliveries.
func (s *Skuflow) WebhookEngine() *hooks.Engine {
	return s.webhooks
}

// Subscribe streams the progress events of one import job until ctx is done.
func (s *Skuflow) Subscribe(ctx context.Context, jobID string) (<-chan model.ProgressEvent, func() error, error) {
	return s.progress.Subscribe(ctx, jobID)
}
