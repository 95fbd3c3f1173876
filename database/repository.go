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
	"time"

	"github.com/acmeproducts/skuflow/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	product // Interface for product catalog operations
	webhook // Interface for webhook subscription operations
}

// product defines methods for handling products.
type product interface {
	UpsertProducts(ctx context.Context, rows []model.Product) error                 // Inserts or updates a batch keyed by sku in one transaction
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)      // Creates a new product
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)           // Retrieves a product by ID
	GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) // Retrieves a page of products
	UpdateProduct(ctx context.Context, p *model.Product) error                      // Updates a product
	DeleteProduct(ctx context.Context, id int64) error                              // Deletes a product
}

// webhook defines methods for handling webhook subscriptions.
type webhook interface {
	CreateWebhook(ctx context.Context, w model.Webhook) (model.Webhook, error)
	GetWebhookByID(ctx context.Context, id string) (*model.Webhook, error)
	GetAllWebhooks(ctx context.Context, limit, offset int) ([]model.Webhook, error)
	UpdateWebhook(ctx context.Context, w *model.Webhook) error
	DeleteWebhook(ctx context.Context, id string) error
	GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]model.Webhook, error)
	RecordWebhookOutcome(ctx context.Context, id string, success bool, at time.Time) error
}
