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

	"go.opentelemetry.io/otel"

	"github.com/acmeproducts/skuflow/model"
)

var productTracer = otel.Tracer("skuflow.products")

// CreateProduct stores a new product and notifies product.created subscribers.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - product model.Product: The product to create. Its sku is normalized.
//
// Returns:
// - model.Product: The stored product with its id.
// - error: An error if the product could not be stored.
func (s *Skuflow) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	ctx, span := productTracer.Start(ctx, "Create Product")
	defer span.End()

	product.SKU = model.NormalizeSKU(product.SKU)
	created, err := s.datasource.CreateProduct(ctx, product)
	if err != nil {
		span.RecordError(err)
		return model.Product{}, err
	}

	s.dispatchEvent(ctx, model.EventProductCreated, created.EventPayload())
	return created, nil
}

// GetProduct retrieves a product by its id.
func (s *Skuflow) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	ctx, span := productTracer.Start(ctx, "Get Product")
	defer span.End()

	return s.datasource.GetProductByID(ctx, id)
}

// GetAllProducts lists products ordered by id.
func (s *Skuflow) GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	ctx, span := productTracer.Start(ctx, "Get All Products")
	defer span.End()

	return s.datasource.GetAllProducts(ctx, limit, offset)
}

// UpdateProduct applies a partial update and notifies product.updated subscribers.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - id int64: The id of the product to update.
// - update model.ProductUpdate: The fields to change. Nil fields are kept.
//
// Returns:
// - *model.Product: The product as stored after the update.
// - error: An error if the product does not exist or could not be saved.
func (s *Skuflow) UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error) {
	ctx, span := productTracer.Start(ctx, "Update Product")
	defer span.End()

	existing, err := s.datasource.GetProductByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	updated := update.Apply(*existing)
	if err := s.datasource.UpdateProduct(ctx, &updated); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.dispatchEvent(ctx, model.EventProductUpdated, updated.EventPayload())
	return &updated, nil
}

// DeleteProduct removes a product and notifies product.deleted subscribers
// with the identifying fields of the removed record.
func (s *Skuflow) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := productTracer.Start(ctx, "Delete Product")
	defer span.End()

	existing, err := s.datasource.GetProductByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.datasource.DeleteProduct(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	s.dispatchEvent(ctx, model.EventProductDeleted, map[string]interface{}{
		"id":  existing.ID,
		"sku": existing.SKU,
	})
	return nil
}
