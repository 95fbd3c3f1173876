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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/acmeproducts/skuflow/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Product methods

func (m *MockDataSource) UpsertProducts(ctx context.Context, rows []model.Product) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MockDataSource) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *MockDataSource) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockDataSource) GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockDataSource) UpdateProduct(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockDataSource) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Webhook methods

func (m *MockDataSource) CreateWebhook(ctx context.Context, w model.Webhook) (model.Webhook, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(model.Webhook), args.Error(1)
}

func (m *MockDataSource) GetWebhookByID(ctx context.Context, id string) (*model.Webhook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *MockDataSource) GetAllWebhooks(ctx context.Context, limit, offset int) ([]model.Webhook, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Webhook), args.Error(1)
}

func (m *MockDataSource) UpdateWebhook(ctx context.Context, w *model.Webhook) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockDataSource) DeleteWebhook(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDataSource) GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]model.Webhook, error) {
	args := m.Called(ctx, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Webhook), args.Error(1)
}

func (m *MockDataSource) RecordWebhookOutcome(ctx context.Context, id string, success bool, at time.Time) error {
	args := m.Called(ctx, id, success, at)
	return args.Error(0)
}
