package api

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/model"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) UploadCSV(ctx context.Context, filename string, reader io.Reader) (string, error) {
	args := m.Called(ctx, filename, reader)
	return args.String(0), args.Error(1)
}

func (m *mockService) ImportStatus(jobID string) (string, error) {
	args := m.Called(jobID)
	return args.String(0), args.Error(1)
}

func (m *mockService) Subscribe(ctx context.Context, jobID string) (<-chan model.ProgressEvent, func() error, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(<-chan model.ProgressEvent), args.Get(1).(func() error), args.Error(2)
}

func (m *mockService) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *mockService) GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *mockService) UpdateProduct(ctx context.Context, id int64, update model.ProductUpdate) (*model.Product, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *mockService) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) CreateWebhook(ctx context.Context, webhook model.Webhook) (model.Webhook, error) {
	args := m.Called(ctx, webhook)
	return args.Get(0).(model.Webhook), args.Error(1)
}

func (m *mockService) GetWebhook(ctx context.Context, id string) (*model.Webhook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *mockService) GetAllWebhooks(ctx context.Context, limit, offset int) ([]model.Webhook, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Webhook), args.Error(1)
}

func (m *mockService) UpdateWebhook(ctx context.Context, id string, update model.WebhookUpdate) (*model.Webhook, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *mockService) DeleteWebhook(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockService) TestWebhook(ctx context.Context, id string) (hooks.DeliveryOutcome, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(hooks.DeliveryOutcome), args.Error(1)
}
