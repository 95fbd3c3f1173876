package skuflow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"

	"github.com/acmeproducts/skuflow/internal/apierror"
	"github.com/acmeproducts/skuflow/internal/hooks"
	"github.com/acmeproducts/skuflow/model"
)

func TestUpdateWebhookKeepsStatistics(t *testing.T) {
	h := newTestSkuflow(t, nil)
	existing := &model.Webhook{
		ID:           "wh_1",
		Name:         "orders",
		URL:          "https://example.com/a",
		EventType:    model.EventProductCreated,
		Enabled:      true,
		SuccessCount: 12,
		FailureCount: 2,
	}
	h.ds.On("GetWebhookByID", mock.Anything, "wh_1").Return(existing, nil)
	h.ds.On("UpdateWebhook", mock.Anything, mock.MatchedBy(func(w *model.Webhook) bool {
		return w.URL == "https://example.com/b" && w.SuccessCount == 12 && w.FailureCount == 2
	})).Return(nil)

	updated, err := h.skuflow.UpdateWebhook(context.Background(), "wh_1", model.WebhookUpdate{URL: ptr.String("https://example.com/b")})
	require.NoError(t, err)
	assert.Equal(t, int64(12), updated.SuccessCount)
	h.ds.AssertExpectations(t)
}

func TestDeleteWebhookNotFound(t *testing.T) {
	h := newTestSkuflow(t, nil)
	h.ds.On("GetWebhookByID", mock.Anything, "wh_x").Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Webhook with ID 'wh_x' not found", nil))

	err := h.skuflow.DeleteWebhook(context.Background(), "wh_x")
	assert.Equal(t, apierror.ErrNotFound, apierror.CodeOf(err))
	h.ds.AssertNotCalled(t, "DeleteWebhook", mock.Anything, mock.Anything)
}

func TestCreateWebhook(t *testing.T) {
	h := newTestSkuflow(t, nil)
	input := model.Webhook{Name: "csv", URL: "https://example.com/csv", EventType: model.EventCSVCompleted, Enabled: true}
	h.ds.On("CreateWebhook", mock.Anything, input).Return(model.Webhook{ID: "wh_new", Name: "csv", URL: input.URL, EventType: input.EventType, Enabled: true}, nil)

	created, err := h.skuflow.CreateWebhook(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "wh_new", created.ID)
}

func TestTestWebhookDoesNotRecordStatistics(t *testing.T) {
	var event string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event = r.Header.Get(hooks.HeaderEvent)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("thanks"))
	}))
	defer server.Close()

	h := newTestSkuflow(t, nil)
	h.ds.On("GetWebhookByID", mock.Anything, "wh_t").Return(&model.Webhook{ID: "wh_t", URL: server.URL, EventType: model.EventProductCreated}, nil)

	outcome, err := h.skuflow.TestWebhook(context.Background(), "wh_t")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusAccepted, outcome.StatusCode)
	assert.Equal(t, "thanks", outcome.ResponseBody)
	assert.Equal(t, hooks.TestEventType, event)
	h.ds.AssertNotCalled(t, "RecordWebhookOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
