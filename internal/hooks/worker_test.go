package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmeproducts/skuflow/model"
)

func TestProcessDeliveryTask(t *testing.T) {
	var event string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event = r.Header.Get(HeaderEvent)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload, err := json.Marshal(DeliveryTask{
		Webhook:   Subscription{ID: "wh_1", URL: server.URL, Enabled: true, EventType: model.EventProductCreated},
		EventType: model.EventProductCreated,
		Payload:   json.RawMessage(`{"id":1}`),
	})
	require.NoError(t, err)

	recorder := &fakeRecorder{}
	err = newTestEngine(recorder).ProcessDeliveryTask(context.Background(), asynq.NewTask(TaskTypeDelivery, payload))
	require.NoError(t, err)
	assert.Equal(t, model.EventProductCreated, event)
	require.Len(t, recorder.recorded(), 1)
	assert.True(t, recorder.recorded()[0].success)
}

func TestProcessDeliveryTaskFailureDoesNotAskForRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	payload, err := json.Marshal(DeliveryTask{
		Webhook:   Subscription{ID: "wh_2", URL: server.URL},
		EventType: model.EventProductUpdated,
		Payload:   json.RawMessage(`{"id":2}`),
	})
	require.NoError(t, err)

	recorder := &fakeRecorder{}
	err = newTestEngine(recorder).ProcessDeliveryTask(context.Background(), asynq.NewTask(TaskTypeDelivery, payload))
	assert.NoError(t, err)
	require.Len(t, recorder.recorded(), 1)
	assert.False(t, recorder.recorded()[0].success)
}

func TestProcessDeliveryTaskMalformedPayload(t *testing.T) {
	err := newTestEngine(&fakeRecorder{}).ProcessDeliveryTask(context.Background(), asynq.NewTask(TaskTypeDelivery, []byte("{not json")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessDeliveryTaskSignsWithStoredSecret(t *testing.T) {
	var (
		body      []byte
		signature string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get(HeaderSignature)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := model.Webhook{ID: "wh_3", URL: server.URL, Enabled: true, EventType: model.EventCSVCompleted, Secret: "rotated-secret"}
	payload, err := json.Marshal(DeliveryTask{
		Webhook:   NewSubscription(webhook),
		EventType: model.EventCSVCompleted,
		Payload:   json.RawMessage(`{"job_id":"j"}`),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "rotated-secret")

	recorder := &fakeRecorder{secrets: map[string]string{"wh_3": "rotated-secret"}}
	err = newTestEngine(recorder).ProcessDeliveryTask(context.Background(), asynq.NewTask(TaskTypeDelivery, payload))
	require.NoError(t, err)

	assert.True(t, VerifySignature("rotated-secret", body, signature))
	require.Len(t, recorder.recorded(), 1)
	assert.True(t, recorder.recorded()[0].success)
}

func TestProcessDeliveryTaskUnknownSecretIsNotSentUnsigned(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload, err := json.Marshal(DeliveryTask{
		Webhook:   Subscription{ID: "wh_gone", URL: server.URL, Enabled: true, Signed: true},
		EventType: model.EventProductDeleted,
		Payload:   json.RawMessage(`{"id":9}`),
	})
	require.NoError(t, err)

	recorder := &fakeRecorder{}
	err = newTestEngine(recorder).ProcessDeliveryTask(context.Background(), asynq.NewTask(TaskTypeDelivery, payload))
	require.NoError(t, err)

	assert.Zero(t, calls)
	require.Len(t, recorder.recorded(), 1)
	assert.Equal(t, "wh_gone", recorder.recorded()[0].id)
	assert.False(t, recorder.recorded()[0].success)
}
