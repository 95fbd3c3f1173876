package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/model"
)

type recordedOutcome struct {
	id      string
	success bool
	at      time.Time
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
	secrets  map[string]string
}

func (f *fakeRecorder) GetWebhookByID(_ context.Context, id string) (*model.Webhook, error) {
	secret, ok := f.secrets[id]
	if !ok {
		return nil, fmt.Errorf("webhook %s not found", id)
	}
	return &model.Webhook{ID: id, Secret: secret}, nil
}

func (f *fakeRecorder) RecordWebhookOutcome(_ context.Context, id string, success bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, recordedOutcome{id: id, success: success, at: at})
	return nil
}

func (f *fakeRecorder) recorded() []recordedOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedOutcome(nil), f.outcomes...)
}

func testWebhookConfig() config.WebhookConfig {
	return config.WebhookConfig{
		TimeoutSec:    10,
		MaxAttempts:   3,
		RetryDelaySec: 60,
		UserAgent:     "AcmeProductManager/1.0",
	}
}

func newTestEngine(recorder DeliveryStore, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithRetryDelay(time.Millisecond)}, opts...)
	return NewEngine(recorder, testWebhookConfig(), opts...)
}

func TestDeliverSendsSignedRequest(t *testing.T) {
	var (
		gotHeaders http.Header
		gotBody    []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	engine := newTestEngine(recorder)

	webhook := model.Webhook{
		ID:        "wh_1",
		URL:       server.URL,
		EventType: model.EventCSVCompleted,
		Enabled:   true,
		Secret:    "s3cret",
		Headers:   map[string]string{"X-Tenant": "acme", "User-Agent": "custom-agent"},
	}
	payload := map[string]interface{}{"total_imported": 3, "job_id": "job-1", "completed_at": "2024-05-01T10:00:00Z"}

	outcome := engine.Deliver(context.Background(), webhook, model.EventCSVCompleted, payload)

	require.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.Attempt)
	assert.Equal(t, http.StatusAccepted, outcome.StatusCode)

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, model.EventCSVCompleted, gotHeaders.Get(HeaderEvent))
	assert.Equal(t, "wh_1", gotHeaders.Get(HeaderID))
	assert.Equal(t, "custom-agent", gotHeaders.Get("User-Agent"))
	assert.Equal(t, "acme", gotHeaders.Get("X-Tenant"))

	expectedBody, err := CanonicalJSON(payload)
	require.NoError(t, err)
	assert.Equal(t, string(expectedBody), string(gotBody))
	assert.Equal(t, Sign("s3cret", expectedBody), gotHeaders.Get(HeaderSignature))
	assert.True(t, VerifySignature("s3cret", gotBody, gotHeaders.Get(HeaderSignature)))

	recorded := recorder.recorded()
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].success)
	assert.Equal(t, "wh_1", recorded[0].id)
}

func TestDeliverWithoutSecretHasNoSignature(t *testing.T) {
	var signature atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature.Store(r.Header.Get(HeaderSignature))
	}))
	defer server.Close()

	engine := newTestEngine(&fakeRecorder{})
	outcome := engine.Deliver(context.Background(), model.Webhook{ID: "wh_2", URL: server.URL}, model.EventProductCreated, map[string]interface{}{"id": 1})

	assert.True(t, outcome.Success)
	assert.Equal(t, "", signature.Load())
}

func TestDeliverExhaustsRetriesAndCountsOneFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	engine := newTestEngine(recorder)

	outcome := engine.Deliver(context.Background(), model.Webhook{ID: "wh_3", URL: server.URL}, model.EventProductUpdated, map[string]interface{}{"id": 1})

	assert.False(t, outcome.Success)
	assert.Equal(t, 3, outcome.Attempt)
	assert.Equal(t, ErrorClassHTTPStatus, outcome.ErrorClass)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)
	assert.Equal(t, "HTTP 500", outcome.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	recorded := recorder.recorded()
	require.Len(t, recorded, 1)
	assert.False(t, recorded[0].success)
}

func TestDeliverSucceedsAfterTransientFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	outcome := newTestEngine(recorder).Deliver(context.Background(), model.Webhook{ID: "wh_4", URL: server.URL}, model.EventProductDeleted, map[string]interface{}{"id": 9})

	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.Attempt)

	recorded := recorder.recorded()
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].success)
}

func TestDeliverClassifiesTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testWebhookConfig()
	cfg.MaxAttempts = 1
	engine := NewEngine(&fakeRecorder{}, cfg, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	outcome := engine.Deliver(context.Background(), model.Webhook{ID: "wh_5", URL: server.URL}, model.EventProductCreated, map[string]interface{}{"id": 1})
	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorClassTimeout, outcome.ErrorClass)
	assert.Equal(t, 1, outcome.Attempt)
}

func TestDeliverClassifiesConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	recorder := &fakeRecorder{}
	outcome := newTestEngine(recorder).Deliver(context.Background(), model.Webhook{ID: "wh_6", URL: url}, model.EventProductCreated, map[string]interface{}{"id": 1})

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorClassConnection, outcome.ErrorClass)
	assert.Equal(t, 3, outcome.Attempt)
	assert.Len(t, recorder.recorded(), 1)
}

func TestDeliverInvalidURLIsNotRetried(t *testing.T) {
	recorder := &fakeRecorder{}
	outcome := newTestEngine(recorder).Deliver(context.Background(), model.Webhook{ID: "wh_7", URL: "://bad"}, model.EventProductCreated, map[string]interface{}{"id": 1})

	assert.False(t, outcome.Success)
	assert.Equal(t, ErrorClassRequest, outcome.ErrorClass)
	assert.Equal(t, 1, outcome.Attempt)
	assert.Len(t, recorder.recorded(), 1)
}

func TestDeliverWithHTTPMock(t *testing.T) {
	client := &http.Client{Timeout: time.Second}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://subscriber.example.com/hooks",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "try later"))

	recorder := &fakeRecorder{}
	engine := newTestEngine(recorder, WithHTTPClient(client))
	outcome := engine.Deliver(context.Background(), model.Webhook{ID: "wh_8", URL: "https://subscriber.example.com/hooks"}, model.EventCSVCompleted, map[string]interface{}{"job_id": "j"})

	assert.False(t, outcome.Success)
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
	assert.Equal(t, "try later", outcome.ResponseBody)
}

func TestTestDeliveryDoesNotRecordAndTruncatesBody(t *testing.T) {
	var received map[string]interface{}
	var event string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event = r.Header.Get(HeaderEvent)
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer server.Close()

	recorder := &fakeRecorder{}
	outcome := newTestEngine(recorder).Test(context.Background(), model.Webhook{ID: "wh_9", URL: server.URL, Secret: "k"})

	assert.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.Attempt)
	assert.Len(t, outcome.ResponseBody, maxResponseBody)
	assert.Empty(t, recorder.recorded())

	assert.Equal(t, TestEventType, event)
	assert.Equal(t, "test", received["event"])
	assert.Equal(t, "wh_9", received["webhook_id"])
	data, ok := received["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["test"])
	assert.Equal(t, "This is a test webhook call", data["message"])
}

func TestTestDeliveryFailureIsSingleAttempt(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	outcome := newTestEngine(&fakeRecorder{}).Test(context.Background(), model.Webhook{ID: "wh_10", URL: server.URL})
	assert.False(t, outcome.Success)
	assert.Equal(t, http.StatusNotFound, outcome.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
