package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finance-events/internal/config"
	"github.com/magabrotheeeer/finance-events/internal/metrics"
	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/rabbitmq"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Subscribers(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error) {
	args := m.Called(ctx, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WebhookSubscription), args.Error(1)
}

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestDispatcher(src SubscriptionSource, timeout time.Duration) *Dispatcher {
	d := New(newNoopLogger(), src, metrics.NoopMetrics{}, config.Dispatcher{Timeout: timeout, MaxParallel: 4}, nil)
	d.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return d
}

func sub(url string, eventType models.EventType) models.WebhookSubscription {
	return models.WebhookSubscription{ID: url, URL: url, EventType: eventType}
}

func TestDispatcher_Dispatch_NoSubscribers(t *testing.T) {
	src := new(MockSource)
	src.On("Subscribers", mock.Anything, models.EventPlanExpired).Return([]models.WebhookSubscription{}, nil).Once()

	res := newTestDispatcher(src, time.Second).Dispatch(context.Background(), models.EventPlanExpired, map[string]string{"a": "b"})

	assert.Equal(t, Result{}, res)
	src.AssertExpectations(t)
}

func TestDispatcher_Dispatch_LookupError(t *testing.T) {
	src := new(MockSource)
	src.On("Subscribers", mock.Anything, models.EventSaleCompleted).Return(nil, errors.New("db down")).Once()

	res := newTestDispatcher(src, time.Second).Dispatch(context.Background(), models.EventSaleCompleted, nil)

	assert.Equal(t, Result{}, res)
}

func TestDispatcher_Dispatch_EnvelopeAndPartialFailure(t *testing.T) {
	var received atomic.Int32
	var gotBody atomic.Value
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(body)
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ok.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	src := new(MockSource)
	src.On("Subscribers", mock.Anything, models.EventSaleCompleted).Return([]models.WebhookSubscription{
		sub(ok.URL, models.EventSaleCompleted),
		sub(failing.URL, models.EventSaleCompleted),
		sub(slow.URL, models.EventSaleCompleted),
	}, nil).Once()

	payload := models.SaleEvent{UserID: "u1", Email: "ana@example.com", PlanTier: models.PlanOuro, Amount: "197.00"}
	res := newTestDispatcher(src, 200*time.Millisecond).Dispatch(context.Background(), models.EventSaleCompleted, payload)

	assert.Equal(t, 3, res.Subscribers)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, int32(3), received.Load())

	var envelope struct {
		Evento    string           `json:"evento"`
		Dados     models.SaleEvent `json:"dados"`
		Timestamp string           `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(gotBody.Load().([]byte), &envelope))
	assert.Equal(t, "venda_realizada", envelope.Evento)
	assert.Equal(t, payload, envelope.Dados)
	assert.Equal(t, "2025-03-10T12:00:00Z", envelope.Timestamp)
}

func TestDispatcher_Send_OneTimeoutOthersDelivered(t *testing.T) {
	var delivered atomic.Int32
	fast := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			delivered.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
	}
	a, b := fast(), fast()
	defer a.Close()
	defer b.Close()

	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer hang.Close()

	d := newTestDispatcher(new(MockSource), 150*time.Millisecond)
	start := time.Now()
	res := d.Send(context.Background(), []models.WebhookSubscription{
		sub(a.URL, models.EventAppointment),
		sub(hang.URL, models.EventAppointment),
		sub(b.URL, models.EventAppointment),
	}, []byte(`{"id":"appt-1"}`))

	assert.Equal(t, Result{Subscribers: 3, Delivered: 2, Failed: 1}, res)
	assert.Equal(t, int32(2), delivered.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDispatcher_Send_IgnoresCallerCancellation(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDispatcher(new(MockSource), time.Second)
	res := d.Send(ctx, []models.WebhookSubscription{sub(srv.URL, models.EventAppointment)}, []byte(`{"id":"1"}`))

	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, int32(1), received.Load())
}

func TestDispatcher_Send_UnreachableEndpoint(t *testing.T) {
	d := newTestDispatcher(new(MockSource), 200*time.Millisecond)

	res := d.Send(context.Background(), []models.WebhookSubscription{
		sub("http://127.0.0.1:1/hook", models.EventAppointment),
		sub("://bad-url", models.EventAppointment),
	}, []byte(`{}`))

	assert.Equal(t, Result{Subscribers: 2, Failed: 2}, res)
}

func TestDispatcher_Deliver(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.Store(string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := new(MockSource)
	src.On("Subscribers", mock.Anything, models.EventAccountCreated).
		Return([]models.WebhookSubscription{sub(srv.URL, models.EventAccountCreated)}, nil).Once()

	d := newTestDispatcher(src, time.Second)
	body := `{"evento":"criou_conta","dados":{"user_id":"u1"},"timestamp":"2025-03-10T12:00:00Z"}`

	require.NoError(t, d.Deliver(context.Background(), []byte(body)))
	assert.Equal(t, body, got.Load())

	assert.Error(t, d.Deliver(context.Background(), []byte("not-json")))
	assert.Error(t, d.Deliver(context.Background(), []byte(`{"evento":"unknown"}`)))
	src.AssertExpectations(t)
}

func TestPublisher_Dispatch(t *testing.T) {
	tests := []struct {
		name       string
		publishErr error
		want       Result
	}{
		{name: "published", want: Result{Queued: true}},
		{name: "broker error", publishErr: errors.New("channel closed"), want: Result{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := new(MockChannel)
			ch.On("Publish", rabbitmq.EventsExchange, rabbitmq.FanoutRoutingKey, false, false,
				mock.MatchedBy(func(msg amqp.Publishing) bool {
					var e models.Event
					return json.Unmarshal(msg.Body, &e) == nil && e.EventType == models.EventAccountCreated &&
						msg.ContentType == "application/json"
				})).Return(tt.publishErr).Once()

			p := NewPublisher(newNoopLogger(), ch)
			res := p.Dispatch(context.Background(), models.EventAccountCreated, models.AccountCreatedEvent{UserID: "u1"})

			assert.Equal(t, tt.want, res)
			ch.AssertExpectations(t)
		})
	}
}
