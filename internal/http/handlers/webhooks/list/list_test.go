package list

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/services/registry"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, eventType string) ([]models.WebhookSubscription, error) {
	args := m.Called(ctx, eventType)
	subs, _ := args.Get(0).([]models.WebhookSubscription)
	return subs, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	subs := []models.WebhookSubscription{
		{ID: "1", URL: "https://crm.example.com/hook", EventType: models.EventSaleCompleted, CreatedAt: created},
	}

	tests := []struct {
		name       string
		query      string
		setupMock  func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name:  "all",
			query: "",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "").Return(subs, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"evento":"venda_realizada"`,
		},
		{
			name:  "filtered empty",
			query: "?evento=compromisso",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "compromisso").Return(nil, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"data":[]`,
		},
		{
			name:  "unknown event",
			query: "?evento=foo",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "foo").
					Return(nil, fmt.Errorf("services.registry.List: %w", registry.ErrInvalidEventType)).Once()
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"error":"unknown event type"`,
		},
		{
			name:  "store error",
			query: "",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, "").Return(nil, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"error":"could not list subscriptions"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks"+tt.query, nil)
			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_ResponseShape(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, "").Return([]models.WebhookSubscription{
		{ID: "1", URL: "https://a", EventType: models.EventAccountCreated},
		{ID: "2", URL: "https://b", EventType: models.EventAppointment},
	}, nil).Once()

	rr := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhooks", nil))

	var resp struct {
		Status string                       `json:"status"`
		Data   []models.WebhookSubscription `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, models.EventAppointment, resp.Data[1].EventType)
}
