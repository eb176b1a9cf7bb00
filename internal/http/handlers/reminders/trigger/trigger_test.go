package trigger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) Run(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "sent", count: 3, wantStatus: http.StatusOK, wantBody: `{"triggered":3}`},
		{name: "nothing due", count: 0, wantStatus: http.StatusOK, wantBody: `{"triggered":0}`},
		{name: "fetch failed", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantBody: `{"status":"Error","error":"reminder run failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := new(MockScanner)
			scanner.On("Run", mock.Anything).Return(tt.count, tt.err).Once()

			rr := httptest.NewRecorder()
			New(newNoopLogger(), scanner).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reminders/trigger", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
			scanner.AssertExpectations(t)
		})
	}
}
