package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finance-events/internal/models"
	"github.com/magabrotheeeer/finance-events/internal/services/dispatcher"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListPendingReminders(ctx context.Context) ([]models.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *MockRepository) ClaimReminder(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) Subscribers(ctx context.Context, eventType models.EventType) ([]models.WebhookSubscription, error) {
	args := m.Called(ctx, eventType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WebhookSubscription), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, subs []models.WebhookSubscription, body []byte) dispatcher.Result {
	args := m.Called(ctx, subs, body)
	return args.Get(0).(dispatcher.Result)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	zone = time.FixedZone("reminder", -3*60*60)
	// 10:00 по UTC-3
	fixedNow = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
)

func appointmentAt(id string, at time.Time) models.Appointment {
	local := at.In(zone)
	return models.Appointment{
		ID:     id,
		UserID: "user-1",
		Title:  "Consulta " + id,
		Date:   local.Format("2006-01-02"),
		Time:   local.Format("15:04"),
	}
}

func newTestService(repo Repository, subs SubscriptionSource, sender Sender) *Service {
	s := New(newNoopLogger(), repo, subs, sender, nil, zone, time.Hour)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestService_Run_Window(t *testing.T) {
	hooks := []models.WebhookSubscription{{ID: "h1", URL: "https://a", EventType: models.EventAppointment}}

	in59 := appointmentAt("in-59", fixedNow.Add(59*time.Minute))
	in60 := appointmentAt("in-60", fixedNow.Add(60*time.Minute))
	in61 := appointmentAt("in-61", fixedNow.Add(61*time.Minute))
	atNow := appointmentAt("now", fixedNow)
	past := appointmentAt("past", fixedNow.Add(-10*time.Minute))
	malformed := models.Appointment{ID: "bad", Date: "10/03/2025", Time: "10:30"}
	missing := models.Appointment{ID: "missing", Date: "2025-03-10"}

	repo := new(MockRepository)
	subs := new(MockSubscriptions)
	sender := new(MockSender)

	repo.On("ListPendingReminders", mock.Anything).
		Return([]models.Appointment{in59, in60, in61, atNow, past, malformed, missing}, nil).Once()
	subs.On("Subscribers", mock.Anything, models.EventAppointment).Return(hooks, nil).Once()
	repo.On("ClaimReminder", mock.Anything, "in-59").Return(true, nil).Once()
	repo.On("ClaimReminder", mock.Anything, "in-60").Return(true, nil).Once()
	sender.On("Send", mock.Anything, hooks, mock.MatchedBy(func(body []byte) bool {
		var got map[string]any
		if json.Unmarshal(body, &got) != nil {
			return false
		}
		_, hasSent := got["reminder_sent"]
		return !hasSent && got["user_id"] == "user-1" && got["title"] != nil && got["date"] != nil
	})).Return(dispatcher.Result{Subscribers: 1, Delivered: 1}).Twice()

	count, err := newTestService(repo, subs, sender).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
	repo.AssertNotCalled(t, "ClaimReminder", mock.Anything, "in-61")
	repo.AssertNotCalled(t, "ClaimReminder", mock.Anything, "now")
	repo.AssertNotCalled(t, "ClaimReminder", mock.Anything, "past")
	repo.AssertNotCalled(t, "ClaimReminder", mock.Anything, "bad")
	repo.AssertNotCalled(t, "ClaimReminder", mock.Anything, "missing")
}

func TestService_Run_ClaimLostOrFailed(t *testing.T) {
	lost := appointmentAt("lost", fixedNow.Add(30*time.Minute))
	broken := appointmentAt("broken", fixedNow.Add(30*time.Minute))

	repo := new(MockRepository)
	subs := new(MockSubscriptions)
	sender := new(MockSender)

	repo.On("ListPendingReminders", mock.Anything).Return([]models.Appointment{lost, broken}, nil).Once()
	subs.On("Subscribers", mock.Anything, models.EventAppointment).
		Return([]models.WebhookSubscription{{ID: "h1", URL: "https://a"}}, nil).Once()
	repo.On("ClaimReminder", mock.Anything, "lost").Return(false, nil).Once()
	repo.On("ClaimReminder", mock.Anything, "broken").Return(false, errors.New("db down")).Once()

	count, err := newTestService(repo, subs, sender).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Run_NoSubscribersStillMarks(t *testing.T) {
	appt := appointmentAt("a1", fixedNow.Add(15*time.Minute))

	repo := new(MockRepository)
	subs := new(MockSubscriptions)
	sender := new(MockSender)

	repo.On("ListPendingReminders", mock.Anything).Return([]models.Appointment{appt}, nil).Once()
	subs.On("Subscribers", mock.Anything, models.EventAppointment).Return([]models.WebhookSubscription{}, nil).Once()
	repo.On("ClaimReminder", mock.Anything, "a1").Return(true, nil).Once()
	sender.On("Send", mock.Anything, []models.WebhookSubscription{}, mock.Anything).Return(dispatcher.Result{}).Once()

	count, err := newTestService(repo, subs, sender).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	repo.AssertExpectations(t)
}

// barrierSender отвечает только когда одновременно пришли все ожидаемые вызовы Send.
type barrierSender struct {
	mu      sync.Mutex
	arrived int
	want    int
	all     chan struct{}
	stalled atomic.Int32
}

func (b *barrierSender) Send(_ context.Context, subs []models.WebhookSubscription, _ []byte) dispatcher.Result {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.want {
		close(b.all)
	}
	b.mu.Unlock()

	select {
	case <-b.all:
	case <-time.After(2 * time.Second):
		b.stalled.Add(1)
	}
	return dispatcher.Result{Subscribers: len(subs), Delivered: len(subs)}
}

func TestService_Run_SendsRemindersConcurrently(t *testing.T) {
	appts := []models.Appointment{
		appointmentAt("c1", fixedNow.Add(10*time.Minute)),
		appointmentAt("c2", fixedNow.Add(20*time.Minute)),
		appointmentAt("c3", fixedNow.Add(30*time.Minute)),
	}
	hooks := []models.WebhookSubscription{{ID: "h1", URL: "https://a", EventType: models.EventAppointment}}

	repo := new(MockRepository)
	subs := new(MockSubscriptions)
	repo.On("ListPendingReminders", mock.Anything).Return(appts, nil).Once()
	subs.On("Subscribers", mock.Anything, models.EventAppointment).Return(hooks, nil).Once()
	repo.On("ClaimReminder", mock.Anything, mock.Anything).Return(true, nil).Times(3)

	sender := &barrierSender{want: len(appts), all: make(chan struct{})}
	count, err := newTestService(repo, subs, sender).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Zero(t, sender.stalled.Load(), "reminders were sent one after another")
	repo.AssertExpectations(t)
}

func TestService_Run_LoadErrors(t *testing.T) {
	t.Run("appointments", func(t *testing.T) {
		repo := new(MockRepository)
		subs := new(MockSubscriptions)
		repo.On("ListPendingReminders", mock.Anything).Return(nil, errors.New("db down")).Once()

		count, err := newTestService(repo, subs, new(MockSender)).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, count)
		subs.AssertNotCalled(t, "Subscribers", mock.Anything, mock.Anything)
	})

	t.Run("subscriptions", func(t *testing.T) {
		repo := new(MockRepository)
		subs := new(MockSubscriptions)
		repo.On("ListPendingReminders", mock.Anything).
			Return([]models.Appointment{appointmentAt("a1", fixedNow.Add(time.Minute))}, nil).Once()
		subs.On("Subscribers", mock.Anything, models.EventAppointment).Return(nil, errors.New("db down")).Once()

		count, err := newTestService(repo, subs, new(MockSender)).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, count)
		repo.AssertNotCalled(t, "ClaimReminder", mock.Anything, mock.Anything)
	})
}

func TestService_startsAt(t *testing.T) {
	s := New(newNoopLogger(), nil, nil, nil, nil, zone, 0)

	tests := []struct {
		name    string
		date    string
		clock   string
		want    time.Time
		wantErr bool
	}{
		{name: "hh:mm", date: "2025-03-10", clock: "10:30", want: time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)},
		{name: "hh:mm:ss", date: "2025-03-10", clock: "23:59:59", want: time.Date(2025, 3, 11, 2, 59, 59, 0, time.UTC)},
		{name: "empty time", date: "2025-03-10", clock: "", wantErr: true},
		{name: "garbage", date: "amanhã", clock: "10h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.startsAt(models.Appointment{Date: tt.date, Time: tt.clock})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}
