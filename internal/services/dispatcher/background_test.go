package dispatcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/finance-events/internal/models"
)

type blockingDispatcher struct {
	release  chan struct{}
	started  chan struct{}
	finished atomic.Int32
	ctxErr   atomic.Value
}

func newBlockingDispatcher() *blockingDispatcher {
	return &blockingDispatcher{release: make(chan struct{}), started: make(chan struct{}, 8)}
}

func (b *blockingDispatcher) Dispatch(ctx context.Context, _ models.EventType, _ any) Result {
	b.started <- struct{}{}
	<-b.release
	if err := ctx.Err(); err != nil {
		b.ctxErr.Store(err)
	}
	b.finished.Add(1)
	return Result{Subscribers: 1, Delivered: 1}
}

func TestBackground_DispatchDoesNotWaitForDelivery(t *testing.T) {
	next := newBlockingDispatcher()
	bg := NewBackground(newNoopLogger(), next)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan Result, 1)
	go func() { returned <- bg.Dispatch(ctx, models.EventSaleCompleted, map[string]string{"k": "v"}) }()

	select {
	case res := <-returned:
		assert.True(t, res.Queued)
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on the wrapped dispatcher")
	}

	<-next.started
	cancel()

	waited := make(chan struct{})
	go func() {
		bg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned before the dispatch finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(next.release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the dispatch finished")
	}
	assert.Equal(t, int32(1), next.finished.Load())
	require.Nil(t, next.ctxErr.Load(), "caller cancellation must not reach the dispatch")
}
