package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls int32
	err   error
}

func (f *fakeExpirer) DeleteExpired(context.Context) (int64, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func TestRunOnce(t *testing.T) {
	w := NewNotificationCleanupWorker(&fakeExpirer{}, time.Minute, nil)
	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	failing := NewNotificationCleanupWorker(&fakeExpirer{err: errors.New("db down")}, time.Minute, nil)
	_, err = failing.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestStart_SweepsUntilCancelled(t *testing.T) {
	exp := &fakeExpirer{err: errors.New("transient")}
	w := NewNotificationCleanupWorker(exp, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&exp.calls) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
