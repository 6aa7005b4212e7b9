package ioreq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	var r Request
	assert.Equal(t, Idle, r.State())
	assert.True(t, r.Poll())

	_, err := r.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, InFlight, r.State())
	assert.True(t, r.Pending())

	_, err = r.Start(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	assert.True(t, r.Complete(42, nil))
	assert.False(t, r.Complete(1, nil))
	assert.True(t, r.Poll())
	assert.Equal(t, Complete, r.State())

	// still unconsumed
	_, err = r.Start(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	n, err := r.Wait()
	assert.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, Idle, r.State())

	n, err = r.Wait()
	assert.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.Start(context.Background())
	assert.NoError(t, err)
}

func TestClosed(t *testing.T) {
	select {
	case <-Closed():
	default:
		t.Fatal("Closed channel is open")
	}
	var r Request
	assert.Equal(t, Closed(), r.Done())
}

func TestSubmitWait(t *testing.T) {
	var r Request
	release := make(chan struct{})
	require.NoError(t, r.Submit(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 7, errors.New("bad sector")
	}))

	select {
	case <-r.Done():
		t.Fatal("completed early")
	case <-time.After(10 * time.Millisecond):
	}
	close(release)

	n, err := r.Wait()
	assert.Equal(t, 7, n)
	assert.EqualError(t, err, "bad sector")
}

func TestAbort(t *testing.T) {
	var r Request
	require.NoError(t, r.Submit(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}))
	r.Abort()
	_, err := r.Wait()
	assert.ErrorIs(t, err, context.Canceled)

	// abort of an idle request is a no-op
	r.Abort()
	assert.Equal(t, Idle, r.State())
}

func TestDo(t *testing.T) {
	var r Request
	n, err := r.Do(context.Background(), func(ctx context.Context) (int, error) {
		return 2352, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2352, n)

	select {
	case <-r.Done():
	default:
		t.Fatal("idle request should report done")
	}
}
