package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoadsOnceUnderConcurrency(t *testing.T) {
	release := make(chan struct{})
	v := New(func(ctx context.Context) (map[string]int, error) {
		<-release
		return map[string]int{"1.20.1": 1}, nil
	})

	const callers = 64
	var wg sync.WaitGroup
	results := make([]map[string]int, callers)
	oks := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := v.Get(context.Background())
			results[i], oks[i] = m, err == nil
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), v.Loads())
	for i := 0; i < callers; i++ {
		require.True(t, oks[i])
		assert.Equal(t, 1, results[i]["1.20.1"])
	}

	// Later callers use the published value
	_, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Loads())
}

func TestFailedLoadIsNotPublished(t *testing.T) {
	var calls atomic.Int32
	v := New(func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("offline")
		}
		return "ok", nil
	})

	assert.False(t, v.Initialize(context.Background()))
	_, published := v.Peek()
	assert.False(t, published)

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int64(2), v.Loads())
}

func TestCallerCancellationDoesNotAbortSharedLoad(t *testing.T) {
	release := make(chan struct{})
	v := New(func(ctx context.Context) (int, error) {
		<-release
		return 42, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := v.Get(ctx)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, int64(1), v.Loads())
}

func TestResetForcesReload(t *testing.T) {
	var n atomic.Int32
	v := New(func(ctx context.Context) (int32, error) {
		return n.Add(1), nil
	})

	first, err := v.Get(context.Background())
	require.NoError(t, err)
	v.Reset()
	_, published := v.Peek()
	assert.False(t, published)

	second, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(2), second)
}
