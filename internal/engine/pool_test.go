package engine

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

// fakeEngine sleeps for delay on Recognize, ignoring ctx the way a CGo
// call would.
type fakeEngine struct {
	delay  time.Duration
	text   string
	err    error
	closed *atomic.Int32
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, _ Image) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

func (f *fakeEngine) Close() error {
	if f.closed != nil {
		f.closed.Add(1)
	}
	return nil
}

func countingFactory(created, closed *atomic.Int32, delay time.Duration) Factory {
	return func() (Engine, error) {
		created.Add(1)
		return &fakeEngine{delay: delay, text: "ok", closed: closed}, nil
	}
}

func TestNewPoolReuseBuildsEagerly(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(3, true, countingFactory(&created, &closed, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), created.Load())

	slot, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, slot.Engine())
	p.Release(slot)
	assert.Equal(t, int32(3), created.Load())

	p.Close()
	assert.Equal(t, int32(3), closed.Load())
}

func TestNewPoolRejectsZeroSize(t *testing.T) {
	var created, closed atomic.Int32
	_, err := NewPool(0, true, countingFactory(&created, &closed, 0), nil)
	assert.Error(t, err)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(2, true, countingFactory(&created, &closed, 0), nil)
	require.NoError(t, err)
	defer p.Close()

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, err := p.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			p.Release(slot)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestAcquireHonorsContextDeadline(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(1, true, countingFactory(&created, &closed, 0), nil)
	require.NoError(t, err)
	defer p.Close()

	slot, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(slot)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAcquireTimeout))
}

func TestPerUseCreatesAndDestroysPerAcquire(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(2, false, countingFactory(&created, &closed, 0), nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, int32(0), created.Load())

	slot, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), created.Load())
	p.Release(slot)
	assert.Equal(t, int32(1), closed.Load())

	slot, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), created.Load())
	p.Release(slot)
	assert.Equal(t, int32(2), closed.Load())
}

func TestRecognizeReturnsText(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(1, true, countingFactory(&created, &closed, 0), nil)
	require.NoError(t, err)
	defer p.Close()

	slot, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer p.Release(slot)

	text, err := p.Recognize(context.Background(), slot, Image{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestRecognizeInstantResultNeverTimesOut(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(1, true, countingFactory(&created, &closed, 0), nil)
	require.NoError(t, err)
	defer p.Close()

	// An engine that answers immediately must win the race against the
	// deadline on every single call; a dropped result would surface here
	// as a timeout error and a destroyed handle.
	for i := 0; i < 10000; i++ {
		slot, err := p.Acquire(context.Background())
		require.NoError(t, err)
		text, err := p.Recognize(context.Background(), slot, Image{}, 50*time.Millisecond)
		p.Release(slot)
		require.NoError(t, err, "iteration %d", i)
		require.Equal(t, "ok", text, "iteration %d", i)
	}
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(0), closed.Load())
}

func TestRecognizeTimeoutDiscardsHandle(t *testing.T) {
	var created, closed atomic.Int32
	p, err := NewPool(1, true, countingFactory(&created, &closed, 200*time.Millisecond), nil)
	require.NoError(t, err)
	defer p.Close()

	slot, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.Recognize(context.Background(), slot, Image{}, 20*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Nil(t, slot.Engine())

	// The slot goes back empty and the next acquire rebuilds it.
	p.Release(slot)
	slot2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, slot2.Engine())
	assert.Equal(t, int32(2), created.Load())
	p.Release(slot2)

	// The abandoned goroutine tears down its handle once the sleep ends.
	assert.Eventually(t, func() bool {
		return closed.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}
