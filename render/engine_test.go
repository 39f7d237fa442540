package render

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

type fakeHandle struct {
	ctx    context.Context
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{ctx: context.Background(), done: make(chan struct{})}
}

func (h *fakeHandle) Context() context.Context { return h.ctx }
func (h *fakeHandle) Done() <-chan struct{}    { return h.done }
func (h *fakeHandle) Close() error {
	h.closed.Store(true)
	h.disconnect()
	return nil
}
func (h *fakeHandle) disconnect() { h.once.Do(func() { close(h.done) }) }

// gatedLauncher blocks every launch until release is closed.
type gatedLauncher struct {
	launches atomic.Int32
	release  chan struct{}
	err      error
	mu       sync.Mutex
	handles  []*fakeHandle
}

func (l *gatedLauncher) Launch(ctx context.Context) (Handle, error) {
	l.launches.Add(1)
	if l.release != nil {
		<-l.release
	}
	if l.err != nil {
		return nil, l.err
	}
	h := newFakeHandle()
	l.mu.Lock()
	l.handles = append(l.handles, h)
	l.mu.Unlock()
	return h, nil
}

func TestEngine_ConcurrentAcquireSharesOneLaunch(t *testing.T) {
	l := &gatedLauncher{release: make(chan struct{})}
	e := NewEngine(l.Launch)
	defer e.Close()

	const callers = 10
	results := make(chan Handle, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := e.Acquire(context.Background())
			assert.NoError(t, err)
			results <- h
		}()
	}

	require.Eventually(t, func() bool { return e.currentState() == stateLaunching }, time.Second, time.Millisecond)
	close(l.release)
	wg.Wait()
	close(results)

	var first Handle
	for h := range results {
		require.NotNil(t, h)
		if first == nil {
			first = h
		}
		assert.Same(t, first, h)
	}
	assert.Equal(t, int32(1), l.launches.Load())
	assert.Equal(t, stateReady, e.currentState())
}

func TestEngine_LaunchErrorDeliveredToAllWaiters(t *testing.T) {
	boom := errors.New("no chrome")
	l := &gatedLauncher{release: make(chan struct{}), err: boom}
	e := NewEngine(l.Launch)
	defer e.Close()

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := e.Acquire(context.Background())
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return e.currentState() == stateLaunching }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(l.release)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-errs, boom)
	}
	assert.Equal(t, stateAbsent, e.currentState())
}

func TestEngine_DisconnectTriggersRelaunch(t *testing.T) {
	l := &gatedLauncher{}
	e := NewEngine(l.Launch)
	defer e.Close()

	h1, err := e.Acquire(context.Background())
	require.NoError(t, err)
	h1.(*fakeHandle).disconnect()

	require.Eventually(t, func() bool { return e.currentState() == stateDisconnected }, time.Second, time.Millisecond)

	h2, err := e.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.Equal(t, int32(2), l.launches.Load())
}

func TestEngine_Invalidate(t *testing.T) {
	l := &gatedLauncher{}
	e := NewEngine(l.Launch)
	defer e.Close()

	h1, err := e.Acquire(context.Background())
	require.NoError(t, err)
	e.Invalidate(h1)
	assert.True(t, h1.(*fakeHandle).closed.Load())

	h2, err := e.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
}

func TestEngine_AcquireRespectsContext(t *testing.T) {
	l := &gatedLauncher{release: make(chan struct{})}
	e := NewEngine(l.Launch)
	defer func() {
		close(l.release)
		e.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_ClosedRejects(t *testing.T) {
	e := NewEngine((&gatedLauncher{}).Launch)
	e.Close()
	_, err := e.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestRenderer_SucceedsOnThirdAttempt(t *testing.T) {
	l := &gatedLauncher{}
	e := NewEngine(l.Launch)
	defer e.Close()

	var calls atomic.Int32
	capture := func(ctx context.Context, h Handle, url string) ([]byte, error) {
		n := calls.Add(1)
		if n < 3 {
			// The browser dies on the failed attempts.
			h.(*fakeHandle).disconnect()
			return nil, errors.New("target crashed")
		}
		return []byte("png"), nil
	}

	r := NewRenderer(e, capture, nil)
	png, err := r.Render(context.Background(), "http://render/render?id=x")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), png)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(3), l.launches.Load())
}

func TestRenderer_ExhaustsAttempts(t *testing.T) {
	e := NewEngine((&gatedLauncher{}).Launch)
	defer e.Close()

	var calls atomic.Int32
	capture := func(ctx context.Context, h Handle, url string) ([]byte, error) {
		calls.Add(1)
		return nil, errWrapperMissing
	}

	_, err := NewRenderer(e, capture, nil).Render(context.Background(), "http://x")
	assert.ErrorIs(t, err, errWrapperMissing)
	assert.Equal(t, int32(MaxAttempts), calls.Load())
}
