package render

import (
	"context"
	"errors"
	"sync"

	"skullboard/utils"
)

// ErrEngineClosed is returned by Acquire after Close.
var ErrEngineClosed = errors.New("render engine closed")

// Handle is a live headless browser.
type Handle interface {
	// Context is the browser context new tabs are derived from.
	Context() context.Context
	// Done is closed once the browser is gone.
	Done() <-chan struct{}
	Close() error
}

// LaunchFunc starts a browser bound to ctx.
type LaunchFunc func(ctx context.Context) (Handle, error)

type engineState int

const (
	stateAbsent engineState = iota
	stateLaunching
	stateReady
	stateDisconnected
)

func (s engineState) String() string {
	switch s {
	case stateLaunching:
		return "launching"
	case stateReady:
		return "ready"
	case stateDisconnected:
		return "disconnected"
	default:
		return "absent"
	}
}

type launchResult struct {
	handle Handle
	err    error
}

// Engine owns the single shared browser. Callers arriving while a launch is
// in flight are queued in arrival order and all receive the outcome of that
// one launch.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	handle  Handle
	waiters []chan launchResult
	closed  bool

	launch LaunchFunc
	base   context.Context
	cancel context.CancelFunc
}

func NewEngine(launch LaunchFunc) *Engine {
	base, cancel := context.WithCancel(context.Background())
	return &Engine{launch: launch, base: base, cancel: cancel}
}

// Acquire returns the ready browser, launching one when there is none.
func (e *Engine) Acquire(ctx context.Context) (Handle, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if e.state == stateReady {
		h := e.handle
		e.mu.Unlock()
		return h, nil
	}

	ch := make(chan launchResult, 1)
	e.waiters = append(e.waiters, ch)
	if e.state != stateLaunching {
		e.state = stateLaunching
		go e.runLaunch()
	}
	e.mu.Unlock()

	select {
	case res := <-ch:
		return res.handle, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) runLaunch() {
	h, err := e.launch(e.base)

	e.mu.Lock()
	waiters := e.waiters
	e.waiters = nil
	switch {
	case err != nil:
		e.state = stateAbsent
		utils.Warn("Render", "LaunchBrowser", err.Error())
	case e.closed:
		_ = h.Close()
		h, err = nil, ErrEngineClosed
		e.state = stateAbsent
	default:
		e.state = stateReady
		e.handle = h
		go e.watch(h)
	}
	e.mu.Unlock()

	for _, w := range waiters {
		w <- launchResult{handle: h, err: err}
	}
}

func (e *Engine) watch(h Handle) {
	<-h.Done()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == h {
		e.handle = nil
		e.state = stateDisconnected
		utils.Info("Render", "BrowserDisconnected", "browser disconnected, next render relaunches")
	}
}

// Invalidate drops h so the next Acquire launches a fresh browser.
func (e *Engine) Invalidate(h Handle) {
	if h == nil {
		return
	}
	e.mu.Lock()
	if e.handle == h {
		e.handle = nil
		e.state = stateDisconnected
	}
	e.mu.Unlock()
	_ = h.Close()
}

// Close shuts the browser down. Later Acquire calls fail.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	h := e.handle
	e.handle = nil
	e.state = stateAbsent
	e.mu.Unlock()

	e.cancel()
	if h != nil {
		_ = h.Close()
	}
}

func (e *Engine) currentState() engineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func isDisconnected(h Handle) bool {
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}
