package render

import (
	"context"
	"fmt"

	"skullboard/utils"
)

// MaxAttempts is the number of screenshot tries per render, first try included.
const MaxAttempts = 3

// CaptureFunc takes one screenshot of pageURL using browser h.
type CaptureFunc func(ctx context.Context, h Handle, pageURL string) ([]byte, error)

// Renderer turns a render page URL into a PNG, retrying transient failures.
type Renderer struct {
	engine  *Engine
	capture CaptureFunc
	metrics *Metrics
}

func NewRenderer(engine *Engine, capture CaptureFunc, metrics *Metrics) *Renderer {
	if capture == nil {
		capture = CaptureWrapper
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Renderer{engine: engine, capture: capture, metrics: metrics}
}

// Render returns the PNG of pageURL. After MaxAttempts failures the last error is returned.
func (r *Renderer) Render(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		r.metrics.RenderAttempts.Inc()

		png, h, err := r.attempt(ctx, pageURL)
		if err == nil {
			return png, nil
		}
		lastErr = err
		utils.Warn("Render", "Screenshot", fmt.Sprintf("attempt %d/%d failed: %v", attempt, MaxAttempts, err))

		if h != nil && isDisconnected(h) {
			r.engine.Invalidate(h)
		}
	}
	r.metrics.RenderFailures.Inc()
	return nil, lastErr
}

func (r *Renderer) attempt(ctx context.Context, pageURL string) ([]byte, Handle, error) {
	h, err := r.engine.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	png, err := r.capture(ctx, h, pageURL)
	return png, h, err
}
