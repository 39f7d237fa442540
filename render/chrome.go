package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"skullboard/config"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	viewportWidth  = 600
	viewportHeight = 1600
	deviceScale    = 4

	navigateTimeout   = 15 * time.Second
	componentsTimeout = 10 * time.Second
	screenshotTimeout = 10 * time.Second
	componentsSettle  = 500 * time.Millisecond
	layoutSettle      = 150 * time.Millisecond
)

var errWrapperMissing = errors.New("wrapper element not found on render page")

// waitImagesJS resolves once every <img>, including those in shadow roots,
// has loaded, failed or waited 8s.
const waitImagesJS = `(() => {
	const collect = (root) => {
		const imgs = Array.from(root.querySelectorAll('img'));
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot) imgs.push(...collect(el.shadowRoot));
		}
		return imgs;
	};
	return Promise.all(collect(document).map((img) => {
		if (img.complete) return true;
		return new Promise((resolve) => {
			const timer = setTimeout(() => resolve(true), 8000);
			const done = () => { clearTimeout(timer); resolve(true); };
			img.addEventListener('load', done, { once: true });
			img.addEventListener('error', done, { once: true });
		});
	})).then(() => true);
})()`

type chromeHandle struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
}

func (h *chromeHandle) Context() context.Context { return h.ctx }

func (h *chromeHandle) Done() <-chan struct{} { return h.done }

func (h *chromeHandle) Close() error {
	h.closeOnce.Do(func() {
		h.cancelTab()
		h.cancelAlloc()
	})
	return nil
}

// AllocatorOptions returns the launch flags for the headless browser.
func AllocatorOptions(cfg config.RenderSettings) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// ChromeLauncher launches a local Chrome with chromedp.
func ChromeLauncher(cfg config.RenderSettings) LaunchFunc {
	return func(ctx context.Context) (Handle, error) {
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
		browserCtx, cancelTab := chromedp.NewContext(allocCtx)

		// The first Run starts the browser process.
		if err := chromedp.Run(browserCtx); err != nil {
			cancelTab()
			cancelAlloc()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		h := &chromeHandle{
			ctx:         browserCtx,
			cancelTab:   cancelTab,
			cancelAlloc: cancelAlloc,
			done:        make(chan struct{}),
		}

		var lost <-chan struct{}
		if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
			lost = c.Browser.LostConnection
		}
		go func() {
			select {
			case <-browserCtx.Done():
			case <-lost:
			}
			close(h.done)
		}()
		return h, nil
	}
}

// CaptureWrapper screenshots the .wrapper element of pageURL in a fresh tab.
// The tab is closed on every return path.
func CaptureWrapper(ctx context.Context, h Handle, pageURL string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(h.Context())
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight, chromedp.EmulateScale(deviceScale)),
	); err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, navigateTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(pageURL))
	cancelNav()
	if err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	var defined bool
	if err := chromedp.Run(tabCtx,
		chromedp.Poll(`customElements.get('discord-messages') !== undefined`, &defined,
			chromedp.WithPollingTimeout(componentsTimeout)),
	); err != nil {
		return nil, fmt.Errorf("failed waiting for components: %w", err)
	}

	var (
		imagesDone bool
		hasWrapper bool
	)
	if err := chromedp.Run(tabCtx,
		chromedp.Sleep(componentsSettle),
		chromedp.Evaluate(waitImagesJS, &imagesDone, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.Sleep(layoutSettle),
		chromedp.Evaluate(`document.querySelector('.wrapper') !== null`, &hasWrapper),
	); err != nil {
		return nil, fmt.Errorf("failed waiting for images: %w", err)
	}
	if !hasWrapper {
		return nil, errWrapperMissing
	}

	var buf []byte
	shotCtx, cancelShot := context.WithTimeout(tabCtx, screenshotTimeout)
	defer cancelShot()
	if err := chromedp.Run(shotCtx, chromedp.Screenshot(".wrapper", &buf, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to screenshot wrapper: %w", err)
	}
	return buf, nil
}
