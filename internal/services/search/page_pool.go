package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/common"
)

// page is one pooled browser tab.
type page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// pagePool manages tabs of a single shared headless browser. Tabs are
// created lazily up to the configured size, handed out FIFO, and reset
// to about:blank on release. Acquire blocks (FIFO) when the pool is
// exhausted.
type pagePool struct {
	cfg    common.SearchConfig
	logger arbor.ILogger

	// Tab construction and reset, swappable in tests.
	newPage   func(browserCtx context.Context) (*page, error)
	resetPage func(pg *page) error

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	idle          []*page
	created       int
	waiters       []chan *page
	closed        bool
}

func newPagePool(cfg common.SearchConfig, logger arbor.ILogger) *pagePool {
	p := &pagePool{cfg: cfg, logger: logger}
	p.newPage = p.openPage
	p.resetPage = p.resetToBlank
	return p
}

// ensureBrowser starts the shared browser on first use. Caller holds
// the mutex.
func (p *pagePool) ensureBrowserLocked() error {
	if p.browserCtx != nil && p.browserCtx.Err() == nil {
		return nil
	}

	// A dead browser takes its tabs with it.
	p.drainLocked()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", p.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "nl-NL"),
		chromedp.UserAgent(p.cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Startup test; NewContext defers the actual process launch.
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel

	p.logger.Info().
		Bool("headless", p.cfg.Headless).
		Int("pool_size", p.cfg.PagePoolSize).
		Msg("Headless browser started")
	return nil
}

// acquire returns a tab, creating one lazily while under the pool size
// and queueing FIFO behind earlier callers otherwise.
func (p *pagePool) acquire(ctx context.Context) (*page, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("page pool is shut down")
	}
	if err := p.ensureBrowserLocked(); err != nil {
		p.mu.Unlock()
		return nil, err
	}

	if len(p.idle) > 0 {
		pg := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()
		return pg, nil
	}

	if p.created < p.cfg.PagePoolSize {
		p.created++
		browserCtx := p.browserCtx
		p.mu.Unlock()

		pg, err := p.newPage(browserCtx)
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, err
		}
		return pg, nil
	}

	waiter := make(chan *page, 1)
	p.waiters = append(p.waiters, waiter)
	p.mu.Unlock()

	select {
	case pg := <-waiter:
		if pg == nil {
			return nil, fmt.Errorf("page pool is shut down")
		}
		return pg, nil
	case <-ctx.Done():
		p.abandonWaiter(waiter)
		return nil, ctx.Err()
	}
}

// release resets the tab to about:blank and hands it to the oldest
// waiter, or parks it idle. A tab that fails the reset is discarded so
// a fresh one can take its slot.
func (p *pagePool) release(pg *page) {
	err := p.resetPage(pg)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		pg.cancel()
		return
	}

	if err != nil || pg.ctx.Err() != nil {
		p.logger.Debug().Err(err).Msg("Discarding unresponsive browser tab")
		pg.cancel()
		p.created--

		// Replace the lost slot so queued waiters are not stranded.
		if len(p.waiters) > 0 && p.browserCtx != nil && p.browserCtx.Err() == nil {
			p.created++
			browserCtx := p.browserCtx
			go func() {
				fresh, err := p.newPage(browserCtx)
				if err != nil {
					p.mu.Lock()
					p.created--
					p.mu.Unlock()
					return
				}
				p.release(fresh)
			}()
		}
		return
	}

	if len(p.waiters) > 0 {
		waiter := p.waiters[0]
		p.waiters = p.waiters[1:]
		waiter <- pg
		return
	}
	p.idle = append(p.idle, pg)
}

// abandonWaiter removes a cancelled waiter, re-parking a page that
// raced the cancellation.
func (p *pagePool) abandonWaiter(waiter chan *page) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, w := range p.waiters {
		if w == waiter {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
	select {
	case pg := <-waiter:
		if pg != nil {
			p.idle = append(p.idle, pg)
		}
	default:
	}
}

// resetToBlank navigates the tab back to about:blank before reuse.
func (p *pagePool) resetToBlank(pg *page) error {
	resetCtx, cancel := context.WithTimeout(pg.ctx, 5*time.Second)
	defer cancel()
	return chromedp.Run(resetCtx, chromedp.Navigate("about:blank"))
}

// openPage opens a tab with resource interception: images, fonts, media
// and stylesheets are blocked to keep result pages fast.
func (p *pagePool) openPage(browserCtx context.Context) (*page, error) {
	pageCtx, pageCancel := chromedp.NewContext(browserCtx)

	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(pageCtx)
			execCtx := cdp.WithExecutor(pageCtx, c.Target)

			switch paused.ResourceType {
			case network.ResourceTypeImage, network.ResourceTypeFont,
				network.ResourceTypeMedia, network.ResourceTypeStylesheet:
				fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			default:
				fetch.ContinueRequest(paused.RequestID).Do(execCtx)
			}
		}()
	})

	err := chromedp.Run(pageCtx,
		fetch.Enable(),
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "nl-NL,nl;q=0.9,de;q=0.8,en;q=0.7",
		}),
		chromedp.EmulateViewport(1366, 768),
	)
	if err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to prepare browser tab: %w", err)
	}

	return &page{ctx: pageCtx, cancel: pageCancel}, nil
}

// drainLocked discards all tabs and wakes waiters with nil. Caller
// holds the mutex.
func (p *pagePool) drainLocked() {
	for _, pg := range p.idle {
		pg.cancel()
	}
	p.idle = nil
	p.created = 0

	for _, waiter := range p.waiters {
		waiter <- nil
	}
	p.waiters = nil

	if p.browserCancel != nil {
		p.browserCancel()
		p.browserCancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	p.browserCtx = nil
}

// shutdown closes every tab and the browser. Safe to call repeatedly.
func (p *pagePool) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	p.drainLocked()
	p.logger.Info().Msg("Browser page pool shut down")
}
