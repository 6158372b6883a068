package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Session is the chromedp implementation of Driver. It owns one headless
// Chrome instance for the lifetime of a batch run.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewSession starts a browser and returns a live session.
func NewSession(config Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		logger:      logger.With(zap.String("component", "browser_session")),
	}

	// Start the browser.
	if err := chromedp.Run(ctx); err != nil {
		allocCancel()
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	// Auto-accept JavaScript dialogs so an unexpected alert cannot wedge
	// the form walk mid-item.
	chromedp.ListenTarget(ctx, func(ev any) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
					s.logger.Debug("dismissing dialog", zap.Error(err))
				}
			}()
		}
	})

	logger.Info("browser session started",
		zap.Bool("headless", config.Headless),
		zap.Int("viewport_w", config.ViewportWidth),
		zap.Int("viewport_h", config.ViewportHeight))

	return s, nil
}

// Navigate loads the given URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tctx, cancel := s.stepContext(s.config.NavTimeout)
	defer cancel()

	s.logger.Debug("navigating", zap.String("url", url))
	return chromedp.Run(tctx, chromedp.Navigate(url))
}

// Fill waits for the element to be visible, clears it, and types value.
func (s *Session) Fill(ctx context.Context, selector string, by By, value string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tctx, cancel := s.stepContext(timeout)
	defer cancel()

	opt := matchOption(by)
	s.logger.Debug("filling", zap.String("selector", selector))
	return chromedp.Run(tctx,
		chromedp.WaitVisible(selector, opt),
		chromedp.Clear(selector, opt),
		chromedp.SendKeys(selector, value, opt),
	)
}

// Click waits for the element to be visible and enabled, then clicks it.
func (s *Session) Click(ctx context.Context, selector string, by By, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tctx, cancel := s.stepContext(timeout)
	defer cancel()

	opt := matchOption(by)
	s.logger.Debug("clicking", zap.String("selector", selector))
	return chromedp.Run(tctx,
		chromedp.WaitVisible(selector, opt),
		chromedp.WaitEnabled(selector, opt),
		chromedp.Click(selector, opt),
	)
}

// Location returns the page's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tctx, cancel := s.stepContext(s.config.NavTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(tctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get location: %w", err)
	}
	return url, nil
}

// Close releases the browser. Safe to call once per session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("closing browser session")
	s.cancel()
	s.allocCancel()
	return nil
}

// stepContext bounds one interaction with timeout. Actions must run on the
// session's chromedp context, so the bound derives from s.ctx.
func (s *Session) stepContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return s.ctx, func() {}
	}
	return context.WithTimeout(s.ctx, timeout)
}

// matchOption maps a By to the chromedp query option.
func matchOption(by By) chromedp.QueryOption {
	if by == ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
