package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// Subresource patterns blocked during rendering. Images, media and fonts
// contribute nothing to text extraction and dominate page weight.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
	"*.mp4", "*.mp3", "*.avi", "*.mov", "*.webm",
}

// BrowserStrategy is the heavyweight fallback tier: a headless browser
// renders the page so script-driven sites still yield HTML. One browser
// process serves the whole run.
type BrowserStrategy struct {
	config common.BrowserConfig

	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	mu          sync.Mutex
	initialized bool
	failed      bool

	userAgent string
	logger    arbor.ILogger
}

// NewBrowserStrategy creates the browser tier. The browser process starts
// lazily on the first fetch; if startup fails the tier reports itself
// unavailable for the rest of the run instead of retrying per URL.
func NewBrowserStrategy(config common.BrowserConfig, userAgent string, logger arbor.ILogger) *BrowserStrategy {
	return &BrowserStrategy{
		config:    config,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Name implements Strategy.
func (s *BrowserStrategy) Name() string {
	return string(models.TierBrowser)
}

// Fetch renders the URL and returns the settled outer HTML.
func (s *BrowserStrategy) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	if err := s.ensureBrowser(ctx); err != nil {
		return nil, err
	}

	pageCtx, cancel := context.WithTimeout(s.browserCtx, s.config.NavigationTimeout.Std())
	defer cancel()

	// Bridge the caller's cancellation into the browser context
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-pageCtx.Done():
		}
	}()

	var renderedHTML, finalURL string
	err := chromedp.Run(pageCtx,
		network.Enable(),
		network.SetBlockedURLs(blockedResourcePatterns),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.config.SettleTime.Std()),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if err != nil {
		return &models.FetchResult{
			OK:       false,
			FinalURL: url,
			Tier:     models.TierBrowser,
		}, fmt.Errorf("browser navigation failed: %w", err)
	}

	if strings.TrimSpace(renderedHTML) == "" {
		return &models.FetchResult{
			OK:       false,
			FinalURL: finalURL,
			Tier:     models.TierBrowser,
		}, fmt.Errorf("browser returned empty document")
	}

	if finalURL == "" {
		finalURL = url
	}

	return &models.FetchResult{
		OK:          true,
		FinalURL:    finalURL,
		ContentType: "text/html",
		Body:        renderedHTML,
		Tier:        models.TierBrowser,
	}, nil
}

// ensureBrowser starts the headless browser once. A startup failure marks
// the tier unavailable permanently so every seed is not taxed with a
// browser launch attempt.
func (s *BrowserStrategy) ensureBrowser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if s.failed {
		return fmt.Errorf("browser tier unavailable")
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("disable-gpu", s.config.DisableGPU),
		chromedp.Flag("no-sandbox", s.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// Startup test: a browser that cannot reach about:blank is not coming back
	testCtx, testCancel := context.WithTimeout(browserCtx, s.config.NavigationTimeout.Std())
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		s.failed = true
		s.logger.Warn().Err(err).Msg("Browser tier failed startup test, disabling for this run")
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	s.allocatorCancel = allocatorCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.initialized = true

	s.logger.Info().
		Bool("headless", s.config.Headless).
		Msg("Browser tier started")

	return nil
}

// Shutdown stops the browser process if it was started.
func (s *BrowserStrategy) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocatorCancel != nil {
		s.allocatorCancel()
	}
	s.initialized = false
	s.logger.Debug().Msg("Browser tier shut down")
}
