package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/reelwatch/rotate"
)

// desktop user agents rotated at launch, one per browser lifetime.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Proxy is the upstream proxy for all browser traffic. Authenticated
	// proxies are handled via CDP auth, no extension hacks needed.
	Proxy *rotate.Proxy

	// NavTimeout bounds navigation + page load. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser lazily launches and owns one Chrome instance. Safe for concurrent
// use; a launch failure is remembered only for the failing call, so a later
// scrape retries the launch.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser creates a Browser. Chrome is not started until the first Page.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Page opens a stealth tab and navigates it to url. The caller must Close
// the returned page. Launch failures wrap ErrBrowserUnavailable.
func (b *Browser) Page(ctx context.Context, url string) (*rod.Page, error) {
	br, err := b.ensure()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, fmt.Errorf("%w: create tab: %v", ErrBrowserUnavailable, err)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("scrape: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Heavy pages blow the load deadline yet still render the counters;
		// let the caller's settle delay and selector probes decide.
		b.cfg.Logger.Warn("scrape: wait load timeout", "url", url, "error", err)
	}
	return page, nil
}

// Close shuts Chrome down. Subsequent Page calls fail.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cleanup()
}

// Recycle kills the current Chrome so the next Page launches a fresh one.
// Used after a fault that leaves the browser in an unknown state.
func (b *Browser) Recycle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.cfg.Logger.Info("scrape: recycling browser")
	b.cleanup()
}

func (b *Browser) ensure() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("%w: browser is closed", ErrBrowserUnavailable)
	}
	if b.browser != nil {
		return b.browser, nil
	}

	br, err := b.launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}
	b.browser = br
	return br, nil
}

func (b *Browser) launch() (*rod.Browser, error) {
	log := b.cfg.Logger

	var wsURL string
	if b.cfg.RemoteURL != "" {
		wsURL = b.cfg.RemoteURL
		log.Info("scrape: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			NoSandbox(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-dev-shm-usage").
			Set("user-agent", userAgents[rand.Intn(len(userAgents))])

		if b.cfg.Proxy != nil {
			l = l.Proxy(b.cfg.Proxy.Addr())
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("scrape: launched local chrome")
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		if b.lnch != nil {
			b.lnch.Cleanup()
			b.lnch = nil
		}
		return nil, fmt.Errorf("connect: %w", err)
	}

	if b.cfg.Proxy != nil && b.cfg.Proxy.User != "" {
		go br.HandleAuth(b.cfg.Proxy.User, b.cfg.Proxy.Pass)()
	}

	return br, nil
}

func (b *Browser) cleanup() {
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}
