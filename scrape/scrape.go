// Package scrape extracts engagement metrics from short-video platforms.
//
// Each platform gets its own strategy chain: Instagram tries an
// authenticated private-API call before falling back to a headless-browser
// page scrape with regex extraction; TikTok, YouTube Shorts and VK are
// browser-only, probing ordered CSS selector lists per metric. Platform
// pages are adversarial and change constantly, so every strategy degrades
// to a definitive "no data" outcome instead of surfacing internal errors;
// the only hard failure a caller sees is ErrBrowserUnavailable.
//
// One Engine holds one proxy for its whole lifetime (rotation means
// constructing a new Engine); session accounts rotate round-robin per
// Instagram API attempt.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hazyhaar/reelwatch/rotate"
)

// ErrBrowserUnavailable signals that browser automation could not be
// initialised. Fatal for the current job only; callers must not treat it
// as "no data".
var ErrBrowserUnavailable = errors.New("scrape: browser unavailable")

// Platform identifies a supported short-video platform.
type Platform string

const (
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	VK        Platform = "vk"
)

// ParsePlatform validates a platform tag.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case Instagram, TikTok, YouTube, VK:
		return p, nil
	default:
		return "", fmt.Errorf("scrape: unknown platform %q", s)
	}
}

// Metrics is one engagement snapshot for a post.
type Metrics struct {
	Views      int64
	Likes      int64
	Comments   int64
	Shares     int64
	ObservedAt time.Time
}

// Scraper extracts metrics for one platform. A (nil, nil) return is the
// definitive "no data" outcome.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Metrics, error)
}

// Config configures an Engine.
type Config struct {
	// Proxy routes both the API client and the browser. Nil = direct.
	Proxy *rotate.Proxy

	// Accounts is the Instagram session-account pool. Nil or empty skips
	// the authenticated API strategy entirely.
	Accounts *rotate.Pool[*rotate.Account]

	// Timeout bounds every network call. Default: 20s.
	Timeout time.Duration

	// Settle times: how long a page gets to render before metric probing.
	SettleTikTok  time.Duration // default 5s
	SettleYouTube time.Duration // default 3s
	SettleVK      time.Duration // default 4s

	Browser BrowserConfig

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.SettleTikTok <= 0 {
		c.SettleTikTok = 5 * time.Second
	}
	if c.SettleYouTube <= 0 {
		c.SettleYouTube = 3 * time.Second
	}
	if c.SettleVK <= 0 {
		c.SettleVK = 4 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine owns the shared scraping collaborators: the browser, the Instagram
// API client, the account pool. Construct one per worker.
type Engine struct {
	cfg     Config
	browser *Browser
	api     *resty.Client
	logger  *slog.Logger
}

// NewEngine creates an Engine. The browser is launched lazily on the first
// page-based scrape, so API-only paths never pay the Chrome startup cost.
func NewEngine(cfg Config) *Engine {
	cfg.defaults()

	bcfg := cfg.Browser
	bcfg.Proxy = cfg.Proxy
	if bcfg.Logger == nil {
		bcfg.Logger = cfg.Logger
	}

	api := resty.New().SetTimeout(cfg.Timeout)
	if cfg.Proxy != nil {
		api.SetProxy(cfg.Proxy.URL())
	}

	return &Engine{
		cfg:     cfg,
		browser: NewBrowser(bcfg),
		api:     api,
		logger:  cfg.Logger,
	}
}

// Scraper returns the strategy implementation for a platform.
func (e *Engine) Scraper(p Platform) (Scraper, error) {
	switch p {
	case Instagram:
		return &instagramScraper{e}, nil
	case TikTok:
		return &tiktokScraper{e}, nil
	case YouTube:
		return &youtubeScraper{e}, nil
	case VK:
		return &vkScraper{e}, nil
	default:
		return nil, fmt.Errorf("scrape: unknown platform %q", p)
	}
}

// Scrape dispatches to the platform strategy. Shorthand over Scraper.
func (e *Engine) Scrape(ctx context.Context, p Platform, url string) (*Metrics, error) {
	s, err := e.Scraper(p)
	if err != nil {
		return nil, err
	}
	return s.Scrape(ctx, url)
}

// Close releases the browser if it was ever started.
func (e *Engine) Close() {
	e.browser.Close()
}

// settle waits a fixed render delay, honouring cancellation.
func settle(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recoverNoData converts a recovered panic into the no-data outcome. Rod
// panics on some CDP edge cases even outside the Must API; a scrape must
// never take the worker loop down with it.
func recoverNoData(logger *slog.Logger, platform Platform, m **Metrics, err *error) {
	if r := recover(); r != nil {
		logger.Error("scrape: recovered panic", "platform", platform, "panic", r)
		*m, *err = nil, nil
	}
}
