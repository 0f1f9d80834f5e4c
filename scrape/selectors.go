package scrape

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/reelwatch/metrictext"
)

// Selector lists per metric, first match wins. These chase the platforms'
// markup and are expected to rot; an empty probe result is an ordinary
// outcome, not an error.
var (
	tiktokSelectors = map[string][]string{
		"views":    {`[data-e2e="video-views"]`, `[data-e2e="browse-video-views"]`},
		"likes":    {`[data-e2e="like-count"]`, `[data-e2e="browse-like-count"]`},
		"comments": {`[data-e2e="comment-count"]`, `[data-e2e="browse-comment-count"]`},
		"shares":   {`[data-e2e="share-count"]`, `[data-e2e="browse-share-count"]`},
	}

	vkSelectors = map[string][]string{
		"views":    {`.VideoCard__views`, `.views_count`},
		"likes":    {`.VideoCard__likes`, `.like_count`},
		"comments": {`.VideoCard__comments`, `.comments_count`},
		"shares":   {`.VideoCard__shares`, `.share_count`},
	}
)

// probeText returns the text of the first element matched by the ordered
// selector list, without waiting for elements to appear.
func probeText(page *rod.Page, selectors []string) (string, bool) {
	p := page.Sleeper(rod.NotFoundSleeper)
	for _, sel := range selectors {
		el, err := p.Element(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		return strings.TrimSpace(text), true
	}
	return "", false
}

// probeMetric probes a selector list and normalises the matched text.
func probeMetric(page *rod.Page, selectors []string) int64 {
	text, ok := probeText(page, selectors)
	if !ok {
		return 0
	}
	return metrictext.Parse(text)
}

type tiktokScraper struct{ e *Engine }

func (s *tiktokScraper) Scrape(ctx context.Context, url string) (m *Metrics, err error) {
	defer recoverNoData(s.e.logger, TikTok, &m, &err)

	page, err := s.e.pageOrNoData(ctx, TikTok, url)
	if page == nil || err != nil {
		return nil, err
	}
	defer page.Close()

	if err := settle(ctx, s.e.cfg.SettleTikTok); err != nil {
		return nil, nil
	}

	m = &Metrics{
		Views:      probeMetric(page, tiktokSelectors["views"]),
		Likes:      probeMetric(page, tiktokSelectors["likes"]),
		Comments:   probeMetric(page, tiktokSelectors["comments"]),
		Shares:     probeMetric(page, tiktokSelectors["shares"]),
		ObservedAt: time.Now().UTC(),
	}
	s.e.logger.Info("scrape: tiktok metrics", "url", url, "views", m.Views, "likes", m.Likes)
	return m, nil
}

type vkScraper struct{ e *Engine }

func (s *vkScraper) Scrape(ctx context.Context, url string) (m *Metrics, err error) {
	defer recoverNoData(s.e.logger, VK, &m, &err)

	page, err := s.e.pageOrNoData(ctx, VK, url)
	if page == nil || err != nil {
		return nil, err
	}
	defer page.Close()

	if err := settle(ctx, s.e.cfg.SettleVK); err != nil {
		return nil, nil
	}

	m = &Metrics{
		Views:      probeMetric(page, vkSelectors["views"]),
		Likes:      probeMetric(page, vkSelectors["likes"]),
		Comments:   probeMetric(page, vkSelectors["comments"]),
		Shares:     probeMetric(page, vkSelectors["shares"]),
		ObservedAt: time.Now().UTC(),
	}
	s.e.logger.Info("scrape: vk metrics", "url", url, "views", m.Views, "likes", m.Likes)
	return m, nil
}

// pageOrNoData opens a navigated tab. Browser-unavailable propagates as a
// hard error; a plain navigation failure degrades to (nil, nil) no-data.
func (e *Engine) pageOrNoData(ctx context.Context, platform Platform, url string) (*rod.Page, error) {
	page, err := e.browser.Page(ctx, url)
	if err != nil {
		if errors.Is(err, ErrBrowserUnavailable) {
			return nil, err
		}
		e.logger.Warn("scrape: page load failed", "platform", platform, "url", url, "error", err)
		return nil, nil
	}
	return page, nil
}
