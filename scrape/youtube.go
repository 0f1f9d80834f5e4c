package scrape

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/reelwatch/metrictext"
)

var digitsRe = regexp.MustCompile(`\d+`)

type youtubeScraper struct{ e *Engine }

// Scrape extracts metrics from a YouTube Shorts page. YouTube exposes no
// share counter, so Shares is always 0.
func (s *youtubeScraper) Scrape(ctx context.Context, url string) (m *Metrics, err error) {
	defer recoverNoData(s.e.logger, YouTube, &m, &err)

	page, err := s.e.pageOrNoData(ctx, YouTube, url)
	if page == nil || err != nil {
		return nil, err
	}
	defer page.Close()

	if err := settle(ctx, s.e.cfg.SettleYouTube); err != nil {
		return nil, nil
	}

	m = &Metrics{
		Views:      youtubeViews(page),
		Likes:      youtubeLikes(page),
		Comments:   youtubeComments(page),
		ObservedAt: time.Now().UTC(),
	}
	s.e.logger.Info("scrape: youtube metrics", "url", url, "views", m.Views, "likes", m.Likes)
	return m, nil
}

// youtubeViews reads the view counter. The element text is "1.2M views",
// so only the leading token is parsed, and elements whose text does not
// mention views at all are skipped.
func youtubeViews(page *rod.Page) int64 {
	p := page.Sleeper(rod.NotFoundSleeper)
	for _, sel := range []string{"span.view-count", "yt-formatted-string.ytd-video-view-count-renderer"} {
		el, err := p.Element(sel)
		if err != nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(text), "view") {
			continue
		}
		if fields := strings.Fields(text); len(fields) > 0 {
			return metrictext.Parse(fields[0])
		}
	}
	return 0
}

// youtubeLikes reads the like button's aria-label, the only place the full
// count survives YouTube's compact rendering.
func youtubeLikes(page *rod.Page) int64 {
	el, err := page.Sleeper(rod.NotFoundSleeper).Element(`button[aria-label*="like"]`)
	if err != nil {
		return 0
	}
	label, err := el.Attribute("aria-label")
	if err != nil || label == nil {
		return 0
	}
	if digits := digitsRe.FindString(strings.ReplaceAll(*label, ",", "")); digits != "" {
		n, _ := strconv.ParseInt(digits, 10, 64)
		return n
	}
	return 0
}

func youtubeComments(page *rod.Page) int64 {
	el, err := page.Sleeper(rod.NotFoundSleeper).Element(`h2#count yt-formatted-string`)
	if err != nil {
		return 0
	}
	text, err := el.Text()
	if err != nil {
		return 0
	}
	if fields := strings.Fields(text); len(fields) > 0 {
		return metrictext.Parse(fields[0])
	}
	return 0
}
