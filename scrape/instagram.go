package scrape

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/reelwatch/rotate"
)

const igAppID = "936619743392459"

// igAPIBase is a var so tests can point the client at a stub server.
var igAPIBase = "https://i.instagram.com"

// shortcodeRe pulls the reel shortcode out of a canonical reel URL.
var shortcodeRe = regexp.MustCompile(`/reel/([^/?]+)`)

// Ordered regex lists per metric for the page-scrape fallback. The counters
// appear in several embedded JSON blobs depending on rollout; first match
// wins, and a metric already recovered by the API keeps its value.
var instagramPatterns = map[string][]*regexp.Regexp{
	"views": {
		regexp.MustCompile(`"video_view_count":(\d+)`),
		regexp.MustCompile(`"play_count":(\d+)`),
		regexp.MustCompile(`"view_count":(\d+)`),
	},
	"likes": {
		regexp.MustCompile(`"like_count":(\d+)`),
		regexp.MustCompile(`"edge_media_preview_like":\{"count":(\d+)`),
	},
	"comments": {
		regexp.MustCompile(`"comment_count":(\d+)`),
		regexp.MustCompile(`"edge_media_to_comment":\{"count":(\d+)`),
	},
}

// apiCookieNames are the only cookies forwarded to the private API.
var apiCookieNames = []string{"sessionid", "csrftoken", "ds_user_id", "rur", "mid"}

// browserCookieNames are the cookies injected into the page session.
var browserCookieNames = []string{"sessionid", "csrftoken", "ds_user_id", "mid", "ig_did", "rur"}

// igMediaInfo is the subset of the media info response this scraper reads.
type igMediaInfo struct {
	Items []struct {
		PlayCount    int64 `json:"play_count"`
		IgPlayCount  int64 `json:"ig_play_count"`
		ViewCount    int64 `json:"view_count"`
		LikeCount    int64 `json:"like_count"`
		CommentCount int64 `json:"comment_count"`
		ReshareCount int64 `json:"reshare_count"`
	} `json:"items"`
}

// shortcodeOnlyRe matches a bare shortcode stored in place of a full URL.
var shortcodeOnlyRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ShortcodeFromURL extracts the reel shortcode from a reel URL. A bare
// shortcode with no URL around it is accepted as-is.
func ShortcodeFromURL(url string) (string, error) {
	if m := shortcodeRe.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if shortcodeOnlyRe.MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("scrape: no reel shortcode in %q", url)
}

// shortcodeToMediaID converts a shortcode to the numeric media ID the
// private API addresses. Shortcodes are base-64 in Instagram's alphabet;
// eleven characters overflow int64, hence big.Int.
func shortcodeToMediaID(shortcode string) (string, error) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	id := new(big.Int)
	sixtyFour := big.NewInt(64)
	for _, c := range shortcode {
		idx := int64(-1)
		for i, a := range alphabet {
			if a == c {
				idx = int64(i)
				break
			}
		}
		if idx < 0 {
			return "", fmt.Errorf("scrape: invalid shortcode character %q", c)
		}
		id.Mul(id, sixtyFour)
		id.Add(id, big.NewInt(idx))
	}
	return id.String(), nil
}

type instagramScraper struct{ e *Engine }

// Scrape runs the Instagram strategy chain: authenticated private API
// first, page scrape with regex extraction second. A snapshot is accepted
// only when views or likes is nonzero; otherwise the outcome is no-data.
func (s *instagramScraper) Scrape(ctx context.Context, url string) (m *Metrics, err error) {
	defer recoverNoData(s.e.logger, Instagram, &m, &err)

	shortcode, err := ShortcodeFromURL(url)
	if err != nil {
		s.e.logger.Warn("scrape: instagram url rejected", "url", url, "error", err)
		return nil, nil
	}

	metrics := &Metrics{ObservedAt: time.Now().UTC()}

	// Strategy 1: private API with a rotated session account.
	account := s.nextAccount()
	if account != nil {
		if ok := s.tryAPI(ctx, shortcode, account, metrics); ok {
			s.e.logger.Info("scrape: instagram api metrics",
				"url", url, "views", metrics.Views, "likes", metrics.Likes)
			return metrics, nil
		}
	}

	// Strategy 2: page scrape. Partial API results survive; patterns only
	// fill metrics still at zero.
	if err := s.tryPage(ctx, shortcode, account, metrics); err != nil {
		return nil, err
	}

	if metrics.Views > 0 || metrics.Likes > 0 {
		s.e.logger.Info("scrape: instagram page metrics",
			"url", url, "views", metrics.Views, "likes", metrics.Likes)
		return metrics, nil
	}

	s.e.logger.Warn("scrape: instagram yielded no metrics", "url", url)
	return nil, nil
}

func (s *instagramScraper) nextAccount() *rotate.Account {
	if s.e.cfg.Accounts == nil {
		return nil
	}
	account, ok := s.e.cfg.Accounts.Next()
	if !ok {
		return nil
	}
	return account
}

// tryAPI fills metrics from the private media-info endpoint. Reports true
// only when the result passes the nonzero views/likes gate; any transport,
// auth or parse failure reports false and leaves the chain to fall through.
func (s *instagramScraper) tryAPI(ctx context.Context, shortcode string, account *rotate.Account, metrics *Metrics) bool {
	mediaID, err := shortcodeToMediaID(shortcode)
	if err != nil {
		s.e.logger.Warn("scrape: instagram shortcode rejected", "shortcode", shortcode, "error", err)
		return false
	}

	headers := map[string]string{
		"User-Agent":           "Instagram 275.0.0.27.98 Android (33/13; 420dpi; 1080x2400; samsung; SM-G991B; o1s; exynos2100)",
		"Accept":               "*/*",
		"Accept-Language":      "en-US,en;q=0.9",
		"X-IG-App-ID":          igAppID,
		"X-IG-Device-ID":       "android-1234567890",
		"X-IG-Connection-Type": "WIFI",
		"X-ASBD-ID":            "129477",
	}
	// Some session dumps carry auth material as pseudo-cookies; those map
	// onto request headers verbatim.
	for _, name := range []string{"Authorization", "X-IG-WWW-Claim", "X-MID", "IG-U-DS-USER-ID", "IG-U-RUR"} {
		if v, ok := account.Cookies[name]; ok {
			headers[name] = v
		}
	}

	var cookies []*http.Cookie
	for _, name := range apiCookieNames {
		if v, ok := account.Cookies[name]; ok {
			cookies = append(cookies, &http.Cookie{Name: name, Value: v})
		}
	}

	var info igMediaInfo
	resp, err := s.e.api.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetCookies(cookies).
		SetResult(&info).
		Get(fmt.Sprintf("%s/api/v1/media/%s/info/", igAPIBase, mediaID))
	if err != nil {
		s.e.logger.Warn("scrape: instagram api failed", "login", account.Login, "error", err)
		return false
	}
	if resp.StatusCode() != 200 || len(info.Items) == 0 {
		s.e.logger.Warn("scrape: instagram api rejected", "login", account.Login, "status", resp.StatusCode())
		return false
	}

	item := info.Items[0]
	views := item.PlayCount
	if views == 0 {
		views = item.IgPlayCount
	}
	if views == 0 {
		views = item.ViewCount
	}
	metrics.Views = views
	metrics.Likes = item.LikeCount
	metrics.Comments = item.CommentCount
	metrics.Shares = item.ReshareCount

	return metrics.Views > 0 || metrics.Likes > 0
}

// tryPage loads the reel through the browser, optionally with the session
// cookies injected, and fills any still-zero metric from the embedded JSON.
func (s *instagramScraper) tryPage(ctx context.Context, shortcode string, account *rotate.Account, metrics *Metrics) error {
	page, err := s.e.pageOrNoData(ctx, Instagram, "https://www.instagram.com/")
	if page == nil || err != nil {
		return err
	}
	defer page.Close()

	if err := settle(ctx, 2*time.Second); err != nil {
		return nil
	}

	if account != nil {
		var params []*proto.NetworkCookieParam
		for _, name := range browserCookieNames {
			if v, ok := account.Cookies[name]; ok {
				params = append(params, &proto.NetworkCookieParam{
					Name:   name,
					Value:  v,
					Domain: ".instagram.com",
					Path:   "/",
				})
			}
		}
		if len(params) > 0 {
			if err := page.SetCookies(params); err != nil {
				s.e.logger.Warn("scrape: instagram cookie injection failed", "error", err)
			}
		}
	}

	reelURL := fmt.Sprintf("https://www.instagram.com/reel/%s/", shortcode)
	navCtx, cancel := context.WithTimeout(ctx, s.e.browser.cfg.NavTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(reelURL); err != nil {
		s.e.logger.Warn("scrape: instagram reel navigation failed", "url", reelURL, "error", err)
		return nil
	}
	if err := settle(ctx, 5*time.Second); err != nil {
		return nil
	}

	html, err := page.HTML()
	if err != nil {
		s.e.logger.Warn("scrape: instagram page source unavailable", "error", err)
		return nil
	}

	fill := func(current *int64, patterns []*regexp.Regexp) {
		if *current > 0 {
			return
		}
		for _, re := range patterns {
			if m := re.FindStringSubmatch(html); m != nil {
				n, _ := strconv.ParseInt(m[1], 10, 64)
				*current = n
				return
			}
		}
	}
	fill(&metrics.Views, instagramPatterns["views"])
	fill(&metrics.Likes, instagramPatterns["likes"])
	fill(&metrics.Comments, instagramPatterns["comments"])

	return nil
}
