// Package notify delivers Telegram messages about scrape results. Delivery
// is best effort: failures are logged and never propagate into the job
// state machine.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultAPIBase is the Telegram Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Bot API.
type Telegram struct {
	client  *resty.Client
	apiBase string
	logger  *slog.Logger
}

// Option customises the Telegram sender.
type Option func(*Telegram)

// WithAPIBase overrides the Bot API base URL.
func WithAPIBase(base string) Option {
	return func(t *Telegram) { t.apiBase = base }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Telegram) { t.logger = l }
}

// NewTelegram creates a sender with a 10 second request timeout.
func NewTelegram(opts ...Option) *Telegram {
	t := &Telegram{
		client:  resty.New().SetTimeout(10 * time.Second),
		apiBase: DefaultAPIBase,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Send delivers one HTML-formatted message to a chat. Reports whether the
// message was accepted; it never returns an error.
func (t *Telegram) Send(ctx context.Context, botToken, chatID, text string) bool {
	if botToken == "" || chatID == "" {
		return false
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    chatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, botToken))
	if err != nil {
		t.logger.Warn("telegram send failed", "chat_id", chatID, "error", err)
		return false
	}
	if resp.IsError() {
		t.logger.Warn("telegram send rejected",
			"chat_id", chatID, "status", resp.StatusCode())
		return false
	}
	return true
}

// ParseComplete formats the message sent when a reel's metrics update.
// growth is the view delta since the previous snapshot; non-positive values
// are omitted.
func ParseComplete(title, url string, views, likes, comments, shares, growth int64) string {
	viewsLine := fmt.Sprintf("👁 %d views", views)
	if growth > 0 {
		viewsLine += fmt.Sprintf(" (+%d)", growth)
	}
	return fmt.Sprintf(
		"✅ <b>%s</b>\n%s\n❤️ %d likes\n💬 %d comments\n🔄 %d shares\n%s",
		title, viewsLine, likes, comments, shares, url)
}

// ViralAlert formats the message sent when a reel's view growth over one
// parse cycle exceeds the tenant's threshold.
func ViralAlert(title, url string, growth int64) string {
	return fmt.Sprintf(
		"🔥 <b>%s</b> is going viral!\n+%d views this cycle\n%s",
		title, growth, url)
}
