package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/reelwatch/dbopen"
	"github.com/hazyhaar/reelwatch/notify"
	"github.com/hazyhaar/reelwatch/scrape"
	"github.com/hazyhaar/reelwatch/tracker/internal/store"

	_ "modernc.org/sqlite"
)

// fakeScrapers returns canned outcomes per URL.
type fakeScrapers struct {
	metrics map[string]*scrape.Metrics
	errs    map[string]error
	panics  map[string]string
}

func (f *fakeScrapers) Scrape(ctx context.Context, p scrape.Platform, url string) (*scrape.Metrics, error) {
	if msg, ok := f.panics[url]; ok {
		panic(msg)
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.metrics[url], nil
}

type sentMessage struct {
	chatID string
	text   string
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) Send(ctx context.Context, botToken, chatID, text string) bool {
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return true
}

func testWorker(t *testing.T, sc Scrapers, n Notifier) (*Worker, *store.Store) {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := store.NewStore(db)
	w := New(st, sc, Config{
		Notifier: n,
		Messages: Messages{
			ParseComplete: notify.ParseComplete,
			ViralAlert:    notify.ViralAlert,
		},
	})
	return w, st
}

func seedJob(t *testing.T, st *store.Store, platform, url string, u *store.User) (*store.Reel, *store.ParseJob) {
	t.Helper()
	ctx := context.Background()
	if u == nil {
		u = &store.User{ID: "u-1", Email: "u@example.com", IsActive: true}
	}
	if existing, _ := st.GetUser(ctx, u.ID); existing == nil {
		if err := st.InsertUser(ctx, u); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	r := &store.Reel{UserID: u.ID, Title: "My Reel", Platform: platform, URL: url, Enabled: true}
	if err := st.InsertReel(ctx, r); err != nil {
		t.Fatalf("insert reel: %v", err)
	}
	if _, _, err := st.EnqueueJob(ctx, r.ID, u.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	j, err := st.ClaimNextJob(ctx)
	if err != nil || j == nil {
		t.Fatalf("claim: %v %v", j, err)
	}
	return r, j
}

func TestProcessJobSuccess(t *testing.T) {
	// WHAT: A successful scrape updates the reel, appends history, and
	// completes the job with the result metrics.
	// WHY: This is the whole point of the pipeline.
	url := "https://instagram.com/reel/AAA/"
	sc := &fakeScrapers{metrics: map[string]*scrape.Metrics{
		url: {Views: 1200, Likes: 80, Comments: 5, Shares: 2},
	}}
	w, st := testWorker(t, sc, nil)
	ctx := context.Background()
	r, j := seedJob(t, st, "instagram", url, nil)

	w.ProcessJob(ctx, j)

	got, _ := st.GetJob(ctx, j.ID)
	if got.Status != store.JobCompleted {
		t.Fatalf("status: got %s, want completed (%s)", got.Status, got.ErrorMessage)
	}
	if got.ResultViews == nil || *got.ResultViews != 1200 {
		t.Errorf("result views not recorded: %+v", got)
	}

	reel, _ := st.GetReel(ctx, r.ID)
	if reel.Views != 1200 || reel.Likes != 80 {
		t.Errorf("reel metrics not updated: %+v", reel)
	}
	if reel.LastParsedAt == nil {
		t.Error("last_parsed_at not stamped")
	}

	hist, _ := st.ReelHistory(ctx, r.ID, 0)
	if len(hist) != 1 || hist[0].Views != 1200 {
		t.Errorf("history not appended: %+v", hist)
	}
}

func TestProcessJobAllZeroIsData(t *testing.T) {
	// WHAT: A scrape returning all-zero metrics still completes the job.
	// WHY: Zero engagement is a real observation, distinct from no data.
	url := "https://vk.com/clip-1_2"
	sc := &fakeScrapers{metrics: map[string]*scrape.Metrics{url: {}}}
	w, st := testWorker(t, sc, nil)
	ctx := context.Background()
	_, j := seedJob(t, st, "vk", url, nil)

	w.ProcessJob(ctx, j)

	got, _ := st.GetJob(ctx, j.ID)
	if got.Status != store.JobCompleted {
		t.Errorf("status: got %s, want completed", got.Status)
	}
}

func TestProcessJobNoData(t *testing.T) {
	// WHAT: A nil-metrics scrape fails the job with "no metrics extracted".
	// WHY: The strategy chain exhausted every source; the job must not
	// complete with fabricated zeros.
	url := "https://instagram.com/reel/GONE/"
	sc := &fakeScrapers{}
	w, st := testWorker(t, sc, nil)
	ctx := context.Background()
	r, j := seedJob(t, st, "instagram", url, nil)

	w.ProcessJob(ctx, j)

	got, _ := st.GetJob(ctx, j.ID)
	if got.Status != store.JobFailed {
		t.Fatalf("status: got %s, want failed", got.Status)
	}
	if got.ErrorMessage != "no metrics extracted" {
		t.Errorf("error message: got %q", got.ErrorMessage)
	}

	hist, _ := st.ReelHistory(ctx, r.ID, 0)
	if len(hist) != 0 {
		t.Errorf("no-data scrape must not append history: %+v", hist)
	}
}

func TestProcessJobScrapeError(t *testing.T) {
	// WHAT: A scraper error fails the job and records the message.
	url := "https://tiktok.com/@x/video/1"
	sc := &fakeScrapers{errs: map[string]error{url: errors.New("tab crashed")}}
	w, st := testWorker(t, sc, nil)
	ctx := context.Background()
	_, j := seedJob(t, st, "tiktok", url, nil)

	w.ProcessJob(ctx, j)

	got, _ := st.GetJob(ctx, j.ID)
	if got.Status != store.JobFailed || !strings.Contains(got.ErrorMessage, "tab crashed") {
		t.Errorf("got %s %q", got.Status, got.ErrorMessage)
	}
}

func TestProcessJobReelDeleted(t *testing.T) {
	// WHAT: A job whose reel vanished fails with "reel not found".
	// WHY: Jobs may outlive their reel's deletion.
	sc := &fakeScrapers{}
	w, st := testWorker(t, sc, nil)
	ctx := context.Background()
	r, j := seedJob(t, st, "instagram", "https://instagram.com/reel/AAA/", nil)

	// Cascade would remove the job too, so orphan it directly.
	if _, err := st.DB.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if _, err := st.DB.Exec(`DELETE FROM reels WHERE id = ?`, r.ID); err != nil {
		t.Fatalf("delete reel: %v", err)
	}

	w.ProcessJob(ctx, j)

	got, _ := st.GetJob(ctx, j.ID)
	if got.Status != store.JobFailed || got.ErrorMessage != "reel not found" {
		t.Errorf("got %s %q", got.Status, got.ErrorMessage)
	}
}

func TestProcessJobPanicFailsJob(t *testing.T) {
	// WHAT: A panic inside the scrape path ends in a failed job, not a
	// crashed worker.
	// WHY: The queue must never wedge on a RUNNING job nobody owns.
	url := "https://youtube.com/shorts/abc"
	sc := &fakeScrapers{panics: map[string]string{url: "selector walked off a nil page"}}
	w, st := testWorker(t, sc, nil)
	ctx := context.Background()
	_, j := seedJob(t, st, "youtube", url, nil)

	w.ProcessJob(ctx, j)

	got, _ := st.GetJob(ctx, j.ID)
	if got.Status != store.JobFailed || !strings.Contains(got.ErrorMessage, "panic") {
		t.Errorf("got %s %q", got.Status, got.ErrorMessage)
	}
}

func TestNotifyCompleteAndViral(t *testing.T) {
	// WHAT: With telegram enabled, completion sends one message; view growth
	// over the cycle exceeding the viral threshold sends a second.
	url := "https://instagram.com/reel/AAA/"
	sc := &fakeScrapers{metrics: map[string]*scrape.Metrics{
		url: {Views: 15000, Likes: 900, Comments: 40},
	}}
	n := &fakeNotifier{}
	w, st := testWorker(t, sc, n)
	ctx := context.Background()

	u := &store.User{
		ID: "u-tg", Email: "tg@example.com", IsActive: true,
		TelegramEnabled: true, TelegramBotToken: "tok", TelegramChatID: "42",
		TelegramNotifyComplete: true, TelegramNotifyViral: true,
		TelegramThresholdViews: 10000,
	}
	r, j := seedJob(t, st, "instagram", url, u)

	// Previous snapshot at 2000 views, so this cycle grows by 13000.
	h := &store.HistoryEntry{ReelID: r.ID, Views: 2000}
	if err := st.InsertHistory(ctx, h); err != nil {
		t.Fatalf("insert history: %v", err)
	}

	w.ProcessJob(ctx, j)

	if len(n.sent) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(n.sent), n.sent)
	}
	if !strings.Contains(n.sent[0].text, "15000 views (+13000)") {
		t.Errorf("complete message: %q", n.sent[0].text)
	}
	if !strings.Contains(n.sent[1].text, "+13000 views") {
		t.Errorf("viral message: %q", n.sent[1].text)
	}
}

func TestViralAlertRequiresGrowthAboveThreshold(t *testing.T) {
	// WHAT: A reel whose views grew less than the threshold this cycle does
	// not alert, no matter how high the absolute count is.
	// WHY: The alert signals a growth spike, not a popular reel.
	url := "https://instagram.com/reel/AAA/"
	sc := &fakeScrapers{metrics: map[string]*scrape.Metrics{
		url: {Views: 16000},
	}}
	n := &fakeNotifier{}
	w, st := testWorker(t, sc, n)
	ctx := context.Background()

	u := &store.User{
		ID: "u-tg", Email: "tg@example.com", IsActive: true,
		TelegramEnabled: true, TelegramBotToken: "tok", TelegramChatID: "42",
		TelegramNotifyViral: true, TelegramThresholdViews: 10000,
	}
	r, j := seedJob(t, st, "instagram", url, u)

	// Prior snapshot at 15000: only 1000 new views this cycle.
	h := &store.HistoryEntry{ReelID: r.ID, Views: 15000}
	if err := st.InsertHistory(ctx, h); err != nil {
		t.Fatalf("insert history: %v", err)
	}

	w.ProcessJob(ctx, j)

	for _, m := range n.sent {
		if strings.Contains(m.text, "viral") {
			t.Errorf("viral alert fired on slow growth: %q", m.text)
		}
	}
}

func TestViralAlertSkipsFirstScrape(t *testing.T) {
	// WHAT: A reel with no previous snapshot never alerts, even when its
	// first measured view count dwarfs the threshold.
	url := "https://instagram.com/reel/AAA/"
	sc := &fakeScrapers{metrics: map[string]*scrape.Metrics{
		url: {Views: 500000},
	}}
	n := &fakeNotifier{}
	w, st := testWorker(t, sc, n)

	u := &store.User{
		ID: "u-tg", Email: "tg@example.com", IsActive: true,
		TelegramEnabled: true, TelegramBotToken: "tok", TelegramChatID: "42",
		TelegramNotifyViral: true, TelegramThresholdViews: 10000,
	}
	_, j := seedJob(t, st, "instagram", url, u)

	w.ProcessJob(context.Background(), j)

	if len(n.sent) != 0 {
		t.Errorf("no alert expected on first scrape, got %+v", n.sent)
	}
}

func TestNotifyDisabled(t *testing.T) {
	// WHAT: Tenants without telegram enabled get nothing.
	url := "https://instagram.com/reel/AAA/"
	sc := &fakeScrapers{metrics: map[string]*scrape.Metrics{url: {Views: 99999}}}
	n := &fakeNotifier{}
	w, st := testWorker(t, sc, n)
	_, j := seedJob(t, st, "instagram", url, nil)

	w.ProcessJob(context.Background(), j)

	if len(n.sent) != 0 {
		t.Errorf("got %d messages, want 0", len(n.sent))
	}
}
