// CLAUDE:SUMMARY Entry point for the reelwatch tracker — config, sqlite, scheduler, worker pool, chi HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/reelwatch/dbopen"
	"github.com/hazyhaar/reelwatch/notify"
	"github.com/hazyhaar/reelwatch/rotate"
	"github.com/hazyhaar/reelwatch/scrape"
	"github.com/hazyhaar/reelwatch/tracker"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", env("REELWATCH_CONFIG", ""), "path to YAML config")
	flag.Parse()

	logLevel := env("LOG_LEVEL", "info")
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := tracker.LoadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll(), dbopen.WithSchema(tracker.Schema))
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := tracker.NewService(db, cfg.Plans(), logger)

	// Jobs orphaned by a previous crash go back to pending before any
	// worker starts.
	if n, err := svc.RecoverStuckJobs(ctx, cfg.Workers.StuckThreshold); err != nil {
		slog.Error("recover stuck jobs", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Warn("recovered stuck jobs from previous run", "count", n)
	}

	engine := buildEngine(cfg, logger)
	defer engine.Close()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.RunScheduler(ctx, cfg.Scheduler.Tick)
	}()

	tg := notify.NewTelegram(notify.WithLogger(logger))
	for i := 0; i < cfg.Workers.Count; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.RunWorker(ctx, engine, tg, cfg.Workers.Poll, cfg.Workers.JobTimeout,
				logger.With("worker", i))
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("reelwatch listening", "addr", cfg.Listen, "workers", cfg.Workers.Count)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	wg.Wait()
	slog.Info("reelwatch stopped")
}

// buildEngine assembles the scrape engine from the configured proxy and
// account files. Both are optional; an empty pool means direct connections
// and browser-only Instagram scraping.
func buildEngine(cfg *tracker.Config, logger *slog.Logger) *scrape.Engine {
	var proxy *rotate.Proxy
	if cfg.Scrape.ProxiesFile != "" {
		pool, err := loadProxies(cfg.Scrape.ProxiesFile)
		if err != nil {
			slog.Warn("proxies file unusable, running direct", "path", cfg.Scrape.ProxiesFile, "error", err)
		} else if p, ok := pool.Random(); ok {
			proxy = p
			slog.Info("proxy selected", "addr", p.Addr())
		}
	}

	var accounts *rotate.Pool[*rotate.Account]
	if cfg.Scrape.AccountsFile != "" {
		f, err := os.Open(cfg.Scrape.AccountsFile)
		if err != nil {
			slog.Warn("accounts file unusable, skipping API strategy", "path", cfg.Scrape.AccountsFile, "error", err)
		} else {
			list, err := rotate.ParseAccounts(f)
			f.Close()
			if err != nil {
				slog.Warn("accounts file unusable, skipping API strategy", "path", cfg.Scrape.AccountsFile, "error", err)
			} else if len(list) > 0 {
				accounts = rotate.NewPool(list)
				slog.Info("instagram accounts loaded", "count", len(list))
			}
		}
	}

	return scrape.NewEngine(scrape.Config{
		Proxy:    proxy,
		Accounts: accounts,
		Browser:  scrape.BrowserConfig{RemoteURL: cfg.Scrape.BrowserRemote, Proxy: proxy, Logger: logger},
		Logger:   logger,
	})
}

// loadProxies reads host:port[:user:pass] lines into a pool. Lines that do
// not parse are skipped.
func loadProxies(path string) (*rotate.Pool[*rotate.Proxy], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var proxies []*rotate.Proxy
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p, err := rotate.ParseProxy(line)
		if err != nil {
			continue
		}
		proxies = append(proxies, &p)
	}
	if len(proxies) == 0 {
		return nil, errors.New("no valid proxies")
	}
	return rotate.NewPool(proxies), nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
