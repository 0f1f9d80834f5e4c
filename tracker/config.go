// Package tracker wires the engagement-metrics service: storage, scheduler,
// worker pool, platform scrapers, and the HTTP surface.
package tracker

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/reelwatch/tracker/internal/tariff"
)

// Config is the top-level service configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Workers   WorkerConfig    `yaml:"workers"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Tariffs   TariffsConfig   `yaml:"tariffs"`
}

// SchedulerConfig controls the enqueue loop.
type SchedulerConfig struct {
	Tick time.Duration `yaml:"tick"`
}

// WorkerConfig controls the worker pool.
type WorkerConfig struct {
	Count          int           `yaml:"count"`
	Poll           time.Duration `yaml:"poll"`
	JobTimeout     time.Duration `yaml:"job_timeout"`
	StuckThreshold time.Duration `yaml:"stuck_threshold"`
}

// ScrapeConfig points at the scraping resources.
type ScrapeConfig struct {
	ProxiesFile   string `yaml:"proxies_file"`
	AccountsFile  string `yaml:"accounts_file"`
	BrowserRemote string `yaml:"browser_remote"`
}

// TariffConfig overrides one plan. Zero fields keep the built-in value.
type TariffConfig struct {
	MaxReels      *int           `yaml:"max_reels"`
	ParseInterval *time.Duration `yaml:"parse_interval"`
	Priority      *int           `yaml:"priority"`
}

// TariffsConfig maps plan names to overrides.
type TariffsConfig map[string]TariffConfig

// LoadConfig reads a YAML configuration file and applies defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "reelwatch.db"
	}
	if c.Scheduler.Tick <= 0 {
		c.Scheduler.Tick = 30 * time.Second
	}
	if c.Workers.Count <= 0 {
		c.Workers.Count = 2
	}
	if c.Workers.Poll <= 0 {
		c.Workers.Poll = 5 * time.Second
	}
	if c.Workers.JobTimeout <= 0 {
		c.Workers.JobTimeout = 2 * time.Minute
	}
	if c.Workers.StuckThreshold <= 0 {
		c.Workers.StuckThreshold = 10 * time.Minute
	}
}

// Plans resolves the effective tariff table: built-in defaults overlaid with
// the config's per-plan overrides.
func (c *Config) Plans() tariff.Plans {
	plans := tariff.Defaults()
	for name, over := range c.Tariffs {
		plan, ok := plans[name]
		if !ok {
			plan = tariff.Tariff{Name: name}
		}
		if over.MaxReels != nil {
			plan.MaxReels = *over.MaxReels
		}
		if over.ParseInterval != nil {
			plan.ParseInterval = *over.ParseInterval
		}
		if over.Priority != nil {
			plan.Priority = *over.Priority
		}
		plans[name] = plan
	}
	return plans
}
