// Package tariff defines the tenant service classes that drive scheduling.
package tariff

import "time"

// Tariff is one service class. MaxReels <= 0 means unlimited.
type Tariff struct {
	Name          string        `yaml:"-"`
	MaxReels      int           `yaml:"max_reels"`
	ParseInterval time.Duration `yaml:"parse_interval"`
	Priority      int           `yaml:"priority"`
}

// Plans maps tariff names to their definitions.
type Plans map[string]Tariff

const (
	Free = "free"
	Pro  = "pro"
)

// Defaults returns the built-in plans: free tenants track up to 3 reels
// parsed hourly at baseline priority, pro tenants are unlimited, parsed
// every 15 minutes ahead of free jobs.
func Defaults() Plans {
	return Plans{
		Free: {Name: Free, MaxReels: 3, ParseInterval: time.Hour, Priority: 0},
		Pro:  {Name: Pro, MaxReels: 0, ParseInterval: 15 * time.Minute, Priority: 10},
	}
}

// Resolve returns the plan for name, falling back to free for unknown names.
func (p Plans) Resolve(name string) Tariff {
	if t, ok := p[name]; ok {
		return t
	}
	return p[Free]
}

// AllowsReelCount reports whether a tenant on this tariff may track one
// more reel given its current count.
func (t Tariff) AllowsReelCount(current int) bool {
	return t.MaxReels <= 0 || current < t.MaxReels
}
