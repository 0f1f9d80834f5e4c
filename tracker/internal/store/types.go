package store

// JobStatus is the parse-job state machine. Transitions:
// pending -> running -> completed | failed. Terminal states are final.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// User is a tenant with tariff class and notification settings.
type User struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Tariff                 string `json:"tariff"`
	IsActive               bool   `json:"is_active"`
	TelegramEnabled        bool   `json:"telegram_enabled"`
	TelegramBotToken       string `json:"-"`
	TelegramChatID         string `json:"-"`
	TelegramNotifyComplete bool   `json:"telegram_notify_complete"`
	TelegramNotifyViral    bool   `json:"telegram_notify_viral"`
	TelegramThresholdViews int64  `json:"telegram_threshold_views"`
	CreatedAt              int64  `json:"created_at"`
}

// Reel is one tracked post with its denormalised current metrics.
type Reel struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Title        string `json:"title"`
	Platform     string `json:"platform"`
	URL          string `json:"url"`
	Enabled      bool   `json:"enabled"`
	Views        int64  `json:"views"`
	Likes        int64  `json:"likes"`
	Comments     int64  `json:"comments"`
	Shares       int64  `json:"shares"`
	LastParsedAt *int64 `json:"last_parsed_at,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// HistoryEntry is one append-only metrics snapshot.
type HistoryEntry struct {
	ID       string `json:"id"`
	ReelID   string `json:"reel_id"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
	ParsedAt int64  `json:"parsed_at"`
}

// ParseJob is one unit of scheduled scrape work for one reel.
type ParseJob struct {
	ID             string    `json:"id"`
	ReelID         string    `json:"reel_id"`
	UserID         string    `json:"user_id"`
	Status         JobStatus `json:"status"`
	Priority       int       `json:"priority"`
	CreatedAt      int64     `json:"created_at"`
	StartedAt      *int64    `json:"started_at,omitempty"`
	CompletedAt    *int64    `json:"completed_at,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ResultViews    *int64    `json:"result_views,omitempty"`
	ResultLikes    *int64    `json:"result_likes,omitempty"`
	ResultComments *int64    `json:"result_comments,omitempty"`
	ResultShares   *int64    `json:"result_shares,omitempty"`
}

// JobMetrics is the scrape result recorded with a completed job.
type JobMetrics struct {
	Views    int64
	Likes    int64
	Comments int64
	Shares   int64
}

// QueueStatus summarises a tenant's queue for the status endpoint.
type QueueStatus struct {
	PendingCount    int    `json:"pending"`
	RunningCount    int    `json:"running"`
	LastCompletedAt *int64 `json:"last_completed_at,omitempty"`
	IntervalMinutes int    `json:"parse_interval_minutes"`
	CanEnqueueNow   bool   `json:"can_enqueue_now"`
	NextAllowedAt   *int64 `json:"next_allowed_at,omitempty"`
}

// TenantReels pairs a tenant with its enabled-reel count, the scheduler's
// working set.
type TenantReels struct {
	User         *User
	EnabledReels int
}
