package cfg

import "time"

type Cfg struct {
	// Feed resolution
	RetryAttempts   int
	RetryInterval   time.Duration
	FetchTimeout    time.Duration
	MaxPostsPerFeed int
	DateFormat      string
	Location        *time.Location

	// Processing
	ConcurrencyLimit int
	Interval         time.Duration
	DryRun           bool

	// Issue store
	Store      string
	DBPath     string
	IssuesFile string

	// API
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

const (
	StoreSQLite = "sqlite"
	StoreYAML   = "yaml"
)

// OneShot reports whether the worker should exit after a single run.
func (c *Cfg) OneShot() bool {
	return c.Interval <= 0 && c.Port == ""
}
