package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

var ErrInvalid = errors.New("invalid configuration")

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Feed resolution
	RetryAttempts   int    `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"3" description:"Attempts per feed fetch"`
	RetryInterval   int    `long:"retry-interval" env:"RETRY_INTERVAL_MS" default:"200" description:"Initial delay between fetch attempts in milliseconds"`
	FetchTimeout    int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"5" description:"Timeout of a single feed fetch attempt in seconds"`
	MaxPostsPerFeed int    `long:"max-posts" env:"MAX_POSTS_PER_FEED" default:"2" description:"Maximum number of posts written per feed"`
	DateFormat      string `long:"date-format" env:"DATE_FORMAT" default:"2006-01-02 15:04:05" description:"Go time layout used to render post timestamps"`

	// Processing
	ConcurrencyLimit int  `long:"concurrency" env:"CONCURRENCY_LIMIT" default:"10" description:"Maximum number of issues processed at once"`
	Interval         int  `long:"interval" env:"RUN_INTERVAL" default:"0" description:"Seconds between runs (0 runs once and exits)"`
	DryRun           bool `long:"dry-run" env:"DRY_RUN" description:"Log rewritten issue bodies instead of saving them"`

	// Issue store
	Store      string `long:"store" env:"ISSUE_STORE" default:"sqlite" choice:"sqlite" choice:"yaml" description:"Issue store backend"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./issue-comb.db" description:"SQLite database file"`
	IssuesFile string `long:"issues-file" env:"ISSUES_FILE" default:"./issues.yml" description:"YAML issues file"`

	// API
	Port         string `long:"port" env:"PORT" description:"HTTP API port (API disabled when empty)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Issue Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for rendered timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses command-line arguments and environment variables.
// It returns (nil, nil) when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		RetryAttempts:    raw.RetryAttempts,
		RetryInterval:    time.Duration(raw.RetryInterval) * time.Millisecond,
		FetchTimeout:     time.Duration(raw.FetchTimeout) * time.Second,
		MaxPostsPerFeed:  raw.MaxPostsPerFeed,
		DateFormat:       raw.DateFormat,
		ConcurrencyLimit: raw.ConcurrencyLimit,
		Interval:         time.Duration(raw.Interval) * time.Second,
		DryRun:           raw.DryRun,
		Store:            raw.Store,
		DBPath:           raw.DBPath,
		IssuesFile:       raw.IssuesFile,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges and resolves the timezone into Location.
func (c *Cfg) Validate() error {
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1, got %d", ErrInvalid, c.RetryAttempts)
	}
	if c.MaxPostsPerFeed < 0 {
		return fmt.Errorf("%w: max posts must be non-negative, got %d", ErrInvalid, c.MaxPostsPerFeed)
	}
	if c.ConcurrencyLimit < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalid, c.ConcurrencyLimit)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalid)
	}
	if c.RetryInterval < 0 || c.Interval < 0 {
		return fmt.Errorf("%w: intervals must be non-negative", ErrInvalid)
	}
	if c.DateFormat == "" {
		return fmt.Errorf("%w: date format is required", ErrInvalid)
	}

	switch c.Store {
	case StoreSQLite, StoreYAML:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}

	loc, err := time.LoadLocation(cmp.Or(c.Timezone, "UTC"))
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalid, c.Timezone, err)
	}
	c.Location = loc

	return nil
}
