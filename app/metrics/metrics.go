package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issue_comb_feed_fetch_attempts_total",
		Help: "The total number of feed fetch attempts, retries included",
	})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issue_comb_feed_failures_total",
		Help: "Feeds that resolved to no posts because of a fetch or parse failure",
	}, []string{"reason"})

	PostsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issue_comb_posts_resolved_total",
		Help: "The total number of posts extracted from feeds",
	})

	TaskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "issue_comb_issue_tasks_total",
		Help: "Issue tasks by outcome",
	}, []string{"outcome"})

	PoolRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "issue_comb_pool_running_tasks",
		Help: "The current number of running pool tasks",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "issue_comb_run_duration_seconds",
		Help:    "Duration of a full pass over all issues",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms .. ~3.4m
	})
)
