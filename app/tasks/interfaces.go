package tasks

import (
	"context"

	"github.com/lysyi3m/issue-comb/app/feed"
)

// PostResolver resolves a feed URL into posts. Implementations degrade to an
// empty list instead of failing.
type PostResolver interface {
	Resolve(ctx context.Context, url string) []feed.Post
}

// SchedulerInterface is what the main application and the API need from the scheduler.
// Example usage:
//
//	scheduler := NewScheduler(issueRepo, resolver, NewPool(limit), interval, dryRun)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger()
type SchedulerInterface interface {
	Start()
	Stop()
	RunOnce(ctx context.Context) (*RunSummary, error)
	Trigger() bool
	LastRun() *RunSummary
}
