package feed

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/issue-comb/app/metrics"
	"github.com/lysyi3m/issue-comb/app/retry"
	"golang.org/x/sync/singleflight"
)

// FetchFunc fetches the raw document behind a feed URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Resolver turns a feed URL into posts. It never fails: fetch and parse
// errors are logged and resolve to an empty list.
type Resolver struct {
	fetch      FetchFunc
	normalizer *Normalizer
	policy     retry.Policy
	maxPosts   int
	group      singleflight.Group
}

func NewResolver(fetch FetchFunc, normalizer *Normalizer, policy retry.Policy, maxPosts int) *Resolver {
	return &Resolver{
		fetch:      fetch,
		normalizer: normalizer,
		policy:     policy,
		maxPosts:   maxPosts,
	}
}

func (r *Resolver) Resolve(ctx context.Context, url string) []Post {
	v, _, _ := r.group.Do(url, func() (any, error) {
		return r.resolve(ctx, url), nil
	})
	return v.([]Post)
}

func (r *Resolver) resolve(ctx context.Context, url string) []Post {
	data, err := retry.Do(ctx, r.policy, func(ctx context.Context) ([]byte, error) {
		metrics.FetchAttempts.Inc()
		return r.fetch(ctx, url)
	})
	if err != nil {
		metrics.FetchFailures.WithLabelValues("fetch").Inc()
		slog.Warn("Failed to fetch feed", "url", url, "attempts", r.policy.Attempts, "error", err)
		return []Post{}
	}

	posts, err := r.normalizer.Run(data, r.maxPosts)
	if err != nil {
		metrics.FetchFailures.WithLabelValues("parse").Inc()
		slog.Warn("Failed to parse feed", "url", url, "error", err)
		return []Post{}
	}

	metrics.PostsResolved.Add(float64(len(posts)))
	slog.Debug("Feed resolved", "url", url, "dialect", DetectDialect(data).String(), "posts", len(posts))

	return posts
}
