package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/issue-comb/app/retry"
)

func testPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestResolve(t *testing.T) {
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return []byte(atomDocument(3)), nil
	}

	resolver := NewResolver(fetch, newTestNormalizer(), testPolicy(3), 2)
	posts := resolver.Resolve(context.Background(), "https://example.com/feed")

	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got: %d", len(posts))
	}
	if posts[0].Link != "https://example.com/entry1" {
		t.Errorf("Expected link 'https://example.com/entry1', got: %s", posts[0].Link)
	}
}

func TestResolveRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		if calls.Add(1) < 3 {
			return nil, ErrFetch
		}
		return []byte(atomDocument(1)), nil
	}

	posts := NewResolver(fetch, newTestNormalizer(), testPolicy(3), 2).Resolve(context.Background(), "https://example.com/feed")

	if calls.Load() != 3 {
		t.Errorf("Expected 3 fetch calls, got: %d", calls.Load())
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post, got: %d", len(posts))
	}
}

func TestResolveDegradesToEmpty(t *testing.T) {
	var calls atomic.Int32
	failing := func(ctx context.Context, url string) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}

	posts := NewResolver(failing, newTestNormalizer(), testPolicy(3), 2).Resolve(context.Background(), "https://example.com/feed")
	if posts == nil || len(posts) != 0 {
		t.Errorf("Expected empty non-nil posts, got: %#v", posts)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 fetch calls, got: %d", calls.Load())
	}

	malformed := func(ctx context.Context, url string) ([]byte, error) {
		return []byte(`<rss version="2.0"><channel><item><title>x`), nil
	}
	posts = NewResolver(malformed, newTestNormalizer(), testPolicy(1), 2).Resolve(context.Background(), "https://example.com/broken")
	if len(posts) != 0 {
		t.Errorf("Expected no posts for malformed feed, got: %d", len(posts))
	}
}

func TestResolveConcurrentCallersShareResult(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, url string) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(atomDocument(1)), nil
	}

	resolver := NewResolver(fetch, newTestNormalizer(), testPolicy(1), 2)

	var wg sync.WaitGroup
	results := make([][]Post, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.Resolve(context.Background(), "https://example.com/shared")
		}(i)
	}

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() > 5 || calls.Load() < 1 {
		t.Errorf("Expected between 1 and 5 fetches, got: %d", calls.Load())
	}
	for i, posts := range results {
		if len(posts) != 1 {
			t.Errorf("Expected 1 post for caller %d, got: %d", i, len(posts))
		}
	}
}
