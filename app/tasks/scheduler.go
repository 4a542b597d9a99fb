package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/issue-comb/app/database"
	"github.com/lysyi3m/issue-comb/app/metrics"
	"github.com/samber/lo"
)

// ErrListIssues means the issue store could not be read; nothing was processed.
var ErrListIssues = errors.New("failed to list issues")

var _ SchedulerInterface = (*Scheduler)(nil)

// RunSummary is the result of one pass over all issues.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	DryRun     bool      `json:"dry_run"`
}

func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

type Scheduler struct {
	issueRepo database.IssueRepository
	resolver  PostResolver
	pool      *Pool
	interval  time.Duration
	dryRun    bool

	runMu   sync.Mutex // one pass at a time
	mu      sync.RWMutex
	lastRun *RunSummary

	trigger chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(issueRepo database.IssueRepository, resolver PostResolver, pool *Pool, interval time.Duration, dryRun bool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		issueRepo: issueRepo,
		resolver:  resolver,
		pool:      pool,
		interval:  interval,
		dryRun:    dryRun,
		trigger:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RunOnce submits one task per issue to the pool and waits for all of them.
// Individual task failures are counted, never returned.
func (s *Scheduler) RunOnce(ctx context.Context) (*RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	summary := &RunSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		DryRun:    s.dryRun,
	}

	issues, err := s.issueRepo.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListIssues, err)
	}

	slog.Debug("Processing issues", "run", summary.ID, "count", len(issues), "concurrency", s.pool.Limit())

	tasks := make([]*ResolveIssueTask, len(issues))
	results := make([]<-chan error, len(issues))
	for i, issue := range issues {
		tasks[i] = NewResolveIssueTask(issue, s.resolver, s.issueRepo, s.dryRun)
		results[i] = s.pool.Go(ctx, tasks[i].Execute)
	}

	outcomes := make([]Outcome, len(tasks))
	for i, done := range results {
		task := tasks[i]

		if err := <-done; err != nil {
			outcomes[i] = OutcomeFailed
			slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "issue", task.GetIssueID(), "error", err)
		} else {
			outcomes[i] = task.GetOutcome()
		}

		metrics.TaskOutcomes.WithLabelValues(string(outcomes[i])).Inc()
	}

	counts := lo.CountValues(outcomes)
	summary.Total = len(issues)
	summary.Updated = counts[OutcomeUpdated]
	summary.Unchanged = counts[OutcomeUnchanged]
	summary.Skipped = counts[OutcomeSkipped]
	summary.Failed = counts[OutcomeFailed]
	summary.FinishedAt = time.Now().UTC()

	metrics.RunDuration.Observe(summary.Duration().Seconds())

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	slog.Info("Run completed",
		"run", summary.ID,
		"total", summary.Total,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", summary.Duration())

	return summary, nil
}

// Start runs a pass immediately, then on every tick and on every Trigger.
// With a zero interval only triggered passes follow the first one.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var tick <-chan time.Time
		if s.interval > 0 {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		s.run()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-tick:
				s.run()
			case <-s.trigger:
				s.run()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.pool.Wait()
}

// Trigger requests an extra pass. It reports false when one is already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) LastRun() *RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRun == nil {
		return nil
	}
	summary := *s.lastRun
	return &summary
}

func (s *Scheduler) run() {
	if _, err := s.RunOnce(s.ctx); err != nil {
		slog.Error("Run failed", "error", err)
	}
}
