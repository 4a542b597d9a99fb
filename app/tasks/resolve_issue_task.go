package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/issue-comb/app/database"
	"github.com/lysyi3m/issue-comb/app/directive"
)

var errNoFeed = errors.New("directive has no feed")

var _ TaskInterface = (*ResolveIssueTask)(nil)

// ResolveIssueTask rewrites one issue body: the directive's feed is resolved
// and the posts are written back into the directive.
type ResolveIssueTask struct {
	Task
	issue     database.Issue
	resolver  PostResolver
	issueRepo database.IssueRepository
	dryRun    bool

	feedURL   string
	postCount int
}

func NewResolveIssueTask(issue database.Issue, resolver PostResolver, issueRepo database.IssueRepository, dryRun bool) *ResolveIssueTask {
	return &ResolveIssueTask{
		Task:      NewTask(TaskTypeResolveIssue, issue.ID),
		issue:     issue,
		resolver:  resolver,
		issueRepo: issueRepo,
		dryRun:    dryRun,
	}
}

func (t *ResolveIssueTask) Execute(ctx context.Context) error {
	t.Start()

	body := t.issue.BodyText()
	if strings.TrimSpace(body) == "" {
		slog.Debug("Issue has no body, skipping", "issue", t.IssueID)
		t.Outcome = OutcomeSkipped
		return nil
	}

	updated, err := directive.ExtractAndReplace(body, t.transform(ctx))
	switch {
	case errors.Is(err, directive.ErrNotFound):
		slog.Debug("No directive in issue, skipping", "issue", t.IssueID)
		t.Outcome = OutcomeSkipped
		return nil
	case errors.Is(err, errNoFeed):
		slog.Debug("Directive has no feed, skipping", "issue", t.IssueID)
		t.Outcome = OutcomeSkipped
		return nil
	case errors.Is(err, directive.ErrMalformed):
		slog.Warn("Malformed directive, skipping", "issue", t.IssueID, "error", err)
		t.Outcome = OutcomeSkipped
		return nil
	case err != nil:
		t.Outcome = OutcomeFailed
		return fmt.Errorf("failed to rewrite issue %d: %w", t.IssueID, err)
	}

	if updated == body {
		t.Outcome = OutcomeUnchanged
		t.logCompleted()
		return nil
	}

	if t.dryRun {
		slog.Debug("Dry run, issue body not saved", "issue", t.IssueID, "body", updated)
		t.Outcome = OutcomeUpdated
		t.logCompleted()
		return nil
	}

	if err := t.issueRepo.UpdateIssueBody(ctx, t.IssueID, updated); err != nil {
		t.Outcome = OutcomeFailed
		return fmt.Errorf("failed to update issue %d: %w", t.IssueID, err)
	}

	t.Outcome = OutcomeUpdated
	t.logCompleted()

	return nil
}

func (t *ResolveIssueTask) transform(ctx context.Context) func(*directive.Directive) error {
	return func(d *directive.Directive) error {
		url, ok := d.Feed()
		if !ok {
			return errNoFeed
		}

		posts := t.resolver.Resolve(ctx, url)
		t.feedURL = url
		t.postCount = len(posts)

		return d.SetPosts(posts)
	}
}

func (t *ResolveIssueTask) logCompleted() {
	slog.Info("Task completed",
		"type", string(t.Type),
		"issue", t.IssueID,
		"feed", t.feedURL,
		"posts", t.postCount,
		"outcome", string(t.Outcome),
		"dry_run", t.dryRun,
		"duration", t.GetDuration())
}
