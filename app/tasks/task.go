package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeResolveIssue TaskType = "resolve_issue"
)

// Outcome is what a task did with its issue.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetIssueID() int64
	GetOutcome() Outcome
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID        string
	Type      TaskType
	IssueID   int64
	Outcome   Outcome
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetIssueID() int64 {
	return t.IssueID
}

func (t *Task) GetOutcome() Outcome {
	return t.Outcome
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, issueID int64) Task {
	return Task{
		ID:      uuid.NewString(),
		Type:    taskType,
		IssueID: issueID,
	}
}
