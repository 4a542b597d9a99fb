package database

import (
	"context"
	"errors"
)

var ErrIssueNotFound = errors.New("issue not found")

// IssueRepository is the issue store the worker reads from and writes back to.
type IssueRepository interface {
	ListIssues(ctx context.Context) ([]Issue, error)
	GetIssue(ctx context.Context, id int64) (*Issue, error)
	CountIssues(ctx context.Context) (int, error)

	CreateIssue(ctx context.Context, title string, body *string) (int64, error)
	UpdateIssueBody(ctx context.Context, id int64, body string) error
}
