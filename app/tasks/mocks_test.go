package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/lysyi3m/issue-comb/app/database"
	"github.com/lysyi3m/issue-comb/app/feed"
)

// MockIssueRepository is an in-memory issue store for testing
type MockIssueRepository struct {
	mu        sync.Mutex
	issues    []database.Issue
	listErr   error
	updateErr map[int64]error
	updates   map[int64]string
}

var _ database.IssueRepository = (*MockIssueRepository)(nil)

func NewMockIssueRepository(issues ...database.Issue) *MockIssueRepository {
	return &MockIssueRepository{
		issues:    issues,
		updateErr: map[int64]error{},
		updates:   map[int64]string{},
	}
}

func (m *MockIssueRepository) ListIssues(ctx context.Context) ([]database.Issue, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.issues, nil
}

func (m *MockIssueRepository) GetIssue(ctx context.Context, id int64) (*database.Issue, error) {
	for _, issue := range m.issues {
		if issue.ID == id {
			return &issue, nil
		}
	}
	return nil, nil
}

func (m *MockIssueRepository) CountIssues(ctx context.Context) (int, error) {
	return len(m.issues), nil
}

func (m *MockIssueRepository) CreateIssue(ctx context.Context, title string, body *string) (int64, error) {
	return 0, fmt.Errorf("not supported")
}

func (m *MockIssueRepository) UpdateIssueBody(ctx context.Context, id int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.updateErr[id]; err != nil {
		return err
	}
	m.updates[id] = body
	return nil
}

func (m *MockIssueRepository) Updates() map[int64]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	updates := make(map[int64]string, len(m.updates))
	for id, body := range m.updates {
		updates[id] = body
	}
	return updates
}

// MockResolver returns canned posts per feed URL
type MockResolver struct {
	mu    sync.Mutex
	posts map[string][]feed.Post
	calls []string
	panic bool
}

func (m *MockResolver) Resolve(ctx context.Context, url string) []feed.Post {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if m.panic {
		panic("resolver exploded")
	}

	if posts, ok := m.posts[url]; ok {
		return posts
	}
	return []feed.Post{}
}

func (m *MockResolver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func issueWithBody(id int64, body string) database.Issue {
	return database.Issue{ID: id, Title: fmt.Sprintf("Issue %d", id), Body: &body}
}

func directiveBody(feedURL string) string {
	return "Latest posts:\n\n```json\n{\"feed\": \"" + feedURL + "\"}\n```\n\nThanks!"
}
