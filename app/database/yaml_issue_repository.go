package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type yamlIssueFile struct {
	Issues []Issue `yaml:"issues"`
}

// YAMLIssueRepository keeps issues in a single YAML document on disk.
// Every call re-reads the file so external edits are picked up between runs.
type YAMLIssueRepository struct {
	path string
	mu   sync.Mutex
}

// NewYAMLIssueRepository creates a file-backed issue repository
func NewYAMLIssueRepository(path string) *YAMLIssueRepository {
	return &YAMLIssueRepository{path: path}
}

func (r *YAMLIssueRepository) ListIssues(ctx context.Context) ([]Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	issues := slices.Clone(doc.Issues)
	slices.SortFunc(issues, func(a, b Issue) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return issues, nil
}

func (r *YAMLIssueRepository) GetIssue(ctx context.Context, id int64) (*Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	idx := doc.index(id)
	if idx < 0 {
		return nil, nil
	}

	issue := doc.Issues[idx]
	return &issue, nil
}

func (r *YAMLIssueRepository) CountIssues(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return 0, err
	}

	return len(doc.Issues), nil
}

func (r *YAMLIssueRepository) CreateIssue(ctx context.Context, title string, body *string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return 0, err
	}

	var nextID int64 = 1
	for _, issue := range doc.Issues {
		nextID = max(nextID, issue.ID+1)
	}

	now := time.Now().UTC()
	doc.Issues = append(doc.Issues, Issue{
		ID:        nextID,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := r.save(doc); err != nil {
		return 0, err
	}

	return nextID, nil
}

func (r *YAMLIssueRepository) UpdateIssueBody(ctx context.Context, id int64, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}

	idx := doc.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrIssueNotFound, id)
	}

	doc.Issues[idx].Body = &body
	doc.Issues[idx].UpdatedAt = time.Now().UTC()

	return r.save(doc)
}

func (r *YAMLIssueRepository) load() (*yamlIssueFile, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &yamlIssueFile{}, nil
		}
		return nil, fmt.Errorf("failed to read issues file: %w", err)
	}

	var doc yamlIssueFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse issues file: %w", err)
	}

	return &doc, nil
}

// save writes to a temp file in the same directory and renames it over the original.
func (r *YAMLIssueRepository) save(doc *yamlIssueFile) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode issues: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".issues-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write issues file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write issues file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace issues file: %w", err)
	}

	return nil
}

func (f *yamlIssueFile) index(id int64) int {
	return slices.IndexFunc(f.Issues, func(issue Issue) bool {
		return issue.ID == id
	})
}
