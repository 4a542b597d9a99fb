package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ListPageSize is the number of issues fetched per query while listing.
const ListPageSize = 100

type SQLiteIssueRepository struct {
	db *DB
}

// NewIssueRepository creates a new SQLite-backed issue repository
func NewIssueRepository(db *DB) *SQLiteIssueRepository {
	return &SQLiteIssueRepository{db: db}
}

// ListIssues returns every issue ordered by id, reading the table one page at a time
func (r *SQLiteIssueRepository) ListIssues(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	var lastID int64

	for {
		page, err := r.listPage(ctx, lastID, ListPageSize)
		if err != nil {
			return nil, err
		}

		issues = append(issues, page...)
		if len(page) < ListPageSize {
			break
		}
		lastID = page[len(page)-1].ID
	}

	return issues, nil
}

func (r *SQLiteIssueRepository) listPage(ctx context.Context, afterID int64, limit int) ([]Issue, error) {
	query := `
		SELECT id, title, body, created_at, updated_at
		FROM issues
		WHERE id > ?
		ORDER BY id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, *issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}

	return issues, nil
}

// GetIssue retrieves an issue by id; a missing issue yields nil without error
func (r *SQLiteIssueRepository) GetIssue(ctx context.Context, id int64) (*Issue, error) {
	query := `
		SELECT id, title, body, created_at, updated_at
		FROM issues
		WHERE id = ?`

	issue, err := scanIssue(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return issue, nil
}

func (r *SQLiteIssueRepository) CountIssues(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count issues: %w", err)
	}
	return count, nil
}

// CreateIssue inserts a new issue and returns its id
func (r *SQLiteIssueRepository) CreateIssue(ctx context.Context, title string, body *string) (int64, error) {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO issues (title, body, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		title, nullString(body), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create issue: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get issue id: %w", err)
	}

	return id, nil
}

// UpdateIssueBody replaces the body of an existing issue
func (r *SQLiteIssueRepository) UpdateIssueBody(ctx context.Context, id int64, body string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE issues SET body = ?, updated_at = ? WHERE id = ?`,
		body, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update issue body: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrIssueNotFound, id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*Issue, error) {
	var issue Issue
	var body sql.NullString

	err := row.Scan(&issue.ID, &issue.Title, &body, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if body.Valid {
		issue.Body = &body.String
	}

	return &issue, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
