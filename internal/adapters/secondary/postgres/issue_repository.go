package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

const issueColumns = "id, team_id, title, description, status, priority, tags, created_by, assigned_to, created_at, updated_at"

type IssueRepository struct {
	pool *pgxpool.Pool
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(pool *pgxpool.Pool) ports.IssueRepository {
	return &IssueRepository{pool: pool}
}

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var issue domain.Issue
	err := row.Scan(
		&issue.ID,
		&issue.TeamID,
		&issue.Title,
		&issue.Description,
		&issue.Status,
		&issue.Priority,
		&issue.Tags,
		&issue.CreatedBy,
		&issue.AssignedTo,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	q := GetDBTX(ctx, r.pool)
	return scanIssue(q.QueryRow(ctx, `
		INSERT INTO issues (team_id, title, description, status, priority, tags, created_by, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+issueColumns,
		issue.TeamID, issue.Title, issue.Description, issue.Status, issue.Priority,
		issue.Tags, issue.CreatedBy, issue.AssignedTo,
	))
}

func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	q := GetDBTX(ctx, r.pool)
	return scanIssue(q.QueryRow(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1`, id))
}

func (r *IssueRepository) Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	q := GetDBTX(ctx, r.pool)
	return scanIssue(q.QueryRow(ctx, `
		UPDATE issues
		SET title = $2, description = $3, status = $4, priority = $5, tags = $6,
		    assigned_to = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+issueColumns,
		issue.ID, issue.Title, issue.Description, issue.Status, issue.Priority,
		issue.Tags, issue.AssignedTo,
	))
}

func (r *IssueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := GetDBTX(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIssueNotFound
	}
	return nil
}

func (r *IssueRepository) ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*domain.Issue, error) {
	q := GetDBTX(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE team_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		teamID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIssues(rows)
}

func (r *IssueRepository) ListByAssignee(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Issue, error) {
	q := GetDBTX(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE assigned_to = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIssues(rows)
}

func collectIssues(rows pgx.Rows) ([]*domain.Issue, error) {
	issues := make([]*domain.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}
