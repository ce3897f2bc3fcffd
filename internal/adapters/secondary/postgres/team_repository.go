package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

const teamColumns = "id, name, description, created_by, is_active, created_at, updated_at"

type TeamRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TeamRepository = (*TeamRepository)(nil)

func NewTeamRepository(pool *pgxpool.Pool) ports.TeamRepository {
	return &TeamRepository{pool: pool}
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatedBy,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	q := GetDBTX(ctx, r.pool)
	return scanTeam(q.QueryRow(ctx, `
		INSERT INTO teams (name, description, created_by, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+teamColumns,
		team.Name, team.Description, team.CreatedBy, team.IsActive,
	))
}

func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	q := GetDBTX(ctx, r.pool)
	return scanTeam(q.QueryRow(ctx, `
		SELECT `+teamColumns+` FROM teams WHERE id = $1 AND is_active = TRUE`, id))
}

func (r *TeamRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Team, error) {
	q := GetDBTX(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT t.id, t.name, t.description, t.created_by, t.is_active, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1 AND m.is_active = TRUE AND t.is_active = TRUE
		ORDER BY t.created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*domain.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// memberColumns joins users for the username so callers never need a second
// lookup to render a member list.
const memberColumns = `m.id, m.team_id, m.user_id, u.username, m.role, m.added_by, m.added_at, m.is_active`

func scanMember(row pgx.Row) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := row.Scan(
		&member.ID,
		&member.TeamID,
		&member.UserID,
		&member.Username,
		&member.Role,
		&member.AddedBy,
		&member.AddedAt,
		&member.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotTeamMember
		}
		return nil, err
	}
	return &member, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, member *domain.TeamMember) (*domain.TeamMember, error) {
	q := GetDBTX(ctx, r.pool)
	row := q.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO team_members (team_id, user_id, role, added_by, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, team_id, user_id, role, added_by, added_at, is_active
		)
		SELECT m.id, m.team_id, m.user_id, u.username, m.role, m.added_by, m.added_at, m.is_active
		FROM inserted m
		JOIN users u ON u.id = m.user_id`,
		member.TeamID, member.UserID, member.Role, member.AddedBy, member.IsActive,
	)

	added, err := scanMember(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, apperrors.ErrAlreadyTeamMember
		}
		return nil, err
	}
	return added, nil
}

func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	q := GetDBTX(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`,
		teamID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotTeamMember
	}
	return nil
}

func (r *TeamRepository) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error) {
	q := GetDBTX(ctx, r.pool)
	return scanMember(q.QueryRow(ctx, `
		SELECT `+memberColumns+`
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1 AND m.user_id = $2`,
		teamID, userID,
	))
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamMember, error) {
	q := GetDBTX(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+memberColumns+`
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1 AND m.is_active = TRUE
		ORDER BY m.added_at`,
		teamID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*domain.TeamMember, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
