package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/team"
)

// TeamRepository implements team.Repository using PostgreSQL.
type TeamRepository struct {
	db *DB
}

// NewTeamRepository creates a new TeamRepository.
func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const selectTeam = `
	SELECT id, tenant_id, name, slug, description, lead_id, created_at, updated_at
	FROM teams`

// Create persists a new team.
func (r *TeamRepository) Create(ctx context.Context, t *team.Team) error {
	query := `
		INSERT INTO teams (id, tenant_id, name, slug, description, lead_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.TenantID().String(),
		t.Name(),
		t.Slug(),
		nullString(t.Description()),
		nullID(t.LeadID()),
		t.CreatedAt(),
		t.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

// GetByID retrieves a team within a tenant.
func (r *TeamRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*team.Team, error) {
	query := selectTeam + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanTeam(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// Update updates an existing team.
func (r *TeamRepository) Update(ctx context.Context, t *team.Team) error {
	query := `
		UPDATE teams
		SET name = $3, slug = $4, description = $5, lead_id = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		t.TenantID().String(),
		t.ID().String(),
		t.Name(),
		t.Slug(),
		nullString(t.Description()),
		nullID(t.LeadID()),
		t.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update team: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes a team. Member edges cascade; objectives attached to
// the team keep existing with team_id set NULL at the schema level.
func (r *TeamRepository) Delete(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM teams WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListByTenant lists the teams of a tenant with pagination.
func (r *TeamRepository) ListByTenant(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*team.Team, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams WHERE tenant_id = $1`, tenantID.String(),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	query := selectTeam + ` WHERE tenant_id = $1 ORDER BY name ASC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*team.Team
	for rows.Next() {
		t, err := r.scanTeamRow(rows)
		if err != nil {
			return nil, 0, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, total, nil
}

// CountByTenant counts teams in a tenant. Used for plan quota checks.
func (r *TeamRepository) CountByTenant(ctx context.Context, tenantID shared.ID) (int64, error) {
	query := `SELECT COUNT(*) FROM teams WHERE tenant_id = $1`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}

	return count, nil
}

// AddMember adds a user to a team.
func (r *TeamRepository) AddMember(ctx context.Context, m *team.Member) error {
	query := `
		INSERT INTO team_members (team_id, user_id, added_by, added_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.TeamID().String(),
		m.UserID().String(),
		m.AddedBy().String(),
		m.AddedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to add team member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a team.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID shared.ID) error {
	query := `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, teamID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListMembers lists the members of a team, oldest first.
func (r *TeamRepository) ListMembers(ctx context.Context, teamID shared.ID) ([]*team.Member, error) {
	query := `
		SELECT team_id, user_id, added_by, added_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY added_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, teamID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []*team.Member
	for rows.Next() {
		var (
			rawTeamID, rawUserID, rawAddedBy string
			addedAt                          time.Time
		)
		if err := rows.Scan(&rawTeamID, &rawUserID, &rawAddedBy, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}

		tid, err := shared.IDFromString(rawTeamID)
		if err != nil {
			return nil, fmt.Errorf("invalid team ID: %w", err)
		}
		uid, err := shared.IDFromString(rawUserID)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID: %w", err)
		}
		addedBy, err := shared.IDFromString(rawAddedBy)
		if err != nil {
			return nil, fmt.Errorf("invalid addedBy ID: %w", err)
		}

		members = append(members, team.ReconstituteMember(tid, uid, addedBy, addedAt))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team members: %w", err)
	}

	return members, nil
}

// IsMember checks if a user belongs to a team.
func (r *TeamRepository) IsMember(ctx context.Context, teamID, userID shared.ID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, teamID.String(), userID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check team membership: %w", err)
	}

	return exists, nil
}

func (r *TeamRepository) scanTeam(row *sql.Row) (*team.Team, error) {
	var (
		rawID, rawTenantID, name, slug string
		description                    sql.NullString
		leadID                         sql.NullString
		createdAt, updatedAt           time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &name, &slug, &description, &leadID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}

	return buildTeam(rawID, rawTenantID, name, slug, description, leadID, createdAt, updatedAt)
}

func (r *TeamRepository) scanTeamRow(rows *sql.Rows) (*team.Team, error) {
	var (
		rawID, rawTenantID, name, slug string
		description                    sql.NullString
		leadID                         sql.NullString
		createdAt, updatedAt           time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &name, &slug, &description, &leadID, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}

	return buildTeam(rawID, rawTenantID, name, slug, description, leadID, createdAt, updatedAt)
}

func buildTeam(
	rawID, rawTenantID, name, slug string,
	description, leadID sql.NullString,
	createdAt, updatedAt time.Time,
) (*team.Team, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid team ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}

	return team.Reconstitute(
		id,
		tenantID,
		name,
		slug,
		nullStringValue(description),
		parseNullID(leadID),
		createdAt,
		updatedAt,
	), nil
}
