package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/objective"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// ObjectiveRepository implements objective.Repository using PostgreSQL.
// Every query carries a tenant_id predicate; rows from other tenants are
// invisible, so cross-tenant lookups surface as not-found.
type ObjectiveRepository struct {
	db *DB
}

// NewObjectiveRepository creates a new ObjectiveRepository.
func NewObjectiveRepository(db *DB) *ObjectiveRepository {
	return &ObjectiveRepository{db: db}
}

const selectObjective = `
	SELECT id, tenant_id, title, description, owner_id, team_id, timeframe_id,
	       status, progress, created_at, updated_at
	FROM objectives`

// Create persists a new objective.
func (r *ObjectiveRepository) Create(ctx context.Context, o *objective.Objective) error {
	query := `
		INSERT INTO objectives (id, tenant_id, title, description, owner_id, team_id, timeframe_id,
		                        status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		o.ID().String(),
		o.TenantID().String(),
		o.Title(),
		nullString(o.Description()),
		o.OwnerID().String(),
		nullID(o.TeamID()),
		nullID(o.TimeframeID()),
		o.Status().String(),
		o.Progress(),
		o.CreatedAt(),
		o.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create objective: %w", err)
	}

	return nil
}

// GetByID retrieves an objective within a tenant.
func (r *ObjectiveRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*objective.Objective, error) {
	query := selectObjective + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanObjective(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// Update updates an existing objective.
func (r *ObjectiveRepository) Update(ctx context.Context, o *objective.Objective) error {
	query := `
		UPDATE objectives
		SET title = $3, description = $4, owner_id = $5, team_id = $6, timeframe_id = $7,
		    status = $8, progress = $9, updated_at = $10
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		o.TenantID().String(),
		o.ID().String(),
		o.Title(),
		nullString(o.Description()),
		o.OwnerID().String(),
		nullID(o.TeamID()),
		nullID(o.TimeframeID()),
		o.Status().String(),
		o.Progress(),
		o.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update objective: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes an objective. Key results and check-ins cascade at the
// schema level.
func (r *ObjectiveRepository) Delete(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM objectives WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete objective: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// List returns objectives matching the filter within a tenant, plus the
// total count before pagination.
func (r *ObjectiveRepository) List(ctx context.Context, tenantID shared.ID, filter objective.Filter) ([]*objective.Objective, int64, error) {
	where := `WHERE tenant_id = $1`
	args := []any{tenantID.String()}

	if filter.OwnerID != nil {
		args = append(args, filter.OwnerID.String())
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if filter.TeamID != nil {
		args = append(args, filter.TeamID.String())
		where += fmt.Sprintf(" AND team_id = $%d", len(args))
	}
	if filter.TimeframeID != nil {
		args = append(args, filter.TimeframeID.String())
		where += fmt.Sprintf(" AND timeframe_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, filter.Status.String())
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, wrapLikePattern(filter.Search))
		where += fmt.Sprintf(" AND title ILIKE $%d", len(args))
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM objectives ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count objectives: %w", err)
	}

	query := selectObjective + ` ` + where + orderByCreatedAtDesc

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list objectives: %w", err)
	}
	defer rows.Close()

	var objectives []*objective.Objective
	for rows.Next() {
		o, err := r.scanObjectiveRow(rows)
		if err != nil {
			return nil, 0, err
		}
		objectives = append(objectives, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate objectives: %w", err)
	}

	return objectives, total, nil
}

// CountByTenant counts all objectives in a tenant. Used for plan quota
// checks.
func (r *ObjectiveRepository) CountByTenant(ctx context.Context, tenantID shared.ID) (int64, error) {
	query := `SELECT COUNT(*) FROM objectives WHERE tenant_id = $1`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count objectives: %w", err)
	}

	return count, nil
}

func (r *ObjectiveRepository) scanObjective(row *sql.Row) (*objective.Objective, error) {
	var (
		rawID, rawTenantID, title string
		description               sql.NullString
		rawOwnerID                string
		teamID, timeframeID       sql.NullString
		status                    string
		progress                  int
		createdAt, updatedAt      time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &title, &description, &rawOwnerID,
		&teamID, &timeframeID, &status, &progress, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan objective: %w", err)
	}

	return buildObjective(rawID, rawTenantID, title, description, rawOwnerID,
		teamID, timeframeID, status, progress, createdAt, updatedAt)
}

func (r *ObjectiveRepository) scanObjectiveRow(rows *sql.Rows) (*objective.Objective, error) {
	var (
		rawID, rawTenantID, title string
		description               sql.NullString
		rawOwnerID                string
		teamID, timeframeID       sql.NullString
		status                    string
		progress                  int
		createdAt, updatedAt      time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &title, &description, &rawOwnerID,
		&teamID, &timeframeID, &status, &progress, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan objective: %w", err)
	}

	return buildObjective(rawID, rawTenantID, title, description, rawOwnerID,
		teamID, timeframeID, status, progress, createdAt, updatedAt)
}

func buildObjective(
	rawID, rawTenantID, title string,
	description sql.NullString,
	rawOwnerID string,
	teamID, timeframeID sql.NullString,
	status string,
	progress int,
	createdAt, updatedAt time.Time,
) (*objective.Objective, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid objective ID: %w", err)
	}
	tid, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	ownerID, err := shared.IDFromString(rawOwnerID)
	if err != nil {
		return nil, fmt.Errorf("invalid owner ID: %w", err)
	}

	return objective.Reconstitute(
		id,
		tid,
		title,
		nullStringValue(description),
		ownerID,
		parseNullID(teamID),
		parseNullID(timeframeID),
		objective.Status(status),
		progress,
		createdAt,
		updatedAt,
	), nil
}
