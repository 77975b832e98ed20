package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/badge"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// BadgeRepository implements badge.Repository using PostgreSQL.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

const selectBadge = `
	SELECT id, tenant_id, name, description, icon, created_by, created_at, updated_at
	FROM badges`

const selectAward = `
	SELECT id, tenant_id, badge_id, recipient_id, awarded_by, note, awarded_at
	FROM badge_awards`

// Create persists a new badge.
func (r *BadgeRepository) Create(ctx context.Context, b *badge.Badge) error {
	query := `
		INSERT INTO badges (id, tenant_id, name, description, icon, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID().String(),
		b.TenantID().String(),
		b.Name(),
		nullString(b.Description()),
		nullString(b.Icon()),
		b.CreatedBy().String(),
		b.CreatedAt(),
		b.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create badge: %w", err)
	}

	return nil
}

// GetByID retrieves a badge within a tenant.
func (r *BadgeRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*badge.Badge, error) {
	query := selectBadge + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanBadge(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// Update updates an existing badge.
func (r *BadgeRepository) Update(ctx context.Context, b *badge.Badge) error {
	query := `
		UPDATE badges
		SET name = $3, description = $4, icon = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		b.TenantID().String(),
		b.ID().String(),
		b.Name(),
		nullString(b.Description()),
		nullString(b.Icon()),
		b.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update badge: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes a badge. Its awards cascade at the schema level.
func (r *BadgeRepository) Delete(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM badges WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete badge: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListByTenant lists the badges of a tenant.
func (r *BadgeRepository) ListByTenant(ctx context.Context, tenantID shared.ID) ([]*badge.Badge, error) {
	query := selectBadge + ` WHERE tenant_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*badge.Badge
	for rows.Next() {
		b, err := r.scanBadgeRow(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}

	return badges, nil
}

// CreateAward persists a new badge award.
func (r *BadgeRepository) CreateAward(ctx context.Context, a *badge.Award) error {
	query := `
		INSERT INTO badge_awards (id, tenant_id, badge_id, recipient_id, awarded_by, note, awarded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.TenantID().String(),
		a.BadgeID().String(),
		a.RecipientID().String(),
		a.AwardedBy().String(),
		nullString(a.Note()),
		a.AwardedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create badge award: %w", err)
	}

	return nil
}

// GetAwardByID retrieves an award within a tenant.
func (r *BadgeRepository) GetAwardByID(ctx context.Context, tenantID, id shared.ID) (*badge.Award, error) {
	query := selectAward + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanAward(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// DeleteAward removes an award.
func (r *BadgeRepository) DeleteAward(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM badge_awards WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete badge award: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListAwardsByRecipient lists the awards a member has received, newest
// first.
func (r *BadgeRepository) ListAwardsByRecipient(ctx context.Context, tenantID, recipientID shared.ID) ([]*badge.Award, error) {
	query := selectAward + ` WHERE tenant_id = $1 AND recipient_id = $2 ORDER BY awarded_at DESC`
	return r.listAwards(ctx, query, tenantID.String(), recipientID.String())
}

// ListAwardsByBadge lists the awards given for a badge, newest first.
func (r *BadgeRepository) ListAwardsByBadge(ctx context.Context, tenantID, badgeID shared.ID) ([]*badge.Award, error) {
	query := selectAward + ` WHERE tenant_id = $1 AND badge_id = $2 ORDER BY awarded_at DESC`
	return r.listAwards(ctx, query, tenantID.String(), badgeID.String())
}

func (r *BadgeRepository) listAwards(ctx context.Context, query string, args ...any) ([]*badge.Award, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}
	defer rows.Close()

	var awards []*badge.Award
	for rows.Next() {
		a, err := r.scanAwardRow(rows)
		if err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badge awards: %w", err)
	}

	return awards, nil
}

func (r *BadgeRepository) scanBadge(row *sql.Row) (*badge.Badge, error) {
	var (
		rawID, rawTenantID, name string
		description, icon        sql.NullString
		rawCreatedBy             string
		createdAt, updatedAt     time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &name, &description, &icon, &rawCreatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan badge: %w", err)
	}

	return buildBadge(rawID, rawTenantID, name, description, icon, rawCreatedBy, createdAt, updatedAt)
}

func (r *BadgeRepository) scanBadgeRow(rows *sql.Rows) (*badge.Badge, error) {
	var (
		rawID, rawTenantID, name string
		description, icon        sql.NullString
		rawCreatedBy             string
		createdAt, updatedAt     time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &name, &description, &icon, &rawCreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan badge: %w", err)
	}

	return buildBadge(rawID, rawTenantID, name, description, icon, rawCreatedBy, createdAt, updatedAt)
}

func buildBadge(
	rawID, rawTenantID, name string,
	description, icon sql.NullString,
	rawCreatedBy string,
	createdAt, updatedAt time.Time,
) (*badge.Badge, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid badge ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	createdBy, err := shared.IDFromString(rawCreatedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid createdBy ID: %w", err)
	}

	return badge.Reconstitute(id, tenantID, name, nullStringValue(description), nullStringValue(icon), createdBy, createdAt, updatedAt), nil
}

func (r *BadgeRepository) scanAward(row *sql.Row) (*badge.Award, error) {
	var (
		rawID, rawTenantID, rawBadgeID, rawRecipientID, rawAwardedBy string
		note                                                         sql.NullString
		awardedAt                                                    time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &rawBadgeID, &rawRecipientID, &rawAwardedBy, &note, &awardedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan badge award: %w", err)
	}

	return buildAward(rawID, rawTenantID, rawBadgeID, rawRecipientID, rawAwardedBy, note, awardedAt)
}

func (r *BadgeRepository) scanAwardRow(rows *sql.Rows) (*badge.Award, error) {
	var (
		rawID, rawTenantID, rawBadgeID, rawRecipientID, rawAwardedBy string
		note                                                         sql.NullString
		awardedAt                                                    time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &rawBadgeID, &rawRecipientID, &rawAwardedBy, &note, &awardedAt); err != nil {
		return nil, fmt.Errorf("failed to scan badge award: %w", err)
	}

	return buildAward(rawID, rawTenantID, rawBadgeID, rawRecipientID, rawAwardedBy, note, awardedAt)
}

func buildAward(rawID, rawTenantID, rawBadgeID, rawRecipientID, rawAwardedBy string, note sql.NullString, awardedAt time.Time) (*badge.Award, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid award ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	badgeID, err := shared.IDFromString(rawBadgeID)
	if err != nil {
		return nil, fmt.Errorf("invalid badge ID: %w", err)
	}
	recipientID, err := shared.IDFromString(rawRecipientID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient ID: %w", err)
	}
	awardedBy, err := shared.IDFromString(rawAwardedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid awardedBy ID: %w", err)
	}

	return badge.ReconstituteAward(id, tenantID, badgeID, recipientID, awardedBy, nullStringValue(note), awardedAt), nil
}
