package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/checkin"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// CheckInRepository implements checkin.Repository using PostgreSQL.
type CheckInRepository struct {
	db *DB
}

// NewCheckInRepository creates a new CheckInRepository.
func NewCheckInRepository(db *DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

const selectCheckIn = `
	SELECT id, tenant_id, key_result_id, author_id, value, confidence, note, created_at
	FROM check_ins`

// Create persists a new check-in.
func (r *CheckInRepository) Create(ctx context.Context, c *checkin.CheckIn) error {
	query := `
		INSERT INTO check_ins (id, tenant_id, key_result_id, author_id, value, confidence, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID().String(),
		c.TenantID().String(),
		c.KeyResultID().String(),
		c.AuthorID().String(),
		c.Value(),
		c.Confidence(),
		nullString(c.Note()),
		c.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create check-in: %w", err)
	}

	return nil
}

// GetByID retrieves a check-in within a tenant.
func (r *CheckInRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*checkin.CheckIn, error) {
	query := selectCheckIn + ` WHERE tenant_id = $1 AND id = $2`

	c, err := r.scanCheckIn(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListByKeyResult lists check-ins of a key result, newest first.
func (r *CheckInRepository) ListByKeyResult(ctx context.Context, tenantID, keyResultID shared.ID, limit, offset int) ([]*checkin.CheckIn, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM check_ins WHERE tenant_id = $1 AND key_result_id = $2`,
		tenantID.String(), keyResultID.String(),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count check-ins: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	query := selectCheckIn + ` WHERE tenant_id = $1 AND key_result_id = $2` + orderByCreatedAtDesc + ` LIMIT $3 OFFSET $4`

	return r.list(ctx, query, total, tenantID.String(), keyResultID.String(), limit, offset)
}

// ListByTenant lists check-ins across the tenant, newest first.
func (r *CheckInRepository) ListByTenant(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*checkin.CheckIn, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM check_ins WHERE tenant_id = $1`, tenantID.String(),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count check-ins: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	query := selectCheckIn + ` WHERE tenant_id = $1` + orderByCreatedAtDesc + ` LIMIT $2 OFFSET $3`

	return r.list(ctx, query, total, tenantID.String(), limit, offset)
}

func (r *CheckInRepository) list(ctx context.Context, query string, total int64, args ...any) ([]*checkin.CheckIn, int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []*checkin.CheckIn
	for rows.Next() {
		var (
			rawID, rawTenantID, rawKeyResultID, rawAuthorID string
			value                                           float64
			confidence                                      int
			note                                            sql.NullString
			createdAt                                       time.Time
		)
		if err := rows.Scan(&rawID, &rawTenantID, &rawKeyResultID, &rawAuthorID,
			&value, &confidence, &note, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan check-in: %w", err)
		}

		c, err := buildCheckIn(rawID, rawTenantID, rawKeyResultID, rawAuthorID, value, confidence, note, createdAt)
		if err != nil {
			return nil, 0, err
		}
		checkIns = append(checkIns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate check-ins: %w", err)
	}

	return checkIns, total, nil
}

func (r *CheckInRepository) scanCheckIn(row *sql.Row) (*checkin.CheckIn, error) {
	var (
		rawID, rawTenantID, rawKeyResultID, rawAuthorID string
		value                                           float64
		confidence                                      int
		note                                            sql.NullString
		createdAt                                       time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &rawKeyResultID, &rawAuthorID,
		&value, &confidence, &note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan check-in: %w", err)
	}

	return buildCheckIn(rawID, rawTenantID, rawKeyResultID, rawAuthorID, value, confidence, note, createdAt)
}

func buildCheckIn(
	rawID, rawTenantID, rawKeyResultID, rawAuthorID string,
	value float64,
	confidence int,
	note sql.NullString,
	createdAt time.Time,
) (*checkin.CheckIn, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid check-in ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	keyResultID, err := shared.IDFromString(rawKeyResultID)
	if err != nil {
		return nil, fmt.Errorf("invalid key result ID: %w", err)
	}
	authorID, err := shared.IDFromString(rawAuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %w", err)
	}

	return checkin.Reconstitute(id, tenantID, keyResultID, authorID, value, confidence, nullStringValue(note), createdAt), nil
}
