package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/northstarhq/api/pkg/domain/cadence"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// CadenceRepository implements cadence.Repository using PostgreSQL.
type CadenceRepository struct {
	db *DB
}

// NewCadenceRepository creates a new CadenceRepository.
func NewCadenceRepository(db *DB) *CadenceRepository {
	return &CadenceRepository{db: db}
}

const selectCadence = `
	SELECT id, tenant_id, name, description, reminder_schedule, created_at, updated_at
	FROM cadences`

const selectTimeframe = `
	SELECT id, tenant_id, cadence_id, name, starts_on, ends_on, created_at, updated_at
	FROM timeframes`

// Create persists a new cadence.
func (r *CadenceRepository) Create(ctx context.Context, c *cadence.Cadence) error {
	query := `
		INSERT INTO cadences (id, tenant_id, name, description, reminder_schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID().String(),
		c.TenantID().String(),
		c.Name(),
		nullString(c.Description()),
		nullString(c.ReminderSchedule()),
		c.CreatedAt(),
		c.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create cadence: %w", err)
	}

	return nil
}

// GetByID retrieves a cadence within a tenant.
func (r *CadenceRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*cadence.Cadence, error) {
	query := selectCadence + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanCadence(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// Update updates an existing cadence.
func (r *CadenceRepository) Update(ctx context.Context, c *cadence.Cadence) error {
	query := `
		UPDATE cadences
		SET name = $3, description = $4, reminder_schedule = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		c.TenantID().String(),
		c.ID().String(),
		c.Name(),
		nullString(c.Description()),
		nullString(c.ReminderSchedule()),
		c.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update cadence: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes a cadence. The timeframes table restricts deletion, so
// a cadence with timeframes surfaces as ErrHasTimeframes.
func (r *CadenceRepository) Delete(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM cadences WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		if isForeignKeyViolation(err) {
			return cadence.ErrHasTimeframes
		}
		return fmt.Errorf("failed to delete cadence: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListByTenant lists the cadences of a tenant.
func (r *CadenceRepository) ListByTenant(ctx context.Context, tenantID shared.ID) ([]*cadence.Cadence, error) {
	query := selectCadence + ` WHERE tenant_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list cadences: %w", err)
	}
	defer rows.Close()

	var cadences []*cadence.Cadence
	for rows.Next() {
		c, err := r.scanCadenceRow(rows)
		if err != nil {
			return nil, err
		}
		cadences = append(cadences, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cadences: %w", err)
	}

	return cadences, nil
}

// CreateTimeframe persists a new timeframe.
func (r *CadenceRepository) CreateTimeframe(ctx context.Context, tf *cadence.Timeframe) error {
	query := `
		INSERT INTO timeframes (id, tenant_id, cadence_id, name, starts_on, ends_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		tf.ID().String(),
		tf.TenantID().String(),
		tf.CadenceID().String(),
		tf.Name(),
		tf.StartsOn(),
		tf.EndsOn(),
		tf.CreatedAt(),
		tf.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create timeframe: %w", err)
	}

	return nil
}

// GetTimeframeByID retrieves a timeframe within a tenant.
func (r *CadenceRepository) GetTimeframeByID(ctx context.Context, tenantID, id shared.ID) (*cadence.Timeframe, error) {
	query := selectTimeframe + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanTimeframe(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// UpdateTimeframe updates an existing timeframe.
func (r *CadenceRepository) UpdateTimeframe(ctx context.Context, tf *cadence.Timeframe) error {
	query := `
		UPDATE timeframes
		SET name = $3, starts_on = $4, ends_on = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		tf.TenantID().String(),
		tf.ID().String(),
		tf.Name(),
		tf.StartsOn(),
		tf.EndsOn(),
		tf.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update timeframe: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// DeleteTimeframe removes a timeframe. Objectives restrict deletion, so
// a referenced timeframe surfaces as ErrTimeframeInUse.
func (r *CadenceRepository) DeleteTimeframe(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM timeframes WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		if isForeignKeyViolation(err) {
			return cadence.ErrTimeframeInUse
		}
		return fmt.Errorf("failed to delete timeframe: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListTimeframes lists the timeframes of a cadence, earliest first.
func (r *CadenceRepository) ListTimeframes(ctx context.Context, tenantID, cadenceID shared.ID) ([]*cadence.Timeframe, error) {
	query := selectTimeframe + ` WHERE tenant_id = $1 AND cadence_id = $2 ORDER BY starts_on ASC`
	return r.listTimeframes(ctx, query, tenantID.String(), cadenceID.String())
}

// ListActiveTimeframes lists timeframes covering the current instant.
func (r *CadenceRepository) ListActiveTimeframes(ctx context.Context, tenantID shared.ID) ([]*cadence.Timeframe, error) {
	query := selectTimeframe + ` WHERE tenant_id = $1 AND starts_on <= NOW() AND ends_on > NOW() ORDER BY starts_on ASC`
	return r.listTimeframes(ctx, query, tenantID.String())
}

func (r *CadenceRepository) listTimeframes(ctx context.Context, query string, args ...any) ([]*cadence.Timeframe, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeframes: %w", err)
	}
	defer rows.Close()

	var timeframes []*cadence.Timeframe
	for rows.Next() {
		tf, err := r.scanTimeframeRow(rows)
		if err != nil {
			return nil, err
		}
		timeframes = append(timeframes, tf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timeframes: %w", err)
	}

	return timeframes, nil
}

func (r *CadenceRepository) scanCadence(row *sql.Row) (*cadence.Cadence, error) {
	var (
		rawID, rawTenantID, name      string
		description, reminderSchedule sql.NullString
		createdAt, updatedAt          time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &name, &description, &reminderSchedule, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cadence: %w", err)
	}

	return buildCadence(rawID, rawTenantID, name, description, reminderSchedule, createdAt, updatedAt)
}

func (r *CadenceRepository) scanCadenceRow(rows *sql.Rows) (*cadence.Cadence, error) {
	var (
		rawID, rawTenantID, name      string
		description, reminderSchedule sql.NullString
		createdAt, updatedAt          time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &name, &description, &reminderSchedule, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan cadence: %w", err)
	}

	return buildCadence(rawID, rawTenantID, name, description, reminderSchedule, createdAt, updatedAt)
}

func buildCadence(
	rawID, rawTenantID, name string,
	description, reminderSchedule sql.NullString,
	createdAt, updatedAt time.Time,
) (*cadence.Cadence, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid cadence ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}

	return cadence.Reconstitute(
		id,
		tenantID,
		name,
		nullStringValue(description),
		nullStringValue(reminderSchedule),
		createdAt,
		updatedAt,
	), nil
}

func (r *CadenceRepository) scanTimeframe(row *sql.Row) (*cadence.Timeframe, error) {
	var (
		rawID, rawTenantID, rawCadenceID, name string
		startsOn, endsOn                       time.Time
		createdAt, updatedAt                   time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &rawCadenceID, &name, &startsOn, &endsOn, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan timeframe: %w", err)
	}

	return buildTimeframe(rawID, rawTenantID, rawCadenceID, name, startsOn, endsOn, createdAt, updatedAt)
}

func (r *CadenceRepository) scanTimeframeRow(rows *sql.Rows) (*cadence.Timeframe, error) {
	var (
		rawID, rawTenantID, rawCadenceID, name string
		startsOn, endsOn                       time.Time
		createdAt, updatedAt                   time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &rawCadenceID, &name, &startsOn, &endsOn, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan timeframe: %w", err)
	}

	return buildTimeframe(rawID, rawTenantID, rawCadenceID, name, startsOn, endsOn, createdAt, updatedAt)
}

func buildTimeframe(
	rawID, rawTenantID, rawCadenceID, name string,
	startsOn, endsOn, createdAt, updatedAt time.Time,
) (*cadence.Timeframe, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	cadenceID, err := shared.IDFromString(rawCadenceID)
	if err != nil {
		return nil, fmt.Errorf("invalid cadence ID: %w", err)
	}

	return cadence.ReconstituteTimeframe(id, tenantID, cadenceID, name, startsOn, endsOn, createdAt, updatedAt), nil
}

// isForeignKeyViolation checks for a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}
