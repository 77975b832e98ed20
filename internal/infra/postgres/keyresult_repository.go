package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/keyresult"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// KeyResultRepository implements keyresult.Repository using PostgreSQL.
// Key results carry their own tenant_id column so tenant filtering never
// depends on a join with objectives.
type KeyResultRepository struct {
	db *DB
}

// NewKeyResultRepository creates a new KeyResultRepository.
func NewKeyResultRepository(db *DB) *KeyResultRepository {
	return &KeyResultRepository{db: db}
}

const selectKeyResult = `
	SELECT id, tenant_id, objective_id, title, kind, start_value, target_value, current_value,
	       unit, confidence, created_at, updated_at
	FROM key_results`

// Create persists a new key result.
func (r *KeyResultRepository) Create(ctx context.Context, kr *keyresult.KeyResult) error {
	query := `
		INSERT INTO key_results (id, tenant_id, objective_id, title, kind, start_value, target_value,
		                         current_value, unit, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		kr.ID().String(),
		kr.TenantID().String(),
		kr.ObjectiveID().String(),
		kr.Title(),
		kr.Kind().String(),
		kr.StartValue(),
		kr.TargetValue(),
		kr.CurrentValue(),
		nullString(kr.Unit()),
		kr.Confidence(),
		kr.CreatedAt(),
		kr.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create key result: %w", err)
	}

	return nil
}

// GetByID retrieves a key result within a tenant.
func (r *KeyResultRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*keyresult.KeyResult, error) {
	query := selectKeyResult + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanKeyResult(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// Update updates an existing key result.
func (r *KeyResultRepository) Update(ctx context.Context, kr *keyresult.KeyResult) error {
	query := `
		UPDATE key_results
		SET title = $3, target_value = $4, current_value = $5, unit = $6, confidence = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		kr.TenantID().String(),
		kr.ID().String(),
		kr.Title(),
		kr.TargetValue(),
		kr.CurrentValue(),
		nullString(kr.Unit()),
		kr.Confidence(),
		kr.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update key result: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes a key result. Its check-ins cascade at the schema level.
func (r *KeyResultRepository) Delete(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM key_results WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete key result: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListByObjective lists the key results of an objective, oldest first.
func (r *KeyResultRepository) ListByObjective(ctx context.Context, tenantID, objectiveID shared.ID) ([]*keyresult.KeyResult, error) {
	query := selectKeyResult + ` WHERE tenant_id = $1 AND objective_id = $2 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String(), objectiveID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list key results: %w", err)
	}
	defer rows.Close()

	var results []*keyresult.KeyResult
	for rows.Next() {
		kr, err := r.scanKeyResultRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate key results: %w", err)
	}

	return results, nil
}

// ListByTenant lists key results across the tenant with pagination.
func (r *KeyResultRepository) ListByTenant(ctx context.Context, tenantID shared.ID, limit, offset int) ([]*keyresult.KeyResult, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM key_results WHERE tenant_id = $1`, tenantID.String(),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count key results: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	query := selectKeyResult + ` WHERE tenant_id = $1` + orderByCreatedAtDesc + ` LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list key results: %w", err)
	}
	defer rows.Close()

	var results []*keyresult.KeyResult
	for rows.Next() {
		kr, err := r.scanKeyResultRow(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, kr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate key results: %w", err)
	}

	return results, total, nil
}

func (r *KeyResultRepository) scanKeyResult(row *sql.Row) (*keyresult.KeyResult, error) {
	var (
		rawID, rawTenantID, rawObjectiveID    string
		title, kind                           string
		startValue, targetValue, currentValue float64
		unit                                  sql.NullString
		confidence                            int
		createdAt, updatedAt                  time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &rawObjectiveID, &title, &kind,
		&startValue, &targetValue, &currentValue, &unit, &confidence, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan key result: %w", err)
	}

	return buildKeyResult(rawID, rawTenantID, rawObjectiveID, title, kind,
		startValue, targetValue, currentValue, unit, confidence, createdAt, updatedAt)
}

func (r *KeyResultRepository) scanKeyResultRow(rows *sql.Rows) (*keyresult.KeyResult, error) {
	var (
		rawID, rawTenantID, rawObjectiveID    string
		title, kind                           string
		startValue, targetValue, currentValue float64
		unit                                  sql.NullString
		confidence                            int
		createdAt, updatedAt                  time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &rawObjectiveID, &title, &kind,
		&startValue, &targetValue, &currentValue, &unit, &confidence, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan key result: %w", err)
	}

	return buildKeyResult(rawID, rawTenantID, rawObjectiveID, title, kind,
		startValue, targetValue, currentValue, unit, confidence, createdAt, updatedAt)
}

func buildKeyResult(
	rawID, rawTenantID, rawObjectiveID, title, kind string,
	startValue, targetValue, currentValue float64,
	unit sql.NullString,
	confidence int,
	createdAt, updatedAt time.Time,
) (*keyresult.KeyResult, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid key result ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	objectiveID, err := shared.IDFromString(rawObjectiveID)
	if err != nil {
		return nil, fmt.Errorf("invalid objective ID: %w", err)
	}

	return keyresult.Reconstitute(
		id,
		tenantID,
		objectiveID,
		title,
		keyresult.Kind(kind),
		startValue,
		targetValue,
		currentValue,
		nullStringValue(unit),
		confidence,
		createdAt,
		updatedAt,
	), nil
}
